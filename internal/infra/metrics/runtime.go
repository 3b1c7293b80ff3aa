package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	pending      []prometheus.Collector
)

// register queues collectors from package init; MustRegister publishes them.
func register(cs ...prometheus.Collector) { pending = append(pending, cs...) }

// MustRegister adds every queued collector to the default registry. Safe to
// call more than once.
func MustRegister() {
	registerOnce.Do(func() {
		for _, c := range pending {
			prometheus.MustRegister(c)
		}
	})
}

func init() { register(dbPoolConns, cacheLookupsTotal, buildInfo) }

var (
	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_connections",
			Help: "Postgres pool connections by state (total, idle, acquired).",
		},
		[]string{"state"},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Read-through cache lookups by cache name and hit/miss.",
		},
		[]string{"cache", "result"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Always 1; labelled with the running version and commit.",
		},
		[]string{"version", "commit"},
	)
)

func SetDBPoolStats(total, idle, acquired int32) {
	for state, v := range map[string]int32{"total": total, "idle": idle, "acquired": acquired} {
		dbPoolConns.WithLabelValues(state).Set(float64(v))
	}
}

func IncCacheRequest(cache, result string) {
	cacheLookupsTotal.WithLabelValues(norm(cache), norm(result)).Inc()
}

func SetBuildInfo(version, commit string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version, commit).Set(1)
}
