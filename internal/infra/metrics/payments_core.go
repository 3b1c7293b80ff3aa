package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		gatewayCallDuration,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment transitions by status (pending/accepted/refused/other).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of accepted payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	// op: initialize|verify, result: ok|error
	gatewayCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_call_duration_seconds",
			Help:    "Latency of outbound payment gateway calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"gateway", "op", "result"},
	)
)

func IncPayment(status string) {
	switch s := norm(status); s {
	case "pending", "accepted", "refused":
		paymentsTotal.WithLabelValues(s).Inc()
	default:
		paymentsTotal.WithLabelValues("other").Inc()
	}
}

func AddPaymentRevenue(currency string, amount float64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(amount)
}

func ObserveGatewayCall(gateway, op string, ok bool, seconds float64) {
	result := "ok"
	if !ok {
		result = "error"
	}
	gatewayCallDuration.WithLabelValues(norm(gateway), norm(op), result).Observe(seconds)
}
