package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(webhookOutcomes) }

// outcome: ok|already_accepted|ignored|upstream_error|provisioning_error|error
var webhookOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "payment_webhook_outcomes_total",
		Help: "Payment notifications by reconciliation outcome.",
	},
	[]string{"outcome"},
)

func IncWebhookOutcome(outcome string) {
	webhookOutcomes.WithLabelValues(norm(outcome)).Inc()
}
