package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		vouchersProvisionedTotal,
		notificationsTotal,
		acceptedWithoutVoucher,
	)
}

var (
	vouchersProvisionedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vouchers_provisioned_total",
			Help: "Voucher provisioning attempts by result.",
		},
		[]string{"result"}, // ok|router_unreachable|router_rejected|invariant|store_error
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Outbound notifications by channel and delivery status.",
		},
		[]string{"channel", "status"}, // channel=email|telegram, status=sent|error|skipped|dropped
	)

	acceptedWithoutVoucher = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "transactions_accepted_without_voucher",
			Help: "Accepted transactions that still have no voucher after the grace period.",
		},
	)
)

func IncProvisioning(result string) {
	vouchersProvisionedTotal.WithLabelValues(norm(result)).Inc()
}

func IncNotification(channel, status string) {
	notificationsTotal.WithLabelValues(norm(channel), norm(status)).Inc()
}

func SetAcceptedWithoutVoucher(n int) {
	acceptedWithoutVoucher.Set(float64(n))
}
