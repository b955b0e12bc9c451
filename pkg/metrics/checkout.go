package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout and refund outcomes, including orphaned
// charges left behind when the atomic commit loses a stock race after capture.
type CheckoutMetrics struct {
	checkoutSuccess prometheus.Counter
	checkoutFailure *prometheus.CounterVec
	orphanedCharges prometheus.Counter
	refundSuccess   prometheus.Counter
	refundFailure   *prometheus.CounterVec
}

// NewCheckoutMetrics registers the engine metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	checkoutSuccess := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_success_total",
		Help: "Checkouts that committed an order.",
	})
	checkoutFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failure_total",
		Help: "Checkouts that failed, labeled by error code.",
	}, []string{"reason"})
	orphanedCharges := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_orphaned_charge_total",
		Help: "Captured payments whose commit lost a stock race; needs out-of-band reconciliation.",
	})
	refundSuccess := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "refund_success_total",
		Help: "Refunds confirmed by the gateway and committed.",
	})
	refundFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_failure_total",
		Help: "Refunds that failed, labeled by error code.",
	}, []string{"reason"})
	reg.MustRegister(checkoutSuccess, checkoutFailure, orphanedCharges, refundSuccess, refundFailure)
	return &CheckoutMetrics{
		checkoutSuccess: checkoutSuccess,
		checkoutFailure: checkoutFailure,
		orphanedCharges: orphanedCharges,
		refundSuccess:   refundSuccess,
		refundFailure:   refundFailure,
	}
}

// IncCheckoutSuccess counts a committed checkout.
func (m *CheckoutMetrics) IncCheckoutSuccess() {
	if m == nil || m.checkoutSuccess == nil {
		return
	}
	m.checkoutSuccess.Inc()
}

// IncCheckoutFailure counts a failed checkout by reason.
func (m *CheckoutMetrics) IncCheckoutFailure(reason string) {
	if m == nil || m.checkoutFailure == nil {
		return
	}
	m.checkoutFailure.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncOrphanedCharge counts a captured-but-unpersisted payment.
func (m *CheckoutMetrics) IncOrphanedCharge() {
	if m == nil || m.orphanedCharges == nil {
		return
	}
	m.orphanedCharges.Inc()
}

// IncRefundSuccess counts a committed refund.
func (m *CheckoutMetrics) IncRefundSuccess() {
	if m == nil || m.refundSuccess == nil {
		return
	}
	m.refundSuccess.Inc()
}

// IncRefundFailure counts a failed refund by reason.
func (m *CheckoutMetrics) IncRefundFailure(reason string) {
	if m == nil || m.refundFailure == nil {
		return
	}
	m.refundFailure.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(reason string) string {
	if reason == "" {
		return "unknown"
	}
	return reason
}
