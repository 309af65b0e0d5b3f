package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcomes.
const (
	OutcomeSucceeded   = "succeeded"
	OutcomeDeclined    = "declined"
	OutcomeInvalidCard = "invalid_card"
	OutcomeRejected    = "rejected"
	OutcomeError       = "error"
)

// CheckoutMetrics counts checkout attempts by outcome and times gateway calls.
type CheckoutMetrics struct {
	outcomes *prometheus.CounterVec
	gateway  prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on reg. A nil registerer
// yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcomes_total",
		Help: "Checkout attempts partitioned by outcome.",
	}, []string{"outcome"})
	gateway := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_gateway_duration_seconds",
		Help:    "Latency of payment gateway charges.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(outcomes, gateway)
	return &CheckoutMetrics{outcomes: outcomes, gateway: gateway}
}

func (c *CheckoutMetrics) IncOutcome(outcome string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (c *CheckoutMetrics) ObserveGateway(duration time.Duration) {
	if c == nil || c.gateway == nil {
		return
	}
	c.gateway.Observe(duration.Seconds())
}
