package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCheckoutMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)
	m.IncOutcome(OutcomeSucceeded)
	m.IncOutcome(OutcomeSucceeded)
	m.IncOutcome(OutcomeDeclined)
	m.ObserveGateway(10 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchValue(mfs, "checkout_outcomes_total", map[string]string{"outcome": OutcomeSucceeded}); err != nil || got != 2 {
		t.Fatalf("expected succeeded=2, got %f (%v)", got, err)
	}
	if got, err := fetchValue(mfs, "checkout_outcomes_total", map[string]string{"outcome": OutcomeDeclined}); err != nil || got != 1 {
		t.Fatalf("expected declined=1, got %f (%v)", got, err)
	}
	if _, err := fetchValue(mfs, "checkout_gateway_duration_seconds", map[string]string{}); err != nil {
		t.Fatalf("expected gateway histogram: %v", err)
	}
}

func TestNilCheckoutMetricsAreNoop(t *testing.T) {
	var m *CheckoutMetrics
	m.IncOutcome(OutcomeError)
	m.ObserveGateway(time.Second)
	NewCheckoutMetrics(nil).IncOutcome(OutcomeError)
}
