package metrics

import (
	"context"
	"testing"
)

func TestPrometheusProviderCounterAndHistogram(t *testing.T) {
	p := NewPrometheusProvider(PrometheusProviderOptions{})

	c := p.NewCounter(CounterOpts{CommonOpts: CommonOpts{Name: "fetch_attempts_total", Labels: []string{"strategy"}}})
	c.Inc(1, "http")
	c.Inc(2, "http")

	h := p.NewHistogram(HistogramOpts{CommonOpts: CommonOpts{Name: "fetch_duration_seconds"}})
	h.Observe(0.5)

	if err := p.Health(context.Background()); err != nil {
		t.Fatalf("expected healthy provider, got %v", err)
	}
}

func TestPrometheusProviderRejectsEmptyName(t *testing.T) {
	p := NewPrometheusProvider(PrometheusProviderOptions{})
	c := p.NewCounter(CounterOpts{})
	// falls back to a noop counter rather than panicking
	c.Inc(1)
}

func TestPrometheusProviderTimerObservesDuration(t *testing.T) {
	p := NewPrometheusProvider(PrometheusProviderOptions{})
	stop := p.NewTimer(HistogramOpts{CommonOpts: CommonOpts{Name: "op_duration_seconds"}})
	timer := stop()
	timer.ObserveDuration()
}
