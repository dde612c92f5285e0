package metrics

import (
	"context"
	"testing"
)

func TestOTelProviderCounterGaugeHistogram(t *testing.T) {
	p := NewOTelProvider(OTelProviderOptions{})

	c := p.NewCounter(CounterOpts{CommonOpts: CommonOpts{Name: "fetch_attempts_total", Labels: []string{"strategy"}}})
	c.Inc(1, "http")
	c.Inc(0, "http") // non-positive delta is a no-op, must not panic

	g := p.NewGauge(GaugeOpts{CommonOpts: CommonOpts{Name: "inflight"}})
	g.Set(3)
	g.Set(5)
	g.Add(-2)

	h := p.NewHistogram(HistogramOpts{CommonOpts: CommonOpts{Name: "fetch_duration_seconds"}})
	h.Observe(0.25)

	if err := p.Health(context.Background()); err != nil {
		t.Fatalf("expected healthy provider, got %v", err)
	}
}

func TestOTelProviderTimerObservesDuration(t *testing.T) {
	p := NewOTelProvider(OTelProviderOptions{})
	stop := p.NewTimer(HistogramOpts{CommonOpts: CommonOpts{Name: "op_duration_seconds"}})
	timer := stop()
	timer.ObserveDuration()
}

func TestOTelProviderNameComposition(t *testing.T) {
	got := buildOTelName(CommonOpts{Namespace: "webfetcher", Subsystem: "events", Name: "published_total"})
	if want := "webfetcher.events.published_total"; got != want {
		t.Fatalf("buildOTelName: got %q, want %q", got, want)
	}
	if got := buildOTelName(CommonOpts{Name: "bare"}); got != "bare" {
		t.Fatalf("buildOTelName bare: got %q", got)
	}
}
