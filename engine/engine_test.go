package engine

import (
	"context"
	"testing"
	"time"

	"github.com/99souls/webfetcher/engine/internal/testutil/httpmock"
	"github.com/99souls/webfetcher/engine/telemetry/health"
)

// TestEngineFetchOneBasicFlow validates the facade can fetch a single page
// end to end: routing, the HTTP strategy, template parsing, and the result
// cache.
func TestEngineFetchOneBasicFlow(t *testing.T) {
	ms := httpmock.NewServer([]httpmock.RouteSpec{
		{Pattern: "/page", Body: "<html><head><title>Hi</title></head><body>hello</body></html>",
			Headers: map[string]string{"Content-Type": "text/html; charset=utf-8"}},
	})
	defer ms.Close()

	cfg := Defaults()
	cfg.CacheCapacity = 4
	cfg.MaxInFlight = 4

	eng, err := New(cfg)
	if err != nil {
		t.Fatalf("New engine: %v", err)
	}
	defer func() { _ = eng.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	doc, err := eng.FetchOne(ctx, ms.URL()+"/page")
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if doc == nil {
		t.Fatalf("expected a document")
	}
	if doc.Metrics.PrimaryMethod == "" {
		t.Fatalf("expected a primary method recorded")
	}

	// A second fetch of the same URL should be served from the cache rather
	// than re-dispatching the fallback chain.
	doc2, err := eng.FetchOne(ctx, ms.URL()+"/page")
	if err != nil {
		t.Fatalf("FetchOne (cached): %v", err)
	}
	if doc2 == nil {
		t.Fatalf("expected a cached document")
	}
}

func TestEngineFetchOneFailurePublishesEvent(t *testing.T) {
	ms := httpmock.NewServer([]httpmock.RouteSpec{
		{Pattern: "/missing", Body: "nope", Status: 404},
	})
	defer ms.Close()

	cfg := Defaults()
	cfg.RetryMaxRetries = 0
	cfg.ManualFallbackEnabled = false

	eng, err := New(cfg)
	if err != nil {
		t.Fatalf("New engine: %v", err)
	}
	defer func() { _ = eng.Close() }()

	sub, err := eng.Subscribe(4)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer func() { _ = sub.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := eng.FetchOne(ctx, ms.URL()+"/missing"); err == nil {
		t.Fatalf("expected FetchOne to fail for a 404-only fallback chain")
	}

	select {
	case ev := <-sub.C():
		if ev.Type != "fetch_failed" {
			t.Fatalf("expected a fetch_failed event, got %q", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a published event on total fetch failure")
	}
}

func TestEngineHealthReportsTemplatesUnknownWithoutDeclarativeTemplates(t *testing.T) {
	eng, err := New(Defaults())
	if err != nil {
		t.Fatalf("New engine: %v", err)
	}
	defer func() { _ = eng.Close() }()

	snap := eng.Health(context.Background())
	if len(snap.Probes) == 0 {
		t.Fatalf("expected at least one probe result")
	}
	found := false
	for _, p := range snap.Probes {
		if p.Name == "templates" {
			found = true
			if p.Status != health.StatusUnknown {
				t.Fatalf("templates probe status = %s, want %s", p.Status, health.StatusUnknown)
			}
		}
	}
	if !found {
		t.Fatalf("expected a templates probe result")
	}
}
