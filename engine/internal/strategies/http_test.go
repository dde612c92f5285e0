package strategies

import (
	"context"
	"testing"
	"time"

	"github.com/99souls/webfetcher/engine/internal/testutil/httpmock"
	"github.com/99souls/webfetcher/engine/models"
)

func TestHTTPStrategyFetchSuccess(t *testing.T) {
	ms := httpmock.NewServer([]httpmock.RouteSpec{
		{Pattern: "/page", Body: "<html><body>hello</body></html>", Headers: map[string]string{"Content-Type": "text/html; charset=utf-8"}},
	})
	defer ms.Close()

	s := NewHTTPStrategy(DefaultHTTPPolicy())
	res := s.Fetch(context.Background(), models.FetchContext{URL: ms.URL() + "/page"})

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.HTML != "<html><body>hello</body></html>" {
		t.Fatalf("unexpected HTML: %q", res.HTML)
	}
	if res.Truncated {
		t.Fatalf("did not expect truncation")
	}
	completed, failed, bytes := s.Stats()
	if completed != 1 || failed != 0 || bytes == 0 {
		t.Fatalf("unexpected stats: completed=%d failed=%d bytes=%d", completed, failed, bytes)
	}
}

func TestHTTPStrategyFetchHTTPError(t *testing.T) {
	ms := httpmock.NewServer([]httpmock.RouteSpec{
		{Pattern: "/missing", Body: "not found", Status: 404},
	})
	defer ms.Close()

	s := NewHTTPStrategy(DefaultHTTPPolicy())
	res := s.Fetch(context.Background(), models.FetchContext{URL: ms.URL() + "/missing"})

	if res.Success {
		t.Fatalf("expected failure for 404 response")
	}
	if res.ErrorMessage == "" {
		t.Fatalf("expected an error message")
	}
	if _, failed, _ := s.Stats(); failed != 1 {
		t.Fatalf("expected 1 failed request, got %d", failed)
	}
}

func TestHTTPStrategyFetchTruncatesOversizedBody(t *testing.T) {
	body := make([]byte, 100)
	for i := range body {
		body[i] = 'a'
	}
	ms := httpmock.NewServer([]httpmock.RouteSpec{
		{Pattern: "/big", Body: string(body), Headers: map[string]string{"Content-Type": "text/plain"}},
	})
	defer ms.Close()

	policy := DefaultHTTPPolicy()
	policy.MaxPageSize = 10
	s := NewHTTPStrategy(policy)
	res := s.Fetch(context.Background(), models.FetchContext{URL: ms.URL() + "/big"})

	if !res.Success {
		t.Fatalf("expected success with truncation, got %+v", res)
	}
	if !res.Truncated {
		t.Fatalf("expected Truncated=true for oversized body")
	}
	if len(res.HTML) > 10 {
		t.Fatalf("expected body capped at 10 bytes, got %d", len(res.HTML))
	}
}

func TestHTTPStrategyFetchRespectsContextTimeout(t *testing.T) {
	ms := httpmock.NewServer([]httpmock.RouteSpec{
		{Pattern: "/slow", Body: "late", Delay: 100 * time.Millisecond},
	})
	defer ms.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	s := NewHTTPStrategy(DefaultHTTPPolicy())
	res := s.Fetch(ctx, models.FetchContext{URL: ms.URL() + "/slow"})

	if res.Success {
		t.Fatalf("expected failure when context deadline is exceeded")
	}
}
