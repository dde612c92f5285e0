package strategies

import (
	"context"
	"errors"
	"testing"

	"github.com/99souls/webfetcher/engine/models"
)

type fakePrompter struct {
	err error
}

func (f fakePrompter) Prompt(ctx context.Context, message string) error { return f.err }

func TestManualStrategyFetchSuccess(t *testing.T) {
	driver := &fakeDriver{html: "<html>operator navigated here</html>", finalURL: "https://example.com/after-challenge"}
	s := NewManualStrategy(driver, fakePrompter{}, "session")

	res := s.Fetch(context.Background(), models.FetchContext{URL: "https://example.com"})

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.HTML != driver.html {
		t.Fatalf("unexpected HTML: %q", res.HTML)
	}
	if res.FinalURL != driver.finalURL {
		t.Fatalf("unexpected final URL: %q", res.FinalURL)
	}
}

func TestManualStrategyFetchPrompterCancelled(t *testing.T) {
	driver := &fakeDriver{}
	s := NewManualStrategy(driver, fakePrompter{err: errors.New("operator declined")}, "session")

	res := s.Fetch(context.Background(), models.FetchContext{URL: "https://example.com"})

	if res.Success {
		t.Fatalf("expected failure when the prompter returns an error")
	}
	if res.ErrorKind != models.ErrKindCancelled {
		t.Fatalf("expected ErrKindCancelled, got %v", res.ErrorKind)
	}
}

func TestManualStrategyFetchNewTabFailure(t *testing.T) {
	driver := &fakeDriver{newTabErr: errors.New("no session attached")}
	s := NewManualStrategy(driver, fakePrompter{}, "session")

	res := s.Fetch(context.Background(), models.FetchContext{URL: "https://example.com"})

	if res.Success {
		t.Fatalf("expected failure when NewTab errors")
	}
	if res.ErrorKind != models.ErrKindBrowserUnavailable {
		t.Fatalf("expected ErrKindBrowserUnavailable, got %v", res.ErrorKind)
	}
}
