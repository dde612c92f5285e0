package strategies

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/99souls/webfetcher/engine/models"
)

// fakeDriver is a minimal, single-session, single-tab BrowserDriver stub
// whose behavior each test tunes via its error and value fields; evalCalls
// counts EvaluateJavaScript invocations.
type fakeDriver struct {
	attachErr  error
	newTabErr  error
	waitForErr error
	evalErr    error
	html       string
	getHTMLErr error
	finalURL   string
	evalCalls  int
}

func (f *fakeDriver) Attach(ctx context.Context, endpoint string) (BrowserSession, error) {
	if f.attachErr != nil {
		return nil, f.attachErr
	}
	return "session", nil
}
func (f *fakeDriver) NewTab(ctx context.Context, session BrowserSession, url string) (BrowserTab, error) {
	if f.newTabErr != nil {
		return nil, f.newTabErr
	}
	return "tab", nil
}
func (f *fakeDriver) WaitFor(ctx context.Context, tab BrowserTab, state string, timeout time.Duration) error {
	return f.waitForErr
}
func (f *fakeDriver) EvaluateJavaScript(ctx context.Context, tab BrowserTab, expr string) (any, error) {
	f.evalCalls++
	return nil, f.evalErr
}
func (f *fakeDriver) GetHTML(ctx context.Context, tab BrowserTab) (string, error) {
	if f.getHTMLErr != nil {
		return "", f.getHTMLErr
	}
	return f.html, nil
}
func (f *fakeDriver) GetURL(ctx context.Context, tab BrowserTab) (string, error) {
	return f.finalURL, nil
}
func (f *fakeDriver) CloseTab(ctx context.Context, tab BrowserTab) error { return nil }
func (f *fakeDriver) ActiveTab(ctx context.Context, session BrowserSession) (BrowserTab, error) {
	return "tab", nil
}

type fakeRecovery struct {
	outcome RecoveryOutcome
	err     error
}

func (f fakeRecovery) Ensure(ctx context.Context) (RecoveryOutcome, error) { return f.outcome, f.err }

func TestHeadlessStrategyFetchSuccess(t *testing.T) {
	driver := &fakeDriver{html: "<html>rendered</html>", finalURL: "https://example.com/final"}
	s := NewHeadlessStrategy(HeadlessPolicy{}, driver, fakeRecovery{outcome: RecoveryHealthy})

	res := s.Fetch(context.Background(), models.FetchContext{URL: "https://example.com", Timeout: time.Second})

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.HTML != driver.html {
		t.Fatalf("unexpected HTML: %q", res.HTML)
	}
	if res.FinalURL != driver.finalURL {
		t.Fatalf("unexpected final URL: %q", res.FinalURL)
	}
	if !res.ChromeAttached {
		t.Fatalf("expected ChromeAttached to be true on success")
	}
}

func TestHeadlessStrategyFetchRecoveryFailureSurfacesRemediation(t *testing.T) {
	driver := &fakeDriver{}
	s := NewHeadlessStrategy(HeadlessPolicy{}, driver, fakeRecovery{outcome: RecoveryPortConflict})

	res := s.Fetch(context.Background(), models.FetchContext{URL: "https://example.com"})

	if res.Success {
		t.Fatalf("expected failure when recovery cannot restore a healthy session")
	}
	if res.ErrorKind != models.ErrKindBrowserUnavailable {
		t.Fatalf("expected ErrKindBrowserUnavailable, got %v", res.ErrorKind)
	}
	if res.ErrorMessage == "" {
		t.Fatalf("expected a remediation message")
	}
}

func TestHeadlessStrategyFetchWaitForFailure(t *testing.T) {
	driver := &fakeDriver{waitForErr: errors.New("navigation timeout")}
	s := NewHeadlessStrategy(HeadlessPolicy{}, driver, fakeRecovery{outcome: RecoveryHealthy})

	res := s.Fetch(context.Background(), models.FetchContext{URL: "https://example.com"})

	if res.Success {
		t.Fatalf("expected failure when WaitFor errors")
	}
	if !res.ChromeAttached {
		t.Fatalf("expected ChromeAttached even though the page never settled")
	}
}

func TestHeadlessStrategyFetchScrollToBottomEvaluatesJS(t *testing.T) {
	driver := &fakeDriver{html: "<html>scrolled</html>"}
	s := NewHeadlessStrategy(HeadlessPolicy{ScrollToBottom: true}, driver, fakeRecovery{outcome: RecoveryHealthy})

	res := s.Fetch(context.Background(), models.FetchContext{URL: "https://example.com"})

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if driver.evalCalls != 1 {
		t.Fatalf("expected one scroll-to-bottom EvaluateJavaScript call, got %d", driver.evalCalls)
	}
}

func TestHeadlessStrategyFetchReusesAttachedSession(t *testing.T) {
	driver := &fakeDriver{html: "<html>first</html>"}
	s := NewHeadlessStrategy(HeadlessPolicy{}, driver, fakeRecovery{outcome: RecoveryHealthy})

	_ = s.Fetch(context.Background(), models.FetchContext{URL: "https://example.com"})

	driver.attachErr = errors.New("attach should not be called again")
	res := s.Fetch(context.Background(), models.FetchContext{URL: "https://example.com/other"})
	if !res.Success {
		t.Fatalf("expected second fetch to reuse the existing session, got %+v", res)
	}
}
