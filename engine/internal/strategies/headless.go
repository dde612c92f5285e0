package strategies

import (
	"context"
	"net/http"
	"time"

	"github.com/99souls/webfetcher/engine/models"
)

// settleDelay is the fixed interval the strategy waits after
// domcontentloaded before it is willing to read the DOM, to let
// client-side rendering settle.
const settleDelay = 800 * time.Millisecond

// scrollSettleDelay is the additional wait after an optional scroll-to-bottom.
const scrollSettleDelay = 600 * time.Millisecond

// probeTimeout bounds the fast-path liveness probe of the debug endpoint.
const probeTimeout = 2 * time.Second

// HeadlessPolicy configures the Headless strategy.
type HeadlessPolicy struct {
	DebugEndpoint string // e.g. http://127.0.0.1:9222
	ScrollToBottom bool
}

// HeadlessStrategy relies on an externally managed browser debug session.
type HeadlessStrategy struct {
	policy   HeadlessPolicy
	driver   BrowserDriver
	recovery SessionRecovery
	probe    *http.Client

	// session is lazily attached and kept for the lifetime of the process;
	// the debug session is a process-wide singleton owned by this strategy.
	session BrowserSession
}

func NewHeadlessStrategy(policy HeadlessPolicy, driver BrowserDriver, recovery SessionRecovery) *HeadlessStrategy {
	return &HeadlessStrategy{
		policy:   policy,
		driver:   driver,
		recovery: recovery,
		probe:    &http.Client{Timeout: probeTimeout},
	}
}

// Fetch attaches to the debug session (ensuring it first if the fast
// liveness probe fails), opens a new tab, navigates, waits for the page to
// settle, captures the DOM, and closes the tab, leaving the session alive.
func (s *HeadlessStrategy) Fetch(ctx context.Context, fc models.FetchContext) models.StrategyResult {
	start := time.Now()

	if !s.probeAlive(ctx) {
		outcome, err := s.recovery.Ensure(ctx)
		if outcome != RecoveryHealthy {
			msg := remediation[outcome]
			if msg == "" {
				msg = remediation[RecoveryOther]
			}
			if err != nil {
				msg = msg + ": " + err.Error()
			}
			return models.StrategyResult{
				Success:      false,
				Duration:     time.Since(start),
				ErrorKind:    models.ErrKindBrowserUnavailable,
				ErrorMessage: msg,
			}
		}
	}

	if s.session == nil {
		session, err := s.driver.Attach(ctx, s.policy.DebugEndpoint)
		if err != nil {
			return models.StrategyResult{
				Success:      false,
				Duration:     time.Since(start),
				ErrorKind:    models.ErrKindBrowserUnavailable,
				ErrorMessage: "failed to attach to browser debug session: " + err.Error(),
			}
		}
		s.session = session
	}

	tab, err := s.driver.NewTab(ctx, s.session, fc.URL)
	if err != nil {
		return models.StrategyResult{
			Success:      false,
			Duration:     time.Since(start),
			ErrorKind:    models.ErrKindBrowserUnavailable,
			ErrorMessage: "failed to open new tab: " + err.Error(),
			ChromeAttached: true,
		}
	}
	defer func() { _ = s.driver.CloseTab(context.Background(), tab) }()

	if err := s.driver.WaitFor(ctx, tab, "domcontentloaded", fc.Timeout); err != nil {
		return s.classified(err, start, true)
	}

	if !sleepCtx(ctx, settleDelay) {
		return models.StrategyResult{Success: false, Duration: time.Since(start), ErrorKind: models.ErrKindCancelled, ChromeAttached: true}
	}

	if s.policy.ScrollToBottom {
		if _, err := s.driver.EvaluateJavaScript(ctx, tab, "window.scrollTo(0, document.body.scrollHeight)"); err != nil {
			return s.classified(err, start, true)
		}
		if !sleepCtx(ctx, scrollSettleDelay) {
			return models.StrategyResult{Success: false, Duration: time.Since(start), ErrorKind: models.ErrKindCancelled, ChromeAttached: true}
		}
	}

	html, err := s.driver.GetHTML(ctx, tab)
	if err != nil {
		return s.classified(err, start, true)
	}
	finalURL, err := s.driver.GetURL(ctx, tab)
	if err != nil {
		finalURL = fc.URL
	}

	return models.StrategyResult{
		Success:        true,
		HTML:           html,
		FinalURL:       finalURL,
		Duration:       time.Since(start),
		ChromeAttached: true,
	}
}

// probeAlive performs a short HTTP probe of the debug endpoint so repeated
// invocations are cheap when the session is already warm.
func (s *HeadlessStrategy) probeAlive(ctx context.Context) bool {
	if s.policy.DebugEndpoint == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.policy.DebugEndpoint+"/json/version", nil)
	if err != nil {
		return false
	}
	resp, err := s.probe.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

func (s *HeadlessStrategy) classified(err error, start time.Time, attached bool) models.StrategyResult {
	return models.StrategyResult{
		Success:        false,
		Duration:       time.Since(start),
		ErrorKind:      models.ErrKindBrowserUnavailable,
		ErrorMessage:   err.Error(),
		ChromeAttached: attached,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
