package strategies

import (
	"context"
	"fmt"
	"time"

	"github.com/99souls/webfetcher/engine/models"
)

// ManualStrategy hands the fetch off to a human operator: it navigates the
// attached browser session to the URL, prompts for confirmation, then reads
// back whatever the operator's tab contains once they confirm.
type ManualStrategy struct {
	driver   BrowserDriver
	prompter Prompter
	session  BrowserSession
}

func NewManualStrategy(driver BrowserDriver, prompter Prompter, session BrowserSession) *ManualStrategy {
	return &ManualStrategy{driver: driver, prompter: prompter, session: session}
}

// Fetch is only reached when the config flag enabling manual fallback is
// set; callers are responsible for that gate.
func (s *ManualStrategy) Fetch(ctx context.Context, fc models.FetchContext) models.StrategyResult {
	start := time.Now()

	tab, err := s.driver.NewTab(ctx, s.session, fc.URL)
	if err != nil {
		return models.StrategyResult{
			Success:      false,
			Duration:     time.Since(start),
			ErrorKind:    models.ErrKindBrowserUnavailable,
			ErrorMessage: "failed to open tab for manual fetch: " + err.Error(),
		}
	}

	msg := fmt.Sprintf("manual intervention required for %s: solve any challenge, navigate as needed, then confirm to continue", fc.URL)
	if err := s.prompter.Prompt(ctx, msg); err != nil {
		return models.StrategyResult{
			Success:      false,
			Duration:     time.Since(start),
			ErrorKind:    models.ErrKindCancelled,
			ErrorMessage: "manual fetch cancelled: " + err.Error(),
		}
	}

	active, err := s.driver.ActiveTab(ctx, s.session)
	if err != nil {
		active = tab
	}

	html, err := s.driver.GetHTML(ctx, active)
	if err != nil {
		return models.StrategyResult{
			Success:      false,
			Duration:     time.Since(start),
			ErrorKind:    models.ErrKindBrowserUnavailable,
			ErrorMessage: "failed to read DOM after manual confirmation: " + err.Error(),
		}
	}
	finalURL, err := s.driver.GetURL(ctx, active)
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
