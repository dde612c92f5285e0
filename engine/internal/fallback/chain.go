// Package fallback runs the ordered strategy list a routing decision
// produces, owning the FetchMetrics for the dispatch and enforcing the
// no-strategy-twice invariant that keeps the chain loop-free.
package fallback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/99souls/webfetcher/engine/models"
	"github.com/99souls/webfetcher/engine/telemetry/logging"
)

// Strategy is anything the chain can dispatch a fetch through.
type Strategy interface {
	Fetch(ctx context.Context, fc models.FetchContext) models.StrategyResult
}

// Chain holds the strategies keyed by name and the order a routing decision
// selected for a given dispatch.
type Chain struct {
	strategies map[models.Strategy]Strategy
	Logger     logging.Logger
}

func New(strategies map[models.Strategy]Strategy) *Chain {
	return &Chain{strategies: strategies, Logger: logging.New(nil)}
}

// Outcome is the successful result of a dispatch.
type Outcome struct {
	HTML     string
	FinalURL string
	Metrics  models.FetchMetrics
	URLMeta  models.URLMetadata
}

// Error is returned on total failure: every attempted strategy's outcome,
// in attempt order.
type Error struct {
	Attempts []AttemptOutcome
}

type AttemptOutcome struct {
	Strategy models.Strategy
	Result   models.StrategyResult
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("all strategies failed: ")
	for i, a := range e.Attempts {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", a.Strategy, a.Result.ErrorMessage)
	}
	return b.String()
}

// Run tries order's strategies in sequence, short-circuiting to a
// classifier-suggested fallback when one is named and still pending, and
// stopping as soon as one strategy succeeds. No strategy in order runs more
// than once for this dispatch.
func (c *Chain) Run(ctx context.Context, fc models.FetchContext, order []models.Strategy) (Outcome, error) {
	start := time.Now()
	metrics := models.FetchMetrics{}
	var attempts []AttemptOutcome

	pending := make([]models.Strategy, len(order))
	copy(pending, order)
	tried := make(map[models.Strategy]bool, len(order))

	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			metrics.FinalStatus = models.FinalStatusCancelled
			metrics.FetchDuration = time.Since(start)
			return Outcome{}, &Error{Attempts: attempts}
		default:
		}

		name := pending[0]
		pending = pending[1:]
		if tried[name] {
			continue
		}
		strat, ok := c.strategies[name]
		if !ok {
			continue
		}
		tried[name] = true

		if metrics.PrimaryMethod == "" {
			metrics.PrimaryMethod = name
		} else if c.Logger != nil {
			c.Logger.InfoCtx(ctx, "strategy transition", "strategy", string(name), "url", fc.URL)
		}

		result := strat.Fetch(ctx, fc)
		metrics.TotalAttempts += result.Attempts
		metrics.ChromeAttached = metrics.ChromeAttached || result.ChromeAttached
		attempts = append(attempts, AttemptOutcome{Strategy: name, Result: result})

		if result.Success {
			if name != metrics.PrimaryMethod {
				metrics.FallbackMethod = name
			}
			metrics.FinalStatus = models.FinalStatusSuccess
			metrics.FetchDuration = time.Since(start)
			return Outcome{
				HTML:     result.HTML,
				FinalURL: result.FinalURL,
				Metrics:  metrics,
				URLMeta: models.URLMetadata{
					InputURL:  fc.URL,
					FinalURL:  result.FinalURL,
					FetchDate: time.Now(),
					FetchMode: name,
				},
			}, nil
		}

		if result.ErrorKind == models.ErrKindCancelled {
			metrics.FinalStatus = models.FinalStatusCancelled
			metrics.ErrorMessage = result.ErrorMessage
			metrics.FetchDuration = time.Since(start)
			return Outcome{}, &Error{Attempts: attempts}
		}

		// Short-circuit: move a classifier-suggested fallback to the front
		// of the remaining queue, skipping any intermediate strategy.
		if result.SuggestedFallback != "" && !tried[result.SuggestedFallback] {
			pending = prioritize(pending, result.SuggestedFallback)
		}
	}

	metrics.FinalStatus = models.FinalStatusFailed
	if len(attempts) > 0 {
		metrics.ErrorMessage = attempts[len(attempts)-1].Result.ErrorMessage
	}
	metrics.FetchDuration = time.Since(start)
	return Outcome{}, &Error{Attempts: attempts}
}

// prioritize moves target to the front of pending if present; otherwise
// inserts it at the front so the short-circuit still happens even if the
// routing decision hadn't already queued it.
func prioritize(pending []models.Strategy, target models.Strategy) []models.Strategy {
	rest := make([]models.Strategy, 0, len(pending)+1)
	rest = append(rest, target)
	for _, s := range pending {
		if s != target {
			rest = append(rest, s)
		}
	}
	return rest
}
