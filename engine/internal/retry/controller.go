// Package retry executes a single fetch strategy with bounded retries and
// exponential backoff, never mutating shared state and never retrying a
// classification the strategy has marked as anything but transient (a
// timeout counts as transient).
package retry

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/99souls/webfetcher/engine/models"
	"github.com/99souls/webfetcher/engine/telemetry/logging"
)

// DefaultBase is the base backoff delay: base * 2^attempt + jitter.
const DefaultBase = 1 * time.Second

// DefaultJitterMax is the exclusive upper bound of the jitter term.
const DefaultJitterMax = 100 * time.Millisecond

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes first.
	// Returns false if ctx ended the sleep early.
	Sleep(ctx context.Context, d time.Duration) bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// StrategyFunc performs one attempt. The returned StrategyResult must carry
// a populated ErrorKind whenever Success is false.
type StrategyFunc func(ctx context.Context, attempt int) models.StrategyResult

// Controller executes one strategy up to MaxRetries+1 total attempts.
type Controller struct {
	Base       time.Duration
	JitterMax  time.Duration
	MaxRetries int
	Clock      Clock
	Logger     logging.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

// New returns a Controller with the given base delay and retry budget.
// maxRetries=0 means exactly one attempt, per spec.
func New(base time.Duration, maxRetries int) *Controller {
	if base <= 0 {
		base = DefaultBase
	}
	return &Controller{
		Base:       base,
		JitterMax:  DefaultJitterMax,
		MaxRetries: maxRetries,
		Clock:      realClock{},
		Logger:     logging.New(nil),
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Execute runs fn, retrying on a Transient or Timeout classification until the retry
// budget is exhausted or fn reports a non-transient outcome. It never
// mutates shared state and always returns the StrategyResult of the final
// attempt.
func (c *Controller) Execute(ctx context.Context, fn StrategyFunc) models.StrategyResult {
	var result models.StrategyResult
	totalAttempts := c.MaxRetries + 1
	if totalAttempts < 1 {
		totalAttempts = 1
	}

	for attempt := 0; attempt < totalAttempts; attempt++ {
		result = fn(ctx, attempt+1)
		result.Attempts = attempt + 1

		if result.Success {
			return result
		}
		if result.ErrorKind != models.ErrKindTransient && result.ErrorKind != models.ErrKindTimeout {
			return result
		}
		if attempt == totalAttempts-1 {
			return result
		}
		delay := c.backoff(attempt)
		if c.Logger != nil {
			c.Logger.WarnCtx(ctx, "retrying strategy",
				"attempt", attempt+1, "max_attempts", totalAttempts, "delay", delay.String())
		}
		if !c.Clock.Sleep(ctx, delay) {
			result.ErrorKind = models.ErrKindCancelled
			return result
		}
	}
	return result
}

// backoff returns base*2^attempt + jitter, jitter in [0, JitterMax).
func (c *Controller) backoff(attempt int) time.Duration {
	base := c.Base << uint(attempt) // base * 2^attempt
	c.mu.Lock()
	jitter := time.Duration(c.rand.Int63n(int64(c.JitterMax)))
	c.mu.Unlock()
	return base + jitter
}
