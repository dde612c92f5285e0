package retry

import (
	"context"
	"testing"
	"time"

	"github.com/99souls/webfetcher/engine/models"
)

type fakeClock struct {
	sleeps []time.Duration
}

func (f *fakeClock) Now() time.Time { return time.Time{} }
func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) bool {
	f.sleeps = append(f.sleeps, d)
	return true
}

func TestExecuteRetriesOnlyOnTransient(t *testing.T) {
	clock := &fakeClock{}
	c := New(1*time.Second, 3)
	c.Clock = clock

	calls := 0
	result := c.Execute(context.Background(), func(ctx context.Context, attempt int) models.StrategyResult {
		calls++
		if attempt < 3 {
			return models.StrategyResult{ErrorKind: models.ErrKindTransient}
		}
		return models.StrategyResult{Success: true}
	})

	if !result.Success {
		t.Fatalf("expected eventual success")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if result.Attempts != 3 {
		t.Fatalf("result.Attempts = %d, want 3", result.Attempts)
	}
	if len(clock.sleeps) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %d", len(clock.sleeps))
	}
	// base*2^0=1s <= sleeps[0] < 1s+100ms ; base*2^1=2s <= sleeps[1] < 2.1s
	if clock.sleeps[0] < time.Second || clock.sleeps[0] >= 1100*time.Millisecond {
		t.Errorf("sleeps[0] = %v out of expected range", clock.sleeps[0])
	}
	if clock.sleeps[1] < 2*time.Second || clock.sleeps[1] >= 2100*time.Millisecond {
		t.Errorf("sleeps[1] = %v out of expected range", clock.sleeps[1])
	}
}

func TestExecuteStopsImmediatelyOnPermanent(t *testing.T) {
	clock := &fakeClock{}
	c := New(1*time.Second, 3)
	c.Clock = clock

	calls := 0
	result := c.Execute(context.Background(), func(ctx context.Context, attempt int) models.StrategyResult {
		calls++
		return models.StrategyResult{ErrorKind: models.ErrKindPermanent}
	})

	if result.Success {
		t.Fatalf("expected failure")
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 attempt for a permanent error, got %d", calls)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no sleeps")
	}
}

func TestZeroRetryBudgetMeansOneAttempt(t *testing.T) {
	c := New(1*time.Second, 0)
	c.Clock = &fakeClock{}
	calls := 0
	c.Execute(context.Background(), func(ctx context.Context, attempt int) models.StrategyResult {
		calls++
		return models.StrategyResult{ErrorKind: models.ErrKindTransient}
	})
	if calls != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", calls)
	}
}
