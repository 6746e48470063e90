package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"splice/internal/config"
)

// ErrNotSettled reports an output that did not finish within the allowed
// attempts.
var ErrNotSettled = errors.New("output not settled")

// Settler waits until an output file is complete.
type Settler interface {
	Settle(ctx context.Context, path string) error
}

// NewSettler builds the settler selected by cfg.Completion.
func NewSettler(cfg config.Render) Settler {
	interval := time.Duration(cfg.SettleDelayMillis) * time.Millisecond
	attempts := max(cfg.MaxSettleAttempts, 1)
	switch cfg.Completion {
	case config.CompletionDelay:
		return delaySettler{delay: interval}
	case config.CompletionManifest:
		return manifestSettler{interval: interval, attempts: attempts}
	default:
		return stableSettler{interval: interval, checks: max(cfg.StabilityChecks, 1), attempts: attempts}
	}
}

// delaySettler waits a fixed time and then only checks the file still exists.
type delaySettler struct {
	delay time.Duration
}

func (s delaySettler) Settle(ctx context.Context, path string) error {
	if err := sleep(ctx, s.delay); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat output: %w", err)
	}
	return nil
}

// stableSettler polls the size until it is non-zero and unchanged for checks
// consecutive polls.
type stableSettler struct {
	interval time.Duration
	checks   int
	attempts int
}

func (s stableSettler) Settle(ctx context.Context, path string) error {
	last := int64(-1)
	stable := 0
	for range s.attempts {
		if err := sleep(ctx, s.interval); err != nil {
			return err
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat output: %w", err)
		}
		size := info.Size()
		if size > 0 && size == last {
			stable++
			if stable >= s.checks {
				return nil
			}
		} else {
			stable = 0
		}
		last = size
	}
	return fmt.Errorf("%w: %s size still changing after %d polls", ErrNotSettled, path, s.attempts)
}

// manifestSettler waits for the renderer's sidecar manifest.
type manifestSettler struct {
	interval time.Duration
	attempts int
}

func (s manifestSettler) Settle(ctx context.Context, path string) error {
	for attempt := range s.attempts {
		if attempt > 0 {
			if err := sleep(ctx, s.interval); err != nil {
				return err
			}
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("stat output: %w", err)
		}
		if _, ok, err := ReadManifest(path); err != nil {
			return err
		} else if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: no manifest for %s after %d polls", ErrNotSettled, path, s.attempts)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
