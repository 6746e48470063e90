package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"splice/internal/config"
	"splice/internal/ledger"
	"splice/internal/logging"
	"splice/internal/notifications"
	"splice/internal/services"
)

// Retrier re-drives dead letters: output files back through the tracker and
// failed intake copies back through the dispatcher.
type Retrier struct {
	tracker     *Tracker
	dispatcher  *Dispatcher
	deps        Deps
	logger      *slog.Logger
	interval    time.Duration
	visibility  time.Duration
	maxAttempts int
}

// NewRetrier builds a retrier over deps.DeadLetters.
func NewRetrier(cfg *config.Config, tracker *Tracker, dispatcher *Dispatcher, deps Deps) *Retrier {
	return &Retrier{
		tracker:     tracker,
		dispatcher:  dispatcher,
		deps:        deps,
		logger:      deps.logger("dead-letters"),
		interval:    time.Duration(cfg.DeadLetter.RetryIntervalSeconds) * time.Second,
		visibility:  time.Duration(cfg.DeadLetter.VisibilitySeconds) * time.Second,
		maxAttempts: max(cfg.DeadLetter.MaxAttempts, 1),
	}
}

// Run drains due letters every retry interval until ctx ends.
func (r *Retrier) Run(ctx context.Context) error {
	if r.deps.DeadLetters == nil {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(max(r.interval, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Drain(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("dead letter drain failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "dead_letter_drain_failed"),
					logging.String(logging.FieldErrorHint, "check ledger database access"),
				)
			}
		}
	}
}

// Drain processes every due letter once and returns how many were handled.
func (r *Retrier) Drain(ctx context.Context) (int, error) {
	if r.deps.DeadLetters == nil {
		return 0, nil
	}
	handled := 0
	for _, queue := range []string{ledger.QueueIntake, ledger.QueueOutput} {
		for {
			if err := ctx.Err(); err != nil {
				return handled, err
			}
			dl, err := r.deps.DeadLetters.Claim(ctx, queue, r.visibility)
			if err != nil {
				return handled, err
			}
			if dl == nil {
				break
			}
			if err := r.handle(ctx, *dl); err != nil {
				return handled, err
			}
			handled++
		}
	}
	return handled, nil
}

func (r *Retrier) handle(ctx context.Context, dl ledger.DeadLetter) error {
	if dl.ProjectID != "" {
		ctx = services.WithProjectID(ctx, dl.ProjectID)
	}
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String("queue", dl.Queue),
		logging.String("path", dl.Path),
		logging.Int("attempt", dl.Attempts),
	)

	var err error
	switch dl.Queue {
	case ledger.QueueOutput:
		err = r.tracker.retry(ctx, dl.Path)
		if errors.Is(err, errInFlight) {
			logger.Info("dead letter handed to live watch", logging.String(logging.FieldEventType, "dead_letter_in_flight"))
			return r.deps.DeadLetters.Ack(ctx, dl.ID)
		}
	case ledger.QueueIntake:
		err = r.dispatcher.Redeliver(ctx, dl)
	default:
		err = fmt.Errorf("unknown dead letter queue %q", dl.Queue)
	}

	if err == nil {
		logger.Info("dead letter recovered", logging.String(logging.FieldEventType, "dead_letter_recovered"))
		return r.deps.DeadLetters.Ack(ctx, dl.ID)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if dl.Attempts < r.maxAttempts {
		logger.Info("dead letter retry failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "dead_letter_retry_failed"),
		)
		return r.deps.DeadLetters.Release(ctx, dl.ID, err.Error(), r.interval)
	}

	logging.ErrorWithContext(logger, "dead letter abandoned", string(ledger.EventDeadLetterDrop),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "inspect the file and restart the render manually"),
	)
	if abandonErr := r.deps.DeadLetters.Abandon(ctx, dl.ID, err.Error()); abandonErr != nil {
		return abandonErr
	}
	r.deps.journal(ctx, logger, ledger.Event{
		ProjectID: dl.ProjectID,
		VersionID: dl.VersionID,
		Kind:      ledger.EventDeadLetterDrop,
		Path:      dl.Path,
		Detail:    err.Error(),
	})
	r.deps.notify(ctx, logger, notifications.EventDeadLetter, notifications.Payload{
		"projectId": dl.ProjectID,
		"path":      dl.Path,
		"attempts":  dl.Attempts,
		"reason":    err.Error(),
	})
	return nil
}
