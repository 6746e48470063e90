package render

import (
	"context"
	"log/slog"
	"time"

	"splice/internal/ledger"
	"splice/internal/logging"
	"splice/internal/notifications"
	"splice/internal/project"
)

// DeadLetterQueue holds files the pipeline could not process. *ledger.Store
// satisfies it.
type DeadLetterQueue interface {
	Put(ctx context.Context, dl ledger.DeadLetter, delay time.Duration) (string, error)
	Claim(ctx context.Context, queue string, visibility time.Duration) (*ledger.DeadLetter, error)
	Ack(ctx context.Context, id string) error
	Release(ctx context.Context, id, reason string, delay time.Duration) error
	Abandon(ctx context.Context, id, reason string) error
}

// Deps are the collaborators shared by the dispatcher, tracker and retrier.
// Any of them may be nil.
type Deps struct {
	DeadLetters DeadLetterQueue
	Journal     project.Journal
	Notifier    notifications.Service
	Logger      *slog.Logger
}

func (d Deps) logger(component string) *slog.Logger {
	return logging.NewComponentLogger(d.Logger, component)
}

func (d Deps) journal(ctx context.Context, logger *slog.Logger, ev ledger.Event) {
	if d.Journal == nil || ev.ProjectID == "" {
		return
	}
	if err := d.Journal.Append(ctx, ev); err != nil {
		logging.WarnWithContext(logger, "journal write failed", "journal_failed",
			logging.Error(err),
			logging.String("kind", string(ev.Kind)),
			logging.String(logging.FieldImpact, "event missing from project history"),
		)
	}
}

func (d Deps) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if d.Notifier == nil {
		return
	}
	if err := d.Notifier.Publish(ctx, event, payload); err != nil {
		logger.Warn("notification failed",
			logging.Error(err),
			logging.String("notification", string(event)),
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String(logging.FieldErrorHint, "check ntfy topic configuration"),
		)
	}
}
