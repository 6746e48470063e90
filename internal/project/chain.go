package project

import (
	"context"
	"fmt"
	"log/slog"

	"splice/internal/ledger"
	"splice/internal/logging"
	"splice/internal/services"
	"splice/internal/timeline"
)

// Journal records pipeline events. *ledger.Store satisfies it.
type Journal interface {
	Append(ctx context.Context, ev ledger.Event) error
}

// Chain turns edited documents into committed versions.
type Chain struct {
	store   *Store
	journal Journal
	logger  *slog.Logger
}

// NewChain wires a chain over store. journal may be nil.
func NewChain(store *Store, journal Journal, logger *slog.Logger) *Chain {
	return &Chain{
		store:   store,
		journal: journal,
		logger:  logging.NewComponentLogger(logger, "versions"),
	}
}

// Store exposes the underlying document store.
func (c *Chain) Store() *Store { return c.store }

// Commit stamps doc with "<projectId>@<versionId>" and persists it as a new
// version. A failed journal write is logged and does not fail the commit.
func (c *Chain) Commit(ctx context.Context, doc *timeline.Document, projectID string) (Version, error) {
	v, err := c.store.Save(ctx, doc, projectID)
	if err != nil {
		return Version{}, err
	}
	logger := logging.WithContext(services.WithVersionID(services.WithProjectID(ctx, projectID), v.ID), c.logger)
	logger.Info("version committed",
		logging.String("path", v.Path),
		logging.String(logging.FieldEventType, string(ledger.EventVersionCreated)),
	)
	if c.journal != nil {
		if err := c.journal.Append(ctx, ledger.Event{
			ProjectID: projectID,
			VersionID: v.ID,
			Kind:      ledger.EventVersionCreated,
			Path:      v.Path,
			CreatedAt: v.CreatedAt,
		}); err != nil {
			logging.WarnWithContext(logger, "journal write failed", "journal_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "version missing from event history"),
			)
		}
	}
	return v, nil
}

// CreateFromTemplate starts a new project "<prefix>_<ms>" whose original is a
// copy of templateID's original renamed to the new id, and commits its first
// version.
func (c *Chain) CreateFromTemplate(ctx context.Context, templateID, prefix string) (Version, error) {
	template, err := c.store.Load(ctx, templateID, OriginalVersion)
	if err != nil {
		return Version{}, fmt.Errorf("load template %q: %w", templateID, err)
	}

	ms := c.store.now().UnixMilli()
	var projectID string
	for {
		projectID = fmt.Sprintf("%s_%d", prefix, ms)
		if !c.store.Exists(projectID) {
			break
		}
		ms++
	}

	original := template.Clone()
	original.SetName(projectID)
	if err := c.store.Create(ctx, projectID, original); err != nil {
		return Version{}, err
	}
	c.logger.Info("project created",
		logging.String(logging.FieldProjectID, projectID),
		logging.String("template", templateID),
		logging.String(logging.FieldEventType, "project_created"),
	)
	return c.Commit(ctx, original.Clone(), projectID)
}
