package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EventKind names a render pipeline transition.
type EventKind string

const (
	EventVersionCreated   EventKind = "version_created"
	EventRenderDispatched EventKind = "render_dispatched"
	EventDispatchFailed   EventKind = "dispatch_failed"
	EventOutputRecorded   EventKind = "output_recorded"
	EventDeadLettered     EventKind = "output_dead_lettered"
	EventDeadLetterDrop   EventKind = "dead_letter_abandoned"
)

// Event is one journal row.
type Event struct {
	ID        int64     `json:"id"`
	ProjectID string    `json:"projectId"`
	VersionID int64     `json:"versionId,omitempty"`
	Kind      EventKind `json:"kind"`
	Path      string    `json:"path,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Append journals an event. CreatedAt defaults to now.
func (s *Store) Append(ctx context.Context, ev Event) error {
	if ev.ProjectID == "" || ev.Kind == "" {
		return fmt.Errorf("append event: project id and kind required")
	}
	created := ev.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO render_events (project_id, version_id, kind, path, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ProjectID, nullableVersion(ev.VersionID), string(ev.Kind), ev.Path, ev.Detail, created.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Events returns the most recent events for a project, oldest first.
// A limit of zero or less returns every event.
func (s *Store) Events(ctx context.Context, projectID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, version_id, kind, path, detail, created_at FROM (
			SELECT * FROM render_events WHERE project_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev      Event
			version sql.NullInt64
			kind    string
			created int64
		)
		if err := rows.Scan(&ev.ID, &ev.ProjectID, &version, &kind, &ev.Path, &ev.Detail, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.VersionID = version.Int64
		ev.Kind = EventKind(kind)
		ev.CreatedAt = time.UnixMilli(created)
		events = append(events, ev)
	}
	return events, rows.Err()
}
