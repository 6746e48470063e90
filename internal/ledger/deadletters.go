package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Dead-letter queues.
const (
	QueueOutput = "output"
	QueueIntake = "intake"
)

// Dead-letter states.
const (
	StatusPending   = "pending"
	StatusAbandoned = "abandoned"
)

// DeadLetter is a file that could not be processed.
type DeadLetter struct {
	ID        string    `json:"id"`
	Queue     string    `json:"queue"`
	Path      string    `json:"path"`
	ProjectID string    `json:"projectId,omitempty"`
	VersionID int64     `json:"versionId,omitempty"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	VisibleAt time.Time `json:"visibleAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const deadLetterColumns = `id, queue, path, project_id, version_id, reason, status, attempts, visible_at, created_at, updated_at`

// Put records a dead letter visible after delay. A pending letter for the
// same queue and path is updated in place and keeps its attempt count.
func (s *Store) Put(ctx context.Context, dl DeadLetter, delay time.Duration) (string, error) {
	if dl.Queue == "" || dl.Path == "" {
		return "", fmt.Errorf("put dead letter: queue and path required")
	}
	now := s.now()
	id := s.newID()
	var stored string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, `
			INSERT INTO dead_letters (id, queue, path, project_id, version_id, reason, status, attempts, visible_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
			ON CONFLICT (queue, path) DO UPDATE SET
				reason = excluded.reason,
				project_id = excluded.project_id,
				version_id = excluded.version_id,
				status = ?,
				visible_at = excluded.visible_at,
				updated_at = excluded.updated_at
			RETURNING id`,
			id, dl.Queue, dl.Path, dl.ProjectID, nullableVersion(dl.VersionID), dl.Reason, StatusPending,
			now.Add(delay).UnixMilli(), now.UnixMilli(), now.UnixMilli(), StatusPending,
		).Scan(&stored)
	})
	if err != nil {
		return "", fmt.Errorf("put dead letter: %w", err)
	}
	return stored, nil
}

// Claim hides the oldest visible pending letter of queue for visibility and
// increments its attempts. It returns nil when nothing is due.
func (s *Store) Claim(ctx context.Context, queue string, visibility time.Duration) (*DeadLetter, error) {
	now := s.now()
	var dl *DeadLetter
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, `
			UPDATE dead_letters
			SET visible_at = ?, attempts = attempts + 1, updated_at = ?
			WHERE id = (
				SELECT id FROM dead_letters
				WHERE queue = ? AND status = ? AND visible_at <= ?
				ORDER BY visible_at ASC, id ASC
				LIMIT 1
			)
			RETURNING `+deadLetterColumns,
			now.Add(visibility).UnixMilli(), now.UnixMilli(), queue, StatusPending, now.UnixMilli(),
		)
		claimed, err := scanDeadLetter(row)
		if errors.Is(err, sql.ErrNoRows) {
			dl = nil
			return nil
		}
		dl = claimed
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("claim dead letter: %w", err)
	}
	return dl, nil
}

// Ack deletes a letter once its file has been processed.
func (s *Store) Ack(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, `DELETE FROM dead_letters WHERE id = ?`, id); err != nil {
		return fmt.Errorf("ack dead letter: %w", err)
	}
	return nil
}

// Release makes a claimed letter visible again after delay with a new reason.
func (s *Store) Release(ctx context.Context, id, reason string, delay time.Duration) error {
	now := s.now()
	if _, err := s.exec(ctx,
		`UPDATE dead_letters SET visible_at = ?, reason = ?, updated_at = ? WHERE id = ?`,
		now.Add(delay).UnixMilli(), reason, now.UnixMilli(), id,
	); err != nil {
		return fmt.Errorf("release dead letter: %w", err)
	}
	return nil
}

// Abandon stops retrying a letter. It stays listed for inspection.
func (s *Store) Abandon(ctx context.Context, id, reason string) error {
	now := s.now()
	if _, err := s.exec(ctx,
		`UPDATE dead_letters SET status = ?, reason = ?, updated_at = ? WHERE id = ?`,
		StatusAbandoned, reason, now.UnixMilli(), id,
	); err != nil {
		return fmt.Errorf("abandon dead letter: %w", err)
	}
	return nil
}

// DeadLetters lists letters of every queue ordered by creation.
func (s *Store) DeadLetters(ctx context.Context) ([]DeadLetter, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+deadLetterColumns+` FROM dead_letters ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var out []DeadLetter
	for rows.Next() {
		dl, err := scanDeadLetter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		out = append(out, *dl)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDeadLetter(row scanner) (*DeadLetter, error) {
	var (
		dl                          DeadLetter
		version                     sql.NullInt64
		visible, created, updatedAt int64
	)
	if err := row.Scan(&dl.ID, &dl.Queue, &dl.Path, &dl.ProjectID, &version, &dl.Reason, &dl.Status,
		&dl.Attempts, &visible, &created, &updatedAt); err != nil {
		return nil, err
	}
	dl.VersionID = version.Int64
	dl.VisibleAt = time.UnixMilli(visible)
	dl.CreatedAt = time.UnixMilli(created)
	dl.UpdatedAt = time.UnixMilli(updatedAt)
	return &dl, nil
}
