package render_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"splice/internal/ledger"
	"splice/internal/notifications"
	"splice/internal/render"
)

type published struct {
	event   notifications.Event
	payload notifications.Payload
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{event: event, payload: payload})
	return nil
}

func (n *recordingNotifier) has(event notifications.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range n.events {
		if p.event == event {
			return true
		}
	}
	return false
}

type recordingJournal struct {
	mu     sync.Mutex
	events []ledger.Event
}

func (j *recordingJournal) Append(_ context.Context, ev ledger.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return nil
}

func (j *recordingJournal) kinds() []ledger.EventKind {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]ledger.EventKind, 0, len(j.events))
	for _, ev := range j.events {
		out = append(out, ev.Kind)
	}
	return out
}

// putRecorder captures Put calls; the claim side is never exercised.
type putRecorder struct {
	mu   sync.Mutex
	puts []ledger.DeadLetter
}

func (q *putRecorder) Put(_ context.Context, dl ledger.DeadLetter, _ time.Duration) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.puts = append(q.puts, dl)
	return "dl", nil
}

func (q *putRecorder) Claim(context.Context, string, time.Duration) (*ledger.DeadLetter, error) {
	return nil, nil
}

func (q *putRecorder) Ack(context.Context, string) error { return nil }

func (q *putRecorder) Release(context.Context, string, string, time.Duration) error { return nil }

func (q *putRecorder) Abandon(context.Context, string, string) error { return nil }

func (q *putRecorder) letters() []ledger.DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]ledger.DeadLetter(nil), q.puts...)
}

func writeOutput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func waitForStatus(t *testing.T, board render.StatusBoard, projectID string, want render.Status) render.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		job := board.GetOrCreate(projectID)
		if job.Status == want && job.LatestFile != "" {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("project %s never reached %s: %+v", projectID, want, job)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
