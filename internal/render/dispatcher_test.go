package render_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"splice/internal/ledger"
	"splice/internal/notifications"
	"splice/internal/project"
	"splice/internal/render"
	"splice/internal/testsupport"
	"splice/internal/timeline"
)

func saveVersion(t *testing.T, store *project.Store, projectID string) project.Version {
	t.Helper()
	doc, err := timeline.Parse([]byte(testsupport.SampleTimeline))
	if err != nil {
		t.Fatal(err)
	}
	v, err := store.Save(context.Background(), doc, projectID)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return v
}

func TestDispatchCopiesVersionAndMarksRendering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewProjectStore(t, "p")
	v := saveVersion(t, store, "p")

	reg := render.NewRegistry()
	journal := &recordingJournal{}
	dispatcher := render.NewDispatcher(cfg, reg, render.Deps{Journal: journal})
	if err := dispatcher.Dispatch(context.Background(), v); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if got := reg.GetOrCreate("p").Status; got != render.StatusRendering {
		t.Fatalf("status = %s", got)
	}
	dst := dispatcher.IntakePath(v)
	if filepath.Base(dst) != filepath.Base(v.Path) {
		t.Fatalf("intake copy renamed: %s", dst)
	}
	want, _ := os.ReadFile(v.Path)
	got, err := os.ReadFile(dst)
	if err != nil || !bytes.Equal(got, want) {
		t.Fatalf("intake copy differs: %v", err)
	}
	m, ok, err := render.ReadManifest(dst)
	if err != nil || !ok {
		t.Fatalf("intake manifest missing: ok=%v err=%v", ok, err)
	}
	if m.ProjectID != "p" || m.VersionID != v.ID || m.File != filepath.Base(v.Path) || m.DispatchedAt == nil {
		t.Fatalf("unexpected manifest %+v", m)
	}
	if kinds := journal.kinds(); len(kinds) != 1 || kinds[0] != ledger.EventRenderDispatched {
		t.Fatalf("journal = %v", kinds)
	}
}

func TestDispatchFailureRevertsAndDeadLetters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewProjectStore(t, "p")
	v := saveVersion(t, store, "p")
	if err := os.RemoveAll(cfg.IntakeDir()); err != nil {
		t.Fatal(err)
	}

	reg := render.NewRegistry()
	queue := &putRecorder{}
	journal := &recordingJournal{}
	notifier := &recordingNotifier{}
	dispatcher := render.NewDispatcher(cfg, reg, render.Deps{DeadLetters: queue, Journal: journal, Notifier: notifier})

	if err := dispatcher.Dispatch(context.Background(), v); err == nil {
		t.Fatal("expected dispatch error")
	}
	if got := reg.GetOrCreate("p").Status; got != render.StatusDone {
		t.Fatalf("status should be restored, got %s", got)
	}
	letters := queue.letters()
	if len(letters) != 1 || letters[0].Queue != ledger.QueueIntake || letters[0].Path != v.Path || letters[0].VersionID != v.ID {
		t.Fatalf("unexpected dead letters %+v", letters)
	}
	if kinds := journal.kinds(); len(kinds) != 1 || kinds[0] != ledger.EventDispatchFailed {
		t.Fatalf("journal = %v", kinds)
	}
	if !notifier.has(notifications.EventError) {
		t.Fatal("expected error notification")
	}
}

func TestDispatchFailureMissingSourceKeepsNoManifest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := render.NewRegistry()
	dispatcher := render.NewDispatcher(cfg, reg, render.Deps{})

	v := project.Version{ProjectID: "p", ID: 7, Path: filepath.Join(t.TempDir(), "7.xml")}
	if err := dispatcher.Dispatch(context.Background(), v); err == nil {
		t.Fatal("expected dispatch error")
	}
	if _, err := os.Stat(render.ManifestPath(dispatcher.IntakePath(v))); !os.IsNotExist(err) {
		t.Fatalf("manifest left behind: %v", err)
	}
}
