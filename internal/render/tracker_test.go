package render_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"splice/internal/config"
	"splice/internal/ledger"
	"splice/internal/notifications"
	"splice/internal/render"
	"splice/internal/testsupport"
)

func TestBootstrapRecordsExistingOutputsOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	out := cfg.OutputDir()

	newer := writeOutput(t, out, "proj@1.mp4", "a")
	older := writeOutput(t, out, "proj@2.mp4", "b")
	legacy := writeOutput(t, out, "legacysandbox.mp4", "c")
	writeOutput(t, out, ".partial.mp4", "d")
	writeOutput(t, out, "proj@1.mp4"+render.ManifestSuffix, "{}")
	if err := os.Mkdir(filepath.Join(out, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	if err := os.Chtimes(older, now.Add(-time.Hour), now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(newer, now, now); err != nil {
		t.Fatal(err)
	}

	reg := render.NewRegistry()
	tracker := render.NewTracker(cfg, reg, render.Deps{})
	n, err := tracker.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if n != 3 {
		t.Fatalf("recorded %d outputs, want 3", n)
	}

	job := reg.GetOrCreate("proj")
	if want := []string{older, newer}; !reflect.DeepEqual(job.PreviousFiles, want) {
		t.Fatalf("history = %v, want %v", job.PreviousFiles, want)
	}
	if job.Status != render.StatusDone || job.LatestFile != newer {
		t.Fatalf("unexpected job %+v", job)
	}
	if got := reg.GetOrCreate("legacysandbox"); got.LatestFile != legacy {
		t.Fatalf("legacy output not recorded: %+v", got)
	}
	if _, ok := reg.Snapshot()["nested"]; ok {
		t.Fatal("directories must be skipped")
	}
}

func TestHandleFileCompletesDispatchedRender(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := render.NewRegistry()
	journal := &recordingJournal{}
	notifier := &recordingNotifier{}
	tracker := render.NewTracker(cfg, reg, render.Deps{Journal: journal, Notifier: notifier})

	reg.MarkRendering("proj_42", 1700000000000)
	path := writeOutput(t, cfg.OutputDir(), "proj_42@1700000000000.mp4", "rendered")
	if err := tracker.HandleFile(context.Background(), path); err != nil {
		t.Fatalf("HandleFile: %v", err)
	}

	job := reg.GetOrCreate("proj_42")
	if job.Status != render.StatusDone {
		t.Fatalf("status = %s", job.Status)
	}
	if !strings.HasSuffix(job.LatestFile, "proj_42@1700000000000.mp4") {
		t.Fatalf("latest = %q", job.LatestFile)
	}
	if kinds := journal.kinds(); len(kinds) != 1 || kinds[0] != ledger.EventOutputRecorded {
		t.Fatalf("journal = %v", kinds)
	}
	if !notifier.has(notifications.EventRenderCompleted) {
		t.Fatal("expected render completed notification")
	}
}

func TestHandleFileLegacyName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := render.NewRegistry()
	tracker := render.NewTracker(cfg, reg, render.Deps{})

	path := writeOutput(t, cfg.OutputDir(), "legacysandbox.mp4", "rendered")
	if err := tracker.HandleFile(context.Background(), path); err != nil {
		t.Fatalf("HandleFile: %v", err)
	}
	if job := reg.GetOrCreate("legacysandbox"); job.Status != render.StatusDone || job.LatestFile != path {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestHandleFileUsesManifestIdentity(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCompletion(config.CompletionManifest))
	reg := render.NewRegistry()
	tracker := render.NewTracker(cfg, reg, render.Deps{})

	path := writeOutput(t, cfg.OutputDir(), "render-0001.mp4", "rendered")
	if err := render.WriteManifest(path, render.Manifest{ProjectID: "proj_7", VersionID: 9, File: "render-0001.mp4"}); err != nil {
		t.Fatal(err)
	}
	reg.MarkRendering("proj_7", 9)
	if err := tracker.HandleFile(context.Background(), path); err != nil {
		t.Fatalf("HandleFile: %v", err)
	}
	if job := reg.GetOrCreate("proj_7"); job.Status != render.StatusDone || job.LatestFile != path {
		t.Fatalf("unexpected job %+v", job)
	}
	if _, ok := reg.Snapshot()["render-0001"]; ok {
		t.Fatal("filename identity used despite manifest")
	}
}

func TestHandleFileStaleOutputKeepsRendering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := render.NewRegistry()
	notifier := &recordingNotifier{}
	tracker := render.NewTracker(cfg, reg, render.Deps{Notifier: notifier})

	reg.MarkRendering("p", 200)
	path := writeOutput(t, cfg.OutputDir(), "p@100.mp4", "old render")
	if err := tracker.HandleFile(context.Background(), path); err != nil {
		t.Fatalf("HandleFile: %v", err)
	}
	job := reg.GetOrCreate("p")
	if job.Status != render.StatusRendering || job.LatestFile != path {
		t.Fatalf("unexpected job %+v", job)
	}
	if notifier.has(notifications.EventRenderCompleted) {
		t.Fatal("stale output must not announce completion")
	}
}

func TestHandleFileDeadLettersUnsettledOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := render.NewRegistry()
	queue := &putRecorder{}
	journal := &recordingJournal{}
	tracker := render.NewTracker(cfg, reg, render.Deps{DeadLetters: queue, Journal: journal})

	reg.MarkRendering("p", 5)
	path := writeOutput(t, cfg.OutputDir(), "p@5.mp4", "")
	err := tracker.HandleFile(context.Background(), path)
	if !errors.Is(err, render.ErrNotSettled) {
		t.Fatalf("expected ErrNotSettled, got %v", err)
	}

	letters := queue.letters()
	if len(letters) != 1 {
		t.Fatalf("dead letters = %d", len(letters))
	}
	dl := letters[0]
	if dl.Queue != ledger.QueueOutput || dl.Path != path || dl.ProjectID != "p" || dl.VersionID != 5 {
		t.Fatalf("unexpected dead letter %+v", dl)
	}
	if job := reg.GetOrCreate("p"); job.Status != render.StatusRendering || job.LatestFile != "" {
		t.Fatalf("unsettled file changed the job: %+v", job)
	}
	if kinds := journal.kinds(); len(kinds) != 1 || kinds[0] != ledger.EventDeadLettered {
		t.Fatalf("journal = %v", kinds)
	}
}

func TestRunRecordsNewOutputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := render.NewRegistry()
	queue := &putRecorder{}
	tracker := render.NewTracker(cfg, reg, render.Deps{DeadLetters: queue})

	watcher, err := render.NewWatcher(cfg.OutputDir(), nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tracker.RunWatcher(ctx, watcher) }()

	writeOutput(t, cfg.OutputDir(), ".tmp-proj_9.mp4", "partial")
	reg.MarkRendering("proj_9", 3)
	writeOutput(t, cfg.OutputDir(), "proj_9@3.mp4", "rendered")

	job := waitForStatus(t, reg, "proj_9", render.StatusDone)
	if !strings.HasSuffix(job.LatestFile, "proj_9@3.mp4") {
		t.Fatalf("latest = %q", job.LatestFile)
	}
	if len(job.PreviousFiles) != 1 {
		t.Fatalf("history = %v, want only the visible output", job.PreviousFiles)
	}
	if letters := queue.letters(); len(letters) != 0 {
		t.Fatalf("hidden file was dead-lettered: %+v", letters)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunWatcher: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tracker did not stop")
	}
}

func TestRunSeesOutputsWrittenAfterBootstrap(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := render.NewRegistry()
	tracker := render.NewTracker(cfg, reg, render.Deps{})

	existing := writeOutput(t, cfg.OutputDir(), "proj@1.mp4", "old render")
	if _, err := tracker.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	// Lands after the scan and before Run consumes events.
	reg.MarkRendering("proj", 2)
	late := writeOutput(t, cfg.OutputDir(), "proj@2.mp4", "new render")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tracker.Run(ctx) }()

	job := waitForStatus(t, reg, "proj", render.StatusDone)
	if job.LatestFile != late {
		t.Fatalf("latest = %q, want %q", job.LatestFile, late)
	}
	if want := []string{existing, late}; !reflect.DeepEqual(job.PreviousFiles, want) {
		t.Fatalf("history = %v, want %v", job.PreviousFiles, want)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tracker did not stop")
	}
}

func TestBootstrappedOutputIsRecordedOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := render.NewRegistry()
	journal := &recordingJournal{}
	tracker := render.NewTracker(cfg, reg, render.Deps{Journal: journal})

	path := writeOutput(t, cfg.OutputDir(), "proj@1.mp4", "rendered")
	if _, err := tracker.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	// The scan and a create event can both report the same file.
	if err := tracker.HandleFile(context.Background(), path); err != nil {
		t.Fatalf("HandleFile: %v", err)
	}
	if job := reg.GetOrCreate("proj"); len(job.PreviousFiles) != 1 {
		t.Fatalf("history = %v, want one entry", job.PreviousFiles)
	}
	if kinds := journal.kinds(); len(kinds) != 0 {
		t.Fatalf("journal = %v", kinds)
	}

	// A later rewrite of the same name is a new render.
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	if err := tracker.HandleFile(context.Background(), path); err != nil {
		t.Fatalf("HandleFile after rewrite: %v", err)
	}
	if job := reg.GetOrCreate("proj"); len(job.PreviousFiles) != 2 {
		t.Fatalf("history = %v, want two entries", job.PreviousFiles)
	}
}

func TestBootstrapMissingDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.RemoveAll(cfg.OutputDir()); err != nil {
		t.Fatal(err)
	}
	tracker := render.NewTracker(cfg, render.NewRegistry(), render.Deps{})
	if _, err := tracker.Bootstrap(context.Background()); err == nil {
		t.Fatal("expected error for missing output directory")
	}
}
