package render_test

import (
	"reflect"
	"testing"

	"splice/internal/render"
)

func TestRegistryDefaultsToDone(t *testing.T) {
	reg := render.NewRegistry()
	job := reg.GetOrCreate("never")
	if job.Status != render.StatusDone || job.LatestFile != "" || len(job.PreviousFiles) != 0 {
		t.Fatalf("unexpected default job %+v", job)
	}
	if job.PreviousFiles == nil {
		t.Fatal("previous files should encode as an empty list")
	}
}

func TestRegistryRecordsHistoryInDiscoveryOrder(t *testing.T) {
	reg := render.NewRegistry()
	reg.RecordOutput("p", "/out/p@1.mp4")
	reg.RecordOutput("p", "/out/p@3.mp4")
	reg.RecordOutput("p", "/out/p@2.mp4")

	job := reg.GetOrCreate("p")
	if job.LatestFile != "/out/p@2.mp4" {
		t.Fatalf("latest = %q", job.LatestFile)
	}
	want := []string{"/out/p@1.mp4", "/out/p@3.mp4", "/out/p@2.mp4"}
	if !reflect.DeepEqual(job.PreviousFiles, want) {
		t.Fatalf("history = %v, want %v", job.PreviousFiles, want)
	}

	job.PreviousFiles[0] = "mutated"
	if reg.GetOrCreate("p").PreviousFiles[0] != "/out/p@1.mp4" {
		t.Fatal("GetOrCreate must return a copy")
	}
}

func TestRegistryRenderCycle(t *testing.T) {
	reg := render.NewRegistry()
	reg.MarkRendering("p", 100)
	if got := reg.GetOrCreate("p").Status; got != render.StatusRendering {
		t.Fatalf("status after dispatch = %s", got)
	}
	if got := reg.Complete("p", 100, "/out/p@100.mp4"); got != render.StatusDone {
		t.Fatalf("status after output = %s", got)
	}
	reg.MarkRendering("p", 200)
	if got := reg.GetOrCreate("p").Status; got != render.StatusRendering {
		t.Fatalf("second dispatch should re-enter rendering, got %s", got)
	}
}

func TestCompleteKeepsRenderingForStaleOutput(t *testing.T) {
	reg := render.NewRegistry()
	reg.MarkRendering("p", 200)

	if got := reg.Complete("p", 100, "/out/p@100.mp4"); got != render.StatusRendering {
		t.Fatalf("stale output flipped status to %s", got)
	}
	job := reg.GetOrCreate("p")
	if job.LatestFile != "/out/p@100.mp4" || len(job.PreviousFiles) != 1 {
		t.Fatalf("stale output should still be recorded: %+v", job)
	}
	if got := reg.Complete("p", 0, "/out/p.mp4"); got != render.StatusDone {
		t.Fatalf("output with unknown version should complete, got %s", got)
	}
}

func TestMarkRenderingKeepsNewestPending(t *testing.T) {
	reg := render.NewRegistry()
	reg.MarkRendering("p", 200)
	reg.MarkRendering("p", 100)
	if got := reg.Complete("p", 100, "/out/p@100.mp4"); got != render.StatusRendering {
		t.Fatalf("older redispatch lowered the pending version: %s", got)
	}
}

func TestRevertRestoresPriorStatus(t *testing.T) {
	reg := render.NewRegistry()
	mark := reg.MarkRendering("p", 100)
	reg.Revert(mark)
	if got := reg.GetOrCreate("p").Status; got != render.StatusDone {
		t.Fatalf("status after revert = %s", got)
	}
}

func TestRevertIgnoredAfterNewerDispatch(t *testing.T) {
	reg := render.NewRegistry()
	first := reg.MarkRendering("p", 100)
	reg.MarkRendering("p", 200)
	reg.Revert(first)
	if got := reg.GetOrCreate("p").Status; got != render.StatusRendering {
		t.Fatalf("revert of superseded dispatch changed status to %s", got)
	}
}

func TestSetStatusAndSnapshot(t *testing.T) {
	reg := render.NewRegistry()
	reg.SetStatus("a", render.StatusRendering)
	reg.RecordOutput("b", "/out/b.mp4")

	snap := reg.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot size = %d", len(snap))
	}
	if snap["a"].Status != render.StatusRendering || snap["b"].LatestFile != "/out/b.mp4" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
