package api_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"splice/internal/api"
	"splice/internal/command"
	"splice/internal/ledger"
	"splice/internal/render"
	"splice/internal/testsupport"
)

func TestClientRoundTrip(t *testing.T) {
	h := newAPIHarness(t, testsupport.WithAPIToken("secret"))
	client, err := api.NewClient(h.server.URL, "secret")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := context.Background()

	original, err := client.GetProject(ctx, "p", "original")
	if err != nil {
		t.Fatalf("get original: %v", err)
	}
	result, err := client.RunCommand(ctx, "p", "", command.Command{Action: "replace", Type: "text", Time: 12, Value: "Client"})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !result.Success || result.VersionID == 0 {
		t.Fatalf("result = %+v", result)
	}
	latest, err := client.GetProject(ctx, "p", "")
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest == original || !strings.Contains(latest, "Client") {
		t.Fatal("latest does not reflect the command")
	}

	versions, err := client.Versions(ctx, "p")
	if err != nil || len(versions.Versions) != 1 {
		t.Fatalf("versions = %+v, err %v", versions, err)
	}
	events, err := client.Events(ctx, "p", 1)
	if err != nil || len(events) != 1 {
		t.Fatalf("events = %+v, err %v", events, err)
	}
	job, err := client.Video(ctx, "p")
	if err != nil || job.Status != render.StatusRendering {
		t.Fatalf("job = %+v, err %v", job, err)
	}
	status, err := client.Status(ctx)
	if err != nil || !status.Running {
		t.Fatalf("status = %+v, err %v", status, err)
	}
	if _, ok := status.Jobs["p"]; !ok {
		t.Fatalf("status jobs missing p: %+v", status.Jobs)
	}
}

func TestClientDownloadVideo(t *testing.T) {
	h := newAPIHarness(t)
	path := filepath.Join(h.cfg.OutputDir(), "p@5.mp4")
	if err := os.WriteFile(path, []byte("render"), 0o644); err != nil {
		t.Fatal(err)
	}
	h.registry.RecordOutput("p", path)

	client, err := api.NewClient(strings.TrimPrefix(h.server.URL, "http://"), "")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	n, err := client.DownloadVideo(context.Background(), "p", &buf)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if n != 6 || buf.String() != "render" {
		t.Fatalf("downloaded %d bytes %q", n, buf.String())
	}
}

func TestClientStatusError(t *testing.T) {
	h := newAPIHarness(t, testsupport.WithAPIToken("secret"))
	client, err := api.NewClient(h.server.URL, "wrong")
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.Status(context.Background())
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusUnauthorized || statusErr.RequestID == "" {
		t.Fatalf("status error = %+v", statusErr)
	}

	client, _ = api.NewClient(h.server.URL, "secret")
	_, err = client.GetProject(context.Background(), "missing", "")
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestClientCreateProjectAndDeadLetters(t *testing.T) {
	h := newAPIHarness(t)
	client, _ := api.NewClient(h.server.URL, "")
	ctx := context.Background()

	created, err := client.CreateProject(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(created.ProjectID, h.cfg.Projects.TemplateID+"_") || created.VersionID == 0 {
		t.Fatalf("created = %+v", created)
	}

	letters, err := client.DeadLetters(ctx)
	if err != nil || len(letters) != 0 {
		t.Fatalf("letters = %+v, err %v", letters, err)
	}
	if _, err := h.ledger.Put(ctx, ledger.DeadLetter{Queue: ledger.QueueIntake, Path: "/tmp/x.xml", ProjectID: "p", Reason: "copy failed"}, 0); err != nil {
		t.Fatal(err)
	}
	letters, err = client.DeadLetters(ctx)
	if err != nil || len(letters) != 1 || letters[0].Queue != ledger.QueueIntake {
		t.Fatalf("letters = %+v, err %v", letters, err)
	}
}

func TestNewClientRequiresAddress(t *testing.T) {
	if _, err := api.NewClient("  ", ""); err == nil {
		t.Fatal("expected error for empty address")
	}
}
