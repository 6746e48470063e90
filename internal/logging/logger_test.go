package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"splice/internal/logging"
	"splice/internal/services"
)

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "render").Info("output recorded",
		logging.String("path", "/tmp/out dir/p1@1.mp4"),
		logging.Int64("size", 42),
	)
	logger.Debug("hidden")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, " INFO render: output recorded") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, `path="/tmp/out dir/p1@1.mp4"`) {
		t.Fatalf("expected quoted path, got %q", line)
	}
	if !strings.Contains(line, "size=42") {
		t.Fatalf("expected size field, got %q", line)
	}
	if strings.Contains(line, "hidden") {
		t.Fatalf("debug line should be filtered at info level: %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestJSONFileReceivesCopy(t *testing.T) {
	dir := t.TempDir()
	consolePath := filepath.Join(dir, "console.log")
	jsonPath := filepath.Join(dir, "run.jsonl")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{consolePath},
		JSONFile:    jsonPath,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("render stuck", logging.String(logging.FieldProjectID, "p1"))

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read json log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("decode json log %q: %v", data, err)
	}
	if entry["level"] != "warn" || entry["msg"] != "render stuck" || entry["project_id"] != "p1" {
		t.Fatalf("unexpected json entry: %#v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key: %#v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWithContextAddsProjectFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithProjectID(context.Background(), "proj_42")
	ctx = services.WithVersionID(ctx, 1700000000000)
	ctx = services.WithRequestID(ctx, "req-1")
	logging.WithContext(ctx, logger).Info("command applied")

	content, _ := os.ReadFile(logPath)
	for _, want := range []string{"project_id=proj_42", "version_id=1700000000000", "correlation_id=req-1"} {
		if !strings.Contains(string(content), want) {
			t.Fatalf("expected %q in %q", want, content)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "copy failed", "dispatch_failed", logging.String(logging.FieldImpact, "render not started"))

	content, _ := os.ReadFile(logPath)
	line := string(content)
	if !strings.Contains(line, "event_type=dispatch_failed") || !strings.Contains(line, "error_hint=") {
		t.Fatalf("expected injected fields, got %q", line)
	}
	if !strings.Contains(line, `impact="render not started"`) {
		t.Fatalf("caller impact should be preserved, got %q", line)
	}
}

func TestPruneRunLogsRemovesExpiredRunLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "splice-20240101T000000.000Z.log")
	oldEvents := filepath.Join(dir, "splice-20240101T000000.000Z.jsonl")
	fresh := filepath.Join(dir, "splice-20990101T000000.000Z.log")
	current := filepath.Join(dir, "splice-20240102T000000.000Z.log")
	pointed := filepath.Join(dir, "splice-20240103T000000.000Z.log")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, oldEvents, fresh, current, pointed, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, p := range []string{old, oldEvents, current, pointed, other} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Symlink(pointed, filepath.Join(dir, logging.CurrentLogName)); err != nil {
		t.Fatal(err)
	}

	removed := logging.PruneRunLogs(logging.NewNop(), dir, 5, current)
	if removed != 2 {
		t.Fatalf("removed %d files, want 2", removed)
	}
	for _, p := range []string{old, oldEvents} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed, stat err=%v", p, err)
		}
	}
	for _, p := range []string{fresh, current, pointed, other} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s kept: %v", p, err)
		}
	}

	if n := logging.PruneRunLogs(nil, dir, 0); n != 0 {
		t.Fatalf("disabled retention removed %d files", n)
	}
}
