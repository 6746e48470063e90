package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"splice/internal/daemon"
	"splice/internal/logging"
	"splice/internal/testsupport"
)

func TestEnsureCurrentLogPointerReplacesLink(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "splice-1.log")
	second := filepath.Join(dir, "splice-2.log")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte(filepath.Base(p)), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "splice.log"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "splice-2.log" {
		t.Fatalf("pointer resolves to %q", data)
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splice.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("pid file = %q", data)
	}
}

func TestNewTranslatorRequiresKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if tr := newTranslator(cfg, logging.NewNop()); tr != nil {
		t.Fatal("expected nil translator without api key")
	}
	cfg.Translate.APIKey = "key"
	if tr := newTranslator(cfg, logging.NewNop()); tr == nil {
		t.Fatal("expected translator with api key")
	}
}

func TestRunLeavesRunningDaemonFilesAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	held, err := daemon.AcquireLock(cfg)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer func() { _ = held.Unlock() }()

	pidPath := filepath.Join(cfg.Paths.LogDir, "splice.pid")
	if err := os.WriteFile(pidPath, []byte("4242\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Run(context.Background(), cfg, Options{}); err == nil {
		t.Fatal("expected Run to fail while another daemon holds the lock")
	}
	data, err := os.ReadFile(pidPath)
	if err != nil || strings.TrimSpace(string(data)) != "4242" {
		t.Fatalf("pid file = %q, %v", data, err)
	}
	if _, err := os.Lstat(filepath.Join(cfg.Paths.LogDir, "splice.log")); !os.IsNotExist(err) {
		t.Fatalf("log pointer touched: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(cfg.Paths.LogDir, "splice-*.log"))
	if len(matches) != 0 {
		t.Fatalf("run log created: %v", matches)
	}
}
