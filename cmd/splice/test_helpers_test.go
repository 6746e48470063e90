package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"splice/internal/api"
	"splice/internal/command"
	"splice/internal/config"
	"splice/internal/ledger"
	"splice/internal/project"
	"splice/internal/render"
	"splice/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	registry   *render.Registry
	ledger     *ledger.Store
	server     *httptest.Server
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(homeDir, ".config", "splice", "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := project.NewStore(cfg.ProjectsDir(), cfg.Projects.DocumentName)
	testsupport.SeedProject(t, store, "demo")
	testsupport.SeedProject(t, store, cfg.Projects.TemplateID)

	journal, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = journal.Close() })

	registry := render.NewRegistry()
	renderDeps := render.Deps{DeadLetters: journal, Journal: journal}
	executor := command.NewExecutor(cfg, command.Deps{
		Chain:      project.NewChain(store, journal, nil),
		Dispatcher: render.NewDispatcher(cfg, registry, renderDeps),
	})
	server := httptest.NewServer(api.NewHandler(cfg, api.Deps{
		Store:       store,
		Executor:    executor,
		Board:       registry,
		Events:      journal,
		DeadLetters: journal,
	}))
	t.Cleanup(server.Close)

	return &cliTestEnv{
		cfg:        cfg,
		registry:   registry,
		ledger:     journal,
		server:     server,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--server", env.server.URL, "--config", env.configPath}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
