package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"splice/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SPLICE_API_TOKEN", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "splice")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.OutputDir() != filepath.Join(wantData, "queue", "Output") {
		t.Fatalf("unexpected output dir: %q", cfg.OutputDir())
	}
	if cfg.Paths.APIBind != "127.0.0.1:8080" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Render.Completion != config.CompletionStable {
		t.Fatalf("unexpected completion mode: %q", cfg.Render.Completion)
	}
	if cfg.Render.SettleDelayMillis != 4000 {
		t.Fatalf("unexpected settle delay: %d", cfg.Render.SettleDelayMillis)
	}
	if cfg.Projects.TemplateID != "sandbox" {
		t.Fatalf("unexpected template id: %q", cfg.Projects.TemplateID)
	}
}

func TestLoadReadsEnvFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SPLICE_API_TOKEN", " secret ")
	t.Setenv("OPENROUTER_API_KEY", "or-key")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.APIToken != "secret" {
		t.Fatalf("expected token from env, got %q", cfg.Paths.APIToken)
	}
	if cfg.Translate.APIKey != "or-key" {
		t.Fatalf("expected translate key from env, got %q", cfg.Translate.APIKey)
	}
}

func TestLoadCustomFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	custom := config.Default()
	custom.Paths.DataDir = filepath.Join(dir, "data")
	custom.Render.Completion = "MANIFEST"
	custom.Logging.Format = " JSON "
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Render.Completion != config.CompletionManifest {
		t.Fatalf("expected normalized completion, got %q", cfg.Render.Completion)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized format, got %q", cfg.Logging.Format)
	}
	if cfg.ProjectsDir() != filepath.Join(dir, "data", "projects") {
		t.Fatalf("unexpected projects dir: %q", cfg.ProjectsDir())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"completion", func(c *config.Config) { c.Render.Completion = "eventually" }, "render.completion"},
		{"stability", func(c *config.Config) { c.Render.StabilityChecks = 0 }, "render.stability_checks"},
		{"settle", func(c *config.Config) { c.Render.SettleDelayMillis = 0 }, "render.settle_delay_ms"},
		{"dead letter", func(c *config.Config) { c.DeadLetter.MaxAttempts = 0 }, "dead_letter.max_attempts"},
		{"template", func(c *config.Config) { c.Projects.TemplateID = "a/b" }, "projects.template_id"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestEnsureDirectoriesCreatesLayout(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.AssetsDir = filepath.Join(base, "assets")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.ProjectsDir(), cfg.IntakeDir(), cfg.OutputDir(), cfg.Paths.LogDir, cfg.Paths.AssetsDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config should load: exists=%v err=%v", exists, err)
	}
}
