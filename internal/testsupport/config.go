package testsupport

import (
	"path/filepath"
	"testing"

	"splice/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Directories are created so the config is immediately usable.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.AssetsDir = filepath.Join(base, "assets")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Render.SettleDelayMillis = 10
	cfg.Render.StabilityChecks = 1
	cfg.Render.MaxSettleAttempts = 5

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithCompletion selects the render completion mode.
func WithCompletion(mode string) ConfigOption {
	return func(c *config.Config) { c.Render.Completion = mode }
}

// WithAPIToken sets the bearer token the API requires.
func WithAPIToken(token string) ConfigOption {
	return func(c *config.Config) { c.Paths.APIToken = token }
}
