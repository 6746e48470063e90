package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	AssetsDir string `toml:"assets_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// Projects controls how project documents are laid out on disk.
type Projects struct {
	// TemplateID names the project whose original document seeds new projects.
	TemplateID   string `toml:"template_id"`
	DocumentName string `toml:"document_name"`
}

// Render contains configuration for the render intake and output tracking.
type Render struct {
	// Completion selects how an output file is judged finished:
	// "stable" (size unchanged across polls), "manifest" (ready sidecar) or
	// "delay" (fixed wait).
	Completion          string `toml:"completion"`
	SettleDelayMillis   int    `toml:"settle_delay_ms"`
	StabilityChecks     int    `toml:"stability_checks"`
	MaxSettleAttempts   int    `toml:"max_settle_attempts"`
	MaxConcurrentSettle int    `toml:"max_concurrent_settles"`
	IntakeRetentionDays int    `toml:"intake_retention_days"`
}

// DeadLetter configures the retry path for files the tracker could not process.
type DeadLetter struct {
	RetryIntervalSeconds int `toml:"retry_interval_seconds"`
	VisibilitySeconds    int `toml:"visibility_seconds"`
	MaxAttempts          int `toml:"max_attempts"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic       string `toml:"ntfy_topic"`
	RequestTimeout  int    `toml:"request_timeout"`
	ProjectCreated  bool   `toml:"project_created"`
	RenderCompleted bool   `toml:"render_completed"`
	Errors          bool   `toml:"errors"`
}

// Translate contains LLM connection settings for text translation commands.
type Translate struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Splice.
//
// Configuration sections by subsystem:
//   - Paths: data, log and asset directories plus the API bind address
//   - Projects: template project and document naming
//   - Render: intake/output directories and completion detection
//   - DeadLetter: retry policy for unprocessable render files
//   - Notifications: ntfy push notification settings
//   - Translate: LLM settings used by translate commands
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Projects      Projects      `toml:"projects"`
	Render        Render        `toml:"render"`
	DeadLetter    DeadLetter    `toml:"dead_letter"`
	Notifications Notifications `toml:"notifications"`
	Translate     Translate     `toml:"translate"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("splice.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// ProjectsDir is the root holding one directory per project.
func (c *Config) ProjectsDir() string {
	return filepath.Join(c.Paths.DataDir, "projects")
}

// IntakeDir is the directory the external renderer watches for new documents.
func (c *Config) IntakeDir() string {
	return filepath.Join(c.Paths.DataDir, "queue")
}

// OutputDir is where the renderer drops finished media.
func (c *Config) OutputDir() string {
	return filepath.Join(c.IntakeDir(), "Output")
}

// LedgerPath is the SQLite database holding render events and dead letters.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.DataDir, "splice.db")
}

// EnsureDirectories creates required directories for daemon operation.
// The assets directory is created on a best-effort basis since it is
// usually mounted from shared storage.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.ProjectsDir(), c.IntakeDir(), c.OutputDir(), c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.AssetsDir) != "" {
		_ = os.MkdirAll(c.Paths.AssetsDir, 0o755)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
