package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProjects(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateDeadLetter(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProjects() error {
	if strings.ContainsAny(c.Projects.TemplateID, `/\@`) {
		return fmt.Errorf("projects.template_id %q must not contain path separators or '@'", c.Projects.TemplateID)
	}
	if filepath.Base(c.Projects.DocumentName) != c.Projects.DocumentName {
		return fmt.Errorf("projects.document_name %q must be a bare file name", c.Projects.DocumentName)
	}
	return nil
}

func (c *Config) validateRender() error {
	switch c.Render.Completion {
	case CompletionStable, CompletionManifest, CompletionDelay:
	default:
		return fmt.Errorf("render.completion must be one of stable, manifest, delay (got %q)", c.Render.Completion)
	}
	if err := ensurePositiveMap(map[string]int{
		"render.settle_delay_ms":        c.Render.SettleDelayMillis,
		"render.max_settle_attempts":    c.Render.MaxSettleAttempts,
		"render.max_concurrent_settles": c.Render.MaxConcurrentSettle,
	}); err != nil {
		return err
	}
	if c.Render.StabilityChecks < 1 {
		return errors.New("render.stability_checks must be at least 1")
	}
	if c.Render.IntakeRetentionDays < 0 {
		return errors.New("render.intake_retention_days must be zero or positive")
	}
	return nil
}

func (c *Config) validateDeadLetter() error {
	return ensurePositiveMap(map[string]int{
		"dead_letter.retry_interval_seconds": c.DeadLetter.RetryIntervalSeconds,
		"dead_letter.visibility_seconds":     c.DeadLetter.VisibilitySeconds,
		"dead_letter.max_attempts":           c.DeadLetter.MaxAttempts,
	})
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
