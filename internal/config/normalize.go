package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProjects()
	c.normalizeRender()
	c.normalizeTranslate()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.AssetsDir, err = expandPath(c.Paths.AssetsDir); err != nil {
		return fmt.Errorf("paths.assets_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("SPLICE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeProjects() {
	c.Projects.TemplateID = strings.TrimSpace(c.Projects.TemplateID)
	if c.Projects.TemplateID == "" {
		c.Projects.TemplateID = defaultTemplateID
	}
	c.Projects.DocumentName = strings.TrimSpace(c.Projects.DocumentName)
	if c.Projects.DocumentName == "" {
		c.Projects.DocumentName = defaultDocumentName
	}
}

func (c *Config) normalizeRender() {
	c.Render.Completion = strings.ToLower(strings.TrimSpace(c.Render.Completion))
	if c.Render.Completion == "" {
		c.Render.Completion = defaultCompletion
	}
	if c.Render.MaxConcurrentSettle <= 0 {
		c.Render.MaxConcurrentSettle = defaultMaxConcurrentSettle
	}
}

func (c *Config) normalizeTranslate() {
	c.Translate.APIKey = strings.TrimSpace(c.Translate.APIKey)
	if c.Translate.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.Translate.APIKey = strings.TrimSpace(value)
		}
	}
	c.Translate.BaseURL = strings.TrimSpace(c.Translate.BaseURL)
	if c.Translate.BaseURL == "" {
		c.Translate.BaseURL = defaultTranslateBaseURL
	}
	c.Translate.Model = strings.TrimSpace(c.Translate.Model)
	if c.Translate.Model == "" {
		c.Translate.Model = defaultTranslateModel
	}
	c.Translate.Referer = strings.TrimSpace(c.Translate.Referer)
	c.Translate.Title = strings.TrimSpace(c.Translate.Title)
	if c.Translate.Title == "" {
		c.Translate.Title = defaultTranslateTitle
	}
	if c.Translate.TimeoutSeconds <= 0 {
		c.Translate.TimeoutSeconds = defaultTranslateTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
