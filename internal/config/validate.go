package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is structurally usable. Credential
// presence is checked by preflight and per-stage health checks instead, so
// read-only commands work without API keys.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateCleanup(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	for name, value := range map[string]string{
		"paths.data_dir":     c.Paths.DataDir,
		"paths.db_path":      c.Paths.DBPath,
		"paths.outputs_dir":  c.Paths.OutputsDir,
		"paths.archives_dir": c.Paths.ArchivesDir,
		"paths.log_dir":      c.Paths.LogDir,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", name)
		}
	}
	return nil
}

func (c *Config) validateDiscovery() error {
	if c.Twitch.PageSize < 1 || c.Twitch.PageSize > 100 {
		return errors.New("twitch.page_size must be between 1 and 100")
	}
	if err := ensurePositiveMap(map[string]int{
		"twitch.lookback_hours":  c.Twitch.LookbackHours,
		"twitch.request_timeout": c.Twitch.RequestTimeout,
		"kick.lookback_hours":    c.Kick.LookbackHours,
		"kick.request_timeout":   c.Kick.RequestTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		return errors.New("llm.base_url must be set")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model must be set")
	}
	return ensurePositiveMap(map[string]int{
		"llm.timeout_seconds": c.LLM.TimeoutSeconds,
		"llm.max_attempts":    c.LLM.MaxAttempts,
	})
}

func (c *Config) validatePipeline() error {
	if err := ensurePositiveMap(map[string]int{
		"download.request_timeout":      c.Download.RequestTimeout,
		"download.max_attempts":         c.Download.MaxAttempts,
		"transcribe.workers":            c.Transcribe.Workers,
		"render.timeout_seconds":        c.Render.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	switch c.Transcribe.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcribe.vad_method must be silero or pyannote, got %q", c.Transcribe.VADMethod)
	}
	return nil
}

func (c *Config) validateCleanup() error {
	if c.Cleanup.SourceRetentionDays < 0 {
		return errors.New("cleanup.source_retention_days must be >= 0")
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
