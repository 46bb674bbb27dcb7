package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/NovoNihilo/clipforge/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTwitch()
	c.normalizeKick()
	c.normalizeLLM()
	c.normalizeDownload()
	c.normalizeTranscribe()
	c.normalizeRender()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.DBPath, err = expandPath(c.Paths.DBPath); err != nil {
		return fmt.Errorf("paths.db_path: %w", err)
	}
	if c.Paths.OutputsDir, err = expandPath(c.Paths.OutputsDir); err != nil {
		return fmt.Errorf("paths.outputs_dir: %w", err)
	}
	if c.Paths.ArchivesDir, err = expandPath(c.Paths.ArchivesDir); err != nil {
		return fmt.Errorf("paths.archives_dir: %w", err)
	}
	if c.Paths.AssetsDir, err = expandPath(c.Paths.AssetsDir); err != nil {
		return fmt.Errorf("paths.assets_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTwitch() {
	c.Twitch.ClientID = strings.TrimSpace(c.Twitch.ClientID)
	if value, ok := os.LookupEnv("TWITCH_CLIENT_ID"); ok && strings.TrimSpace(value) != "" {
		c.Twitch.ClientID = strings.TrimSpace(value)
	}
	c.Twitch.ClientSecret = strings.TrimSpace(c.Twitch.ClientSecret)
	if value, ok := os.LookupEnv("TWITCH_CLIENT_SECRET"); ok && strings.TrimSpace(value) != "" {
		c.Twitch.ClientSecret = strings.TrimSpace(value)
	}
	c.Twitch.BaseURL = strings.TrimSpace(c.Twitch.BaseURL)
	if c.Twitch.BaseURL == "" {
		c.Twitch.BaseURL = defaultTwitchBaseURL
	}
	c.Twitch.AuthURL = strings.TrimSpace(c.Twitch.AuthURL)
	if c.Twitch.AuthURL == "" {
		c.Twitch.AuthURL = defaultTwitchAuthURL
	}
	if c.Twitch.PageSize <= 0 {
		c.Twitch.PageSize = defaultTwitchPageSize
	}
	if c.Twitch.PageSize > 100 {
		c.Twitch.PageSize = 100
	}
	if c.Twitch.LookbackHours <= 0 {
		c.Twitch.LookbackHours = defaultLookbackHours
	}
	if c.Twitch.RequestTimeout <= 0 {
		c.Twitch.RequestTimeout = defaultDiscoveryTimeout
	}
}

func (c *Config) normalizeKick() {
	c.Kick.BaseURL = strings.TrimSpace(c.Kick.BaseURL)
	if c.Kick.BaseURL == "" {
		c.Kick.BaseURL = defaultKickBaseURL
	}
	if c.Kick.LookbackHours <= 0 {
		c.Kick.LookbackHours = defaultLookbackHours
	}
	if c.Kick.RequestTimeout <= 0 {
		c.Kick.RequestTimeout = defaultDiscoveryTimeout
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.LLM.APIKey = strings.TrimSpace(value)
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.MaxAttempts <= 0 {
		c.LLM.MaxAttempts = defaultLLMMaxAttempts
	}
}

func (c *Config) normalizeDownload() {
	if c.Download.RequestTimeout <= 0 {
		c.Download.RequestTimeout = defaultDownloadTimeout
	}
	if c.Download.MaxAttempts <= 0 {
		c.Download.MaxAttempts = defaultDownloadMaxAttempts
	}
}

func (c *Config) normalizeTranscribe() {
	if c.Transcribe.Workers <= 0 {
		c.Transcribe.Workers = defaultTranscribeWorkers
	}
	c.Transcribe.Model = strings.TrimSpace(c.Transcribe.Model)
	if c.Transcribe.Model == "" {
		c.Transcribe.Model = defaultTranscribeModel
	}
	c.Transcribe.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcribe.VADMethod))
	if c.Transcribe.VADMethod == "" {
		c.Transcribe.VADMethod = defaultTranscribeVADMethod
	}
	c.Transcribe.HFToken = strings.TrimSpace(c.Transcribe.HFToken)
	if c.Transcribe.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcribe.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcribe.HFToken = strings.TrimSpace(value)
		}
	}
	c.Transcribe.Language = language.Normalize(c.Transcribe.Language)
	if c.Transcribe.Language == "" {
		c.Transcribe.Language = defaultTranscribeLanguage
	}
}

func (c *Config) normalizeRender() {
	if c.Render.TimeoutSeconds <= 0 {
		c.Render.TimeoutSeconds = defaultRenderTimeoutSeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
