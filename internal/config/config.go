package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and database location configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	DBPath      string `toml:"db_path"`
	OutputsDir  string `toml:"outputs_dir"`
	ArchivesDir string `toml:"archives_dir"`
	AssetsDir   string `toml:"assets_dir"`
	LogDir      string `toml:"log_dir"`
}

// Twitch contains configuration for the Twitch Helix clips API.
type Twitch struct {
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	BaseURL        string `toml:"base_url"`
	AuthURL        string `toml:"auth_url"`
	PageSize       int    `toml:"page_size"`
	LookbackHours  int    `toml:"lookback_hours"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Kick contains configuration for the Kick clips API.
type Kick struct {
	BaseURL        string `toml:"base_url"`
	LookbackHours  int    `toml:"lookback_hours"`
	RequestTimeout int    `toml:"request_timeout"`
}

// LLM contains connection settings for the edit-decision model.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxAttempts    int    `toml:"max_attempts"`
}

// Download contains configuration for clip media fetching.
type Download struct {
	RequestTimeout int `toml:"request_timeout"`
	MaxAttempts    int `toml:"max_attempts"`
}

// Transcribe contains configuration for speech-to-text and diarization.
type Transcribe struct {
	Workers     int    `toml:"workers"`
	Model       string `toml:"model"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	VADMethod   string `toml:"vad_method"`
	HFToken     string `toml:"hf_token"`
	Language    string `toml:"language"`
}

// Render contains configuration for the media renderer. FontFile points at
// the caption/title typeface; when empty, drawtext resolves a font through
// fontconfig.
type Render struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MusicEnabled   bool   `toml:"music_enabled"`
	FontFile       string `toml:"font_file"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunComplete    bool   `toml:"run_complete"`
	ClipPackaged   bool   `toml:"clip_packaged"`
	Errors         bool   `toml:"errors"`
}

// Cleanup contains configuration for artifact retention.
type Cleanup struct {
	SourceRetentionDays int `toml:"source_retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for ClipForge.
//
// Configuration sections by subsystem:
//   - Paths: working data, database, outputs, archives, assets, logs
//   - Twitch: Helix clips discovery credentials and fetch bounds
//   - Kick: Kick clips discovery fetch bounds
//   - LLM: edit-decision model connection settings
//   - Download: clip media fetch timeouts and retry budget
//   - Transcribe: speech-to-text workers, model, and diarization token
//   - Render: renderer timeout and music bed toggle
//   - Notifications: ntfy push notification settings
//   - Cleanup: source artifact retention
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Twitch        Twitch        `toml:"twitch"`
	Kick          Kick          `toml:"kick"`
	LLM           LLM           `toml:"llm"`
	Download      Download      `toml:"download"`
	Transcribe    Transcribe    `toml:"transcribe"`
	Render        Render        `toml:"render"`
	Notifications Notifications `toml:"notifications"`
	Cleanup       Cleanup       `toml:"cleanup"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. A .env file in the working
// directory is loaded first so secrets can live outside the TOML file.
func Load(path string) (*Config, string, bool, error) {
	_ = godotenv.Load()

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

	defaultPath, err := expandPath("~/.config/clipforge/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipforge.toml")
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

// EnsureDirectories creates required directories for pipeline operation.
// AssetsDir is created on a best-effort basis so runs can proceed when the
// music/fonts volume is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	dbDir := filepath.Dir(c.Paths.DBPath)
	for _, dir := range []string{c.Paths.DataDir, dbDir, c.Paths.OutputsDir, c.Paths.ArchivesDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.AssetsDir) != "" {
		_ = os.MkdirAll(c.Paths.AssetsDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for rendering and remuxing.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media validation.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// MusicDir returns the directory holding background music beds, grouped by mood.
func (c *Config) MusicDir() string {
	return filepath.Join(c.Paths.AssetsDir, "music")
}

// ClipWorkDir returns the per-clip working directory where the source media
// and every intermediate artifact (transcript, edit decision, render) live.
func (c *Config) ClipWorkDir(platform, clipKey string) string {
	return filepath.Join(c.Paths.DataDir, platform, clipKey)
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
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the LLM connection settings in transport-ready form.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	MaxAttempts    int
}

// GetLLM returns the LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
		MaxAttempts:    c.LLM.MaxAttempts,
	}
}
