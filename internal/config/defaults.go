package config

const (
	defaultDataDir     = "~/.local/share/clipforge/clips"
	defaultDBPath      = "~/.local/share/clipforge/clipforge.db"
	defaultOutputsDir  = "~/clipforge/outputs"
	defaultArchivesDir = "~/clipforge/archives"
	defaultAssetsDir   = "~/clipforge/assets"
	defaultLogDir      = "~/.local/share/clipforge/logs"

	defaultTwitchBaseURL        = "https://api.twitch.tv/helix"
	defaultTwitchAuthURL        = "https://id.twitch.tv/oauth2/token"
	defaultTwitchPageSize       = 20
	defaultLookbackHours        = 24
	defaultDiscoveryTimeout     = 15
	defaultKickBaseURL          = "https://kick.com/api/v2"
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel             = "google/gemini-3-flash-preview"
	defaultLLMReferer           = "https://github.com/NovoNihilo/clipforge"
	defaultLLMTitle             = "ClipForge Decider"
	defaultLLMTimeoutSeconds    = 60
	defaultLLMMaxAttempts       = 4
	defaultDownloadTimeout      = 120
	defaultDownloadMaxAttempts  = 3
	defaultTranscribeWorkers    = 2
	defaultTranscribeModel      = "base"
	defaultTranscribeVADMethod  = "silero"
	defaultTranscribeLanguage   = "en"
	defaultRenderTimeoutSeconds = 600
	defaultNotifyTimeout        = 10
	defaultSourceRetentionDays  = 14
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			DBPath:      defaultDBPath,
			OutputsDir:  defaultOutputsDir,
			ArchivesDir: defaultArchivesDir,
			AssetsDir:   defaultAssetsDir,
			LogDir:      defaultLogDir,
		},
		Twitch: Twitch{
			BaseURL:        defaultTwitchBaseURL,
			AuthURL:        defaultTwitchAuthURL,
			PageSize:       defaultTwitchPageSize,
			LookbackHours:  defaultLookbackHours,
			RequestTimeout: defaultDiscoveryTimeout,
		},
		Kick: Kick{
			BaseURL:        defaultKickBaseURL,
			LookbackHours:  defaultLookbackHours,
			RequestTimeout: defaultDiscoveryTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			MaxAttempts:    defaultLLMMaxAttempts,
		},
		Download: Download{
			RequestTimeout: defaultDownloadTimeout,
			MaxAttempts:    defaultDownloadMaxAttempts,
		},
		Transcribe: Transcribe{
			Workers:   defaultTranscribeWorkers,
			Model:     defaultTranscribeModel,
			VADMethod: defaultTranscribeVADMethod,
			Language:  defaultTranscribeLanguage,
		},
		Render: Render{
			TimeoutSeconds: defaultRenderTimeoutSeconds,
			MusicEnabled:   true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			RunComplete:    true,
			ClipPackaged:   true,
			Errors:         true,
		},
		Cleanup: Cleanup{
			SourceRetentionDays: defaultSourceRetentionDays,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
