package config

const (
	defaultConfigPath              = "~/.config/splice/config.toml"
	defaultDataDir                 = "~/.local/share/splice"
	defaultLogDir                  = "~/.local/share/splice/logs"
	defaultAssetsDir               = "~/.local/share/splice/assets"
	defaultAPIBind                 = "127.0.0.1:8080"
	defaultTemplateID              = "sandbox"
	defaultDocumentName            = "project.xml"
	defaultCompletion              = CompletionStable
	defaultSettleDelayMillis       = 4000
	defaultStabilityChecks         = 2
	defaultMaxSettleAttempts       = 30
	defaultMaxConcurrentSettle     = 4
	defaultIntakeRetentionDays     = 7
	defaultDeadLetterRetrySeconds  = 30
	defaultDeadLetterVisibility    = 60
	defaultDeadLetterMaxAttempts   = 5
	defaultNotifyRequestTimeout    = 10
	defaultTranslateBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultTranslateModel          = "google/gemini-3-flash-preview"
	defaultTranslateTitle          = "Splice Translate"
	defaultTranslateTimeoutSeconds = 60
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultLogRetentionDays        = 30
)

// Render completion modes.
const (
	CompletionStable   = "stable"
	CompletionManifest = "manifest"
	CompletionDelay    = "delay"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			AssetsDir: defaultAssetsDir,
			APIBind:   defaultAPIBind,
		},
		Projects: Projects{
			TemplateID:   defaultTemplateID,
			DocumentName: defaultDocumentName,
		},
		Render: Render{
			Completion:          defaultCompletion,
			SettleDelayMillis:   defaultSettleDelayMillis,
			StabilityChecks:     defaultStabilityChecks,
			MaxSettleAttempts:   defaultMaxSettleAttempts,
			MaxConcurrentSettle: defaultMaxConcurrentSettle,
			IntakeRetentionDays: defaultIntakeRetentionDays,
		},
		DeadLetter: DeadLetter{
			RetryIntervalSeconds: defaultDeadLetterRetrySeconds,
			VisibilitySeconds:    defaultDeadLetterVisibility,
			MaxAttempts:          defaultDeadLetterMaxAttempts,
		},
		Notifications: Notifications{
			RequestTimeout:  defaultNotifyRequestTimeout,
			ProjectCreated:  true,
			RenderCompleted: true,
			Errors:          true,
		},
		Translate: Translate{
			BaseURL:        defaultTranslateBaseURL,
			Model:          defaultTranslateModel,
			Title:          defaultTranslateTitle,
			TimeoutSeconds: defaultTranslateTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
