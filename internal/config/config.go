package config

// Config holds all application configuration, grouped by concern.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Provider ProviderConfig `mapstructure:"provider" validate:"required"`
	Tasks    TasksConfig    `mapstructure:"tasks"    validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
}

// ServerConfig contains server-related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains authentication settings. The signing secret is
// shared with the account service that mints user tokens.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
}

// ProviderConfig contains the generation provider settings, including
// the polling knobs the engine depends on.
type ProviderConfig struct {
	BaseURL  string `mapstructure:"base_url"  validate:"required,url"`
	APIToken string `mapstructure:"api_token" validate:"required"`

	// PollTimeoutSeconds is the ceiling on waiting for one provider
	// job before the task fails with a timeout.
	PollTimeoutSeconds int `mapstructure:"poll_timeout_seconds" validate:"gt=0"`

	// PollIntervalSeconds is the delay between provider polls.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" validate:"gt=0"`

	ImageModel  string `mapstructure:"image_model"  validate:"required"`
	SpeechModel string `mapstructure:"speech_model" validate:"required"`
	VideoModel  string `mapstructure:"video_model"  validate:"required"`
}

// TasksConfig contains the task registry settings.
type TasksConfig struct {
	// TTLSeconds is the maximum age of a task record before eviction,
	// regardless of status.
	TTLSeconds int `mapstructure:"ttl_seconds" validate:"gt=0"`

	// HistoryLimit caps progress history entries per record.
	HistoryLimit int `mapstructure:"history_limit" validate:"gte=0"`
}

// StorageConfig contains the artifact storage settings.
type StorageConfig struct {
	Dir        string `mapstructure:"dir"         validate:"required"`
	PublicBase string `mapstructure:"public_base" validate:"required"`
}

// LLMConfig contains the Gemini integration settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string `mapstructure:"model_name"     validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"        validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}
