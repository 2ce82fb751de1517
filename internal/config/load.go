package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults double as the key registry: viper only maps environment
	// variables onto keys it already knows about.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("database.url", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("provider.base_url", "https://api.replicate.com")
	v.SetDefault("provider.api_token", "")
	v.SetDefault("provider.poll_timeout_seconds", 600)
	v.SetDefault("provider.poll_interval_seconds", 2)
	v.SetDefault("provider.image_model", "black-forest-labs/flux-1.1-pro")
	v.SetDefault("provider.speech_model", "minimax/speech-02-hd")
	v.SetDefault("provider.video_model", "kwaivgi/kling-v1.6-standard")
	v.SetDefault("tasks.ttl_seconds", 3600)
	v.SetDefault("tasks.history_limit", 50)
	v.SetDefault("storage.dir", "./data/media")
	v.SetDefault("storage.public_base", "/media")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	// Optional config file in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables with the FABLE_ prefix override everything,
	// e.g. FABLE_DATABASE_URL maps to database.url.
	v.SetEnvPrefix("FABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
