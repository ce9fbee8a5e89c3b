package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	// .env files are a development convenience; absence is not an error.
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v := viper.New()

	setDefaults(v)

	// Optional config file in the working directory.
	v.SetConfigName("wordvault")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Environment variables: WORDVAULT_SERVER_PORT, WORDVAULT_REMOTE_API_KEY, ...
	v.SetEnvPrefix("WORDVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can bind it.
// Credentials and store coordinates default to empty and are rejected by
// validation when left unset.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.api_token", "")

	v.SetDefault("remote.endpoint", "")
	v.SetDefault("remote.project_id", "")
	v.SetDefault("remote.database_id", "")
	v.SetDefault("remote.api_key", "")
	v.SetDefault("remote.owner_id", "")
	v.SetDefault("remote.items_collection", "wrong_words")
	v.SetDefault("remote.records_collection", "study_records")

	v.SetDefault("sync.batch_size", 5)
	v.SetDefault("sync.flush_interval_seconds", 30)
	v.SetDefault("sync.max_concurrent", 3)
	v.SetDefault("sync.submit_timeout_seconds", 30)
	v.SetDefault("sync.mastery_threshold", 3)
}
