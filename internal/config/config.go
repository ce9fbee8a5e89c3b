package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Remote RemoteConfig `mapstructure:"remote" validate:"required"`
	Sync   SyncConfig   `mapstructure:"sync"   validate:"required"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// APIToken is the bearer token callers of this server must present.
	// Issuing and managing credentials happens outside this core.
	APIToken string `mapstructure:"api_token" validate:"required,min=16"`
}

// RemoteConfig contains the remote document store settings.
type RemoteConfig struct {
	Endpoint   string `mapstructure:"endpoint"    validate:"required,url"`
	ProjectID  string `mapstructure:"project_id"  validate:"required"`
	DatabaseID string `mapstructure:"database_id" validate:"required"`

	// APIKey is the opaque credential attached to every store request.
	APIKey string `mapstructure:"api_key" validate:"required"`

	// OwnerID scopes this vault to one learner's records.
	OwnerID string `mapstructure:"owner_id" validate:"required"`

	ItemsCollection   string `mapstructure:"items_collection"   validate:"required"`
	RecordsCollection string `mapstructure:"records_collection" validate:"required"`
}

// SyncConfig contains the write-behind and submission thresholds.
type SyncConfig struct {
	BatchSize            int `mapstructure:"batch_size"             validate:"required,gte=1"`
	FlushIntervalSeconds int `mapstructure:"flush_interval_seconds" validate:"required,gte=1"`
	MaxConcurrent        int `mapstructure:"max_concurrent"         validate:"required,gte=1"`
	SubmitTimeoutSeconds int `mapstructure:"submit_timeout_seconds" validate:"required,gte=1"`
	MasteryThreshold     int `mapstructure:"mastery_threshold"      validate:"required,gte=1"`
}
