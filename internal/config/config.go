package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Store    StoreConfig    `mapstructure:"store" validate:"required"`
	Executor ExecutorConfig `mapstructure:"executor" validate:"required"`
	Engine   EngineConfig   `mapstructure:"engine" validate:"required"`
	Runner   RunnerConfig   `mapstructure:"runner" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
// URL is only required when the postgres store backend is selected.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// Store backends
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
	StoreBackendBolt     = "bolt"
)

// StoreConfig selects the task store implementation.
type StoreConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=postgres memory bolt"`

	// Path is the database file used by the bolt backend.
	Path string `mapstructure:"path"`
}

// Executor modes
const (
	ExecutorModeSimulated = "simulated"
	ExecutorModeHTTP      = "http"
)

// ExecutorConfig configures the component that runs tasks.
type ExecutorConfig struct {
	Mode string `mapstructure:"mode" validate:"required,oneof=simulated http"`

	// Simulated executor settings
	Delay       time.Duration `mapstructure:"delay" validate:"gte=0"`
	SuccessRate float64       `mapstructure:"success_rate" validate:"gte=0,lte=1"`

	// HTTP executor settings
	URL            string        `mapstructure:"url" validate:"omitempty,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	MaxRetries     int           `mapstructure:"max_retries" validate:"gte=0"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff" validate:"gt=0"`

	// RateLimit caps requests per second to the worker; 0 disables the limit.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int     `mapstructure:"rate_burst" validate:"gte=0"`
}

// Lock modes for concurrent attempts on the same task
const (
	LockModeWait   = "wait"
	LockModeReject = "reject"
)

// EngineConfig configures the task lifecycle engine.
type EngineConfig struct {
	ExecutorTimeout time.Duration `mapstructure:"executor_timeout" validate:"gt=0"`
	LockMode        string        `mapstructure:"lock_mode" validate:"required,oneof=wait reject"`
}

// RunnerConfig configures the background perform runner.
type RunnerConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"gt=0"`
}
