package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix shared by all configuration environment variables.
const EnvPrefix = "TASKDECK"

// boundKeys lists every configuration key so that AutomaticEnv can resolve it
// during Unmarshal even when no default or config file entry exists.
var boundKeys = []string{
	"server.port",
	"server.log_level",
	"server.shutdown_timeout",
	"database.url",
	"store.backend",
	"store.path",
	"executor.mode",
	"executor.delay",
	"executor.success_rate",
	"executor.url",
	"executor.request_timeout",
	"executor.max_retries",
	"executor.retry_backoff",
	"executor.rate_limit",
	"executor.rate_burst",
	"engine.executor_timeout",
	"engine.lock_mode",
	"runner.worker_count",
	"runner.queue_size",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// A .env file in the working directory, when present, is loaded into the
// environment first without overriding variables that are already set.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return load(v)
}

// LoadFile loads configuration from the given YAML file, with environment
// variables taking precedence.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("store.backend", StoreBackendPostgres)
	v.SetDefault("store.path", "taskdeck.db")
	v.SetDefault("executor.mode", ExecutorModeSimulated)
	v.SetDefault("executor.delay", "5s")
	v.SetDefault("executor.success_rate", 0.5)
	v.SetDefault("executor.request_timeout", "30s")
	v.SetDefault("executor.max_retries", 2)
	v.SetDefault("executor.retry_backoff", "200ms")
	v.SetDefault("executor.rate_limit", 0)
	v.SetDefault("executor.rate_burst", 1)
	v.SetDefault("engine.executor_timeout", "30s")
	v.SetDefault("engine.lock_mode", LockModeWait)
	v.SetDefault("runner.worker_count", 2)
	v.SetDefault("runner.queue_size", 100)
}

func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	if cfg.Store.Backend == StoreBackendPostgres && cfg.Database.URL == "" {
		return errors.New("database.url is required when store.backend is postgres")
	}

	if cfg.Store.Backend == StoreBackendBolt && cfg.Store.Path == "" {
		return errors.New("store.path is required when store.backend is bolt")
	}

	if cfg.Executor.Mode == ExecutorModeHTTP && cfg.Executor.URL == "" {
		return errors.New("executor.url is required when executor.mode is http")
	}

	return nil
}
