// Package config handles configuration loading, parsing, and validation
// from various sources (.env file, config file, environment variables). It
// provides type-safe access to the settings needed by the server, the task
// store, the executor, the lifecycle engine and the background runner.
package config
