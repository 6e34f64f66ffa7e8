package ports

import (
	"errors"
	"fmt"
)

// Infrastructure errors raised at the service boundary.
var (
	// ErrRateLimited indicates that a client exceeded the request budget.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that ingestion has not completed and
	// queries cannot be answered yet.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
