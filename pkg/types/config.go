package types

import (
	"errors"
	"time"

	"go.uber.org/zap/zapcore"
)

// Config holds the storage root and tuning for opening a journal.
type Config struct {
	DataDir      string `json:"data_dir" yaml:"data_dir"`
	WriteDelayMs *int64 `json:"write_delay_ms,omitempty" yaml:"write_delay_ms,omitempty"`
	LogLevel     string `json:"log_level" yaml:"log_level"`
	LockRetries  uint   `json:"lock_retries" yaml:"lock_retries"`
}

// Defaults applied when a Config field is left at its zero value.
const (
	DefaultWriteDelayMs = 1000
	DefaultLogLevel     = "info"
	DefaultLockRetries  = 3
)

// Config validation errors.
var (
	ErrDataDirEmpty      = errors.New("data directory must not be empty")
	ErrWriteDelayInvalid = errors.New("write delay must not be negative")
	ErrLogLevelUnknown   = errors.New("unknown log level")
)

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	if c.WriteDelayMs != nil && *c.WriteDelayMs < 0 {
		return ErrWriteDelayInvalid
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			return ErrLogLevelUnknown
		}
	}
	return nil
}

// WriteDelay returns the deferred-write delay. A nil WriteDelayMs means the
// production default; an explicit zero disables the timer.
func (c Config) WriteDelay() time.Duration {
	if c.WriteDelayMs == nil {
		return DefaultWriteDelayMs * time.Millisecond
	}
	return time.Duration(*c.WriteDelayMs) * time.Millisecond
}

// Level returns the configured log level, defaulting to info.
func (c Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zapcore.InfoLevel
	}
	return lvl
}

// WithDefaults fills zero-valued tuning fields.
func (c Config) WithDefaults() Config {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LockRetries == 0 {
		c.LockRetries = DefaultLockRetries
	}
	return c
}
