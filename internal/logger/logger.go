// Package logger provides the structured logger used across the journal.
//
// Loggers are injected and usually named per component, e.g.
// lggr.Named("cache"). Tests use Test or TestObserved; New is for the CLI.
package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// Logger is the subset of zap.SugaredLogger the journal uses.
type Logger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)

	// Named returns a child logger with name appended to this one's.
	Named(name string) Logger

	// Sync flushes any buffered log entries.
	Sync() error
}

// New returns a production JSON logger writing to stderr at lvl.
func New(lvl zapcore.Level) (Logger, error) {
	return NewWith(func(cfg *zap.Config) {
		cfg.Level.SetLevel(lvl)
	})
}

// NewWith returns a new Logger from a modified zap.Config.
func NewWith(cfgFn func(*zap.Config)) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfgFn(&cfg)
	core, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &logger{core.Sugar()}, nil
}

// Test returns a logger that writes through tb.
func Test(tb testing.TB) Logger {
	tb.Helper()
	return &logger{zaptest.NewLogger(tb, zaptest.Level(zapcore.DebugLevel)).Sugar()}
}

// TestObserved returns a test logger and the entries it records at lvl
// and above.
func TestObserved(tb testing.TB, lvl zapcore.Level) (Logger, *observer.ObservedLogs) {
	tb.Helper()
	oCore, logs := observer.New(lvl)
	observe := zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, oCore)
	})
	return &logger{zaptest.NewLogger(tb, zaptest.WrapOptions(observe, zap.AddCaller())).Sugar()}, logs
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &logger{zap.New(zapcore.NewNopCore()).Sugar()}
}

type logger struct {
	*zap.SugaredLogger
}

func (l *logger) Named(name string) Logger {
	return &logger{l.SugaredLogger.Named(name)}
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) Logger {
	return &logger{z.Sugar()}
}
