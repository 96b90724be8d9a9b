// Package journal is the public entry point for opening an experiment
// journal on disk.
//
// Example:
//
//	m, err := journal.Open(types.Config{DataDir: "experiments"}, listener)
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//	exp, err := m.NewExperiment("Pendulum")
package journal

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/journal/internal/cache"
	manager "github.com/mesh-intelligence/journal/internal/journal"
	"github.com/mesh-intelligence/journal/internal/logger"
	"github.com/mesh-intelligence/journal/internal/sqlite"
	"github.com/mesh-intelligence/journal/internal/storage"
	"github.com/mesh-intelligence/journal/pkg/types"
)

// Version is the journal release version.
const Version = "0.1.0"

// Option configures Open.
type Option func(*options)

type options struct {
	lggr logger.Logger
}

// WithLogger logs through z instead of a production logger built from the
// config's log level.
func WithLogger(z *zap.Logger) Option {
	return func(o *options) { o.lggr = logger.FromZap(z) }
}

// Open locks cfg.DataDir, attaches its overview index and returns a
// manager over it. Recoverable cache failures are delivered to listener,
// which may be nil. The caller must Close the manager.
func Open(cfg types.Config, listener types.FailureListener, opts ...Option) (*manager.Manager, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.lggr == nil {
		lggr, err := logger.New(cfg.Level())
		if err != nil {
			return nil, fmt.Errorf("building logger: %w", err)
		}
		o.lggr = lggr
	}
	lggr := o.lggr.Named("journal")

	store, err := storage.Open(cfg.DataDir,
		storage.WithLogger(lggr.Named("Store")),
		storage.WithLockRetries(cfg.LockRetries),
	)
	if err != nil {
		return nil, err
	}

	index := sqlite.NewBackend(lggr.Named("OverviewIndex"))
	if err := index.Attach(cfg.DataDir); err != nil {
		store.Close()
		return nil, fmt.Errorf("attaching overview index: %w", err)
	}

	c := cache.New(store, listener,
		cache.WithWriteDelay(cfg.WriteDelay()),
		cache.WithLogger(lggr),
	)
	lggr.Debugw("journal opened", "dataDir", cfg.DataDir, "writeDelay", cfg.WriteDelay())
	return manager.New(store, index, c, manager.WithLogger(lggr)), nil
}
