package cache

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mesh-intelligence/journal/internal/codec"
	"github.com/mesh-intelligence/journal/internal/logger"
	"github.com/mesh-intelligence/journal/internal/migrate"
	"github.com/mesh-intelligence/journal/pkg/types"
)

// DefaultWriteDelay is how long the cache waits after the last mutation
// before writing the active experiment.
const DefaultWriteDelay = time.Second

// ErrUnwrittenChanges is returned by Close when the final write failed.
var ErrUnwrittenChanges = errors.New("active experiment has unwritten changes")

// Store is the on-disk experiment storage used by the cache.
// *storage.Store satisfies it.
type Store interface {
	ReadExperiment(id string) ([]byte, error)
	WriteExperiment(id string, data []byte) error
	DeleteExperiment(id string) error
}

// Option configures a Cache.
type Option func(*Cache)

// WithWriteDelay overrides DefaultWriteDelay. A delay of zero or less
// disables the deferred-write timer; writes then happen only on explicit
// calls, when switching experiments, and on Close.
func WithWriteDelay(d time.Duration) Option {
	return func(c *Cache) { c.writeDelay = d }
}

// WithLogger sets the cache logger.
func WithLogger(lggr logger.Logger) Option {
	return func(c *Cache) { c.lggr = lggr }
}

// WithSupportedVersion overrides the schema version the cache reads and
// writes. It defaults to types.CurrentMajorVersion and
// types.CurrentMinorVersion.
func WithSupportedVersion(major, minor int32) Option {
	return func(c *Cache) {
		c.supportedMajor = major
		c.supportedMinor = minor
	}
}

// Cache holds at most one active experiment.
type Cache struct {
	store          Store
	listener       types.FailureListener
	lggr           logger.Logger
	writeDelay     time.Duration
	supportedMajor int32
	supportedMinor int32

	mu     sync.Mutex
	active *types.Experiment
	// snapshot is the schema as of the last reported change. The timer
	// goroutine writes it instead of the live schema, which only the owner
	// may touch.
	snapshot *types.ExperimentSchema
	// written is the encoding of the active experiment as last read from or
	// written to disk, nil if it has never been there.
	written  []byte
	dirty    bool
	timer    *time.Timer
	timerGen uint64
}

// New creates a cache over store. A nil listener drops notifications.
func New(store Store, listener types.FailureListener, opts ...Option) *Cache {
	if listener == nil {
		listener = types.FailureListenerFuncs{}
	}
	c := &Cache{
		store:          store,
		listener:       listener,
		lggr:           logger.Nop(),
		writeDelay:     DefaultWriteDelay,
		supportedMajor: types.CurrentMajorVersion,
		supportedMinor: types.CurrentMinorVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lggr = c.lggr.Named("ExperimentCache")
	return c
}

// CreateNewExperiment installs exp as the active experiment and marks it
// dirty. A different active experiment with unwritten changes is written
// first; if that write fails it stays active and CreateNewExperiment
// returns false.
func (c *Cache) CreateNewExperiment(exp *types.Experiment) bool {
	var n notifications
	c.mu.Lock()
	ok := true
	if c.active != nil && c.active.ID() != exp.ID() {
		ok = c.flushLocked(&n)
	}
	if ok {
		c.install(exp)
		c.markDirtyLocked()
	}
	c.mu.Unlock()
	n.deliver(c.listener)
	return ok
}

// UpdateExperiment records a change to exp, which must be the active
// experiment. With no active experiment exp becomes active. Returns
// ErrIdentityMismatch if another experiment is active.
func (c *Cache) UpdateExperiment(exp *types.Experiment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil && c.active.ID() != exp.ID() {
		return fmt.Errorf("update %s while %s is active: %w", exp.ID(), c.active.ID(), types.ErrIdentityMismatch)
	}
	c.active = exp
	c.snapshot = exp.Schema().Clone()
	c.markDirtyLocked()
	return nil
}

// GetExperiment returns the experiment described by overview. The active
// experiment is returned as is, unsaved changes included. Otherwise unsaved
// changes to the active experiment are written and the requested one is
// loaded from disk. Returns nil if either step failed; the failure has been
// reported and a failed write leaves the old experiment active.
func (c *Cache) GetExperiment(overview types.ExperimentOverview) *types.Experiment {
	var n notifications
	c.mu.Lock()
	if c.active != nil && c.active.ID() == overview.ExperimentID {
		exp := c.active
		c.mu.Unlock()
		return exp
	}
	var exp *types.Experiment
	if c.flushLocked(&n) {
		exp = c.loadLocked(overview, &n)
	}
	c.mu.Unlock()
	n.deliver(c.listener)
	return exp
}

// DeleteExperiment removes the experiment directory for id. If id is the
// active experiment it is dropped without being written.
func (c *Cache) DeleteExperiment(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil && c.active.ID() == id {
		c.cancelTimerLocked()
		c.install(nil)
		c.dirty = false
	}
	if err := c.store.DeleteExperiment(id); err != nil {
		return fmt.Errorf("deleting experiment %s: %w", id, err)
	}
	c.lggr.Debugw("deleted experiment", "id", id)
	return nil
}

// WriteActiveExperimentFile writes the active experiment now and cancels any
// pending deferred write. Failures are reported with OnWriteFailed and leave
// the experiment dirty.
func (c *Cache) WriteActiveExperimentFile() {
	var n notifications
	c.mu.Lock()
	c.writeLocked(&n, true)
	c.mu.Unlock()
	n.deliver(c.listener)
}

// LoadActiveExperimentFromFile reads the experiment described by overview
// from disk and makes it active, replacing the in-memory copy if it is
// already active. Unsaved changes to a different active experiment are
// written first; if that fails nothing is loaded.
func (c *Cache) LoadActiveExperimentFromFile(overview types.ExperimentOverview) {
	var n notifications
	c.mu.Lock()
	if c.active == nil || c.active.ID() == overview.ExperimentID || c.flushLocked(&n) {
		c.loadLocked(overview, &n)
	}
	c.mu.Unlock()
	n.deliver(c.listener)
}

// UpgradeExperimentVersionIfNeeded brings schema up to the given version.
// An upgrade marks the cache dirty and arms the write timer. It returns
// false if schema cannot be used: its major version is newer than supported
// (reported with OnNewerVersionDetected) or no upgrade path exists
// (reported with OnReadFailed).
func (c *Cache) UpgradeExperimentVersionIfNeeded(schema *types.ExperimentSchema, overview types.ExperimentOverview, major, minor int32) bool {
	var n notifications
	c.mu.Lock()
	ok := c.upgradeLocked(schema, overview, major, minor, &n)
	c.mu.Unlock()
	n.deliver(c.listener)
	return ok
}

// NeedsWrite reports whether the active experiment has unwritten changes,
// including edits made to it since the last write that were not reported
// with UpdateExperiment.
func (c *Cache) NeedsWrite() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

// ActiveExperiment returns the active experiment, or nil.
func (c *Cache) ActiveExperiment() *types.Experiment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Close cancels the write timer and writes the active experiment if dirty.
// It returns an error if that final write failed.
func (c *Cache) Close() error {
	var n notifications
	c.mu.Lock()
	c.cancelTimerLocked()
	unwritten := !c.flushLocked(&n)
	c.mu.Unlock()
	n.deliver(c.listener)
	if unwritten {
		return ErrUnwrittenChanges
	}
	return nil
}

func (c *Cache) loadLocked(overview types.ExperimentOverview, n *notifications) *types.Experiment {
	c.cancelTimerLocked()
	c.install(nil)
	c.dirty = false

	id := overview.ExperimentID
	data, err := c.store.ReadExperiment(id)
	if err != nil {
		c.lggr.Warnw("failed to read experiment", "id", id, "err", err)
		n.readFailed(overview)
		return nil
	}
	schema, err := codec.Decode(data)
	if err != nil {
		c.lggr.Warnw("failed to decode experiment", "id", id, "err", err)
		n.readFailed(overview)
		return nil
	}
	if !c.upgradeLocked(schema, overview, c.supportedMajor, c.supportedMinor, n) {
		return nil
	}
	c.install(types.FromExperiment(schema, overview))
	c.written, _ = codec.Encode(schema)
	c.lggr.Debugw("loaded experiment", "id", id, "version", schema.Version.String(), "dirty", c.dirty)
	return c.active
}

func (c *Cache) upgradeLocked(schema *types.ExperimentSchema, overview types.ExperimentOverview, major, minor int32, n *notifications) bool {
	from := schema.Version
	res, err := migrate.Upgrade(schema, major, minor)
	if err != nil {
		c.lggr.Errorw("failed to upgrade experiment", "id", overview.ExperimentID, "from", from.String(), "err", err)
		n.readFailed(overview)
		return false
	}
	switch res {
	case migrate.TooNew:
		c.lggr.Warnw("experiment written by a newer version", "id", overview.ExperimentID, "version", from.String())
		n.newerVersion(overview)
		return false
	case migrate.Upgraded:
		c.lggr.Infow("upgraded experiment", "id", overview.ExperimentID, "from", from.String(), "to", schema.Version.String())
		c.markDirtyLocked()
	}
	return true
}

// writeLocked writes the active experiment. live is set when the owner is
// calling, so the live schema can be snapshotted first; the timer writes the
// last snapshot.
func (c *Cache) writeLocked(n *notifications, live bool) {
	c.cancelTimerLocked()
	exp := c.active
	if exp == nil {
		c.dirty = false
		return
	}
	if live || c.snapshot == nil {
		c.snapshot = exp.Schema().Clone()
	}
	schema := c.snapshot
	id := exp.ID()

	if migrate.IsNewerThan(schema.Version, c.supportedMajor, c.supportedMinor) {
		c.lggr.Warnw("refusing to write experiment with newer version", "id", id, "version", schema.Version.String())
		n.writeFailed(exp)
		return
	}
	if existing, err := c.store.ReadExperiment(id); err == nil {
		if v, err := codec.PeekVersion(existing); err == nil && migrate.IsNewerThan(v, c.supportedMajor, c.supportedMinor) {
			c.lggr.Warnw("refusing to overwrite experiment file with newer version", "id", id, "version", v.String())
			n.writeFailed(exp)
			return
		}
	}

	data, err := codec.Encode(schema)
	if err != nil {
		c.lggr.Errorw("failed to encode experiment", "id", id, "err", err)
		n.writeFailed(exp)
		return
	}
	if err := c.store.WriteExperiment(id, data); err != nil {
		c.lggr.Errorw("failed to write experiment", "id", id, "err", err)
		n.writeFailed(exp)
		return
	}
	c.dirty = false
	c.written = data
	c.lggr.Debugw("wrote experiment", "id", id, "bytes", len(data))
}

// pendingLocked reports whether the active experiment differs from its
// copy on disk, marking it dirty if so. It reads the live schema, so the
// timer goroutine must not call it.
func (c *Cache) pendingLocked() bool {
	if c.dirty || c.active == nil {
		return c.dirty
	}
	if c.written != nil {
		if data, err := codec.Encode(c.active.Schema()); err == nil && bytes.Equal(data, c.written) {
			return false
		}
	}
	c.dirty = true
	return true
}

// flushLocked writes the active experiment if it has unwritten changes and
// reports whether it is now safe to replace.
func (c *Cache) flushLocked(n *notifications) bool {
	if !c.pendingLocked() {
		return true
	}
	c.writeLocked(n, true)
	return !c.dirty
}

// install makes exp active and snapshots its schema.
func (c *Cache) install(exp *types.Experiment) {
	c.active = exp
	c.written = nil
	c.snapshot = nil
	if exp != nil {
		c.snapshot = exp.Schema().Clone()
	}
}

func (c *Cache) markDirtyLocked() {
	c.dirty = true
	c.armTimerLocked()
}

// armTimerLocked (re)starts the deferred write. Each arming bumps timerGen
// so a timer that already fired but lost the race for mu does nothing.
func (c *Cache) armTimerLocked() {
	if c.writeDelay <= 0 {
		return
	}
	c.cancelTimerLocked()
	gen := c.timerGen
	c.timer = time.AfterFunc(c.writeDelay, func() { c.onTimer(gen) })
}

func (c *Cache) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

func (c *Cache) onTimer(gen uint64) {
	var n notifications
	c.mu.Lock()
	if gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	if c.dirty {
		c.writeLocked(&n, false)
	}
	c.mu.Unlock()
	n.deliver(c.listener)
}
