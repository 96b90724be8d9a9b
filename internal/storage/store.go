// Package storage lays experiments out on the local filesystem: one
// directory per experiment holding the encoded schema file and an assets
// subtree. A Store holds an exclusive lock on its root while open.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/juju/fslock"

	"github.com/mesh-intelligence/journal/internal/logger"
	"github.com/mesh-intelligence/journal/pkg/types"
)

// File and directory names under the storage root.
const (
	ExperimentFileName = "experiment.jrnx"
	AssetsDirName      = "assets"
	LockFileName       = ".lock"
)

const lockRetryDelay = 100 * time.Millisecond

// Store reads and writes experiment files under a root directory.
type Store struct {
	root string
	lggr logger.Logger
	lock *fslock.Lock
}

// Option configures Open.
type Option func(*options)

type options struct {
	lggr        logger.Logger
	lockRetries uint
}

// WithLogger sets the store's logger.
func WithLogger(lggr logger.Logger) Option {
	return func(o *options) { o.lggr = lggr }
}

// WithLockRetries sets how many times Open tries to take the root lock
// before giving up with ErrLocked.
func WithLockRetries(n uint) Option {
	return func(o *options) { o.lockRetries = n }
}

// Open creates root if needed and takes its lock. The caller must Close
// the store to release the lock.
func Open(root string, opts ...Option) (*Store, error) {
	o := options{lggr: logger.Nop(), lockRetries: types.DefaultLockRetries}
	for _, opt := range opts {
		opt(&o)
	}
	if root == "" {
		return nil, types.ErrDataDirEmpty
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	lock := fslock.New(filepath.Join(root, LockFileName))
	err := retry.Do(
		lock.TryLock,
		retry.Attempts(max(o.lockRetries, 1)),
		retry.Delay(lockRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, fslock.ErrLocked) }),
		retry.OnRetry(func(attempt uint, err error) {
			o.lggr.Debugw("storage root locked, retrying", "root", root, "attempt", attempt+1)
		}),
	)
	if err != nil {
		if errors.Is(err, fslock.ErrLocked) {
			return nil, fmt.Errorf("%s: %w", root, types.ErrLocked)
		}
		return nil, fmt.Errorf("lock storage root: %w", err)
	}

	return &Store{root: root, lggr: o.lggr, lock: lock}, nil
}

// Close releases the root lock. Idempotent.
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.Unlock()
	s.lock = nil
	return err
}

// Root returns the storage root directory.
func (s *Store) Root() string { return s.root }

// ExperimentDir returns the directory that holds everything for id.
func (s *Store) ExperimentDir(id string) string {
	return filepath.Join(s.root, id)
}

// ExperimentFile returns the path of the encoded schema for id.
func (s *Store) ExperimentFile(id string) string {
	return filepath.Join(s.root, id, ExperimentFileName)
}

// AssetsDir returns the assets subtree for id.
func (s *Store) AssetsDir(id string) string {
	return filepath.Join(s.root, id, AssetsDirName)
}

// ReadExperiment returns the encoded schema bytes for id. A missing file
// returns an error wrapping types.ErrNotFound.
func (s *Store) ReadExperiment(id string) ([]byte, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.ExperimentFile(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	return data, nil
}

// WriteExperiment atomically replaces the encoded schema for id, creating
// the experiment directory and its assets subtree on first write.
func (s *Store) WriteExperiment(id string, data []byte) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := os.MkdirAll(s.AssetsDir(id), 0o755); err != nil {
		return fmt.Errorf("create experiment dir %s: %w", id, err)
	}
	if err := WriteBytesAtomic(s.ExperimentFile(id), data); err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	s.lggr.Debugw("wrote experiment file", "experimentID", id, "bytes", len(data))
	return nil
}

// DeleteExperiment removes the experiment directory tree for id. Deleting
// an experiment that has no directory succeeds.
func (s *Store) DeleteExperiment(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := os.RemoveAll(s.ExperimentDir(id)); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	s.lggr.Debugw("deleted experiment dir", "experimentID", id)
	return nil
}

// ExperimentExists reports whether id has an experiment file.
func (s *Store) ExperimentExists(id string) bool {
	if ValidateID(id) != nil {
		return false
	}
	info, err := os.Stat(s.ExperimentFile(id))
	return err == nil && info.Mode().IsRegular()
}

// ListExperimentIDs returns the IDs of every directory under the root that
// holds an experiment file.
func (s *Store) ListExperimentIDs() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list storage root: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if s.ExperimentExists(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// CopyAsset copies r into the assets subtree of id under name and returns
// the path relative to the experiment directory.
func (s *Store) CopyAsset(id, name string, r io.Reader) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", types.ErrInvalidAssetName
	}
	if err := os.MkdirAll(s.AssetsDir(id), 0o755); err != nil {
		return "", fmt.Errorf("create assets dir %s: %w", id, err)
	}
	dest := filepath.Join(s.AssetsDir(id), name)
	err := WriteFileAtomic(dest, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("copy asset %s/%s: %w", id, name, err)
	}
	return RelativePathInExperiment(id, filepath.Join(AssetsDirName, name)), nil
}

// RelativePathInExperiment normalizes p, which is relative to the
// experiment directory of id or to the storage root, to a slash-separated
// path relative to the experiment directory.
func RelativePathInExperiment(id, p string) string {
	p = filepath.ToSlash(filepath.Clean(p))
	return strings.TrimPrefix(p, id+"/")
}

// OverviewImagePath returns the overview image path (relative to the
// storage root) for an asset path relative to the experiment directory.
func OverviewImagePath(id, relativePathInExperiment string) string {
	return id + "/" + RelativePathInExperiment(id, relativePathInExperiment)
}

// ValidateID rejects IDs that cannot name a directory directly under the
// storage root.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.HasPrefix(id, ".") ||
		strings.ContainsAny(id, `/\`) || id != filepath.Base(id) {
		return fmt.Errorf("%q: %w", id, types.ErrInvalidID)
	}
	return nil
}
