// Package migrate upgrades stored experiment schemas to the version this
// code supports.
//
// Minor versions only add fields, so a schema with an older minor version
// is upgraded in place by restamping it. Major versions are breaking: an
// older major version is carried forward one step at a time through the
// registered MajorStep functions, and a newer major version is rejected.
package migrate

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/mesh-intelligence/journal/pkg/types"
)

// Result reports what Upgrade did to a schema.
type Result int

const (
	// NoUpgrade means the schema already matches or is a newer minor
	// version of the supported major version. It was not modified.
	NoUpgrade Result = iota
	// Upgraded means the schema was modified and should be written back.
	Upgraded
	// TooNew means the schema has a newer major version. It was not
	// modified and must not be installed or written.
	TooNew
)

func (r Result) String() string {
	switch r {
	case NoUpgrade:
		return "no-upgrade"
	case Upgraded:
		return "upgraded"
	case TooNew:
		return "too-new"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// ErrNoMajorUpgradePath is returned when a schema's major version is older
// than supported and no step is registered to carry it forward.
var ErrNoMajorUpgradePath = errors.New("no upgrade path for major version")

// MajorStep rewrites a schema of major version `from` into major version
// from+1. It must not lose data. Upgrade sets the version fields; the step
// only transforms payload.
type MajorStep func(schema *types.ExperimentSchema) error

var (
	stepsMu sync.RWMutex
	steps   = map[int32]MajorStep{
		// Major 1 only added fields to major 0.
		0: func(*types.ExperimentSchema) error { return nil },
	}
)

// RegisterMajorStep installs the step that upgrades major version from to
// from+1, replacing any earlier registration.
func RegisterMajorStep(from int32, step MajorStep) {
	stepsMu.Lock()
	defer stepsMu.Unlock()
	steps[from] = step
}

func majorStep(from int32) (MajorStep, bool) {
	stepsMu.RLock()
	defer stepsMu.RUnlock()
	s, ok := steps[from]
	return s, ok
}

// Upgrade brings schema up to (supportedMajor, supportedMinor) when it can.
// It never downgrades: a newer minor version of the supported major is left
// as is and reported as NoUpgrade, and a newer major version is reported as
// TooNew without touching the schema.
func Upgrade(schema *types.ExperimentSchema, supportedMajor, supportedMinor int32) (Result, error) {
	if schema == nil {
		return NoUpgrade, types.ErrInvalidData
	}
	have := semverOf(schema.Version)
	want := semverOf(types.Version{Major: supportedMajor, Minor: supportedMinor})

	switch {
	case have.Major() > want.Major():
		return TooNew, nil
	case have.Major() == want.Major() && !have.LessThan(want):
		return NoUpgrade, nil
	}

	// Run major steps on a copy so a failing step leaves schema untouched.
	work := schema.Clone()
	for work.Version.Major < supportedMajor {
		step, ok := majorStep(work.Version.Major)
		if !ok {
			return NoUpgrade, fmt.Errorf("from %s: %w", work.Version, ErrNoMajorUpgradePath)
		}
		if err := step(work); err != nil {
			return NoUpgrade, fmt.Errorf("upgrade from major %d: %w", work.Version.Major, err)
		}
		work.Version.Major++
	}
	work.Version.Minor = supportedMinor
	*schema = *work
	return Upgraded, nil
}

// IsNewerThan reports whether v is newer than (supportedMajor,
// supportedMinor) in either component. A schema like that must not be
// overwritten by this code, since it may hold fields this code drops.
func IsNewerThan(v types.Version, supportedMajor, supportedMinor int32) bool {
	return semverOf(v).GreaterThan(semverOf(types.Version{Major: supportedMajor, Minor: supportedMinor}))
}

// semverOf maps a schema version onto major.minor.0. Negative components
// cannot come from this code and are clamped to zero.
func semverOf(v types.Version) *semver.Version {
	return semver.New(uint64(max(v.Major, 0)), uint64(max(v.Minor, 0)), 0, "", "")
}
