// Package paths resolves where the journal keeps its configuration and its
// experiments.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user application directories.
const AppName = "journal"

// Environment variable overrides.
const (
	EnvConfigDir = "JOURNAL_CONFIG_DIR"
	EnvDataDir   = "JOURNAL_DATA_DIR"
)

// ExperimentsDirName is the storage root inside the default data directory.
const ExperimentsDirName = "experiments"

// Overridable in tests.
var (
	homeDir       = os.UserHomeDir
	userConfigDir = os.UserConfigDir
)

// xdgDir returns $env/journal, falling back to ~/fallback/journal.
func xdgDir(env string, fallback ...string) (string, error) {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, fallback...), AppName)...), nil
}

// DefaultConfigDir returns the per-user configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/journal (fallback ~/.config/journal)
// Others:  os.UserConfigDir()/journal
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// DefaultDataDir returns the per-user storage root.
//
// Linux:   $XDG_DATA_HOME/journal/experiments (fallback ~/.local/share/journal/experiments)
// Others:  os.UserConfigDir()/journal/experiments
func DefaultDataDir() (string, error) {
	var base string
	var err error
	if runtime.GOOS == "linux" {
		base, err = xdgDir("XDG_DATA_HOME", ".local", "share")
	} else {
		base, err = DefaultConfigDir()
	}
	if err != nil {
		return "", err
	}
	return filepath.Join(base, ExperimentsDirName), nil
}

// ResolveConfigDir picks the configuration directory:
// flag > JOURNAL_CONFIG_DIR > DefaultConfigDir. Explicit values are made
// absolute.
func ResolveConfigDir(flag string) (string, error) {
	return firstAbs(DefaultConfigDir, flag, os.Getenv(EnvConfigDir))
}

// ResolveDataDir picks the storage root:
// flag > JOURNAL_DATA_DIR > data_dir from config.yaml > DefaultDataDir.
// Explicit values are made absolute.
func ResolveDataDir(flag, configValue string) (string, error) {
	return firstAbs(DefaultDataDir, flag, os.Getenv(EnvDataDir), configValue)
}

func firstAbs(fallback func() (string, error), candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	return fallback()
}
