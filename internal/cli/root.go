// Package cli implements the journal command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/journal/internal/cache"
	"github.com/mesh-intelligence/journal/internal/controller"
	"github.com/mesh-intelligence/journal/internal/paths"
	"github.com/mesh-intelligence/journal/pkg/journal"
	"github.com/mesh-intelligence/journal/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// app holds global flag values and the config shared by all subcommands.
type app struct {
	configDir string
	dataDir   string
	logLevel  string
	jsonMode  bool

	// cfg is the configuration the last withController call opened.
	cfg types.Config
}

// NewRootCmd creates the top-level "journal" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:     "journal",
		Short:   "Manage science journal experiments on disk",
		Long:    "journal creates, edits and inspects experiments stored one directory per\nexperiment, with an overview index for fast listing.",
		Version: journal.Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (env "+paths.EnvConfigDir+")")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "experiment storage root (env "+paths.EnvDataDir+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newInitCmd(a),
		newNewCmd(a),
		newShowCmd(a),
		newListCmd(a),
		newTitleCmd(a),
		newImageCmd(a),
		newAssetCmd(a),
		newArchiveCmd(a),
		newDeleteCmd(a),
		newCheckCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// sysErrors come from the environment rather than from bad input.
var sysErrors = []error{
	types.ErrUnavailable,
	types.ErrWriteFailed,
	cache.ErrUnwrittenChanges,
	fs.ErrPermission,
	fs.ErrClosed,
}

var errUsage = errors.New("usage")

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	if errors.Is(err, errUsage) {
		return exitUserError
	}
	for _, target := range sysErrors {
		if errors.Is(err, target) {
			return exitSysError
		}
	}
	return exitUserError
}

// config resolves directories and reads config.yaml into a types.Config.
func (a *app) config() (types.Config, error) {
	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return types.Config{}, err
	}
	dataDir, err := paths.ResolveDataDir(a.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := types.Config{
		DataDir:     dataDir,
		LogLevel:    v.GetString(cfgKeyLogLevel),
		LockRetries: v.GetUint(cfgKeyLockRetries),
	}
	if v.IsSet(cfgKeyWriteDelayMs) {
		ms := v.GetInt64(cfgKeyWriteDelayMs)
		cfg.WriteDelayMs = &ms
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	return cfg, cfg.Validate()
}

// withController opens the journal, runs fn and closes everything. Cache
// failures are printed to stderr as warnings.
func (a *app) withController(cmd *cobra.Command, fn func(c *controller.Controller) error) (err error) {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	a.cfg = cfg
	m, err := journal.Open(cfg, stderrListener{w: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	c := controller.New(m, nil)
	defer func() {
		err = errors.Join(err, c.Close())
	}()
	return fn(c)
}

// stderrListener reports cache failures to the user.
type stderrListener struct {
	w io.Writer
}

func (l stderrListener) OnWriteFailed(exp *types.Experiment) {
	fmt.Fprintf(l.w, "warning: could not save experiment %s\n", exp.ID())
}

func (l stderrListener) OnReadFailed(o types.ExperimentOverview) {
	fmt.Fprintf(l.w, "warning: could not read experiment %s\n", o.ExperimentID)
}

func (l stderrListener) OnNewerVersionDetected(o types.ExperimentOverview) {
	fmt.Fprintf(l.w, "warning: experiment %s was saved by a newer version of journal\n", o.ExperimentID)
}
