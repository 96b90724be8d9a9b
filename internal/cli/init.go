package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/journal/internal/controller"
	"github.com/mesh-intelligence/journal/internal/paths"
	"github.com/mesh-intelligence/journal/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file and the storage root",
		Long:  "Write a default config.yaml if none exists, then create and lock the\nstorage root and build its overview index.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(a.configDir)
			if err != nil {
				return fmt.Errorf("resolve config dir: %w", err)
			}
			dataDir := a.dataDir
			if dataDir != "" {
				if dataDir, err = filepath.Abs(dataDir); err != nil {
					return err
				}
			}
			written, err := writeConfigIfMissing(configDir, dataDir)
			if err != nil {
				return err
			}
			if written {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath(configDir))
			}

			return a.withController(cmd, func(c *controller.Controller) error {
				all, err := await(func(cons controller.Consumer[[]types.ExperimentOverview]) {
					c.ListOverviews(types.OverviewFilter{IncludeArchived: true}, cons)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Journal initialized at %s (%d experiments)\n", a.cfg.DataDir, len(all))
				return nil
			})
		},
	}
}
