package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/journal/internal/controller"
)

func newTitleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "title <experiment-id> <title>",
		Short: "Rename an experiment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd, func(c *controller.Controller) error {
				_, err := await(func(cons controller.Consumer[controller.Success]) {
					c.SetTitle(args[0], args[1], cons)
				})
				return err
			})
		},
	}
}

func newArchiveCmd(a *app) *cobra.Command {
	var restore bool
	cmd := &cobra.Command{
		Use:   "archive <experiment-id>",
		Short: "Archive an experiment, hiding it from list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd, func(c *controller.Controller) error {
				_, err := await(func(cons controller.Consumer[controller.Success]) {
					c.SetArchived(args[0], !restore, cons)
				})
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&restore, "restore", false, "unarchive the experiment instead")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <experiment-id>",
		Short: "Delete an experiment and all of its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd, func(c *controller.Controller) error {
				_, err := await(func(cons controller.Consumer[controller.Success]) {
					c.DeleteExperiment(args[0], cons)
				})
				return err
			})
		},
	}
}

func newAssetCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "asset <experiment-id> <file>",
		Short: "Copy a file into an experiment's assets",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("%w: %w", errUsage, err)
			}
			defer f.Close()
			if name == "" {
				name = filepath.Base(args[1])
			}

			return a.withController(cmd, func(c *controller.Controller) error {
				rel, err := await(func(cons controller.Consumer[string]) {
					c.AddAsset(args[0], name, f, cons)
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), rel)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "asset file name (default: the source file name)")
	return cmd
}

func newImageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "image <experiment-id> <file>",
		Short: "Set an experiment's cover image",
		Long:  "Copy an image into the experiment's assets and show it as the\nexperiment's cover in listings.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("%w: %w", errUsage, err)
			}
			defer f.Close()

			return a.withController(cmd, func(c *controller.Controller) error {
				path, err := await(func(cons controller.Consumer[string]) {
					c.SetCoverImage(args[0], filepath.Base(args[1]), f, cons)
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
}
