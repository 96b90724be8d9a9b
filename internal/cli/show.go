package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/journal/internal/controller"
	"github.com/mesh-intelligence/journal/pkg/types"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <experiment-id>",
		Short: "Show an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd, func(c *controller.Controller) error {
				exp, err := await(func(cons controller.Consumer[*types.Experiment]) {
					c.GetExperimentByID(args[0], cons)
				})
				if err != nil {
					return err
				}
				return printExperiment(cmd.OutOrStdout(), exp, a.jsonMode)
			})
		},
	}
}
