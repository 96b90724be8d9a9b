package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/journal/internal/controller"
	"github.com/mesh-intelligence/journal/pkg/types"
)

func newNewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new <title>",
		Short: "Create an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd, func(c *controller.Controller) error {
				exp, err := await(func(cons controller.Consumer[*types.Experiment]) {
					c.CreateExperiment(args[0], cons)
				})
				if err != nil {
					return err
				}
				if a.jsonMode {
					return printJSON(cmd.OutOrStdout(), viewOf(exp))
				}
				fmt.Fprintln(cmd.OutOrStdout(), exp.ID())
				return nil
			})
		},
	}
}
