package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/journal/internal/controller"
	"github.com/mesh-intelligence/journal/pkg/types"
)

func newListCmd(a *app) *cobra.Command {
	var filter types.OverviewFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List experiments, most recently used first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd, func(c *controller.Controller) error {
				overviews, err := await(func(cons controller.Consumer[[]types.ExperimentOverview]) {
					c.ListOverviews(filter, cons)
				})
				if err != nil {
					return err
				}
				if a.jsonMode {
					return printJSON(cmd.OutOrStdout(), overviews)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTITLE\tLAST USED\tARCHIVED")
				for _, o := range overviews {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", o.ExperimentID, o.Title, formatMs(o.LastUsedTimeMs), o.Archived)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&filter.IncludeArchived, "all", false, "include archived experiments")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of experiments to list (0 for no limit)")
	return cmd
}
