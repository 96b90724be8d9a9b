package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/journal/internal/controller"
	"github.com/mesh-intelligence/journal/internal/journal"
)

// checkView is the JSON form of a check result.
type checkView struct {
	ExperimentID string `json:"experiment_id"`
	Version      string `json:"version"`
	Status       string `json:"status"`
	Indexed      bool   `json:"indexed"`
	Fixed        bool   `json:"fixed"`
	Error        string `json:"error,omitempty"`
}

func newCheckCmd(a *app) *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check stored experiments for version and index problems",
		Long: `Check reads every experiment file under the storage root and reports its
schema version. Files from older versions are upgradable; files from newer
versions are never modified. With --fix, upgradable files are rewritten and
experiments missing from the overview index are added to it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd, func(c *controller.Controller) error {
				results, err := await(func(cons controller.Consumer[[]journal.CheckResult]) {
					c.Check(fix, cons)
				})
				if err != nil {
					return err
				}

				views := make([]checkView, 0, len(results))
				for _, r := range results {
					v := checkView{
						ExperimentID: r.ExperimentID,
						Version:      r.Version.String(),
						Status:       string(r.Status),
						Indexed:      r.Indexed,
						Fixed:        r.Fixed,
					}
					if r.Err != nil {
						v.Error = r.Err.Error()
					}
					views = append(views, v)
				}
				if a.jsonMode {
					return printJSON(cmd.OutOrStdout(), views)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tVERSION\tSTATUS\tINDEXED\tFIXED")
				for _, v := range views {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%t\n", v.ExperimentID, v.Version, v.Status, v.Indexed, v.Fixed)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "upgrade old files and rebuild missing index entries")
	return cmd
}
