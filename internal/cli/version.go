package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/journal/pkg/journal"
	"github.com/mesh-intelligence/journal/pkg/types"
)

const modulePath = "github.com/mesh-intelligence/journal"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the journal version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "journal v%s\nmodule: %s\nschema: %s\n",
				journal.Version, modulePath, types.CurrentVersion())
			return nil
		},
	}
}
