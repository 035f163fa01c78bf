// File: cmd/actions.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/neurodesk/internal/actions"
)

// newActionsCmd creates the `actions` command, which prints the action
// vocabulary the engine registers with the agent backend.
func newActionsCmd() *cobra.Command {
	actionsCmd := &cobra.Command{
		Use:   "actions",
		Short: "Lists the action vocabulary registered with the agent backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}

			registry := actions.NewRegistry(cfg.Platform().ScreenWidth, cfg.Platform().ScreenHeight)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tKIND\tDESCRIPTION")
			for _, def := range registry.All() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", def.Name, def.Kind, def.Description)
			}
			return w.Flush()
		},
	}
	return actionsCmd
}
