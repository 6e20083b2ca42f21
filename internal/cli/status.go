package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/eeforge/eectl/internal/services"
)

// newStatusCommand creates the "status" subcommand that shows the global services.
func newStatusCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show state of the global containers, volumes and networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(opts, cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tCONTAINER\tSTATE\tVOLUMES")
			for _, g := range rt.bootstrapper.Groups() {
				state, err := rt.client.ContainerStatus(ctx, g.Container)
				if err != nil {
					return err
				}
				vols, err := rt.client.VolumesWithLabel(ctx, g.Label)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\n", g.Name, g.Container, state, len(vols), len(g.Volumes))
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "NETWORK\tEXISTS")
			for _, n := range services.StandingNetworks() {
				exists, err := rt.client.NetworkExists(ctx, string(n))
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%t\n", n, exists)
			}
			composeFile := opts.Settings.ComposeFile()
			_, statErr := os.Stat(composeFile)
			fmt.Fprintln(w)
			fmt.Fprintf(w, "COMPOSE FILE\t%s\t%s\n", composeFile, presence(statErr == nil))
			return w.Flush()
		},
	}

	return cmd
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}
