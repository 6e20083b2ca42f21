package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// newServiceUpCommand creates the "service up" subcommand that boots one global service.
func newServiceUpCommand(opts *Options) *cobra.Command {
	var (
		container string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:     "up <service>",
		Short:   "Create or start a global service (global-db, global-redis, ...)",
		Example: "  eectl service up global-db\n  eectl service up redis --container ee-global-redis",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(opts, cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			return rt.bootstrapper.BootstrapGlobalService(ctx, args[0], container)
		},
	}

	cmd.Flags().StringVar(&container, "container", "", "Container name (default ee-<service>)")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultUpTimeout, "Overall timeout for bringing the service up")

	return cmd
}
