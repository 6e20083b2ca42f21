package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

const defaultUpTimeout = 10 * time.Minute

// newProxyUpCommand creates the "proxy up" subcommand that brings the global proxy up.
func newProxyUpCommand(opts *Options) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Create or start the global nginx proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(opts, cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			return rt.bootstrapper.BootstrapProxy(ctx)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", defaultUpTimeout, "Overall timeout for bringing the proxy up")

	return cmd
}
