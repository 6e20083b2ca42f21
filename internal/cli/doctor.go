package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// newDoctorCommand creates the "doctor" subcommand that runs host preflight checks.
func newDoctorCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run host preflight checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			if err := runDoctorChecks(ctx, logger, opts); err != nil {
				return err
			}

			logger.Info("doctor checks completed successfully", "root", opts.Settings.RootDir)
			return nil
		},
	}

	return cmd
}

func runDoctorChecks(ctx context.Context, logger *slog.Logger, opts *Options) error {
	var fatalErrs []error

	check := func(name string, err error) {
		if err != nil {
			logger.Error(name+" check failed", "error", err)
			fatalErrs = append(fatalErrs, fmt.Errorf("%s: %w", name, err))
			return
		}
		logger.Info(name + " check ok")
	}

	check("docker binary", lookupBinary(opts, opts.Settings.DockerBin))

	client := newDockerClient(opts, logger)
	check("compose binary", lookupBinary(opts, client.ComposeCommand()[0]))
	check("docker engine", client.Ping(ctx))

	store, err := loadStore(opts)
	check("config", err)
	if err == nil {
		logger.Debug("config keys loaded", "path", opts.Settings.ConfigPath, "keys", strings.Join(store.Keys(), ","))
	}

	if info, err := os.Stat(opts.Settings.RootDir); err != nil {
		logger.Warn("root directory not present yet", "root", opts.Settings.RootDir, "error", err)
	} else if !info.IsDir() {
		check("root directory", fmt.Errorf("%s is not a directory", opts.Settings.RootDir))
	}

	return errors.Join(fatalErrs...)
}

func lookupBinary(opts *Options, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("binary name is empty")
	}
	if _, err := opts.lookPath(name); err != nil {
		return fmt.Errorf("%s not found in PATH: %w", name, err)
	}
	return nil
}
