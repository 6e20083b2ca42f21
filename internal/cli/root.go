// Package cli defines the command-line interface for eectl.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/eeforge/eectl/internal/config"
	"github.com/eeforge/eectl/internal/docker"
	"github.com/eeforge/eectl/internal/logging"
)

// Options stores global CLI options shared between commands.
type Options struct {
	Settings config.Settings
	// Vars holds inline k=v,k2=v2 overrides of the config store.
	Vars     string
	LogLevel logging.Level

	newRunner func(*slog.Logger) docker.Runner
	lookPath  func(string) (string, error)
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	rootOpts, err := defaultOptions()
	if err != nil {
		return err
	}

	rootCmd := newRootCommand(rootOpts, logger)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

// defaultOptions seeds Options from EE_* environment variables.
func defaultOptions() (*Options, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}
	// Derive the config path from the final root unless it was set explicitly.
	if !envPresent("EE_CONFIG") {
		settings.ConfigPath = ""
	}

	var vars varsEnv
	if err := parseEnv(&vars); err != nil {
		return nil, err
	}

	return &Options{
		Settings:  settings,
		Vars:      vars.Vars,
		LogLevel:  logging.ParseLevel(settings.LogLevel),
		newRunner: func(l *slog.Logger) docker.Runner { return docker.NewExecRunner(l) },
		lookPath:  exec.LookPath,
	}, nil
}

// newRootCommand constructs the root cobra.Command with global flags and subcommands.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "eectl",
		Short:         "eectl manages the EasyEngine global services",
		Long:          "eectl brings up the host-wide reverse proxy, database and cache containers shared by every EasyEngine site.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := logging.ParseLevel(cmd.Flag("log-level").Value.String())
			opts.LogLevel = level
			opts.Settings.LogLevel = level.String()
			opts.Settings.Normalize()
			logger = logging.WithRun(logging.NewLogger(cmd.ErrOrStderr(), level))
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			logger.Debug("logger initialized", "level", level, "root", opts.Settings.RootDir)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Settings.RootDir, "root", opts.Settings.RootDir, "EasyEngine root directory")
	cmd.PersistentFlags().StringVarP(&opts.Settings.ConfigPath, "config", "c", opts.Settings.ConfigPath, "Path to config.yml (default <root>/config.yml)")
	cmd.PersistentFlags().StringVar(&opts.Settings.EnvFile, "env-file", opts.Settings.EnvFile, "Optional .env file overriding config values")
	cmd.PersistentFlags().StringVar(&opts.Vars, "vars", opts.Vars, "Config overrides in k=v,k2=v2 format")
	cmd.PersistentFlags().String("log-level", opts.LogLevel.String(), "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newGroupCommand("proxy", "Manage the global reverse proxy", newProxyUpCommand(opts)),
		newGroupCommand("service", "Manage global services", newServiceUpCommand(opts)),
		newGroupCommand("compose", "Inspect the global compose document", newComposeRenderCommand(opts)),
		newStatusCommand(opts),
		newDoctorCommand(opts),
	)

	return cmd
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}
