package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eeforge/eectl/internal/config"
	"github.com/eeforge/eectl/internal/docker"
	"github.com/eeforge/eectl/internal/env"
	"github.com/eeforge/eectl/internal/probe"
	"github.com/eeforge/eectl/internal/services"
)

// runtime bundles the collaborators a command needs.
type runtime struct {
	logger       *slog.Logger
	store        *config.Store
	client       *docker.Client
	bootstrapper *services.Bootstrapper
}

func loadStore(opts *Options) (*config.Store, error) {
	inlineVars, err := env.ParseInlineVars(opts.Vars)
	if err != nil {
		return nil, err
	}
	return config.LoadStore(config.LoadOptions{
		Path:    opts.Settings.ConfigPath,
		EnvFile: opts.Settings.EnvFile,
		Inline:  inlineVars,
	})
}

func newDockerClient(opts *Options, logger *slog.Logger) *docker.Client {
	return docker.NewClient(opts.newRunner(logger), docker.Options{
		DockerBin:  opts.Settings.DockerBin,
		ComposeBin: opts.Settings.ComposeBin,
		Logger:     logger,
	})
}

// loadRuntime wires configuration, the docker client and the bootstrapper.
func loadRuntime(opts *Options, cmd *cobra.Command) (*runtime, error) {
	logger := LoggerFromContext(cmd.Context())

	store, err := loadStore(opts)
	if err != nil {
		return nil, err
	}
	client := newDockerClient(opts, logger)

	b, err := services.NewBootstrapper(services.BootstrapperOptions{
		Engine:      client,
		Prober:      probe.NewChecker(),
		Renderer:    config.NewTemplateRenderer(opts.Settings.TemplatesDir()),
		Config:      store,
		ServicesDir: opts.Settings.ServicesDir(),
		Logger:      logger,
		Validate:    services.ValidateComposeFile,
	})
	if err != nil {
		return nil, err
	}

	return &runtime{logger: logger, store: store, client: client, bootstrapper: b}, nil
}
