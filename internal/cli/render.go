package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eeforge/eectl/internal/config"
	"github.com/eeforge/eectl/internal/services"
)

const (
	passwordEnvPrefix = "MYSQL_ROOT_PASSWORD="
	passwordMask      = "********"
)

// newComposeRenderCommand creates the "compose render" subcommand that prints
// the compose document a fresh host would get, without touching the engine.
func newComposeRenderCommand(opts *Options) *cobra.Command {
	var showPassword bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the global docker-compose.yml without writing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(opts, cmd)
			if err != nil {
				return err
			}

			doc, err := rt.bootstrapper.ComposeDocument()
			if err != nil {
				return err
			}
			if !showPassword {
				doc = maskPasswords(doc)
			}

			renderer := config.NewTemplateRenderer(opts.Settings.TemplatesDir())
			rendered, err := renderer.Render(config.TemplateCompose, doc)
			if err != nil {
				return err
			}

			outputPath := cmd.Flag("output").Value.String()
			if outputPath == "" {
				_, writeErr := cmd.OutOrStdout().Write(rendered)
				return writeErr
			}

			if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
				return fmt.Errorf("create output directory for %q: %w", outputPath, err)
			}
			if err := os.WriteFile(outputPath, rendered, 0o600); err != nil {
				return fmt.Errorf("write rendered compose file to %q: %w", outputPath, err)
			}

			rt.logger.Info("rendered compose file", "path", outputPath)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Write the document to this path instead of stdout")
	cmd.Flags().BoolVar(&showPassword, "show-password", false, "Print the generated database root password")

	return cmd
}

func maskPasswords(doc services.ComposeDocument) services.ComposeDocument {
	masked := doc
	masked.Services = make([]services.ServiceDefinition, len(doc.Services))
	for i, svc := range doc.Services {
		envs := make([]string, len(svc.Environment))
		for j, e := range svc.Environment {
			if strings.HasPrefix(e, passwordEnvPrefix) {
				e = passwordEnvPrefix + passwordMask
			}
			envs[j] = e
		}
		svc.Environment = envs
		masked.Services[i] = svc
	}
	return masked
}
