// Package config loads eectl settings, the key/value configuration store,
// image versions and the templates rendered into the services directory.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	envparse "github.com/caarlos0/env/v11"

	"github.com/eeforge/eectl/internal/env"
)

const (
	// DefaultRootDir is the EasyEngine root used when EE_ROOT_DIR is unset.
	DefaultRootDir = "/opt/easyengine"
	// servicesDirName holds the global compose project below the root.
	servicesDirName = "services"
	// composeFileName is the compose document written into the services dir.
	composeFileName = "docker-compose.yml"
)

// Settings are process-level options sourced from EE_* environment variables.
// CLI flags override them.
type Settings struct {
	// RootDir is the EasyEngine root directory from EE_ROOT_DIR.
	RootDir string `env:"EE_ROOT_DIR" envDefault:"/opt/easyengine"`
	// ConfigPath is the YAML config file from EE_CONFIG; defaults to <root>/config.yml.
	ConfigPath string `env:"EE_CONFIG"`
	// EnvFile is an optional .env file overlaid on the config file, from EE_ENV_FILE.
	EnvFile string `env:"EE_ENV_FILE"`
	// LogLevel is the logging level from EE_LOG_LEVEL.
	LogLevel string `env:"EE_LOG_LEVEL" envDefault:"info"`
	// DockerBin is the docker CLI binary from EE_DOCKER_BIN.
	DockerBin string `env:"EE_DOCKER_BIN" envDefault:"docker"`
	// ComposeBin is the compose CLI binary from EE_COMPOSE_BIN.
	ComposeBin string `env:"EE_COMPOSE_BIN" envDefault:"docker-compose"`
}

// LoadSettings parses Settings from the process environment.
func LoadSettings() (Settings, error) {
	return loadSettings(envparse.Options{Environment: env.FromOS()})
}

// LoadSettingsFrom parses Settings from the given variables instead of the
// process environment.
func LoadSettingsFrom(vars map[string]string) (Settings, error) {
	return loadSettings(envparse.Options{Environment: vars})
}

func loadSettings(opts envparse.Options) (Settings, error) {
	var s Settings
	if err := envparse.ParseWithOptions(&s, opts); err != nil {
		return Settings{}, fmt.Errorf("parse EE_* settings: %w", err)
	}
	s.Normalize()
	return s, nil
}

// Normalize fills derived defaults after flags or env have been applied.
func (s *Settings) Normalize() {
	s.RootDir = strings.TrimSpace(s.RootDir)
	if s.RootDir == "" {
		s.RootDir = DefaultRootDir
	}
	if strings.TrimSpace(s.ConfigPath) == "" {
		s.ConfigPath = filepath.Join(s.RootDir, "config.yml")
	}
	if s.DockerBin == "" {
		s.DockerBin = "docker"
	}
	if s.ComposeBin == "" {
		s.ComposeBin = "docker-compose"
	}
}

// ServicesDir is the directory holding the global compose project.
func (s Settings) ServicesDir() string {
	return filepath.Join(s.RootDir, servicesDirName)
}

// ComposeFile is the path of the global compose document.
func (s Settings) ComposeFile() string {
	return filepath.Join(s.ServicesDir(), composeFileName)
}

// TemplatesDir may hold <name>.tmpl files overriding the built-in templates.
func (s Settings) TemplatesDir() string {
	return filepath.Join(s.RootDir, "templates")
}
