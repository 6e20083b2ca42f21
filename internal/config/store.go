package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eeforge/eectl/internal/env"
)

const (
	// KeyProxy80Port is the host port bound to the proxy's port 80.
	KeyProxy80Port = "proxy_80_port"
	// KeyProxy443Port is the host port bound to the proxy's port 443.
	KeyProxy443Port = "proxy_443_port"

	imageVersionsKey = "image_versions"
)

//go:embed img-versions.yml
var defaultImageVersions []byte

// Store is the key/value configuration source consulted by the bootstrapper.
type Store struct {
	values env.Vars
	images map[string]string
}

// LoadOptions selects the sources merged into a Store.
type LoadOptions struct {
	// Path is the YAML config file. A missing file is treated as empty.
	Path string
	// EnvFile is an optional .env file overriding Path.
	EnvFile string
	// Inline holds --vars overrides applied last.
	Inline env.Vars
}

// NewStore builds a Store from explicit values. Image versions not present in
// images fall back to the embedded defaults.
func NewStore(values env.Vars, images map[string]string) (*Store, error) {
	defaults, err := parseImageVersions(defaultImageVersions)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]string, len(defaults)+len(images))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range images {
		if strings.TrimSpace(v) != "" {
			merged[k] = strings.TrimSpace(v)
		}
	}
	if values == nil {
		values = env.Vars{}
	}
	return &Store{values: values, images: merged}, nil
}

// LoadStore reads the config file, overlays the env file and inline vars and
// returns the resulting Store.
func LoadStore(opts LoadOptions) (*Store, error) {
	fileVars := env.Vars{}
	var images map[string]string

	if opts.Path != "" {
		raw, err := os.ReadFile(opts.Path)
		switch {
		case err == nil:
			fileVars, images, err = parseConfigFile(raw)
			if err != nil {
				return nil, fmt.Errorf("parse config %q: %w", opts.Path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config %q: %w", opts.Path, err)
		}
	}

	envVars := env.Vars{}
	if opts.EnvFile != "" {
		var err error
		envVars, err = env.LoadEnvFile(opts.EnvFile, false)
		if err != nil {
			return nil, err
		}
	}

	return NewStore(env.Merge(fileVars, envVars, opts.Inline), images)
}

// Value returns the configured value for key or def when unset.
func (s *Store) Value(key, def string) string {
	return s.values.Get(key, def)
}

// Int returns the configured value for key parsed as an integer, or def when unset.
func (s *Store) Int(key string, def int) (int, error) {
	raw := strings.TrimSpace(s.values.Get(key, ""))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config %s=%q is not an integer", key, raw)
	}
	return n, nil
}

// ImageVersion returns the tag configured for the logical image name.
func (s *Store) ImageVersion(name string) (string, error) {
	v, ok := s.images[name]
	if !ok || v == "" {
		return "", fmt.Errorf("no image version configured for %q", name)
	}
	return v, nil
}

// Keys lists configured keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseConfigFile flattens scalar top-level entries into Vars and extracts the
// image_versions block.
func parseConfigFile(raw []byte) (env.Vars, map[string]string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, nil, err
	}

	vars := make(env.Vars, len(doc))
	var images map[string]string
	for key, val := range doc {
		if key == imageVersionsKey {
			m, ok := val.(map[string]any)
			if !ok {
				return nil, nil, fmt.Errorf("%s must be a mapping", imageVersionsKey)
			}
			images = make(map[string]string, len(m))
			for name, tag := range m {
				images[name] = fmt.Sprint(tag)
			}
			continue
		}
		switch v := val.(type) {
		case nil:
		case map[string]any, []any:
			// nested values are not addressable by key lookup
		default:
			vars[key] = fmt.Sprint(v)
		}
	}
	return vars, images, nil
}

func parseImageVersions(raw []byte) (map[string]string, error) {
	var out map[string]string
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse image versions: %w", err)
	}
	return out, nil
}
