package config

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
)

const (
	// TemplateCompose renders the global docker-compose.yml.
	TemplateCompose = "global-docker-compose.yml"
	// TemplateProxyCustomConf renders the proxy's conf.d/custom.conf fragment.
	TemplateProxyCustomConf = "custom.conf"

	templateExt = ".tmpl"
)

//go:embed templates/*.tmpl
var builtinTemplates embed.FS

// TemplateRenderer renders the named built-in templates. When OverrideDir is
// set and contains <name>.tmpl, that file is used instead.
type TemplateRenderer struct {
	OverrideDir string
}

// NewTemplateRenderer constructs a renderer with an optional override directory.
func NewTemplateRenderer(overrideDir string) *TemplateRenderer {
	return &TemplateRenderer{OverrideDir: overrideDir}
}

// Render executes the template called name with data.
func (r *TemplateRenderer) Render(name string, data any) ([]byte, error) {
	raw, err := r.load(name)
	if err != nil {
		return nil, err
	}
	return RenderTemplate(name, raw, data)
}

func (r *TemplateRenderer) load(name string) ([]byte, error) {
	file := name + templateExt
	if r != nil && r.OverrideDir != "" {
		raw, err := os.ReadFile(filepath.Join(r.OverrideDir, file))
		if err == nil {
			return raw, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read template override %q: %w", file, err)
		}
	}
	raw, err := builtinTemplates.ReadFile("templates/" + file)
	if err != nil {
		return nil, fmt.Errorf("unknown template %q: %w", name, err)
	}
	return raw, nil
}

// RenderTemplate renders raw template text with the shared helper functions.
func RenderTemplate(name string, raw []byte, data any) ([]byte, error) {
	tmpl, err := template.New(name).Funcs(funcMap()).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template %q: %w", name, err)
	}
	return buf.Bytes(), nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"default": funcDef,
		"quote":   strconv.Quote,
		"join":    strings.Join,
	}
}

// funcDef returns def when value is empty or whitespace, otherwise value.
func funcDef(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
