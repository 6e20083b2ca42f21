package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/compose-spec/compose-go/v2/cli"

	"github.com/eeforge/eectl/internal/config"
)

const (
	// ProjectName is the compose project name of the global services.
	ProjectName = "ee-global"

	restartAlways = "always"
	passwordChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultPasswordLength is the length of generated database root passwords.
	DefaultPasswordLength = 18

	imageProxy = "easyengine/nginx-proxy"
	imageDB    = "easyengine/mariadb"
	imageRedis = "easyengine/redis"
)

// VolumeMount attaches a named volume or host path inside a container.
type VolumeMount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// Named reports whether Source is a named volume rather than a host path.
func (m VolumeMount) Named() bool {
	return !strings.HasPrefix(m.Source, "/") && !strings.HasPrefix(m.Source, ".") && !strings.HasPrefix(m.Source, "~")
}

// String renders the mount in compose short syntax.
func (m VolumeMount) String() string {
	s := m.Source + ":" + m.Target
	if m.ReadOnly {
		s += ":ro"
	}
	return s
}

// ServiceDefinition is one service entry of the compose document.
type ServiceDefinition struct {
	Name          string
	ContainerName string
	Image         string
	Restart       string
	Ports         []PortBinding
	Environment   []string
	Volumes       []VolumeMount
	Networks      []NetworkName
}

// ExternalVolume declares a pre-created volume named <Prefix>_<Name>.
type ExternalVolume struct {
	Prefix string
	Name   string
}

// ComposeDocument is the data model handed to the compose template.
type ComposeDocument struct {
	Services        []ServiceDefinition
	ExternalVolumes []ExternalVolume
}

// NetworkNames lists the distinct networks referenced by services, in first-use order.
func (d ComposeDocument) NetworkNames() []NetworkName {
	seen := make(map[NetworkName]struct{})
	var out []NetworkName
	for _, svc := range d.Services {
		for _, n := range svc.Networks {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

// Service returns the definition with the given name.
func (d ComposeDocument) Service(name string) (ServiceDefinition, bool) {
	for _, svc := range d.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return ServiceDefinition{}, false
}

// Validate checks that every named volume mount is declared external and that
// services only join standing networks.
func (d ComposeDocument) Validate() error {
	declared := make(map[string]struct{}, len(d.ExternalVolumes))
	for _, v := range d.ExternalVolumes {
		declared[v.Name] = struct{}{}
	}
	for _, svc := range d.Services {
		for _, m := range svc.Volumes {
			if !m.Named() {
				continue
			}
			if _, ok := declared[m.Source]; !ok {
				return fmt.Errorf("service %s mounts undeclared volume %q", svc.Name, m.Source)
			}
		}
		for _, n := range svc.Networks {
			if !n.IsStanding() {
				return fmt.Errorf("service %s joins unknown network %q", svc.Name, n)
			}
		}
	}
	return nil
}

// ComposeInput is everything the compose document is derived from.
type ComposeInput struct {
	ImageVersions  map[string]string
	Ports          ProxyPorts
	UID            int
	GID            int
	DBRootPassword string
}

// BuildComposeDocument builds the global compose document. It performs no I/O.
func BuildComposeDocument(in ComposeInput, groups []ServiceGroup) (ComposeDocument, error) {
	if err := in.Ports.validate(); err != nil {
		return ComposeDocument{}, err
	}
	if in.DBRootPassword == "" {
		return ComposeDocument{}, errors.New("database root password is empty")
	}
	image := func(name string) (string, error) {
		v := strings.TrimSpace(in.ImageVersions[name])
		if v == "" {
			return "", fmt.Errorf("no image version for %s", name)
		}
		return name + ":" + v, nil
	}

	proxyImage, err := image(imageProxy)
	if err != nil {
		return ComposeDocument{}, err
	}
	dbImage, err := image(imageDB)
	if err != nil {
		return ComposeDocument{}, err
	}
	redisImage, err := image(imageRedis)
	if err != nil {
		return ComposeDocument{}, err
	}

	doc := ComposeDocument{
		Services: []ServiceDefinition{
			{
				Name:          ProxyService,
				ContainerName: ProxyContainer,
				Image:         proxyImage,
				Restart:       restartAlways,
				Ports:         in.Ports.Bindings(),
				Environment: []string{
					fmt.Sprintf("LOCAL_USER_ID=%d", in.UID),
					fmt.Sprintf("LOCAL_GROUP_ID=%d", in.GID),
				},
				Volumes: []VolumeMount{
					{Source: "certs", Target: "/etc/nginx/certs"},
					{Source: "dhparam", Target: "/etc/nginx/dhparam"},
					{Source: "confd", Target: "/etc/nginx/conf.d"},
					{Source: "htpasswd", Target: "/etc/nginx/htpasswd"},
					{Source: "vhostd", Target: "/etc/nginx/vhost.d"},
					{Source: "html", Target: "/usr/share/nginx/html"},
					{Source: "/var/run/docker.sock", Target: "/tmp/docker.sock", ReadOnly: true},
				},
				Networks: []NetworkName{FrontendNetwork},
			},
			{
				Name:          DBService,
				ContainerName: DBContainer,
				Image:         dbImage,
				Restart:       restartAlways,
				Environment:   []string{"MYSQL_ROOT_PASSWORD=" + in.DBRootPassword},
				Volumes:       []VolumeMount{{Source: "data_db", Target: "/var/lib/mysql"}},
				Networks:      []NetworkName{BackendNetwork},
			},
			{
				Name:          RedisService,
				ContainerName: RedisContainer,
				Image:         redisImage,
				Restart:       restartAlways,
				Volumes:       []VolumeMount{{Source: "data_redis", Target: "/data"}},
				Networks:      []NetworkName{BackendNetwork},
			},
		},
	}
	for _, g := range groups {
		for _, v := range g.Volumes {
			doc.ExternalVolumes = append(doc.ExternalVolumes, ExternalVolume{Prefix: g.Label, Name: v.Name})
		}
	}

	if err := doc.Validate(); err != nil {
		return ComposeDocument{}, err
	}
	return doc, nil
}

// GeneratePassword returns a random alphanumeric string of length n.
func GeneratePassword(n int) (string, error) {
	if n <= 0 {
		n = DefaultPasswordLength
	}
	max := big.NewInt(int64(len(passwordChars)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b.WriteByte(passwordChars[idx.Int64()])
	}
	return b.String(), nil
}

// ComposeValidator checks a rendered compose file before it is published.
type ComposeValidator func(ctx context.Context, path string) error

// ValidateComposeFile loads path with compose-go, without interpolation, and
// reports any schema or consistency error.
func ValidateComposeFile(ctx context.Context, path string) error {
	opts, err := cli.NewProjectOptions(
		[]string{path},
		cli.WithName(ProjectName),
		cli.WithWorkingDirectory(filepath.Dir(path)),
		cli.WithInterpolation(false),
	)
	if err != nil {
		return fmt.Errorf("compose project options: %w", err)
	}
	project, err := cli.ProjectFromOptions(ctx, opts)
	if err != nil {
		return fmt.Errorf("invalid compose file: %w", err)
	}
	if len(project.Services) == 0 {
		return errors.New("compose file declares no services")
	}
	return nil
}

// ComposeWriter publishes the compose document. The file is written at most
// once: an existing file is never rendered again or rewritten.
type ComposeWriter struct {
	Renderer Renderer
	Validate ComposeValidator
}

// RenderAndWrite renders doc and publishes it at path unless path already
// exists. It reports whether this call created the file.
func (w ComposeWriter) RenderAndWrite(ctx context.Context, doc ComposeDocument, path string) (bool, error) {
	content, err := w.Renderer.Render(config.TemplateCompose, doc)
	if err != nil {
		return false, fmt.Errorf("render compose file: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create services dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".docker-compose-*.yml")
	if err != nil {
		return false, fmt.Errorf("create temp compose file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("write temp compose file: %w", err)
	}
	// The file holds the database root password.
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("chmod temp compose file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("close temp compose file: %w", err)
	}

	if w.Validate != nil {
		if err := w.Validate(ctx, tmpPath); err != nil {
			return false, err
		}
	}

	// Link fails when path exists, so a concurrent writer's file is kept.
	if err := os.Link(tmpPath, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("publish compose file %s: %w", path, err)
	}
	return true, nil
}

// ProxyConf is the data model of the proxy's custom.conf fragment.
type ProxyConf struct {
	ClientMaxBodySize string
	ProxyReadTimeout  string
}

// DefaultProxyConf is the static fragment written on every proxy bring-up.
var DefaultProxyConf = ProxyConf{ClientMaxBodySize: "100m", ProxyReadTimeout: "300s"}

// WriteProxyCustomConf renders the proxy fragment and overwrites path.
func WriteProxyCustomConf(renderer Renderer, path string) error {
	content, err := renderer.Render(config.TemplateProxyCustomConf, DefaultProxyConf)
	if err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}
