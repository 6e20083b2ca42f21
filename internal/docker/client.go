// Package docker talks to the container engine through the docker and
// docker-compose command line tools.
package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
)

// LabelKey is the label attached to every network and volume created by eectl.
// Its value is the owning group or network name.
const LabelKey = "org.label-schema.url"

// ContainerState is a point-in-time observation of a container.
type ContainerState string

const (
	// StateRunning means the container exists and is running.
	StateRunning ContainerState = "running"
	// StateStopped means the container exists but is not running.
	StateStopped ContainerState = "stopped"
	// StateAbsent means no container with the name exists.
	StateAbsent ContainerState = "absent"
)

// VolumeSpec names a volume and where its data directory is symlinked on the host.
type VolumeSpec struct {
	Name        string
	SymlinkPath string
}

// Options configures a Client.
type Options struct {
	// DockerBin is the docker executable; defaults to "docker".
	DockerBin string
	// ComposeBin is the compose executable. It may contain arguments, e.g. "docker compose".
	ComposeBin string
	Logger     *slog.Logger
}

// Client wraps the docker CLI. Every method issues a fresh engine query; no
// state is cached between calls.
type Client struct {
	runner     Runner
	dockerBin  string
	composeCmd []string
	logger     *slog.Logger
}

// NewClient constructs a Client that executes commands through runner.
func NewClient(runner Runner, opts Options) *Client {
	dockerBin := strings.TrimSpace(opts.DockerBin)
	if dockerBin == "" {
		dockerBin = "docker"
	}
	composeCmd := strings.Fields(opts.ComposeBin)
	if len(composeCmd) == 0 {
		composeCmd = []string{"docker-compose"}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		runner:     runner,
		dockerBin:  dockerBin,
		composeCmd: composeCmd,
		logger:     logger,
	}
}

// ContainerStatus reports whether the named container is running, stopped or absent.
func (c *Client) ContainerStatus(ctx context.Context, name string) (ContainerState, error) {
	out, err := c.docker(ctx, "inspect", "-f", "{{.State.Running}}", name)
	if err != nil {
		c.logger.Debug("container inspect failed; treating as absent", "container", name, "error", err)
		return StateAbsent, nil
	}
	if strings.TrimSpace(string(out)) == "true" {
		return StateRunning, nil
	}
	return StateStopped, nil
}

// PublishedHostPort returns the host port bound to containerPort/tcp of a running container.
func (c *Client) PublishedHostPort(ctx context.Context, container string, containerPort int) (int, error) {
	out, err := c.docker(ctx, "inspect", "-f", "{{json .NetworkSettings.Ports}}", container)
	if err != nil {
		return 0, fmt.Errorf("inspect ports of %s: %w", container, err)
	}

	var ports nat.PortMap
	if err := json.Unmarshal(out, &ports); err != nil {
		return 0, fmt.Errorf("decode ports of %s: %w", container, err)
	}

	port, err := nat.NewPort("tcp", strconv.Itoa(containerPort))
	if err != nil {
		return 0, err
	}
	for _, binding := range ports[port] {
		if binding.HostPort == "" {
			continue
		}
		hostPort, err := strconv.Atoi(binding.HostPort)
		if err != nil {
			return 0, fmt.Errorf("container %s publishes %s on invalid host port %q", container, port, binding.HostPort)
		}
		return hostPort, nil
	}
	return 0, fmt.Errorf("container %s does not publish %s", container, port)
}

// NetworkExists reports whether a network with the given name exists.
func (c *Client) NetworkExists(ctx context.Context, name string) (bool, error) {
	if _, err := c.docker(ctx, "network", "inspect", name); err != nil {
		return false, nil
	}
	return true, nil
}

// CreateNetwork creates a labeled network.
func (c *Client) CreateNetwork(ctx context.Context, name string) error {
	if _, err := c.docker(ctx, "network", "create", "--label", LabelKey+"="+name, name); err != nil {
		return fmt.Errorf("create network %s: %w", name, err)
	}
	c.logger.Info("network created", "network", name)
	return nil
}

// VolumesWithLabel lists the names of volumes carrying the given label value.
func (c *Client) VolumesWithLabel(ctx context.Context, label string) ([]string, error) {
	out, err := c.docker(ctx, "volume", "ls", "--filter", "label="+LabelKey+"="+label, "--format", "{{.Name}}")
	if err != nil {
		return nil, fmt.Errorf("list volumes labeled %s: %w", label, err)
	}
	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// CreateVolumes creates <prefix>_<name> for every spec, labeled with prefix,
// and symlinks each volume's data directory to spec.SymlinkPath. When
// dockerStylePrefix is set the prefix is normalized the way compose names projects.
func (c *Client) CreateVolumes(ctx context.Context, prefix string, specs []VolumeSpec, dockerStylePrefix bool) error {
	volumePrefix := prefix
	if dockerStylePrefix {
		volumePrefix = DockerStylePrefix(prefix)
	}

	rootDir, err := c.DockerRootDir(ctx)
	if err != nil {
		return err
	}

	for _, spec := range specs {
		volume := volumePrefix + "_" + spec.Name
		if _, err := c.docker(ctx, "volume", "create", "--label", LabelKey+"="+prefix, volume); err != nil {
			return fmt.Errorf("create volume %s: %w", volume, err)
		}
		if spec.SymlinkPath == "" {
			continue
		}
		target := filepath.Join(rootDir, "volumes", volume, "_data")
		if err := replaceSymlink(target, spec.SymlinkPath); err != nil {
			return fmt.Errorf("link volume %s: %w", volume, err)
		}
		c.logger.Debug("volume created", "volume", volume, "link", spec.SymlinkPath)
	}
	return nil
}

// DockerRootDir returns the engine's data root, usually /var/lib/docker.
func (c *Client) DockerRootDir(ctx context.Context) (string, error) {
	out, err := c.docker(ctx, "info", "--format", "{{.DockerRootDir}}")
	if err != nil {
		return "", fmt.Errorf("read docker root dir: %w", err)
	}
	root := strings.TrimSpace(string(out))
	if root == "" {
		return "", errors.New("docker info reported an empty root dir")
	}
	return root, nil
}

// ComposeUp runs "compose up -d" for the given services inside dir.
func (c *Client) ComposeUp(ctx context.Context, dir string, services []string) error {
	args := append([]string{"up", "-d"}, services...)
	if _, err := c.compose(ctx, dir, args...); err != nil {
		return fmt.Errorf("compose up %s: %w", strings.Join(services, " "), err)
	}
	return nil
}

// BootContainer makes sure container runs: a stopped container is started, an
// absent one is created through compose up of service in dir.
func (c *Client) BootContainer(ctx context.Context, container, dir, service string) error {
	state, err := c.ContainerStatus(ctx, container)
	if err != nil {
		return err
	}
	switch state {
	case StateRunning:
		return nil
	case StateStopped:
		if _, err := c.docker(ctx, "start", container); err != nil {
			return fmt.Errorf("start container %s: %w", container, err)
		}
		return nil
	default:
		return c.ComposeUp(ctx, dir, []string{service})
	}
}

// Ping checks the engine answers "docker info".
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.docker(ctx, "info", "--format", "{{.ServerVersion}}")
	return err
}

// ComposeCommand returns the compose executable and its leading arguments.
func (c *Client) ComposeCommand() []string {
	return append([]string(nil), c.composeCmd...)
}

func (c *Client) docker(ctx context.Context, args ...string) ([]byte, error) {
	return c.runner.Run(ctx, Command{Name: c.dockerBin, Args: args})
}

func (c *Client) compose(ctx context.Context, dir string, args ...string) ([]byte, error) {
	full := append(append([]string(nil), c.composeCmd[1:]...), args...)
	return c.runner.Run(ctx, Command{Name: c.composeCmd[0], Args: full, Dir: dir, Stream: true})
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// DockerStylePrefix lowercases prefix and strips everything except [a-z0-9],
// matching how compose derives project names.
func DockerStylePrefix(prefix string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(prefix), "")
}

// replaceSymlink points link at target, replacing an existing symlink. A
// regular file or directory at link is left alone and reported.
func replaceSymlink(target, link string) error {
	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		return err
	}
	info, err := os.Lstat(link)
	switch {
	case err == nil && info.Mode()&os.ModeSymlink != 0:
		if current, _ := os.Readlink(link); current == target {
			return nil
		}
		if err := os.Remove(link); err != nil {
			return err
		}
	case err == nil:
		return fmt.Errorf("%s exists and is not a symlink", link)
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}
	return os.Symlink(target, link)
}
