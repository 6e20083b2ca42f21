package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/eeforge/eectl/internal/config"
	"github.com/eeforge/eectl/internal/docker"
)

const probeHost = "localhost"

// LocalUser is the identity the proxy maps file ownership to.
type LocalUser struct {
	UID int
	GID int
}

// BootstrapperOptions wires a Bootstrapper to its collaborators.
type BootstrapperOptions struct {
	Engine   Engine
	Prober   PortProber
	Renderer Renderer
	Config   ConfigSource
	// ServicesDir holds docker-compose.yml and the proxy config tree.
	ServicesDir string
	Logger      *slog.Logger
	// Validate checks a freshly rendered compose file; nil skips validation.
	Validate ComposeValidator
	// User defaults to the effective uid/gid of the process.
	User *LocalUser
	// Password generates the database root password; defaults to GeneratePassword.
	Password func() (string, error)
}

// Bootstrapper brings the global services up. Every call re-reads engine state;
// nothing is cached between steps or calls.
type Bootstrapper struct {
	engine      Engine
	prober      PortProber
	renderer    Renderer
	cfg         ConfigSource
	servicesDir string
	logger      *slog.Logger
	validate    ComposeValidator
	user        LocalUser
	password    func() (string, error)
	groups      []ServiceGroup
}

// NewBootstrapper constructs a Bootstrapper from opts.
func NewBootstrapper(opts BootstrapperOptions) (*Bootstrapper, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("bootstrapper requires an engine")
	}
	if opts.Prober == nil {
		return nil, fmt.Errorf("bootstrapper requires a port prober")
	}
	if opts.Renderer == nil {
		return nil, fmt.Errorf("bootstrapper requires a renderer")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrapper requires a config source")
	}
	if strings.TrimSpace(opts.ServicesDir) == "" {
		return nil, fmt.Errorf("bootstrapper requires a services dir")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	user := LocalUser{UID: os.Geteuid(), GID: os.Getegid()}
	if opts.User != nil {
		user = *opts.User
	}
	password := opts.Password
	if password == nil {
		password = func() (string, error) { return GeneratePassword(DefaultPasswordLength) }
	}

	return &Bootstrapper{
		engine:      opts.Engine,
		prober:      opts.Prober,
		renderer:    opts.Renderer,
		cfg:         opts.Config,
		servicesDir: opts.ServicesDir,
		logger:      logger,
		validate:    opts.Validate,
		user:        user,
		password:    password,
		groups:      GlobalGroups(opts.ServicesDir),
	}, nil
}

// Groups returns the global service groups managed by b.
func (b *Bootstrapper) Groups() []ServiceGroup {
	return append([]ServiceGroup(nil), b.groups...)
}

// ComposeFile is the path of the global compose document.
func (b *Bootstrapper) ComposeFile() string {
	return filepath.Join(b.servicesDir, ComposeFileName)
}

// ProxyCustomConfFile is the path of the proxy's custom.conf fragment.
func (b *Bootstrapper) ProxyCustomConfFile() string {
	return filepath.Join(b.servicesDir, "nginx-proxy", "conf.d", "custom.conf")
}

// BootstrapProxy brings the global reverse proxy up. A running proxy whose
// published ports differ from configuration is reported, never reconfigured.
func (b *Bootstrapper) BootstrapProxy(ctx context.Context) error {
	ports, err := b.proxyPorts()
	if err != nil {
		return err
	}

	state, err := b.engine.ContainerStatus(ctx, ProxyContainer)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", ProxyContainer, err)
	}

	if state == docker.StateRunning {
		if err := b.checkRunningProxyPorts(ctx, ports); err != nil {
			return err
		}
		// The matching ports are held by the proxy itself.
		b.logger.Debug("proxy already running with configured ports", "http", ports.HTTP, "https", ports.HTTPS)
	} else if err := b.checkPortsFree(ctx, ports); err != nil {
		return err
	}

	// Volumes are created before the compose file on this path, so look for
	// pre-existing database data first.
	composeExists, err := fileExists(b.ComposeFile())
	if err != nil {
		return fmt.Errorf("stat %s: %w", b.ComposeFile(), err)
	}
	if !composeExists {
		b.warnOnPasswordDrift(ctx)
	}

	if err := EnsureGlobalVolumes(ctx, b.engine, b.logger, b.groups); err != nil {
		return err
	}
	if err := b.ensureComposeFile(ctx, false); err != nil {
		return err
	}
	if err := EnsureNetworks(ctx, b.engine, b.logger, StandingNetworks()...); err != nil {
		return err
	}

	if err := b.engine.ComposeUp(ctx, b.servicesDir, []string{ProxyService}); err != nil {
		return newError(StartupFailure, ProxyContainer, err,
			"There was some error in starting %s container. Please check logs.", ProxyContainer)
	}

	if err := WriteProxyCustomConf(b.renderer, b.ProxyCustomConfFile()); err != nil {
		return err
	}

	b.logger.Info(ProxyContainer+" container is up", "http", ports.HTTP, "https", ports.HTTPS)
	return nil
}

// BootstrapGlobalService brings an arbitrary global service up. An empty
// container name defaults to "ee-<service>". A running container is left alone.
// The proxy is always brought up through BootstrapProxy so that its port
// checks apply.
func (b *Bootstrapper) BootstrapGlobalService(ctx context.Context, service, container string) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is empty")
	}
	if g, ok := FindGroup(b.groups, service); ok {
		service = g.Name
	}
	if service == ProxyService {
		if c := strings.TrimSpace(container); c != "" && c != ProxyContainer {
			return fmt.Errorf("%s always runs as %s, got container %q", ProxyService, ProxyContainer, c)
		}
		return b.BootstrapProxy(ctx)
	}
	if strings.TrimSpace(container) == "" {
		container = DefaultContainerName(service)
	}

	if err := EnsureNetworks(ctx, b.engine, b.logger, StandingNetworks()...); err != nil {
		return err
	}
	if err := b.ensureComposeFile(ctx, true); err != nil {
		return err
	}

	state, err := b.engine.ContainerStatus(ctx, container)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", container, err)
	}
	if state == docker.StateRunning {
		b.logger.Info(service + ": Service already running")
		return nil
	}

	existing, err := b.engine.VolumesWithLabel(ctx, service)
	if err != nil {
		return newError(ProvisioningFailure, service, err, "Unable to list volumes of %s", service)
	}
	if len(existing) == 0 {
		if err := EnsureGlobalVolumes(ctx, b.engine, b.logger, b.groups); err != nil {
			return err
		}
	}

	if err := b.engine.BootContainer(ctx, container, b.servicesDir, service); err != nil {
		return newError(StartupFailure, container, err,
			"There was some error in starting %s container. Please check logs.", container)
	}

	b.logger.Info(container+" container is up", "service", service)
	return nil
}

// ComposeDocument builds the document that would be written for a fresh host.
func (b *Bootstrapper) ComposeDocument() (ComposeDocument, error) {
	ports, err := b.proxyPorts()
	if err != nil {
		return ComposeDocument{}, err
	}
	images := make(map[string]string, 3)
	for _, name := range []string{imageProxy, imageDB, imageRedis} {
		v, err := b.cfg.ImageVersion(name)
		if err != nil {
			return ComposeDocument{}, err
		}
		images[name] = v
	}
	password, err := b.password()
	if err != nil {
		return ComposeDocument{}, err
	}
	return BuildComposeDocument(ComposeInput{
		ImageVersions:  images,
		Ports:          ports,
		UID:            b.user.UID,
		GID:            b.user.GID,
		DBRootPassword: password,
	}, b.groups)
}

// ensureComposeFile writes docker-compose.yml only when it is missing. An
// existing file is kept even if configuration changed since it was written.
func (b *Bootstrapper) ensureComposeFile(ctx context.Context, checkDrift bool) error {
	path := b.ComposeFile()
	exists, err := fileExists(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if exists {
		return nil
	}

	doc, err := b.ComposeDocument()
	if err != nil {
		return fmt.Errorf("build compose document: %w", err)
	}

	if checkDrift {
		b.warnOnPasswordDrift(ctx)
	}

	written, err := ComposeWriter{Renderer: b.renderer, Validate: b.validate}.RenderAndWrite(ctx, doc, path)
	if err != nil {
		return err
	}
	if written {
		b.logger.Info("compose file generated", "path", path)
	}
	return nil
}

// warnOnPasswordDrift flags a compose file about to be generated on top of
// existing database volumes: the new root password cannot open that data.
func (b *Bootstrapper) warnOnPasswordDrift(ctx context.Context) {
	vols, err := b.engine.VolumesWithLabel(ctx, DBService)
	if err != nil || len(vols) == 0 {
		return
	}
	b.logger.Warn("generating compose file while database volumes exist; the new root password will not match existing data",
		"path", b.ComposeFile(), "volumes", strings.Join(vols, ","))
}

func (b *Bootstrapper) proxyPorts() (ProxyPorts, error) {
	http, err := b.cfg.Int(config.KeyProxy80Port, 80)
	if err != nil {
		return ProxyPorts{}, err
	}
	https, err := b.cfg.Int(config.KeyProxy443Port, 443)
	if err != nil {
		return ProxyPorts{}, err
	}
	ports := ProxyPorts{HTTP: http, HTTPS: https}
	if err := ports.validate(); err != nil {
		return ProxyPorts{}, err
	}
	return ports, nil
}

// checkRunningProxyPorts compares the ports published by the running proxy
// with configuration.
func (b *Bootstrapper) checkRunningProxyPorts(ctx context.Context, ports ProxyPorts) error {
	for _, binding := range ports.Bindings() {
		published, err := b.engine.PublishedHostPort(ctx, ProxyContainer, binding.ContainerPort)
		if err != nil {
			return newError(ConfigurationConflict, ProxyContainer, err,
				"Unable to read published port %d of running %s", binding.ContainerPort, ProxyContainer)
		}
		if published != binding.HostPort {
			b.logger.Error("proxy port drift detected",
				"container_port", binding.ContainerPort, "published", published, "configured", binding.HostPort)
			return newError(ConfigurationConflict, ProxyContainer, nil,
				"Ports of current running nginx-proxy and ports specified in EasyEngine config file don't match.")
		}
	}
	return nil
}

func (b *Bootstrapper) checkPortsFree(ctx context.Context, ports ProxyPorts) error {
	var occupied []string
	for _, port := range []int{ports.HTTP, ports.HTTPS} {
		free, err := b.prober.PortFree(ctx, probeHost, port)
		if err != nil {
			return fmt.Errorf("probe port %d: %w", port, err)
		}
		if !free {
			occupied = append(occupied, fmt.Sprint(port))
		}
	}
	if len(occupied) > 0 {
		return newError(ResourceUnavailable, strings.Join(occupied, ","), nil,
			"Cannot create/start proxy container. Please make sure port %d and %d are free (in use: %s).",
			ports.HTTP, ports.HTTPS, strings.Join(occupied, ", "))
	}
	return nil
}
