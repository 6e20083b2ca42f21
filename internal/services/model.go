// Package services brings up the global proxy, database and cache containers
// together with the standing networks and labeled volumes they depend on.
package services

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/eeforge/eectl/internal/docker"
)

// VolumeSpec names a group volume and the host path its data dir is linked to.
type VolumeSpec = docker.VolumeSpec

// NetworkName is one of the two standing networks shared by every container.
type NetworkName string

const (
	// FrontendNetwork connects the proxy with tenant web containers.
	FrontendNetwork NetworkName = "ee-global-frontend-network"
	// BackendNetwork connects tenant containers with the database and cache.
	BackendNetwork NetworkName = "ee-global-backend-network"
)

// StandingNetworks returns both standing networks in bring-up order.
func StandingNetworks() []NetworkName {
	return []NetworkName{BackendNetwork, FrontendNetwork}
}

// IsStanding reports whether n is one of the standing networks.
func (n NetworkName) IsStanding() bool {
	return n == FrontendNetwork || n == BackendNetwork
}

const (
	// ProxyService is the compose service name of the global reverse proxy.
	ProxyService = "global-nginx-proxy"
	// DBService is the compose service name of the global database.
	DBService = "global-db"
	// RedisService is the compose service name of the global cache.
	RedisService = "global-redis"

	// ProxyContainer is the container name of the global reverse proxy.
	ProxyContainer = "ee-global-nginx-proxy"
	// DBContainer is the container name of the global database.
	DBContainer = "ee-global-db"
	// RedisContainer is the container name of the global cache.
	RedisContainer = "ee-global-redis"

	// ComposeFileName is the compose document inside the services directory.
	ComposeFileName = "docker-compose.yml"

	containerPrefix = "ee-"
)

// ServiceGroup is a logical global service together with the volumes it owns.
type ServiceGroup struct {
	// Name is the compose service name.
	Name string
	// Container is the container name.
	Container string
	// Label marks every volume of the group; it doubles as the volume name prefix.
	Label string
	// Volumes are created in order as one labeled batch.
	Volumes []VolumeSpec
	// Aliases are alternative names accepted on the command line.
	Aliases []string
}

// GlobalGroups returns the proxy, database and cache groups with volume
// symlinks resolved below servicesDir.
func GlobalGroups(servicesDir string) []ServiceGroup {
	proxyDir := filepath.Join(servicesDir, "nginx-proxy")
	return []ServiceGroup{
		{
			Name:      ProxyService,
			Container: ProxyContainer,
			Label:     ProxyService,
			Aliases:   []string{"proxy", "nginx-proxy"},
			Volumes: []VolumeSpec{
				{Name: "certs", SymlinkPath: filepath.Join(proxyDir, "certs")},
				{Name: "dhparam", SymlinkPath: filepath.Join(proxyDir, "dhparam")},
				{Name: "confd", SymlinkPath: filepath.Join(proxyDir, "conf.d")},
				{Name: "htpasswd", SymlinkPath: filepath.Join(proxyDir, "htpasswd")},
				{Name: "vhostd", SymlinkPath: filepath.Join(proxyDir, "vhost.d")},
				{Name: "html", SymlinkPath: filepath.Join(proxyDir, "html")},
			},
		},
		{
			Name:      DBService,
			Container: DBContainer,
			Label:     DBService,
			Aliases:   []string{"db", "database", "mariadb"},
			Volumes: []VolumeSpec{
				{Name: "data_db", SymlinkPath: filepath.Join(servicesDir, "app", "db")},
			},
		},
		{
			Name:      RedisService,
			Container: RedisContainer,
			Label:     RedisService,
			Aliases:   []string{"redis", "cache"},
			Volumes: []VolumeSpec{
				{Name: "data_redis", SymlinkPath: filepath.Join(servicesDir, "redis")},
			},
		},
	}
}

// FindGroup looks a group up by name or alias.
func FindGroup(groups []ServiceGroup, name string) (ServiceGroup, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, g := range groups {
		if g.Name == key {
			return g, true
		}
		for _, a := range g.Aliases {
			if a == key {
				return g, true
			}
		}
	}
	return ServiceGroup{}, false
}

// DefaultContainerName derives the container name of a global service.
func DefaultContainerName(service string) string {
	return containerPrefix + service
}

// PortBinding maps a host port to a container port.
type PortBinding struct {
	HostPort      int
	ContainerPort int
}

// String renders the binding in compose "host:container" form.
func (p PortBinding) String() string {
	return fmt.Sprintf("%d:%d", p.HostPort, p.ContainerPort)
}

// ProxyPorts holds the configured host ports of the proxy.
type ProxyPorts struct {
	HTTP  int
	HTTPS int
}

// Bindings returns the proxy's port bindings, HTTP first.
func (p ProxyPorts) Bindings() []PortBinding {
	return []PortBinding{
		{HostPort: p.HTTP, ContainerPort: 80},
		{HostPort: p.HTTPS, ContainerPort: 443},
	}
}

func (p ProxyPorts) validate() error {
	for _, port := range []int{p.HTTP, p.HTTPS} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("proxy port %d is out of range", port)
		}
	}
	if p.HTTP == p.HTTPS {
		return fmt.Errorf("proxy ports must differ, both are %d", p.HTTP)
	}
	return nil
}
