package services

import (
	"context"

	"github.com/eeforge/eectl/internal/docker"
)

// Engine is the subset of container engine operations the bootstrapper needs.
// Every query is a point-in-time read.
type Engine interface {
	ContainerStatus(ctx context.Context, name string) (docker.ContainerState, error)
	PublishedHostPort(ctx context.Context, container string, containerPort int) (int, error)
	NetworkExists(ctx context.Context, name string) (bool, error)
	CreateNetwork(ctx context.Context, name string) error
	VolumesWithLabel(ctx context.Context, label string) ([]string, error)
	CreateVolumes(ctx context.Context, prefix string, specs []docker.VolumeSpec, dockerStylePrefix bool) error
	ComposeUp(ctx context.Context, dir string, services []string) error
	BootContainer(ctx context.Context, container, dir, service string) error
}

// PortProber reports whether a local port is free.
type PortProber interface {
	PortFree(ctx context.Context, host string, port int) (bool, error)
}

// Renderer turns a named template and data model into text.
type Renderer interface {
	Render(name string, data any) ([]byte, error)
}

// ConfigSource is the key/value configuration consulted at invocation time.
type ConfigSource interface {
	Int(key string, def int) (int, error)
	ImageVersion(name string) (string, error)
}
