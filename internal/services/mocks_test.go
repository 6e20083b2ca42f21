package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/eeforge/eectl/internal/config"
	"github.com/eeforge/eectl/internal/docker"
	"github.com/eeforge/eectl/internal/env"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) ContainerStatus(ctx context.Context, name string) (docker.ContainerState, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(docker.ContainerState), args.Error(1)
}

func (m *mockEngine) PublishedHostPort(ctx context.Context, container string, containerPort int) (int, error) {
	args := m.Called(ctx, container, containerPort)
	return args.Int(0), args.Error(1)
}

func (m *mockEngine) NetworkExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *mockEngine) CreateNetwork(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockEngine) VolumesWithLabel(ctx context.Context, label string) ([]string, error) {
	args := m.Called(ctx, label)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *mockEngine) CreateVolumes(ctx context.Context, prefix string, specs []docker.VolumeSpec, dockerStylePrefix bool) error {
	return m.Called(ctx, prefix, specs, dockerStylePrefix).Error(0)
}

func (m *mockEngine) ComposeUp(ctx context.Context, dir string, services []string) error {
	return m.Called(ctx, dir, services).Error(0)
}

func (m *mockEngine) BootContainer(ctx context.Context, container, dir, service string) error {
	return m.Called(ctx, container, dir, service).Error(0)
}

// fakeProber answers from a fixed set of occupied ports and records probes.
type fakeProber struct {
	occupied map[int]bool
	probed   []int
}

func (p *fakeProber) PortFree(_ context.Context, _ string, port int) (bool, error) {
	p.probed = append(p.probed, port)
	return !p.occupied[port], nil
}

// countingRenderer delegates to the real templates and counts calls per template.
type countingRenderer struct {
	mu    sync.Mutex
	inner Renderer
	calls map[string]int
}

func newCountingRenderer() *countingRenderer {
	return &countingRenderer{inner: config.NewTemplateRenderer(""), calls: map[string]int{}}
}

func (r *countingRenderer) Render(name string, data any) ([]byte, error) {
	r.mu.Lock()
	r.calls[name]++
	r.mu.Unlock()
	return r.inner.Render(name, data)
}

func (r *countingRenderer) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

func newTestConfig(vars env.Vars) *config.Store {
	store, err := config.NewStore(vars, map[string]string{
		"easyengine/nginx-proxy": "v4.0.0",
		"easyengine/mariadb":     "v4.0.1",
		"easyengine/redis":       "v4.0.2",
	})
	if err != nil {
		panic(err)
	}
	return store
}
