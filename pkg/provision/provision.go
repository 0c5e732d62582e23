package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethpandaops/columnbench/pkg/config"
	"github.com/ethpandaops/columnbench/pkg/docker"
	"github.com/ethpandaops/columnbench/pkg/engine"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ContainerPrefix is prepended to the service name to form the container name.
const ContainerPrefix = "columnbench-"

// Service is one database container to run.
type Service struct {
	Name        string
	Engine      engine.Type
	Image       string
	Command     []string
	Env         map[string]string
	Ports       []docker.PortBinding
	DataDir     string // host directory, as configured
	ContainerID string
	Limits      *docker.ResourceLimits
	MountTarget string
}

// ContainerName returns the Docker container name of the service.
func (s *Service) ContainerName() string {
	return ContainerPrefix + s.Name
}

// Provisioner declares and starts the two database services.
type Provisioner interface {
	// Services returns the services in start order.
	Services() []Service

	// WriteDescriptor writes a docker-compose file describing the services.
	WriteDescriptor(path string) error

	// Up starts every service and waits the startup grace period.
	Up(ctx context.Context) error

	// Down stops and removes every container managed by columnbench.
	Down(ctx context.Context) error
}

// NewProvisioner builds the service list from the config and engine registry.
func NewProvisioner(
	log logrus.FieldLogger,
	cfg *config.Config,
	mgr docker.Manager,
	registry engine.Registry,
) (Provisioner, error) {
	services, err := buildServices(cfg, registry)
	if err != nil {
		return nil, err
	}

	return &provisioner{
		log:      log.WithField("component", "provision"),
		cfg:      cfg,
		docker:   mgr,
		services: services,
		sleep:    sleepContext,
	}, nil
}

type provisioner struct {
	log      logrus.FieldLogger
	cfg      *config.Config
	docker   docker.Manager
	services []Service
	sleep    func(ctx context.Context, d time.Duration) error
}

// Ensure interface compliance.
var _ Provisioner = (*provisioner)(nil)

func buildServices(cfg *config.Config, registry engine.Registry) ([]Service, error) {
	chSpec, err := registry.Get(engine.TypeClickHouse)
	if err != nil {
		return nil, err
	}

	mySpec, err := registry.Get(engine.TypeMySQL)
	if err != nil {
		return nil, err
	}

	chLimits, err := resourceLimits(cfg.ClickHouse.ResourceLimits)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: %w", err)
	}

	myLimits, err := resourceLimits(cfg.MySQL.ResourceLimits)
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}

	ch := Service{
		Name:    string(engine.TypeClickHouse),
		Engine:  engine.TypeClickHouse,
		Image:   orDefault(cfg.ClickHouse.Image, chSpec.DefaultImage()),
		Command: chSpec.DefaultCommand(),
		Env: chSpec.Environment(engine.Credentials{
			Database: cfg.ClickHouse.Database,
			User:     cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		}),
		Ports: bindPorts(chSpec.Ports(), []int{
			cfg.ClickHouse.HTTPPort, cfg.ClickHouse.NativePort,
		}),
		DataDir:     hostDataDir(cfg.Provision.DataDir, engine.TypeClickHouse),
		MountTarget: chSpec.DataDir(),
		Limits:      chLimits,
	}

	my := Service{
		Name:    string(engine.TypeMySQL),
		Engine:  engine.TypeMySQL,
		Image:   orDefault(cfg.MySQL.Image, mySpec.DefaultImage()),
		Command: mySpec.DefaultCommand(),
		Env: mySpec.Environment(engine.Credentials{
			Database: cfg.MySQL.Database,
			User:     cfg.MySQL.User,
			Password: cfg.MySQL.Password,
		}),
		Ports:       bindPorts(mySpec.Ports(), []int{cfg.MySQL.Port}),
		DataDir:     hostDataDir(cfg.Provision.DataDir, engine.TypeMySQL),
		MountTarget: mySpec.DataDir(),
		Limits:      myLimits,
	}

	return []Service{ch, my}, nil
}

// bindPorts pairs container ports with configured host ports by position.
// A missing or zero host port publishes the container port unchanged.
func bindPorts(containerPorts, hostPorts []int) []docker.PortBinding {
	bindings := make([]docker.PortBinding, 0, len(containerPorts))

	for i, cp := range containerPorts {
		hp := cp
		if i < len(hostPorts) && hostPorts[i] != 0 {
			hp = hostPorts[i]
		}

		bindings = append(bindings, docker.PortBinding{HostPort: hp, ContainerPort: cp})
	}

	return bindings
}

func resourceLimits(cfg *config.ResourceLimitsConfig) (*docker.ResourceLimits, error) {
	if cfg == nil {
		return nil, nil
	}

	mem, err := cfg.MemoryBytes()
	if err != nil {
		return nil, err
	}

	return &docker.ResourceLimits{
		CpusetCpus:  cfg.CpusetCpus,
		MemoryBytes: mem,
	}, nil
}

// hostDataDir keeps relative paths explicitly relative ("./data/mysql"),
// which is the form compose expects for bind mounts.
func hostDataDir(base string, t engine.Type) string {
	dir := filepath.ToSlash(filepath.Join(base, string(t)))
	if filepath.IsAbs(dir) || strings.HasPrefix(dir, ".") {
		return dir
	}

	return "./" + dir
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}

	return v
}

func (p *provisioner) Services() []Service {
	out := make([]Service, len(p.services))
	copy(out, p.services)

	return out
}

// Up ensures the network, pulls images concurrently, then replaces and
// starts each container before sleeping for the grace period.
func (p *provisioner) Up(ctx context.Context) error {
	network := p.cfg.Global.DockerNetwork

	if err := p.docker.EnsureNetwork(ctx, network); err != nil {
		return fmt.Errorf("ensuring network: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(p.services))

	for _, svc := range p.services {
		g.Go(func() error {
			return p.docker.PullImage(gctx, svc.Image, p.cfg.Provision.PullPolicy)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("pulling images: %w", err)
	}

	existing, err := p.docker.ListContainers(ctx)
	if err != nil {
		return fmt.Errorf("listing existing containers: %w", err)
	}

	for i := range p.services {
		svc := &p.services[i]

		for _, c := range existing {
			if c.Name == svc.ContainerName() {
				p.log.WithField("container", c.Name).Info("Replacing existing container")

				if err := p.docker.RemoveContainer(ctx, c.ID); err != nil {
					return err
				}
			}
		}

		id, err := p.startService(ctx, svc, network)
		if err != nil {
			return err
		}

		svc.ContainerID = id
	}

	grace := p.cfg.Provision.StartupGracePeriod
	p.log.WithField("grace_period", grace).Info("Waiting for databases to start")

	return p.sleep(ctx, grace)
}

func (p *provisioner) startService(ctx context.Context, svc *Service, network string) (string, error) {
	source, err := filepath.Abs(filepath.FromSlash(svc.DataDir))
	if err != nil {
		return "", fmt.Errorf("resolving data dir %s: %w", svc.DataDir, err)
	}

	if err := os.MkdirAll(source, 0o755); err != nil {
		return "", fmt.Errorf("creating data dir %s: %w", source, err)
	}

	id, err := p.docker.CreateContainer(ctx, &docker.ContainerSpec{
		Name:        svc.ContainerName(),
		Image:       svc.Image,
		Command:     svc.Command,
		Env:         svc.Env,
		Ports:       svc.Ports,
		NetworkName: network,
		Mounts: []docker.Mount{{
			Type:   "bind",
			Source: source,
			Target: svc.MountTarget,
		}},
		Labels: map[string]string{
			docker.LabelManagedBy: docker.ManagedByValue,
			docker.LabelEngine:    string(svc.Engine),
		},
		ResourceLimits: svc.Limits,
	})
	if err != nil {
		return "", err
	}

	if err := p.docker.StartContainer(ctx, id); err != nil {
		return "", err
	}

	p.log.WithFields(logrus.Fields{
		"engine": svc.Engine,
		"image":  svc.Image,
	}).Info("Started database container")

	return id, nil
}

// Down removes every managed container. Failures are collected, not fatal.
func (p *provisioner) Down(ctx context.Context) error {
	containers, err := p.docker.ListContainers(ctx)
	if err != nil {
		return err
	}

	var errs []error

	for _, c := range containers {
		if err := p.docker.RemoveContainer(ctx, c.ID); err != nil {
			p.log.WithError(err).WithField("container", c.Name).Warn("Failed to remove container")
			errs = append(errs, err)

			continue
		}

		p.log.WithField("container", c.Name).Info("Removed container")
	}

	return errors.Join(errs...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
