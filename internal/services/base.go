package services

import (
	"context"
	"fmt"

	"github.com/plumgrid/pg-gateway/internal/cmdrunner"
	"github.com/plumgrid/pg-gateway/internal/config"
	"github.com/plumgrid/pg-gateway/internal/contexts"
	"github.com/plumgrid/pg-gateway/internal/hookenv"
	"github.com/plumgrid/pg-gateway/internal/openstack"
	"github.com/plumgrid/pg-gateway/internal/operations/files"
	"github.com/plumgrid/pg-gateway/internal/operations/firewall"
	"github.com/plumgrid/pg-gateway/internal/operations/journal"
	"github.com/plumgrid/pg-gateway/internal/operations/kmod"
	"github.com/plumgrid/pg-gateway/internal/operations/network"
	"github.com/plumgrid/pg-gateway/internal/operations/packages"
	"github.com/plumgrid/pg-gateway/internal/operations/systemd"
	"github.com/plumgrid/pg-gateway/internal/resources"
	"github.com/plumgrid/pg-gateway/internal/templating"
	"github.com/plumgrid/pg-gateway/pkg/logger"
)

type PackageManager interface {
	Install(ctx context.Context, pkgs []string) error
	Purge(ctx context.Context, pkgs []string) cmdrunner.Result
}

type ModuleManager interface {
	Load(ctx context.Context, module string) error
	Remove(ctx context.Context, module string) cmdrunner.Result
}

type FileReconciler interface {
	EnsureFiles() error
	AddLCMKey(key string)
}

type MTUTuner interface {
	EnsureMTU(ctx context.Context, mtu int) error
}

type ConfigWriter interface {
	WriteAll(ctx context.Context) ([]string, error)
	Render(ctx context.Context, target string) ([]byte, error)
	Release() string
}

type Controller interface {
	Restart(ctx context.Context) error
	Stop(ctx context.Context) error
	Status(ctx context.Context) (systemd.Status, error)
}

type LogReader interface {
	LastN(unit string, count int) ([]journal.Entry, error)
}

type StatusReporter interface {
	StatusSet(ctx context.Context, status, message string)
}

// Deps are the collaborators a Services value drives.
type Deps struct {
	Packages   PackageManager
	Modules    ModuleManager
	Files      FileReconciler
	Tuner      MTUTuner
	Renderer   ConfigWriter
	Controller Controller
	Status     StatusReporter
	Logs       LogReader
	// Close releases long-lived connections; may be nil.
	Close func()
}

type Services struct {
	logger *logger.Logger
	config *config.Config
	deps   Deps
}

// NewServices wires the host-facing implementations for cfg.
func NewServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	runner := cmdrunner.NewCommandsRunner()
	tools := hookenv.New(runner, logger.NewLogger("hookenv"))

	nl := network.RealNetlinker{}
	inspector, err := network.NewInspector(cfg.Charm.BridgeInspector, runner, nl)
	if err != nil {
		return nil, err
	}
	tuner := network.NewTuner(inspector, nl, logger.NewLogger("network"))

	flusher, err := firewall.New(cfg.Charm.FirewallBackend, runner, logger.NewLogger("firewall"))
	if err != nil {
		return nil, err
	}

	gateway := &contexts.GatewayContext{
		Relations:          tools,
		Interfaces:         tuner,
		ExternalInterfaces: cfg.Charm.ExternalInterfaceList(),
	}
	renderer := templating.RegisterConfigs(ctx, templating.Options{
		Release:   cfg.Charm.OpenStackRelease,
		Resolver:  openstack.NewResolver(runner, logger.NewLogger("openstack")),
		Providers: []contexts.Provider{gateway},
		Root:      cfg.Paths.Root,
		Logger:    logger.NewLogger("templating"),
	})

	manager := systemd.NewManager(ctx, runner, logger.NewLogger("systemd"))

	return NewServicesWith(cfg, Deps{
		Packages:   packages.NewInstaller(runner, logger.NewLogger("packages")),
		Modules:    kmod.NewManager(runner, cfg.Paths.Root, logger.NewLogger("kmod")),
		Files:      files.NewReconciler(cfg.Paths.Root, logger.NewLogger("files")),
		Tuner:      tuner,
		Renderer:   renderer,
		Controller: NewServiceController(manager, flusher, resources.ServiceName, logger.NewLogger("controller")),
		Status:     tools,
		Logs:       journal.NewReader(),
		Close:      manager.Close,
	}, logger.NewLogger("services")), nil
}

// NewServicesWith builds Services over caller-supplied collaborators.
func NewServicesWith(cfg *config.Config, deps Deps, log *logger.Logger) *Services {
	return &Services{logger: log, config: cfg, deps: deps}
}

func (s *Services) Close() {
	if s.deps.Close != nil {
		s.deps.Close()
	}
}

// Render returns the content that would be written to target.
func (s *Services) Render(ctx context.Context, target string) ([]byte, error) {
	if _, ok := resources.New().Lookup(target); !ok {
		return nil, fmt.Errorf("%s is not a managed file", target)
	}
	return s.deps.Renderer.Render(ctx, target)
}

// Release is the OpenStack release templates are rendered for.
func (s *Services) Release() string {
	return s.deps.Renderer.Release()
}

// ServiceStatus reports the gateway unit state.
func (s *Services) ServiceStatus(ctx context.Context) (systemd.Status, error) {
	return s.deps.Controller.Status(ctx)
}

// WriteConfigs renders every managed file and returns the ones that changed.
func (s *Services) WriteConfigs(ctx context.Context) ([]string, error) {
	return s.deps.Renderer.WriteAll(ctx)
}

// ServiceLogs returns the last count journal entries of the gateway unit.
func (s *Services) ServiceLogs(count int) ([]journal.Entry, error) {
	if s.deps.Logs == nil {
		return nil, nil
	}
	return s.deps.Logs.LastN(resources.ServiceName+".service", count)
}
