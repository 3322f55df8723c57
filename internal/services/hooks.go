package services

import (
	"context"
	"fmt"

	"github.com/plumgrid/pg-gateway/internal/hookenv"
	"github.com/plumgrid/pg-gateway/internal/operations/kmod"
	"github.com/plumgrid/pg-gateway/internal/operations/packages"
	"github.com/plumgrid/pg-gateway/internal/resources"
)

// Install puts the gateway packages and kernel module in place.
func (s *Services) Install(ctx context.Context) error {
	s.status(ctx, hookenv.StatusMaintenance, "Installing packages")

	pkgs, err := packages.DeterminePackages()
	if err != nil {
		return s.fail(ctx, err)
	}
	if err := s.deps.Packages.Install(ctx, pkgs); err != nil {
		return s.fail(ctx, err)
	}
	if err := s.prepareHost(ctx); err != nil {
		return s.fail(ctx, err)
	}

	s.status(ctx, hookenv.StatusWaiting, "Installed, waiting for director relation")
	return nil
}

// ConfigChanged reapplies host configuration and restarts the gateway.
func (s *Services) ConfigChanged(ctx context.Context) error {
	s.status(ctx, hookenv.StatusMaintenance, "Applying configuration")

	if err := s.deps.Controller.Stop(ctx); err != nil {
		return s.fail(ctx, err)
	}
	if err := s.prepareHost(ctx); err != nil {
		return s.fail(ctx, err)
	}
	if _, err := s.deps.Renderer.WriteAll(ctx); err != nil {
		return s.fail(ctx, err)
	}
	if err := s.deps.Controller.Restart(ctx); err != nil {
		return s.fail(ctx, err)
	}

	s.status(ctx, hookenv.StatusActive, "Gateway running")
	return nil
}

// UpgradeCharm is handled as a configuration change.
func (s *Services) UpgradeCharm(ctx context.Context) error {
	return s.ConfigChanged(ctx)
}

func (s *Services) Start(ctx context.Context) error {
	if err := s.deps.Controller.Restart(ctx); err != nil {
		return s.fail(ctx, err)
	}
	s.status(ctx, hookenv.StatusActive, "Gateway running")
	return nil
}

// Stop shuts the gateway down and removes what Install added.
func (s *Services) Stop(ctx context.Context) error {
	s.status(ctx, hookenv.StatusMaintenance, "Stopping gateway")

	if err := s.deps.Controller.Stop(ctx); err != nil {
		return s.fail(ctx, err)
	}
	s.deps.Modules.Remove(ctx, kmod.IOVisor)

	pkgs, err := packages.DeterminePackages()
	if err != nil {
		return s.fail(ctx, err)
	}
	s.deps.Packages.Purge(ctx, pkgs)
	return nil
}

// DirectorRelationChanged rewrites configuration when director addresses move.
func (s *Services) DirectorRelationChanged(ctx context.Context) error {
	return s.rewriteAndRestart(ctx)
}

func (s *Services) GatewayRelationChanged(ctx context.Context) error {
	return s.rewriteAndRestart(ctx)
}

// rewriteAndRestart restarts only when a written file feeds a service.
func (s *Services) rewriteAndRestart(ctx context.Context) error {
	changed, err := s.deps.Renderer.WriteAll(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	if len(changed) == 0 {
		s.logger.Info("Configuration unchanged")
		return nil
	}

	svcs := resources.New().ServicesFor(changed)
	if len(svcs) == 0 {
		s.logger.Infof("Changed files %v need no restart", changed)
		return nil
	}
	s.logger.Infof("Restarting %v for %v", svcs, changed)
	if err := s.deps.Controller.Restart(ctx); err != nil {
		return s.fail(ctx, err)
	}
	s.status(ctx, hookenv.StatusActive, "Gateway running")
	return nil
}

func (s *Services) prepareHost(ctx context.Context) error {
	if err := s.deps.Modules.Load(ctx, kmod.IOVisor); err != nil {
		return err
	}
	if err := s.deps.Tuner.EnsureMTU(ctx, s.config.Charm.NetworkDeviceMTU); err != nil {
		return fmt.Errorf("failed to set MTU: %w", err)
	}
	if err := s.deps.Files.EnsureFiles(); err != nil {
		return err
	}
	s.deps.Files.AddLCMKey(s.config.Charm.LCMSSHKey)
	return nil
}

func (s *Services) status(ctx context.Context, status, msg string) {
	if s.deps.Status != nil {
		s.deps.Status.StatusSet(ctx, status, msg)
	}
}

func (s *Services) fail(ctx context.Context, err error) error {
	s.status(ctx, hookenv.StatusBlocked, err.Error())
	return err
}
