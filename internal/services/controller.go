package services

import (
	"context"
	"time"

	"github.com/plumgrid/pg-gateway/internal/operations/firewall"
	"github.com/plumgrid/pg-gateway/internal/operations/systemd"
	"github.com/plumgrid/pg-gateway/pkg/logger"
)

const (
	stopSettle  = 2 * time.Second
	startSettle = 5 * time.Second
)

// ServiceController restarts the gateway service the way the datapath
// expects: stopped, firewall flushed, started, with settle time between.
type ServiceController struct {
	manager systemd.Manager
	flusher firewall.Flusher
	unit    string
	sleep   func(time.Duration)
	logger  *logger.Logger
}

func NewServiceController(manager systemd.Manager, flusher firewall.Flusher, unit string, log *logger.Logger) *ServiceController {
	return &ServiceController{
		manager: manager,
		flusher: flusher,
		unit:    unit,
		sleep:   time.Sleep,
		logger:  log,
	}
}

// Restart stops the unit, flushes the firewall and starts it again. A flush
// failure is logged and does not block the start.
func (c *ServiceController) Restart(ctx context.Context) error {
	if err := c.Stop(ctx); err != nil {
		return err
	}

	if err := c.flusher.Flush(ctx); err != nil {
		c.logger.WithError(err).Warn("Failed to flush firewall rules")
	}

	c.logger.Infof("Starting %s", c.unit)
	if err := c.manager.Start(ctx, c.unit); err != nil {
		return err
	}
	c.sleep(startSettle)
	return nil
}

// Stop stops the unit and waits for it to settle.
func (c *ServiceController) Stop(ctx context.Context) error {
	c.logger.Infof("Stopping %s", c.unit)
	if err := c.manager.Stop(ctx, c.unit); err != nil {
		return err
	}
	c.sleep(stopSettle)
	return nil
}

// Status reports the unit state.
func (c *ServiceController) Status(ctx context.Context) (systemd.Status, error) {
	return c.manager.Status(ctx, c.unit)
}
