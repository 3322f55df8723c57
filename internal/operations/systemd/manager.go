package systemd

import (
	"context"
	"errors"
	"strings"

	"github.com/plumgrid/pg-gateway/internal/cmdrunner"
	"github.com/plumgrid/pg-gateway/pkg/logger"
)

const ActiveStateActive = "active"

var ErrUnitNotFound = errors.New("unit not found")

// Status is the state systemd reports for a unit.
type Status struct {
	Unit        string
	LoadState   string
	ActiveState string
	SubState    string
}

// Running reports whether the unit is active.
func (s Status) Running() bool {
	return s.ActiveState == ActiveStateActive
}

// Manager starts, stops and inspects systemd units.
type Manager interface {
	Start(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
	// Status returns ErrUnitNotFound when systemd does not know the unit.
	Status(ctx context.Context, unit string) (Status, error)
	Close()
}

// NewManager talks to systemd over D-Bus when the system bus is reachable
// and falls back to systemctl otherwise.
func NewManager(ctx context.Context, runner *cmdrunner.CommandsRunner, log *logger.Logger) Manager {
	m, err := NewDbusManager(ctx, log)
	if err == nil {
		return m
	}
	log.WithError(err).Debug("systemd D-Bus unavailable, using systemctl")
	return NewSystemctlManager(runner, log)
}

func unitName(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}
