package systemd

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/plumgrid/pg-gateway/pkg/logger"
)

const jobDone = "done"

// Conn is the part of *dbus.Conn the manager uses.
type Conn interface {
	StartUnitContext(ctx context.Context, name, mode string, ch chan<- string) (int, error)
	StopUnitContext(ctx context.Context, name, mode string, ch chan<- string) (int, error)
	ListUnitsByNamesContext(ctx context.Context, units []string) ([]dbus.UnitStatus, error)
	Close()
}

// DbusManager drives systemd jobs over the system bus.
type DbusManager struct {
	conn   Conn
	logger *logger.Logger
}

func NewDbusManager(ctx context.Context, log *logger.Logger) (*DbusManager, error) {
	conn, err := dbus.NewSystemdConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	return &DbusManager{conn: conn, logger: log}, nil
}

// NewDbusManagerWith wraps an existing connection.
func NewDbusManagerWith(conn Conn, log *logger.Logger) *DbusManager {
	return &DbusManager{conn: conn, logger: log}
}

func (m *DbusManager) Start(ctx context.Context, unit string) error {
	return m.job(ctx, "start", unit, m.conn.StartUnitContext)
}

func (m *DbusManager) Stop(ctx context.Context, unit string) error {
	return m.job(ctx, "stop", unit, m.conn.StopUnitContext)
}

type jobFunc func(ctx context.Context, name, mode string, ch chan<- string) (int, error)

func (m *DbusManager) job(ctx context.Context, action, unit string, fn jobFunc) error {
	name := unitName(unit)
	ch := make(chan string, 1)
	if _, err := fn(ctx, name, "replace", ch); err != nil {
		return fmt.Errorf("failed to %s %s: %w", action, name, err)
	}

	select {
	case result := <-ch:
		if result != jobDone {
			return fmt.Errorf("%s %s: job finished with result %q", action, name, result)
		}
	case <-ctx.Done():
		return fmt.Errorf("%s %s: %w", action, name, ctx.Err())
	}

	m.logger.Debugf("Successfully performed %s on %s", action, name)
	return nil
}

func (m *DbusManager) Status(ctx context.Context, unit string) (Status, error) {
	name := unitName(unit)
	units, err := m.conn.ListUnitsByNamesContext(ctx, []string{name})
	if err != nil {
		return Status{}, fmt.Errorf("failed to get status of %s: %w", name, err)
	}
	if len(units) == 0 || units[0].LoadState == "not-found" {
		return Status{}, fmt.Errorf("%s: %w", name, ErrUnitNotFound)
	}
	u := units[0]
	return Status{Unit: u.Name, LoadState: u.LoadState, ActiveState: u.ActiveState, SubState: u.SubState}, nil
}

func (m *DbusManager) Close() {
	m.conn.Close()
}
