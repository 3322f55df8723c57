package systemd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/plumgrid/pg-gateway/internal/cmdrunner"
	"github.com/plumgrid/pg-gateway/pkg/logger"
)

// SystemctlManager shells out to systemctl.
type SystemctlManager struct {
	runner *cmdrunner.CommandsRunner
	logger *logger.Logger
}

func NewSystemctlManager(runner *cmdrunner.CommandsRunner, log *logger.Logger) *SystemctlManager {
	return &SystemctlManager{runner: runner, logger: log}
}

func (m *SystemctlManager) Start(ctx context.Context, unit string) error {
	return m.control(ctx, "start", unit)
}

func (m *SystemctlManager) Stop(ctx context.Context, unit string) error {
	return m.control(ctx, "stop", unit)
}

func (m *SystemctlManager) control(ctx context.Context, action, unit string) error {
	name := unitName(unit)
	res := m.runner.Exec(ctx, cmdrunner.Fatal, fmt.Sprintf("failed to %s service %s", action, name), "systemctl", action, name)
	if err := res.AsError(); err != nil {
		return err
	}
	m.logger.Debugf("Successfully performed %s on service %s", action, name)
	return nil
}

func (m *SystemctlManager) Status(ctx context.Context, unit string) (Status, error) {
	name := unitName(unit)
	out, err := m.runner.Output(ctx, "systemctl", "show", "--property=Id,LoadState,ActiveState,SubState", name)
	if err != nil {
		return Status{}, fmt.Errorf("failed to get status: %w", err)
	}
	status := parseShow(string(out))
	if status.LoadState == "not-found" {
		return Status{}, fmt.Errorf("%s: %w", name, ErrUnitNotFound)
	}
	if status.Unit == "" {
		status.Unit = name
	}
	return status, nil
}

func (m *SystemctlManager) Close() {}

// parseShow reads the key=value lines of systemctl show.
func parseShow(output string) Status {
	var status Status
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "Id":
			status.Unit = value
		case "LoadState":
			status.LoadState = value
		case "ActiveState":
			status.ActiveState = value
		case "SubState":
			status.SubState = value
		}
	}
	return status
}
