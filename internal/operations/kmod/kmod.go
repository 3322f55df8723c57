package kmod

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/plumgrid/pg-gateway/internal/cmdrunner"
	"github.com/plumgrid/pg-gateway/internal/fsutil"
	"github.com/plumgrid/pg-gateway/pkg/logger"
	"golang.org/x/sys/unix"
)

// IOVisor is the datapath module the gateway service needs.
const IOVisor = "iovisor"

const (
	modulesFile = "/etc/modules"
	procModules = "/proc/modules"
)

// Manager loads and unloads kernel modules.
type Manager struct {
	runner *cmdrunner.CommandsRunner
	root   string
	logger *logger.Logger
}

// NewManager returns a manager; root prefixes /etc/modules and /proc/modules.
func NewManager(runner *cmdrunner.CommandsRunner, root string, log *logger.Logger) *Manager {
	return &Manager{runner: runner, root: root, logger: log}
}

// Load inserts module unless /proc/modules already lists it, and records it
// in /etc/modules so it is loaded at boot.
func (m *Manager) Load(ctx context.Context, module string) error {
	loaded, err := m.Loaded(module)
	if err != nil {
		m.logger.WithError(err).Debugf("Could not tell whether %s is loaded", module)
	}
	if loaded {
		m.logger.Debugf("Kernel module %s already loaded", module)
		return m.persist(module)
	}

	m.logger.Infof("Loading kernel module %s", module)
	res := m.runner.Exec(ctx, cmdrunner.Fatal, fmt.Sprintf("failed to load kernel module %s", module), "modprobe", module)
	if err := res.AsError(); err != nil {
		m.logger.WithError(err).Errorf("modprobe %s failed on kernel %s", module, kernelRelease())
		return err
	}

	return m.persist(module)
}

// Remove unloads module. Failures are logged only.
func (m *Manager) Remove(ctx context.Context, module string) cmdrunner.Result {
	return m.runner.Exec(ctx, cmdrunner.Tolerate, "Error Loading Iovisor Kernel Module", "rmmod", module)
}

// Loaded reports whether module is currently loaded.
func (m *Manager) Loaded(module string) (bool, error) {
	data, err := os.ReadFile(fsutil.Under(m.root, procModules))
	if err != nil {
		return false, fmt.Errorf("failed to read loaded modules: %w", err)
	}
	name := strings.ReplaceAll(module, "-", "_")
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) > 0 && fields[0] == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *Manager) persist(module string) error {
	path := fsutil.Under(m.root, modulesFile)

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == module {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	entry := module + "\n"
	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		entry = "\n" + entry
	}
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	m.logger.Debugf("Added %s to %s", module, path)
	return nil
}

// kernelRelease is what DKMS built the module against, for diagnostics.
func kernelRelease() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "unknown"
	}
	return unix.ByteSliceToString(uts.Release[:])
}
