package packages

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/plumgrid/pg-gateway/internal/cmdrunner"
	"github.com/plumgrid/pg-gateway/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Plugin is the Neutron plugin this agent serves.
const Plugin = "plumgrid"

//go:embed plugins.yaml
var pluginTable []byte

// PluginInfo describes one Neutron plugin.
type PluginInfo struct {
	Config          string   `yaml:"config"`
	Driver          string   `yaml:"driver"`
	ServerPackages  []string `yaml:"server-packages"`
	GatewayPackages []string `yaml:"gateway-packages"`
}

// Plugins decodes the embedded plugin table.
func Plugins() (map[string]PluginInfo, error) {
	return parsePlugins(pluginTable)
}

func parsePlugins(data []byte) (map[string]PluginInfo, error) {
	var plugins map[string]PluginInfo
	if err := yaml.Unmarshal(data, &plugins); err != nil {
		return nil, fmt.Errorf("failed to parse plugin table: %w", err)
	}
	return plugins, nil
}

// DeterminePackages returns the packages a gateway node installs.
func DeterminePackages() ([]string, error) {
	plugins, err := Plugins()
	if err != nil {
		return nil, err
	}
	info, ok := plugins[Plugin]
	if !ok {
		return nil, fmt.Errorf("plugin %q not in plugin table", Plugin)
	}
	return append([]string(nil), info.GatewayPackages...), nil
}

// Installer drives apt.
type Installer struct {
	runner *cmdrunner.CommandsRunner
	logger *logger.Logger
}

func NewInstaller(runner *cmdrunner.CommandsRunner, log *logger.Logger) *Installer {
	return &Installer{runner: runner, logger: log}
}

var aptEnv = []string{"DEBIAN_FRONTEND=noninteractive"}

// Install installs pkgs. Failures are returned.
func (i *Installer) Install(ctx context.Context, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}
	i.logger.Infof("Installing packages: %v", pkgs)
	args := append([]string{"install", "-y", "--no-install-recommends"}, pkgs...)
	res := i.runner.ExecCommand(ctx, cmdrunner.Fatal, "failed to install packages",
		cmdrunner.Command{Name: "apt-get", Args: args, Env: aptEnv})
	return res.AsError()
}

// Purge removes pkgs and their configuration. Failures are logged only.
func (i *Installer) Purge(ctx context.Context, pkgs []string) cmdrunner.Result {
	if len(pkgs) == 0 {
		return cmdrunner.Result{Outcome: cmdrunner.Success}
	}
	i.logger.Infof("Purging packages: %v", pkgs)
	args := append([]string{"purge", "-y"}, pkgs...)
	return i.runner.ExecCommand(ctx, cmdrunner.Tolerate, "failed to purge packages",
		cmdrunner.Command{Name: "apt-get", Args: args, Env: aptEnv})
}
