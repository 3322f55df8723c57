package config

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/plumgrid/pg-gateway/internal/operations/firewall"
	"github.com/plumgrid/pg-gateway/internal/operations/network"
	"github.com/plumgrid/pg-gateway/pkg/logger"
	"github.com/spf13/viper"
)

// NullKey is the lcm-ssh-key value meaning "no key configured".
const NullKey = "null"

// Config holds all application configuration
type Config struct {
	Charm   CharmConfig   `mapstructure:"charm"`
	Logging LoggingConfig `mapstructure:"logging"`
	Paths   PathsConfig   `mapstructure:"paths"`
}

// CharmConfig mirrors the options the operator sets on the gateway application.
type CharmConfig struct {
	NetworkDeviceMTU   int    `mapstructure:"network-device-mtu"`
	LCMSSHKey          string `mapstructure:"lcm-ssh-key"`
	ExternalInterfaces string `mapstructure:"external-interfaces"`
	OpenStackRelease   string `mapstructure:"openstack-release"`
	FirewallBackend    string `mapstructure:"firewall-backend"`
	BridgeInspector    string `mapstructure:"bridge-inspector"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	// Root prefixes every path the agent writes. Empty in production.
	Root string `mapstructure:"root"`
}

// ConfigSource returns the charm options as a flat JSON object.
type ConfigSource interface {
	ConfigGetJSON(ctx context.Context) ([]byte, error)
}

func setCharmDefaults(v *viper.Viper, prefix string) {
	v.SetDefault(prefix+"network-device-mtu", 1580)
	v.SetDefault(prefix+"lcm-ssh-key", NullKey)
	v.SetDefault(prefix+"external-interfaces", "")
	v.SetDefault(prefix+"openstack-release", "")
	v.SetDefault(prefix+"firewall-backend", firewall.Iptables)
	v.SetDefault(prefix+"bridge-inspector", network.InspectorBrctl)
}

// LoadConfig loads configuration from file
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	setCharmDefaults(v, "charm.")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("paths.root", "")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pg-gateway")
	}

	v.SetEnvPrefix("PG_GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromHookTool replaces the charm options with what the framework reports.
func (c *Config) LoadFromHookTool(ctx context.Context, src ConfigSource) error {
	raw, err := src.ConfigGetJSON(ctx)
	if err != nil {
		return fmt.Errorf("failed to read charm config: %w", err)
	}

	v := viper.New()
	setCharmDefaults(v, "")
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to parse charm config: %w", err)
	}

	var charm CharmConfig
	if err := v.Unmarshal(&charm); err != nil {
		return fmt.Errorf("failed to decode charm config: %w", err)
	}
	c.Charm = charm
	return c.Validate()
}

// Validate rejects option values the agent cannot act on.
func (c *Config) Validate() error {
	if c.Charm.NetworkDeviceMTU < 0 {
		return fmt.Errorf("network-device-mtu must not be negative, got %d", c.Charm.NetworkDeviceMTU)
	}
	switch c.Charm.FirewallBackend {
	case firewall.Iptables, firewall.Nftables:
	default:
		return fmt.Errorf("unsupported firewall-backend %q", c.Charm.FirewallBackend)
	}
	switch c.Charm.BridgeInspector {
	case network.InspectorBrctl, network.InspectorNetlink:
	default:
		return fmt.Errorf("unsupported bridge-inspector %q", c.Charm.BridgeInspector)
	}
	return nil
}

// ExternalInterfaceList splits external-interfaces on commas and whitespace.
func (c CharmConfig) ExternalInterfaceList() []string {
	return strings.FieldsFunc(c.ExternalInterfaces, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

// InitLogger initializes the logger with the provided configuration
func InitLogger(cfg LoggingConfig, module string) error {
	return logger.Init(logger.Config{
		Level:   cfg.Level,
		Format:  cfg.Format,
		File:    cfg.File,
		Module:  module,
		JujuLog: true,
	})
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Charm: CharmConfig{
			NetworkDeviceMTU: 1580,
			LCMSSHKey:        NullKey,
			FirewallBackend:  firewall.Iptables,
			BridgeInspector:  network.InspectorBrctl,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
