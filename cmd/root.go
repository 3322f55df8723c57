package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/plumgrid/pg-gateway/internal/cmdrunner"
	"github.com/plumgrid/pg-gateway/internal/config"
	"github.com/plumgrid/pg-gateway/internal/hookenv"
	"github.com/plumgrid/pg-gateway/internal/services"
	"github.com/plumgrid/pg-gateway/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	Cfg      *config.Config
	Version  string
)

var RootCmd = &cobra.Command{
	Use:   "pg-gateway",
	Short: "PLUMgrid gateway node agent",
	Long: `pg-gateway prepares a PLUMgrid gateway node: it installs the gateway
packages and kernel module, renders the gateway configuration from the director
relation and keeps the plumgrid service running.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. When the binary is invoked through a hook symlink the
// link name selects the subcommand.
func Execute(version string) error {
	Version = version
	if hook := hookFromArgv0(os.Args[0]); hook != "" {
		RootCmd.SetArgs(append([]string{hook}, os.Args[1:]...))
	}
	return RootCmd.Execute()
}

func hookFromArgv0(argv0 string) string {
	name := filepath.Base(argv0)
	for _, h := range hookNames() {
		if h == name {
			return h
		}
	}
	return ""
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or /etc/pg-gateway/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config file)")
}

func initConfig() {
	var err error

	Cfg, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Printf("Fatal: Configuration could not be loaded: %v\n", err)
		os.Exit(1)
	}

	if logLevel != "" {
		Cfg.Logging.Level = logLevel
	}

	if err := config.InitLogger(Cfg.Logging, "root"); err != nil {
		fmt.Printf("Fatal: Logger could not be initialized: %v\n", err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// newServices refreshes the charm options from config-get when running inside
// a hook and wires the services for them.
func newServices(ctx context.Context) (*services.Services, error) {
	if logger.InHookContext() {
		tools := hookenv.New(cmdrunner.NewCommandsRunner(), logger.NewLogger("hookenv"))
		if err := Cfg.LoadFromHookTool(ctx, tools); err != nil {
			return nil, err
		}
	}
	return services.NewServices(ctx, Cfg)
}
