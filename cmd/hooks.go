package cmd

import (
	"context"

	"github.com/plumgrid/pg-gateway/internal/services"
	"github.com/plumgrid/pg-gateway/pkg/helper"
	"github.com/plumgrid/pg-gateway/pkg/logger"
	"github.com/spf13/cobra"
)

type hook struct {
	name  string
	short string
	run   func(s *services.Services, ctx context.Context) error
}

var hooks = []hook{
	{"install", "Install gateway packages and prepare the host", (*services.Services).Install},
	{"config-changed", "Apply charm options and restart the gateway", (*services.Services).ConfigChanged},
	{"start", "Start the gateway service", (*services.Services).Start},
	{"stop", "Stop the gateway and remove its packages", (*services.Services).Stop},
	{"upgrade-charm", "Reapply configuration after a charm upgrade", (*services.Services).UpgradeCharm},
	{"plumgrid-relation-changed", "Rewrite configuration from director addresses", (*services.Services).DirectorRelationChanged},
	{"gateway-relation-changed", "Rewrite configuration for the gateway relation", (*services.Services).GatewayRelationChanged},
}

func hookNames() []string {
	names := make([]string, len(hooks))
	for i, h := range hooks {
		names[i] = h.name
	}
	return names
}

func hookCommand(h hook) *cobra.Command {
	return &cobra.Command{
		Use:   h.name,
		Short: h.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, cancel := signalContext()
			defer cancel()

			log := logger.NewLogger("hooks")
			defer helper.RecoverPanic(log, h.name, &err)
			log.Infof("Running %s hook", h.name)

			s, err := newServices(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := h.run(s, ctx); err != nil {
				log.WithError(err).Errorf("%s hook failed", h.name)
				return err
			}
			log.Infof("%s hook completed", h.name)
			return nil
		},
	}
}

func init() {
	for _, h := range hooks {
		RootCmd.AddCommand(hookCommand(h))
	}
}
