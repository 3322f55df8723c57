package cmd

import (
	"fmt"

	"github.com/plumgrid/pg-gateway/pkg/logger"
	"github.com/spf13/cobra"
)

var printPath string

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write every managed configuration file",
	Long: `Render the gateway configuration files from the current relation data and
write the ones whose content changed. With --print, render a single file to
stdout without writing anything.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		s, err := newServices(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if printPath != "" {
			data, err := s.Render(ctx, printPath)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}

		changed, err := s.WriteConfigs(ctx)
		if err != nil {
			return err
		}
		log := logger.NewLogger("render")
		log.Infof("Rendered for release %s, %d file(s) changed", s.Release(), len(changed))
		for _, p := range changed {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&printPath, "print", "", "print the rendered content of one managed file")
	RootCmd.AddCommand(renderCmd)
}
