package cmd

import (
	"fmt"

	"github.com/plumgrid/pg-gateway/pkg/logger"
	"github.com/spf13/cobra"
)

var statusLines int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the gateway service state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		s, err := newServices(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		st, err := s.ServiceStatus(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Unit:    %s\n", st.Unit)
		fmt.Fprintf(out, "Loaded:  %s\n", st.LoadState)
		fmt.Fprintf(out, "Active:  %s (%s)\n", st.ActiveState, st.SubState)
		fmt.Fprintf(out, "Release: %s\n", s.Release())

		if statusLines <= 0 {
			return nil
		}
		entries, err := s.ServiceLogs(statusLines)
		if err != nil {
			logger.NewLogger("status").WithError(err).Warn("Could not read the journal")
			return nil
		}
		fmt.Fprintln(out)
		for _, e := range entries {
			fmt.Fprintf(out, "%s %-6s %s\n", e.Time.Format("Jan 02 15:04:05"), e.Level, e.Message)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVarP(&statusLines, "lines", "n", 10, "number of journal lines to show")
	RootCmd.AddCommand(statusCmd)
}
