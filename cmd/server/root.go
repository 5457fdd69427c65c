package main

import (
	"github.com/spf13/cobra"

	"github.com/iliyamo/cartelera/internal/config"
)

// commandContext carries the configuration loaded once by the root command.
type commandContext struct {
	cfg config.Config
}

func newRootCommand() *cobra.Command {
	cc := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "cartelera",
		Short:         "Cinema showtime aggregator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cc.cfg = config.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCommand(cc))
	rootCmd.AddCommand(newRefreshCommand(cc))
	rootCmd.AddCommand(newScrapeCommand(cc))
	rootCmd.AddCommand(newVenuesCommand(cc))
	rootCmd.AddCommand(newTokenCommand(cc))
	return rootCmd
}
