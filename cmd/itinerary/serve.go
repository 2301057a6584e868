package main

import (
	"fmt"
	"os"

	"github.com/lewisedginton/itinerary_planner/internal/server"
	"github.com/lewisedginton/itinerary_planner/pkg/logger"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load(os.Stdout)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg.LogConfig(log)

			s, err := server.New(cmd.Context(), cfg, log)
			if err != nil {
				log.Error("Failed to create server", logger.ErrorField(err))
				return fmt.Errorf("failed to create server: %w", err)
			}
			return s.Run(cmd.Context())
		},
	}
}
