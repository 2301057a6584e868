package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load(io.Discard)
			if err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			cfg.LogConfig(log)
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (provider %s, model %s)\n", cfg.LLM.Provider, cfg.LLM.ModelName())
			return nil
		},
	})
	return cmd
}
