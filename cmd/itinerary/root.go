package main

import (
	"io"
	"os"

	"github.com/lewisedginton/itinerary_planner/internal/config"
	"github.com/lewisedginton/itinerary_planner/pkg/logger"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "itinerary",
		Short:         "Plan trips with a research agent and an itinerary planner agent",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config-file", os.Getenv("CONFIG_FILE"), "Path to a YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd(opts), newPlanCmd(opts), newConfigCmd(opts))
	return cmd
}

// load reads the configuration and builds a logger writing to w.
func (o *rootOptions) load(w io.Writer) (*config.AppConfig, logger.Logger, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	log := logger.NewLogger(logger.Config{
		Level:   cfg.GetLogLevel(),
		Format:  cfg.LogFormat,
		Service: cfg.ServiceName,
		Output:  w,
	})
	return cfg, log, nil
}
