// Package config defines the itinerary planner's application configuration.
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/hashicorp/go-multierror"
	pkgconfig "github.com/lewisedginton/itinerary_planner/pkg/config"
	"github.com/lewisedginton/itinerary_planner/pkg/logger"
)

// AppConfig holds all application configuration
type AppConfig struct {
	pkgconfig.CommonConfig `yaml:",inline"`

	Version string `env:"VERSION" yaml:"version" default:"dev"`

	LLM      LLMConfig                  `yaml:"llm"`
	Search   SearchConfig               `yaml:"search"`
	Pipeline PipelineConfig             `yaml:"pipeline"`
	HTTP     pkgconfig.HTTPServerConfig `yaml:"http"`
	Metrics  pkgconfig.MetricsConfig    `yaml:"metrics"`
	Health   HealthConfig               `yaml:"health"`
	Archive  ArchiveConfig              `yaml:"archive"`
	MCP      MCPConfig                  `yaml:"mcp"`
}

// PipelineConfig tunes a single crew run.
type PipelineConfig struct {
	// Verbose emits the agent trace that feeds the log stream.
	Verbose bool `env:"PIPELINE_VERBOSE" yaml:"verbose" default:"true"`
	// RunTimeout bounds one full run; 0 is rejected.
	RunTimeout time.Duration `env:"PIPELINE_RUN_TIMEOUT" yaml:"run_timeout" default:"10m"`
	// ObservationLimit truncates tool results echoed into the trace.
	ObservationLimit int `env:"PIPELINE_OBSERVATION_LIMIT" yaml:"observation_limit" default:"800"`
}

// Load reads the optional YAML file at path, overlays the environment and validates.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := pkgconfig.GetConfig(&cfg, path, false); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *AppConfig) Validate() error {
	var result error

	for _, v := range []pkgconfig.Validator{c.CommonConfig, c.HTTP, c.Metrics, c.MCP} {
		if err := v.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	providers := []string{ProviderGroq, ProviderOpenAI, ProviderClaude, ProviderGemini}
	if !slices.Contains(providers, c.LLM.Provider) {
		result = multierror.Append(result, fmt.Errorf("llm provider must be one of %v, got %q", providers, c.LLM.Provider))
	}
	if key, env := c.providerKey(); key == "" && env != "" {
		result = multierror.Append(result, fmt.Errorf("%s is required for the %s provider", env, c.LLM.Provider))
	}

	switch c.Archive.Backend {
	case ArchiveNone, ArchiveLocal:
	case ArchiveS3:
		if c.Archive.S3Bucket == "" {
			result = multierror.Append(result, fmt.Errorf("archive s3_bucket is required for the s3 backend"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("archive backend must be one of [none, local, s3], got %q", c.Archive.Backend))
	}

	if c.Pipeline.RunTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("pipeline run_timeout must be greater than 0"))
	}

	return result
}

func (c *AppConfig) providerKey() (key, envVar string) {
	switch c.LLM.Provider {
	case ProviderGroq:
		return c.LLM.Groq.APIKey, "GROQ_API_KEY"
	case ProviderOpenAI:
		return c.LLM.OpenAI.APIKey, "OPENAI_API_KEY"
	case ProviderClaude:
		return c.LLM.Anthropic.APIKey, "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return c.LLM.Gemini.APIKey, "GEMINI_API_KEY"
	}
	return "", ""
}

// GetLogLevel returns the parsed logger level
func (c *AppConfig) GetLogLevel() logger.Level {
	return logger.ParseLevel(c.LogLevel)
}

// NewLogger builds the service logger from the logging settings.
func (c *AppConfig) NewLogger() logger.Logger {
	return logger.NewLogger(logger.Config{
		Level:   c.GetLogLevel(),
		Format:  c.LogFormat,
		Service: c.ServiceName,
	})
}

// LogConfig logs the current configuration (without sensitive data)
func (c *AppConfig) LogConfig(log logger.Logger) {
	log.Info("Application configuration loaded",
		logger.StringField("service_name", c.ServiceName),
		logger.StringField("version", c.Version),
		logger.StringField("http_addr", c.HTTP.Addr()),
		logger.StringField("llm_provider", c.LLM.Provider),
		logger.StringField("llm_model", c.LLM.ModelName()),
		logger.StringField("log_level", c.LogLevel),
		logger.StringField("log_format", c.LogFormat),
		logger.BoolField("metrics_exposed", c.Metrics.ExposeMetrics),
		logger.BoolField("health_enabled", c.Health.Enabled),
		logger.StringField("archive_backend", c.Archive.Backend),
		logger.BoolField("mcp_enabled", c.MCP.Enabled),
		logger.IntField("mcp_servers", len(c.MCP.Servers)),
		logger.DurationField("run_timeout", c.Pipeline.RunTimeout),
	)
}
