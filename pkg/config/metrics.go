package config

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// MetricsConfig controls the Prometheus collectors and the separate listener
// that serves them. The web UI port never serves /metrics.
type MetricsConfig struct {
	// request counts and latency for the UI routes, websocket included
	EnableHTTPMetrics bool `env:"METRICS_ENABLE_HTTP" yaml:"enable_http_metrics" default:"true"`

	// itinerary runs by outcome plus the pipeline duration histogram
	EnableJobMetrics bool `env:"METRICS_ENABLE_JOB" yaml:"enable_job_metrics" default:"true"`

	Port int `env:"METRICS_PORT" yaml:"metrics_port" default:"9090"`

	// ExposeMetrics starts the listener on Port. Collectors run either way.
	ExposeMetrics bool `env:"METRICS_EXPOSE" yaml:"expose_metrics" default:"false"`
}

// Validate rejects an unusable listener port, but only when the listener is
// started.
func (m MetricsConfig) Validate() error {
	var result error
	if m.ExposeMetrics && (m.Port < 1 || m.Port > 65535) {
		result = multierror.Append(result, fmt.Errorf("metrics listener port must be between 1-65535, got %d", m.Port))
	}
	return result
}
