package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// MCP transports
const (
	MCPTransportStdio = "stdio"
	MCPTransportHTTP  = "http"
)

// MCPConfig lists Model Context Protocol servers whose tools are added to the
// research agent next to the search tools.
type MCPConfig struct {
	Enabled bool                       `env:"MCP_ENABLED" yaml:"enabled" default:"false"`
	Servers map[string]MCPServerConfig `yaml:"servers"`
	Timeout time.Duration              `env:"MCP_TIMEOUT" yaml:"timeout" default:"30s"`
}

// MCPServerConfig holds configuration for individual MCP servers
type MCPServerConfig struct {
	Transport   string            `yaml:"transport"` // stdio or http
	Command     string            `yaml:"command,omitempty"`
	Args        []string          `yaml:"args,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	URL         string            `yaml:"url,omitempty"`
	Disabled    bool              `yaml:"disabled"`
}

// Validate checks transport specific fields of every enabled server.
func (c MCPConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	var result error
	for name, s := range c.Servers {
		if s.Disabled {
			continue
		}
		switch s.Transport {
		case MCPTransportStdio:
			if s.Command == "" {
				result = multierror.Append(result, fmt.Errorf("mcp server %q: command is required for stdio transport", name))
			}
		case MCPTransportHTTP:
			if s.URL == "" {
				result = multierror.Append(result, fmt.Errorf("mcp server %q: url is required for http transport", name))
			}
		default:
			result = multierror.Append(result, fmt.Errorf("mcp server %q: transport must be one of [stdio, http], got %q", name, s.Transport))
		}
	}
	return result
}
