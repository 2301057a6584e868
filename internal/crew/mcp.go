package crew

import (
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/lewisedginton/itinerary_planner/internal/config"
	"github.com/lewisedginton/itinerary_planner/pkg/logger"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/adk/tool"
)

// NewMCPToolsets builds one prefixed toolset per enabled MCP server. Servers
// that cannot be set up are logged and skipped so a broken tool server never
// blocks a run.
func NewMCPToolsets(cfg config.MCPConfig, log logger.Logger) []tool.Toolset {
	if !cfg.Enabled {
		return nil
	}

	names := make([]string, 0, len(cfg.Servers))
	for name := range cfg.Servers {
		names = append(names, name)
	}
	sort.Strings(names)

	var toolsets []tool.Toolset
	for _, name := range names {
		server := cfg.Servers[name]
		serverLog := log.WithFields(logger.StringField("server", name), logger.StringField("transport", server.Transport))
		if server.Disabled {
			serverLog.Debug("Skipping disabled MCP server")
			continue
		}

		var transport mcp.Transport
		switch server.Transport {
		case config.MCPTransportStdio:
			transport = newStdioTransport(server)
		case config.MCPTransportHTTP:
			transport = &mcp.StreamableClientTransport{Endpoint: server.URL}
		default:
			serverLog.Warn("Unsupported MCP transport")
			continue
		}

		toolsets = append(toolsets, newPrefixedMCPToolset(name, newMCPToolset(transport, cfg.Timeout, serverLog)))
		serverLog.Info("MCP toolset registered")
	}
	return toolsets
}

// newStdioTransport runs the server as a child process that inherits the
// environment plus the configured variables.
func newStdioTransport(server config.MCPServerConfig) mcp.Transport {
	cmd := exec.Command(server.Command, server.Args...) //nolint:gosec // operator configured command
	if len(server.Environment) > 0 {
		keys := make([]string, 0, len(server.Environment))
		for k := range server.Environment {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		cmd.Env = os.Environ()
		for _, k := range keys {
			cmd.Env = append(cmd.Env, k+"="+server.Environment[k])
		}
	}
	return &mcp.CommandTransport{Command: cmd}
}

func withTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
