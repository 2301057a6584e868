package crew

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/lewisedginton/itinerary_planner/pkg/logger"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/tool"
	"google.golang.org/genai"
)

// mcpToolset exposes the tools of one MCP server. Unlike the ADK's stock
// toolset it renders every MCP content type (embedded resources, images,
// audio, links) into the tool result instead of keeping text only.
type mcpToolset struct {
	transport mcp.Transport
	client    *mcp.Client
	timeout   time.Duration
	log       logger.Logger

	mu      sync.Mutex
	session *mcp.ClientSession
}

func newMCPToolset(transport mcp.Transport, timeout time.Duration, log logger.Logger) *mcpToolset {
	return &mcpToolset{
		transport: transport,
		client:    mcp.NewClient(&mcp.Implementation{Name: "itinerary-planner", Version: "1.0.0"}, nil),
		timeout:   withTimeout(timeout),
		log:       log,
	}
}

func (s *mcpToolset) Name() string {
	return "mcp_tool_set"
}

func (s *mcpToolset) getSession(ctx context.Context) (*mcp.ClientSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return s.session, nil
	}
	session, err := s.client.Connect(ctx, s.transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MCP server: %w", err)
	}
	s.session = session
	return session, nil
}

var mcpRefreshableErrors = []error{
	mcp.ErrConnectionClosed,
	io.ErrClosedPipe,
	io.EOF,
}

func isMCPRefreshableError(err error) bool {
	for _, target := range mcpRefreshableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return strings.Contains(err.Error(), "session not found")
}

// refreshSession reconnects unless the current session still answers a ping.
func (s *mcpToolset) refreshSession(ctx context.Context) (*mcp.ClientSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		if err := s.session.Ping(ctx, &mcp.PingParams{}); err == nil {
			return s.session, nil
		}
		if err := s.session.Close(); err != nil {
			s.log.Debug("Failed to close MCP session during refresh", logger.ErrorField(err))
		}
		s.session = nil
	}

	session, err := s.client.Connect(ctx, s.transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh MCP session: %w", err)
	}
	s.session = session
	return session, nil
}

func (s *mcpToolset) callTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session, err := s.getSession(ctx)
	if err != nil {
		return nil, err
	}

	result, err := session.CallTool(ctx, params)
	if err == nil || !isMCPRefreshableError(err) {
		return result, err
	}
	session, refreshErr := s.refreshSession(ctx)
	if refreshErr != nil {
		return nil, fmt.Errorf("%w (reconnection also failed: %v)", err, refreshErr)
	}
	return session.CallTool(ctx, params)
}

func (s *mcpToolset) listTools(ctx context.Context) ([]*mcp.Tool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session, err := s.getSession(ctx)
	if err != nil {
		return nil, err
	}

	var tools []*mcp.Tool
	cursor := ""
	reconnected := false
	for {
		resp, err := session.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			if !isMCPRefreshableError(err) || reconnected {
				return nil, fmt.Errorf("failed to list MCP tools: %w", err)
			}
			if session, err = s.refreshSession(ctx); err != nil {
				return nil, err
			}
			reconnected = true
			tools, cursor = nil, ""
			continue
		}

		tools = append(tools, resp.Tools...)
		if resp.NextCursor == "" {
			return tools, nil
		}
		cursor = resp.NextCursor
	}
}

// Tools lists the server's tools as ADK tools.
func (s *mcpToolset) Tools(ctx agent.ReadonlyContext) ([]tool.Tool, error) {
	mcpTools, err := s.listTools(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]tool.Tool, 0, len(mcpTools))
	for _, mt := range mcpTools {
		decl := &genai.FunctionDeclaration{Name: mt.Name, Description: mt.Description}
		// typed nil schemas crash the genai converter
		if mt.InputSchema != nil {
			decl.ParametersJsonSchema = mt.InputSchema
		}
		if mt.OutputSchema != nil {
			decl.ResponseJsonSchema = mt.OutputSchema
		}
		out = append(out, &mcpTool{name: mt.Name, description: mt.Description, decl: decl, toolset: s})
	}
	return out, nil
}

// mcpTool satisfies the ADK's function tool contract (Declaration, Run)
// structurally; the prefixed wrapper adds request processing.
type mcpTool struct {
	name        string
	description string
	decl        *genai.FunctionDeclaration
	toolset     *mcpToolset
}

func (t *mcpTool) Name() string                            { return t.name }
func (t *mcpTool) Description() string                     { return t.description }
func (t *mcpTool) IsLongRunning() bool                     { return false }
func (t *mcpTool) Declaration() *genai.FunctionDeclaration { return t.decl }

func (t *mcpTool) Run(ctx tool.Context, args any) (map[string]any, error) {
	res, err := t.toolset.callTool(ctx, &mcp.CallToolParams{Name: t.name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("failed to call MCP tool %q: %w", t.name, err)
	}
	return toolResult(res)
}

func toolResult(res *mcp.CallToolResult) (map[string]any, error) {
	if res.IsError {
		msg := "Tool execution failed."
		if details := extractTextFromContent(res.Content); details != "" {
			msg += " Details: " + details
		}
		return nil, errors.New(msg)
	}
	if res.StructuredContent != nil {
		return map[string]any{"output": res.StructuredContent}, nil
	}
	output := extractAllContent(res.Content)
	if output == "" {
		return nil, errors.New("no content in tool response")
	}
	return map[string]any{"output": output}, nil
}

func extractTextFromContent(content []mcp.Content) string {
	var b strings.Builder
	for _, c := range content {
		switch v := c.(type) {
		case *mcp.TextContent:
			b.WriteString(v.Text)
		case *mcp.EmbeddedResource:
			if v.Resource != nil {
				b.WriteString(v.Resource.Text)
			}
		}
	}
	return b.String()
}

func extractAllContent(content []mcp.Content) string {
	var b strings.Builder
	for _, c := range content {
		switch v := c.(type) {
		case *mcp.TextContent:
			b.WriteString(v.Text)
		case *mcp.EmbeddedResource:
			writeResource(&b, v.Resource)
		case *mcp.ImageContent:
			fmt.Fprintf(&b, "[Image: %s, %d bytes]", v.MIMEType, len(v.Data))
		case *mcp.AudioContent:
			fmt.Fprintf(&b, "[Audio: %s, %d bytes]", v.MIMEType, len(v.Data))
		case *mcp.ResourceLink:
			fmt.Fprintf(&b, "[Resource link: %s (%s)]", v.URI, v.Name)
		}
	}
	return b.String()
}

func writeResource(b *strings.Builder, r *mcp.ResourceContents) {
	switch {
	case r == nil:
	case r.Text != "":
		b.WriteString(r.Text)
	case r.Blob == nil:
	case isTextMIMEType(r.MIMEType):
		b.Write(r.Blob)
	default:
		fmt.Fprintf(b, "[Binary resource: %s, URI: %s, %d bytes, base64: %s]",
			r.MIMEType, r.URI, len(r.Blob), base64.StdEncoding.EncodeToString(r.Blob))
	}
}

func isTextMIMEType(mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	base = strings.TrimSpace(base)
	if strings.HasPrefix(base, "text/") {
		return true
	}
	switch base {
	case "application/json", "application/xml", "application/javascript",
		"application/x-yaml", "application/yaml", "application/xhtml+xml", "application/toml":
		return true
	}
	return false
}
