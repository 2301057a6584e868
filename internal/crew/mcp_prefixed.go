package crew

import (
	"google.golang.org/adk/agent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/tool"
	"google.golang.org/genai"
)

// MCPToolPrefix starts every MCP tool name: mcp__{server}__{tool}.
const MCPToolPrefix = "mcp__"

// prefixedMCPToolset renames a server's tools so two servers exposing the
// same tool name can both be attached to an agent.
type prefixedMCPToolset struct {
	serverName string
	inner      tool.Toolset
}

func newPrefixedMCPToolset(serverName string, inner tool.Toolset) tool.Toolset {
	return &prefixedMCPToolset{serverName: serverName, inner: inner}
}

func (p *prefixedMCPToolset) Name() string {
	return MCPToolPrefix + p.serverName
}

func (p *prefixedMCPToolset) Tools(ctx agent.ReadonlyContext) ([]tool.Tool, error) {
	tools, err := p.inner.Tools(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]tool.Tool, len(tools))
	for i, t := range tools {
		out[i] = &prefixedTool{name: MCPToolPrefix + p.serverName + "__" + t.Name(), inner: t}
	}
	return out, nil
}

type prefixedTool struct {
	name  string
	inner tool.Tool
}

func (t *prefixedTool) Name() string        { return t.name }
func (t *prefixedTool) Description() string { return t.inner.Description() }
func (t *prefixedTool) IsLongRunning() bool { return t.inner.IsLongRunning() }

// Declaration copies the inner declaration under the prefixed name.
func (t *prefixedTool) Declaration() *genai.FunctionDeclaration {
	d, ok := t.inner.(interface {
		Declaration() *genai.FunctionDeclaration
	})
	if !ok {
		return nil
	}
	inner := d.Declaration()
	if inner == nil {
		return nil
	}
	decl := *inner
	decl.Name = t.name
	return &decl
}

// Run calls the inner tool, which still uses the server-side name.
func (t *prefixedTool) Run(ctx tool.Context, args any) (map[string]any, error) {
	r, ok := t.inner.(interface {
		Run(tool.Context, any) (map[string]any, error)
	})
	if !ok {
		return nil, nil
	}
	return r.Run(ctx, args)
}

// ProcessRequest registers the tool and its declaration on the request.
func (t *prefixedTool) ProcessRequest(_ tool.Context, req *model.LLMRequest) error {
	if req.Tools == nil {
		req.Tools = make(map[string]any)
	}
	if _, ok := req.Tools[t.name]; ok {
		return nil
	}
	req.Tools[t.name] = t

	decl := t.Declaration()
	if decl == nil {
		return nil
	}
	if req.Config == nil {
		req.Config = &genai.GenerateContentConfig{}
	}
	for _, gt := range req.Config.Tools {
		if gt != nil && gt.FunctionDeclarations != nil {
			gt.FunctionDeclarations = append(gt.FunctionDeclarations, decl)
			return nil
		}
	}
	req.Config.Tools = append(req.Config.Tools, &genai.Tool{FunctionDeclarations: []*genai.FunctionDeclaration{decl}})
	return nil
}
