package anthropic

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// transformADKToAnthropic converts ADK contents to Anthropic messages. System
// contents are folded into the returned system prompt.
func transformADKToAnthropic(contents []*genai.Content) ([]anthropic.MessageParam, string, error) {
	if len(contents) == 0 {
		return nil, "", fmt.Errorf("no contents provided")
	}

	var messages []anthropic.MessageParam
	var system []string

	for _, content := range contents {
		if content == nil {
			continue
		}
		if content.Role == "system" {
			if text := strings.Join(extractTextParts(content.Parts), "\n"); text != "" {
				system = append(system, text)
			}
			continue
		}

		message, err := convertContentToMessage(content)
		if err != nil {
			return nil, "", fmt.Errorf("failed to convert content: %w", err)
		}
		if message != nil {
			messages = append(messages, *message)
		}
	}

	return messages, strings.Join(system, "\n\n"), nil
}

func convertContentToMessage(content *genai.Content) (*anthropic.MessageParam, error) {
	if len(content.Parts) == 0 {
		return nil, nil
	}

	role := anthropic.MessageParamRoleUser
	if content.Role == genai.RoleModel || content.Role == "assistant" {
		role = anthropic.MessageParamRoleAssistant
	}

	var blocks []anthropic.ContentBlockParamUnion
	for _, part := range content.Parts {
		block, err := convertPartToContentBlock(part)
		if err != nil {
			return nil, fmt.Errorf("failed to convert part: %w", err)
		}
		if block != nil {
			blocks = append(blocks, *block)
		}
	}
	if len(blocks) == 0 {
		return nil, nil
	}

	return &anthropic.MessageParam{Role: role, Content: blocks}, nil
}

func convertPartToContentBlock(part *genai.Part) (*anthropic.ContentBlockParamUnion, error) {
	if part == nil {
		return nil, nil
	}

	switch {
	case part.Text != "":
		block := anthropic.NewTextBlock(part.Text)
		return &block, nil

	case part.FunctionCall != nil:
		id := part.FunctionCall.ID
		if id == "" {
			id = part.FunctionCall.Name
		}
		args := part.FunctionCall.Args
		if args == nil {
			args = map[string]any{}
		}
		return &anthropic.ContentBlockParamUnion{
			OfToolUse: &anthropic.ToolUseBlockParam{
				ID:    id,
				Name:  part.FunctionCall.Name,
				Input: args,
			},
		}, nil

	case part.FunctionResponse != nil:
		id := part.FunctionResponse.ID
		if id == "" {
			id = part.FunctionResponse.Name
		}
		responseJSON, err := json.Marshal(part.FunctionResponse.Response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal function response: %w", err)
		}
		block := anthropic.NewToolResultBlock(id, string(responseJSON), false)
		return &block, nil

	case part.FileData != nil:
		block := anthropic.NewTextBlock(fmt.Sprintf("[File: %s, MIME: %s]", part.FileData.FileURI, part.FileData.MIMEType))
		return &block, nil

	case part.InlineData != nil:
		block := anthropic.NewTextBlock(fmt.Sprintf("[Attachment: %s, %d bytes]", part.InlineData.MIMEType, len(part.InlineData.Data)))
		return &block, nil
	}

	return nil, nil
}

func transformAnthropicToADK(message *anthropic.Message) (*model.LLMResponse, error) {
	if message == nil {
		return nil, fmt.Errorf("message is nil")
	}

	var parts []*genai.Part
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				parts = append(parts, &genai.Part{Text: block.Text})
			}
		case "tool_use":
			args, err := decodeToolInput(block.Input)
			if err != nil {
				return nil, err
			}
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
				ID:   block.ID,
				Name: block.Name,
				Args: args,
			}})
		}
	}

	usage := &genai.GenerateContentResponseUsageMetadata{
		PromptTokenCount:     int32(message.Usage.InputTokens),
		CandidatesTokenCount: int32(message.Usage.OutputTokens),
		TotalTokenCount:      int32(message.Usage.InputTokens + message.Usage.OutputTokens),
	}

	return &model.LLMResponse{
		Content:       &genai.Content{Role: genai.RoleModel, Parts: parts},
		UsageMetadata: usage,
		FinishReason:  mapStopReason(message.StopReason),
		TurnComplete:  true,
	}, nil
}

func decodeToolInput(input any) (map[string]any, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool input: %w", err)
	}
	var args map[string]any
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tool args: %w", err)
	}
	return args, nil
}

func mapStopReason(reason anthropic.StopReason) genai.FinishReason {
	switch reason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence, anthropic.StopReasonToolUse:
		return genai.FinishReasonStop
	case anthropic.StopReasonMaxTokens:
		return genai.FinishReasonMaxTokens
	default:
		return genai.FinishReasonOther
	}
}

// transformToolsToAnthropic builds tool params from the declarations ADK
// attached to the request, sorted by name.
func transformToolsToAnthropic(tools map[string]any) ([]anthropic.ToolUnionParam, error) {
	type declarer interface {
		Declaration() *genai.FunctionDeclaration
	}

	var out []anthropic.ToolUnionParam
	for _, def := range tools {
		t, ok := def.(declarer)
		if !ok {
			continue
		}
		decl := t.Declaration()
		if decl == nil || decl.Name == "" {
			continue
		}
		schema, err := schemaObject(decl.ParametersJsonSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to convert schema for tool %s: %w", decl.Name, err)
		}

		param := anthropic.ToolParam{
			Name:        decl.Name,
			Description: anthropic.String(decl.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
				Required:   requiredFields(schema["required"]),
			},
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &param})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OfTool.Name < out[j].OfTool.Name })
	return out, nil
}

func schemaObject(schema any) (map[string]any, error) {
	if schema == nil {
		return map[string]any{}, nil
	}
	if m, ok := schema.(map[string]any); ok {
		return m, nil
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("schema is not a JSON object: %w", err)
	}
	return out, nil
}

func requiredFields(v any) []string {
	switch r := v.(type) {
	case []string:
		return r
	case []any:
		out := make([]string, 0, len(r))
		for _, item := range r {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func extractTextParts(parts []*genai.Part) []string {
	var text []string
	for _, part := range parts {
		if part != nil && part.Text != "" {
			text = append(text, part.Text)
		}
	}
	return text
}

func joinNonEmpty(sep string, values ...string) string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}
