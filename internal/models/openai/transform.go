package openai

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// transformADKToOpenAI converts ADK contents to chat messages. A content may
// expand into several messages: every function response becomes its own
// tool message, as the API requires one per tool call id.
func transformADKToOpenAI(contents []*genai.Content) ([]openai.ChatCompletionMessageParamUnion, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	for _, content := range contents {
		if content == nil || len(content.Parts) == 0 {
			continue
		}
		msgs, err := convertContent(content)
		if err != nil {
			return nil, fmt.Errorf("failed to convert content: %w", err)
		}
		messages = append(messages, msgs...)
	}
	return messages, nil
}

func convertContent(content *genai.Content) ([]openai.ChatCompletionMessageParamUnion, error) {
	switch content.Role {
	case "system":
		if text := joinText(content.Parts, "\n\n"); text != "" {
			return []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(text)}, nil
		}
		return nil, nil

	case genai.RoleModel, "assistant":
		msg, err := convertAssistantContent(content.Parts)
		if err != nil || msg == nil {
			return nil, err
		}
		return []openai.ChatCompletionMessageParamUnion{*msg}, nil

	default:
		// ADK sends function responses back under the user role.
		msgs, err := convertToolResults(content.Parts)
		if err != nil {
			return nil, err
		}
		parts := convertPartsToUserContent(content.Parts)
		switch {
		case len(parts) == 1 && parts[0].OfText != nil:
			msgs = append(msgs, openai.UserMessage(parts[0].OfText.Text))
		case len(parts) > 0:
			msgs = append(msgs, openai.UserMessage(parts))
		}
		return msgs, nil
	}
}

func convertToolResults(parts []*genai.Part) ([]openai.ChatCompletionMessageParamUnion, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	for _, part := range parts {
		if part == nil || part.FunctionResponse == nil {
			continue
		}
		msg, err := CreateToolResultMessage(part.FunctionResponse.ID, part.FunctionResponse.Response)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// convertPartsToUserContent keeps text and inline images. Function responses
// are handled by convertToolResults.
func convertPartsToUserContent(parts []*genai.Part) []openai.ChatCompletionContentPartUnionParam {
	var result []openai.ChatCompletionContentPartUnionParam
	for _, part := range parts {
		if part == nil {
			continue
		}
		switch {
		case part.Text != "":
			result = append(result, openai.TextContentPart(part.Text))
		case part.InlineData != nil:
			imageURL := fmt.Sprintf("data:%s;base64,%s",
				part.InlineData.MIMEType,
				base64.StdEncoding.EncodeToString(part.InlineData.Data))
			result = append(result, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: imageURL,
			}))
		}
	}
	return result
}

func convertAssistantContent(parts []*genai.Part) (*openai.ChatCompletionMessageParamUnion, error) {
	var text []string
	var toolCalls []openai.ChatCompletionMessageToolCallParam

	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			text = append(text, part.Text)
			continue
		}
		if part.FunctionCall != nil {
			argsJSON, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal function args: %w", err)
			}
			toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
				ID:   part.FunctionCall.ID,
				Type: "function",
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      part.FunctionCall.Name,
					Arguments: string(argsJSON),
				},
			})
		}
	}

	textContent := strings.Join(text, "\n")
	if textContent == "" && len(toolCalls) == 0 {
		return nil, nil
	}

	if len(toolCalls) > 0 {
		assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
		if textContent != "" {
			assistant.Content.OfString = openai.String(textContent)
		}
		return &openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}, nil
	}

	msg := openai.AssistantMessage(textContent)
	return &msg, nil
}

func transformOpenAIToADK(completion *openai.ChatCompletion) (*model.LLMResponse, error) {
	if completion == nil {
		return nil, fmt.Errorf("nil completion")
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := completion.Choices[0]
	var parts []*genai.Part

	if choice.Message.Content != "" {
		parts = append(parts, &genai.Part{Text: choice.Message.Content})
	}

	for _, toolCall := range choice.Message.ToolCalls {
		var args map[string]any
		if toolCall.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tool arguments: %w", err)
			}
		}
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				ID:   toolCall.ID,
				Name: toolCall.Function.Name,
				Args: args,
			},
		})
	}

	var usage *genai.GenerateContentResponseUsageMetadata
	if completion.Usage.TotalTokens > 0 {
		usage = &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:        int32(completion.Usage.PromptTokens),
			CandidatesTokenCount:    int32(completion.Usage.CompletionTokens),
			TotalTokenCount:         int32(completion.Usage.TotalTokens),
			CachedContentTokenCount: int32(completion.Usage.PromptTokensDetails.CachedTokens),
		}
	}

	return &model.LLMResponse{
		Content:       &genai.Content{Role: genai.RoleModel, Parts: parts},
		UsageMetadata: usage,
		FinishReason:  mapFinishReason(choice.FinishReason),
		TurnComplete:  true,
	}, nil
}

func mapFinishReason(finishReason string) genai.FinishReason {
	switch finishReason {
	case "stop", "tool_calls", "function_call":
		return genai.FinishReasonStop
	case "length":
		return genai.FinishReasonMaxTokens
	case "content_filter":
		return genai.FinishReasonSafety
	default:
		return genai.FinishReasonOther
	}
}

// transformToolsToOpenAI converts the tools ADK attached to the request.
// Declarations are sorted by name so requests are stable.
func transformToolsToOpenAI(tools map[string]any) ([]openai.ChatCompletionToolParam, error) {
	type declarer interface {
		Declaration() *genai.FunctionDeclaration
	}

	var out []openai.ChatCompletionToolParam
	for _, def := range tools {
		t, ok := def.(declarer)
		if !ok {
			continue
		}
		decl := t.Declaration()
		if decl == nil || decl.Name == "" {
			continue
		}
		params, err := parametersSchema(decl)
		if err != nil {
			return nil, fmt.Errorf("failed to convert schema for tool %s: %w", decl.Name, err)
		}
		out = append(out, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        decl.Name,
				Description: openai.String(decl.Description),
				Parameters:  params,
			},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Function.Name < out[j].Function.Name })
	return out, nil
}

// parametersSchema normalises whatever schema value the tool carries
// (a map, or a typed schema from functiontool) into a JSON object.
func parametersSchema(decl *genai.FunctionDeclaration) (openai.FunctionParameters, error) {
	params := openai.FunctionParameters{}
	if decl.ParametersJsonSchema != nil {
		switch schema := decl.ParametersJsonSchema.(type) {
		case map[string]any:
			for k, v := range schema {
				params[k] = v
			}
		default:
			data, err := json.Marshal(schema)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal schema: %w", err)
			}
			if err := json.Unmarshal(data, &params); err != nil {
				return nil, fmt.Errorf("schema is not a JSON object: %w", err)
			}
		}
	}
	if _, ok := params["type"]; !ok {
		params["type"] = "object"
	}
	return params, nil
}

// CreateToolResultMessage wraps a tool result as a tool message.
func CreateToolResultMessage(toolCallID string, result any) (openai.ChatCompletionMessageParamUnion, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return openai.ToolMessage(string(resultJSON), toolCallID), nil
}

func joinText(parts []*genai.Part, sep string) string {
	var text []string
	for _, part := range parts {
		if part != nil && part.Text != "" {
			text = append(text, part.Text)
		}
	}
	return strings.Join(text, sep)
}
