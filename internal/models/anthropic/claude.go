// Package anthropic adapts the Anthropic Messages API to the ADK model.LLM
// interface.
package anthropic

import (
	"context"
	"fmt"
	"iter"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/lewisedginton/itinerary_planner/pkg/logger"
	"google.golang.org/adk/model"
)

const defaultMaxTokens = 4096

// Config for a Claude model.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	Logger    logger.Logger
}

// ClaudeModel implements model.LLM for Claude.
type ClaudeModel struct {
	client    anthropic.Client
	modelName string
	maxTokens int64
	log       logger.Logger
}

// NewClaudeModel creates a Claude model. Extra request options are passed to
// the SDK client, which is how tests point it at a local server.
func NewClaudeModel(cfg Config, opts ...option.RequestOption) (*ClaudeModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)...)

	return &ClaudeModel{
		client:    client,
		modelName: modelName,
		maxTokens: maxTokens,
		log:       log.WithFields(logger.StringField("component", "claude_model"), logger.StringField("model", modelName)),
	}, nil
}

// Name returns the name of the model
func (c *ClaudeModel) Name() string {
	return c.modelName
}

// GenerateContent implements model.LLM. Streaming is not supported; the
// whole response is yielded once.
func (c *ClaudeModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		if stream {
			yield(nil, fmt.Errorf("streaming not supported"))
			return
		}
		resp, err := c.generate(ctx, req)
		yield(resp, err)
	}
}

func (c *ClaudeModel) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}

	c.log.Debug("Sending request to anthropic", logger.IntField("messages_count", len(params.Messages)))

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		c.log.Warn("Claude request failed", logger.ErrorField(err))
		return nil, fmt.Errorf("claude api error: %w", err)
	}

	llmResponse, err := transformAnthropicToADK(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to transform response: %w", err)
	}
	return llmResponse, nil
}

func (c *ClaudeModel) buildParams(req *model.LLMRequest) (anthropic.MessageNewParams, error) {
	messages, systemPrompt, err := transformADKToAnthropic(req.Contents)
	if err != nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("failed to transform request: %w", err)
	}

	if req.Config != nil && req.Config.SystemInstruction != nil {
		systemPrompt = joinNonEmpty("\n\n", joinNonEmpty("\n", extractTextParts(req.Config.SystemInstruction.Parts)...), systemPrompt)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.modelName),
		MaxTokens: c.maxTokens,
		Messages:  messages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	if req.Config != nil {
		if req.Config.MaxOutputTokens > 0 {
			params.MaxTokens = int64(req.Config.MaxOutputTokens)
		}
		if req.Config.Temperature != nil {
			params.Temperature = anthropic.Float(float64(*req.Config.Temperature))
		}
		if req.Config.TopP != nil {
			params.TopP = anthropic.Float(float64(*req.Config.TopP))
		}
	}

	tools, err := transformToolsToAnthropic(req.Tools)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}
	params.Tools = tools
	return params, nil
}
