// Package openai adapts OpenAI-compatible chat completion APIs (OpenAI, Groq)
// to the ADK model.LLM interface.
package openai

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/lewisedginton/itinerary_planner/pkg/logger"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/adk/model"
)

const defaultMaxTokens int64 = 4096

// Config describes one OpenAI-compatible endpoint.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string // empty means api.openai.com
	MaxRetries int
	Timeout    time.Duration
	Logger     logger.Logger
}

// Model implements model.LLM over the chat completions endpoint.
type Model struct {
	client    *openai.Client
	modelName string
	log       logger.Logger
}

// New creates a model. Groq is reached by setting BaseURL to its
// OpenAI-compatible endpoint.
func New(cfg Config) (*Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")+"/"))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	client := openai.NewClient(opts...)
	return &Model{
		client:    &client,
		modelName: cfg.Model,
		log:       log.WithFields(logger.StringField("component", "llm"), logger.StringField("model", cfg.Model)),
	}, nil
}

// Name returns the model name.
func (o *Model) Name() string {
	return o.modelName
}

// GenerateContent only supports non-streaming mode.
func (o *Model) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		if stream {
			yield(nil, fmt.Errorf("streaming not supported"))
			return
		}

		response, err := o.generate(ctx, req)
		yield(response, err)
	}
}

func (o *Model) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	params, err := o.buildParams(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		o.log.Warn("Chat completion failed", logger.ErrorField(err))
		return nil, fmt.Errorf("openai API error: %w", err)
	}
	o.log.Debug("Chat completion finished",
		logger.DurationField("duration", time.Since(start)),
		logger.Int64Field("total_tokens", completion.Usage.TotalTokens))

	response, err := transformOpenAIToADK(completion)
	if err != nil {
		return nil, fmt.Errorf("failed to transform response: %w", err)
	}
	return response, nil
}

func (o *Model) buildParams(req *model.LLMRequest) (openai.ChatCompletionNewParams, error) {
	messages, err := transformADKToOpenAI(req.Contents)
	if err != nil {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("failed to transform request: %w", err)
	}

	// ADK places the llmagent Instruction in Config.SystemInstruction.
	if req.Config != nil && req.Config.SystemInstruction != nil {
		if text := joinText(req.Config.SystemInstruction.Parts, "\n\n"); text != "" {
			messages = append([]openai.ChatCompletionMessageParamUnion{openai.SystemMessage(text)}, messages...)
		}
	}

	maxTokens := defaultMaxTokens
	if req.Config != nil && req.Config.MaxOutputTokens > 0 {
		maxTokens = int64(req.Config.MaxOutputTokens)
	}

	params := openai.ChatCompletionNewParams{
		Model:     o.modelName,
		MaxTokens: openai.Int(maxTokens),
		Messages:  messages,
	}

	if req.Config != nil {
		if req.Config.Temperature != nil {
			params.Temperature = openai.Float(float64(*req.Config.Temperature))
		}
		if req.Config.TopP != nil {
			params.TopP = openai.Float(float64(*req.Config.TopP))
		}
		if len(req.Config.StopSequences) > 0 {
			params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: req.Config.StopSequences}
		}
	}

	tools, err := transformToolsToOpenAI(req.Tools)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}
	if len(tools) > 0 {
		params.Tools = tools
	}
	return params, nil
}
