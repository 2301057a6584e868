package config

import "time"

// LLM provider constants
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// LLMConfig selects the model provider shared by both agents.
type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" yaml:"provider" default:"groq"`

	Groq      GroqConfig      `yaml:"groq"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini"`
}

// GroqConfig targets Groq's OpenAI-compatible endpoint.
type GroqConfig struct {
	APIKey     string        `env:"GROQ_API_KEY" yaml:"-"`
	Model      string        `env:"GROQ_MODEL" yaml:"model" default:"llama3-8b-8192"`
	APIBaseURL string        `env:"GROQ_API_URL" yaml:"api_base_url" default:"https://api.groq.com/openai/v1"`
	MaxRetries int           `env:"GROQ_MAX_RETRIES" yaml:"max_retries" default:"2"`
	Timeout    time.Duration `env:"GROQ_TIMEOUT" yaml:"timeout" default:"60s"`
}

// OpenAIConfig holds OpenAI-specific configuration
type OpenAIConfig struct {
	APIKey     string        `env:"OPENAI_API_KEY" yaml:"-"`
	Model      string        `env:"OPENAI_MODEL" yaml:"model" default:"gpt-4o-mini"`
	APIBaseURL string        `env:"OPENAI_API_URL" yaml:"api_base_url" default:"https://api.openai.com/v1"`
	MaxRetries int           `env:"OPENAI_MAX_RETRIES" yaml:"max_retries" default:"2"`
	Timeout    time.Duration `env:"OPENAI_TIMEOUT" yaml:"timeout" default:"60s"`
}

// AnthropicConfig holds Anthropic-specific configuration
type AnthropicConfig struct {
	APIKey     string        `env:"ANTHROPIC_API_KEY" yaml:"-"`
	Model      string        `env:"CLAUDE_MODEL" yaml:"model" default:"claude-sonnet-4-5-20250929"`
	APIBaseURL string        `env:"ANTHROPIC_API_URL" yaml:"api_base_url" default:"https://api.anthropic.com"`
	MaxRetries int           `env:"ANTHROPIC_MAX_RETRIES" yaml:"max_retries" default:"2"`
	MaxTokens  int           `env:"ANTHROPIC_MAX_TOKENS" yaml:"max_tokens" default:"4096"`
	Timeout    time.Duration `env:"ANTHROPIC_TIMEOUT" yaml:"timeout" default:"60s"`
}

// GeminiConfig holds Google Gemini-specific configuration
type GeminiConfig struct {
	APIKey string `env:"GEMINI_API_KEY" yaml:"-"`
	Model  string `env:"GEMINI_MODEL" yaml:"model" default:"gemini-2.5-flash"`
}

// BaseURL returns the API root of the selected provider, used for readiness probes.
func (c LLMConfig) BaseURL() string {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAI.APIBaseURL
	case ProviderClaude:
		return c.Anthropic.APIBaseURL
	case ProviderGemini:
		return "https://generativelanguage.googleapis.com"
	default:
		return c.Groq.APIBaseURL
	}
}

// ModelName returns the model configured for the selected provider.
func (c LLMConfig) ModelName() string {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAI.Model
	case ProviderClaude:
		return c.Anthropic.Model
	case ProviderGemini:
		return c.Gemini.Model
	default:
		return c.Groq.Model
	}
}
