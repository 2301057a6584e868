package config

import "time"

// SearchConfig holds both search backends bound to the research agent.
type SearchConfig struct {
	Tavily TavilyConfig `yaml:"tavily"`
	Serper SerperConfig `yaml:"serper"`
}

// TavilyConfig configures the tavily_search_results_json tool.
type TavilyConfig struct {
	APIKey     string        `env:"TAVILY_API_KEY" yaml:"-" required:"true"`
	BaseURL    string        `env:"TAVILY_API_URL" yaml:"base_url" default:"https://api.tavily.com"`
	MaxResults int           `env:"TAVILY_MAX_RESULTS" yaml:"max_results" default:"5"`
	Timeout    time.Duration `env:"TAVILY_TIMEOUT" yaml:"timeout" default:"30s"`
}

// SerperConfig configures the serper_search tool.
type SerperConfig struct {
	APIKey     string        `env:"SERPER_API_KEY" yaml:"-" required:"true"`
	BaseURL    string        `env:"SERPER_API_URL" yaml:"base_url" default:"https://google.serper.dev"`
	NumResults int           `env:"SERPER_NUM_RESULTS" yaml:"num_results" default:"10"`
	Timeout    time.Duration `env:"SERPER_TIMEOUT" yaml:"timeout" default:"30s"`
}
