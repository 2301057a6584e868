// Package tavily_search provides the Tavily web search tool used by the
// research agent.
package tavily_search //nolint:revive // var-naming: using underscores for domain clarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lewisedginton/itinerary_planner/internal/tools/searchtext"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

// ToolName is the name the agents are prompted with.
const ToolName = "tavily_search_results_json"

const maxResultsCap = 20

// Config holds configuration for the Tavily search tool
type Config struct {
	APIKey     string
	BaseURL    string
	MaxResults int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Args represents the arguments for the tool
type Args struct {
	Query string `json:"query" jsonschema:"Search query, e.g. 'budget hotels near Jaipur railway station'"`
}

// SearchResult is a single hit.
type SearchResult struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Result is what the agent sees. Failures land in Error so the run continues.
type Result struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Error   string         `json:"error,omitempty"`
}

type searchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Client talks to the Tavily search endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	maxResults int
	http       *http.Client
}

// NewClient applies defaults and validates cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tavily API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tavily.com"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.MaxResults > maxResultsCap {
		cfg.MaxResults = maxResultsCap
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{apiKey: cfg.APIKey, baseURL: cfg.BaseURL, maxResults: cfg.MaxResults, http: cfg.HTTPClient}, nil
}

// Search runs one query. It never returns a Go error; see Result.Error.
func (c *Client) Search(ctx context.Context, args Args) Result {
	empty := Result{Query: args.Query, Results: []SearchResult{}}
	if args.Query == "" {
		empty.Error = "query is required"
		return empty
	}

	payload, err := json.Marshal(searchRequest{APIKey: c.apiKey, Query: args.Query, MaxResults: c.maxResults})
	if err != nil {
		empty.Error = fmt.Sprintf("failed to encode request: %v", err)
		return empty
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		empty.Error = fmt.Sprintf("failed to create request: %v", err)
		return empty
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		empty.Error = fmt.Sprintf("request failed: %v", err)
		return empty
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		empty.Error = fmt.Sprintf("failed to read response: %v", err)
		return empty
	}
	if resp.StatusCode != http.StatusOK {
		empty.Error = fmt.Sprintf("API error (status %d): %s", resp.StatusCode, searchtext.Truncate(string(body), 200))
		return empty
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		empty.Error = fmt.Sprintf("failed to parse response: %v", err)
		return empty
	}

	results := make([]SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, SearchResult{URL: r.URL, Content: searchtext.Clean(r.Content)})
	}
	return Result{Query: args.Query, Results: results}
}

// New creates the ADK tool.
func New(cfg Config) (tool.Tool, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return functiontool.New(functiontool.Config{
		Name: ToolName,
		Description: "A search engine optimized for comprehensive, accurate, and trusted results. " +
			"Useful for answering questions about current events, places, prices and travel logistics. " +
			"Input should be a search query.",
	}, func(ctx tool.Context, args Args) (Result, error) {
		return client.Search(ctx, args), nil
	})
}
