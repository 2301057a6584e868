// Package serper_search provides a Google search tool backed by serper.dev.
package serper_search //nolint:revive // var-naming: using underscores for domain clarity

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

const ToolName = "serper_search"

// Config holds configuration for the Serper search tool
type Config struct {
	APIKey     string
	BaseURL    string
	NumResults int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Args represents the arguments for the tool
type Args struct {
	Query string `json:"query" jsonschema:"The Google search query"`
	// Country narrows results, e.g. "in" for India.
	Country string `json:"country,omitempty" jsonschema:"Optional two-letter country code to localize results (e.g. 'in')"`
}

// SearchResult represents a single organic result
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Result is what the agent sees. Failures land in Error, not in a Go error.
type Result struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer,omitempty"`
	Results []SearchResult `json:"results"`
	Error   string         `json:"error,omitempty"`
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
	GL  string `json:"gl,omitempty"`
}

type serperResponse struct {
	AnswerBox *struct {
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
	} `json:"answerBox"`
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

type searchClient struct {
	cfg Config
}

func newSearchClient(cfg Config) (*searchClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("serper API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://google.serper.dev"
	}
	if cfg.NumResults <= 0 || cfg.NumResults > 100 {
		cfg.NumResults = 10
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &searchClient{cfg: cfg}, nil
}

func (c *searchClient) search(ctx context.Context, args Args) Result {
	fail := func(format string, a ...any) Result {
		return Result{Query: args.Query, Results: []SearchResult{}, Error: fmt.Sprintf(format, a...)}
	}
	if args.Query == "" {
		return fail("query is required")
	}

	body, status, err := c.doRequest(ctx, serperRequest{Q: args.Query, Num: c.cfg.NumResults, GL: args.Country})
	if err != nil {
		return fail("%v", err)
	}
	if status != http.StatusOK {
		return fail("API error (status %d): %s", status, searchtext.Truncate(string(body), 200))
	}

	var parsed serperResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fail("failed to parse response: %v", err)
	}

	out := Result{Query: args.Query, Results: make([]SearchResult, 0, len(parsed.Organic))}
	if parsed.AnswerBox != nil {
		out.Answer = searchtext.Clean(parsed.AnswerBox.Answer + " " + parsed.AnswerBox.Snippet)
	}
	for _, r := range parsed.Organic {
		out.Results = append(out.Results, SearchResult{
			Title:   searchtext.Clean(r.Title),
			Link:    r.Link,
			Snippet: searchtext.Clean(r.Snippet),
		})
	}
	return out
}

func (c *searchClient) doRequest(ctx context.Context, payload serperRequest) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/search", bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// New creates a new serper search tool
func New(cfg Config) (tool.Tool, error) {
	client, err := newSearchClient(cfg)
	if err != nil {
		return nil, err
	}

	handler := func(ctx tool.Context, args Args) (Result, error) {
		return client.search(ctx, args), nil
	}

	return functiontool.New(functiontool.Config{
		Name:        ToolName,
		Description: "Search the internet with Google for up-to-date information about destinations, transport, hotels, food and local events.",
	}, handler)
}
