package serper_search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	tl, err := New(Config{APIKey: "serper"})
	require.NoError(t, err)
	assert.Equal(t, ToolName, tl.Name())
}

func TestSearch(t *testing.T) {
	var got serperRequest
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("X-API-KEY")
		assert.Equal(t, "/search", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{
			"answerBox": {"answer": "October to March", "snippet": "Winter is <b>pleasant</b>"},
			"organic": [
				{"title": "Kerala <em>Backwaters</em>", "link": "https://example.com/kerala", "snippet": "Houseboats in Alleppey"}
			]
		}`))
	}))
	defer srv.Close()

	client, err := newSearchClient(Config{APIKey: "serper-key", BaseURL: srv.URL, NumResults: 3})
	require.NoError(t, err)

	res := client.search(context.Background(), Args{Query: "best time to visit Kerala", Country: "in"})

	assert.Equal(t, "serper-key", apiKey)
	assert.Equal(t, serperRequest{Q: "best time to visit Kerala", Num: 3, GL: "in"}, got)
	assert.Empty(t, res.Error)
	assert.Equal(t, "October to March Winter is pleasant", res.Answer)
	assert.Equal(t, []SearchResult{{Title: "Kerala Backwaters", Link: "https://example.com/kerala", Snippet: "Houseboats in Alleppey"}}, res.Results)
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		query   string
		wantErr string
	}{
		{name: "empty query", wantErr: "query is required"},
		{name: "forbidden", status: http.StatusForbidden, body: "Unauthorized.", query: "q", wantErr: "API error (status 403): Unauthorized."},
		{name: "malformed body", status: http.StatusOK, body: "{", query: "q", wantErr: "failed to parse response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := newSearchClient(Config{APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)

			res := client.search(context.Background(), Args{Query: tt.query})
			assert.Contains(t, res.Error, tt.wantErr)
			assert.Empty(t, res.Results)
		})
	}
}

func TestNewSearchClient_Defaults(t *testing.T) {
	c, err := newSearchClient(Config{APIKey: "k", NumResults: 1000})
	require.NoError(t, err)
	assert.Equal(t, "https://google.serper.dev", c.cfg.BaseURL)
	assert.Equal(t, 10, c.cfg.NumResults)
	assert.NotNil(t, c.cfg.HTTPClient)
}
