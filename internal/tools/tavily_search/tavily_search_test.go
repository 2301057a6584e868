package tavily_search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	tl, err := New(Config{APIKey: "tvly-test"})
	require.NoError(t, err)
	assert.Equal(t, ToolName, tl.Name())
}

func TestSearch(t *testing.T) {
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"results":[
			{"url":"https://example.com/udaipur","content":"Udaipur, the <b>City of Lakes</b>"},
			{"url":"https://example.com/food","content":"Try dal   baati churma"}
		]}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "tvly-test", BaseURL: srv.URL, MaxResults: 50})
	require.NoError(t, err)

	res := client.Search(context.Background(), Args{Query: "things to do in Udaipur"})

	assert.Empty(t, res.Error)
	assert.Equal(t, searchRequest{APIKey: "tvly-test", Query: "things to do in Udaipur", MaxResults: maxResultsCap}, got)
	assert.Equal(t, []SearchResult{
		{URL: "https://example.com/udaipur", Content: "Udaipur, the City of Lakes"},
		{URL: "https://example.com/food", Content: "Try dal baati churma"},
	}, res.Results)
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		query   string
		wantErr string
	}{
		{name: "empty query", query: "", wantErr: "query is required"},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"detail":"invalid key"}`, query: "q", wantErr: "API error (status 401)"},
		{name: "bad json", status: http.StatusOK, body: `not json`, query: "q", wantErr: "failed to parse response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)

			res := client.Search(context.Background(), Args{Query: tt.query})
			assert.Contains(t, res.Error, tt.wantErr)
			assert.NotNil(t, res.Results)
			assert.Empty(t, res.Results)
		})
	}
}

func TestSearch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: url})
	require.NoError(t, err)
	assert.Contains(t, client.Search(context.Background(), Args{Query: "q"}).Error, "request failed")
}
