package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	appconfig "github.com/lewisedginton/itinerary_planner/internal/config"
	"github.com/lewisedginton/itinerary_planner/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"LLM_PROVIDER", "GROQ_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
	"TAVILY_API_KEY", "SERPER_API_KEY", "ARCHIVE_BACKEND", "ARCHIVE_LOCAL_DIR", "MCP_ENABLED",
}

func loadConfig(t *testing.T, vars map[string]string) *appconfig.AppConfig {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("TAVILY_API_KEY", "tvly-test")
	t.Setenv("SERPER_API_KEY", "serper-test")
	for k, v := range vars {
		t.Setenv(k, v)
	}
	cfg, err := appconfig.Load("")
	require.NoError(t, err)
	return cfg
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNew_Routes(t *testing.T) {
	cfg := loadConfig(t, nil)
	s, err := New(context.Background(), cfg, logger.NewNopLogger())
	require.NoError(t, err)
	h := s.Handler()

	tests := []struct {
		path   string
		status int
	}{
		{"/", http.StatusOK},
		{"/ping", http.StatusOK},
		{"/healthz", http.StatusOK},
		{"/static/logo.png", http.StatusOK},
		{"/itineraries", http.StatusNotFound},
		{"/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	rec := get(t, h, "/")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get(logger.CorrelationIDHeader))
	assert.Contains(t, rec.Body.String(), "Run Analysis")

	assert.Positive(t, testutil.ToFloat64(s.metrics.TotalHTTPRequestsCounter))
}

func TestNew_LocalArchive(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"ARCHIVE_BACKEND":   appconfig.ArchiveLocal,
		"ARCHIVE_LOCAL_DIR": t.TempDir(),
	})
	s, err := New(context.Background(), cfg, logger.NewNopLogger())
	require.NoError(t, err)
	require.NotNil(t, s.planner.Archive())

	rec := get(t, s.Handler(), "/itineraries")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No itineraries yet.")
}

func TestCreateLLMModel(t *testing.T) {
	tests := []struct {
		provider string
		vars     map[string]string
		name     string
	}{
		{appconfig.ProviderGroq, nil, "llama3-8b-8192"},
		{appconfig.ProviderOpenAI, map[string]string{"OPENAI_API_KEY": "sk-test"}, "gpt-4o-mini"},
		{appconfig.ProviderClaude, map[string]string{"ANTHROPIC_API_KEY": "sk-ant-test"}, "claude-sonnet-4-5-20250929"},
		{appconfig.ProviderGemini, map[string]string{"GEMINI_API_KEY": "gem-test"}, "gemini-2.5-flash"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			vars := map[string]string{"LLM_PROVIDER": tt.provider}
			for k, v := range tt.vars {
				vars[k] = v
			}
			cfg := loadConfig(t, vars)

			llm, err := createLLMModel(context.Background(), cfg, logger.NewNopLogger())
			require.NoError(t, err)
			assert.Contains(t, llm.Name(), tt.name)
		})
	}
}

func TestCreateLLMModel_Unsupported(t *testing.T) {
	cfg := loadConfig(t, nil)
	cfg.LLM.Provider = "llamafile"

	_, err := createLLMModel(context.Background(), cfg, logger.NewNopLogger())
	require.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := loadConfig(t, nil)
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = 0
	s, err := New(context.Background(), cfg, logger.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	require.NoError(t, <-done)
}

func TestNewPlanner_Quiet(t *testing.T) {
	cfg := loadConfig(t, nil)
	p, err := NewPlanner(context.Background(), cfg, logger.NewNopLogger(), PlannerOptions{})
	require.NoError(t, err)
	assert.Nil(t, p.Archive())
}
