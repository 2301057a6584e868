package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutes(t *testing.T) {
	h := New(WithFailureThreshold(1))
	h.AddLivenessCheck(NewCheckFunc("process", func(context.Context) error { return nil }))
	h.AddReadinessCheck(NewCheckFunc("groq-api", func(context.Context) error { return nil }))
	h.AddReadinessCheck(NewCheckFunc("tavily-api", func(context.Context) error { return errors.New("connection refused") }))

	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	tests := []struct {
		path       string
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{"/healthz", http.StatusOK, "healthy", map[string]string{"process": "ok"}},
		{"/readyz", http.StatusServiceUnavailable, "unhealthy", map[string]string{"groq-api": "ok", "tavily-api": "error"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			var body HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantStatus, body.Status)
			require.Len(t, body.Checks, len(tt.wantChecks))
			for name, want := range tt.wantChecks {
				assert.Equal(t, want, body.Checks[name].Status)
				assert.NotEmpty(t, body.Checks[name].Latency)
			}
		})
	}
}

func TestReadinessHandler_ErrorMessage(t *testing.T) {
	h := New(WithFailureThreshold(1))
	h.AddReadinessCheck(NewCheckFunc("serper-api", func(context.Context) error { return errors.New("401") }))

	rec := httptest.NewRecorder()
	h.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "health checks failed: [serper-api]", body.Message)
	assert.Equal(t, "401", body.Checks["serper-api"].Error)
}
