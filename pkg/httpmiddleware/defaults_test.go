package httpmiddleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lewisedginton/itinerary_planner/pkg/logger"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Timeout != 60*time.Second {
		t.Errorf("Expected timeout to be 60s, got %v", config.Timeout)
	}
	if config.CORS == nil {
		t.Error("Expected CORS config to be set")
	}
	if !config.EnableCorrelationID || !config.EnableRecovery || !config.EnableHeartbeat {
		t.Error("Expected correlation ID, recovery and heartbeat to be enabled by default")
	}
	if config.EnableLogging {
		t.Error("Expected logging to be disabled by default (requires logger)")
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger(logger.Config{Level: logger.DebugLevel, Output: &buf})

	router := chi.NewRouter()
	WithLogger(router, log)
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("itinerary"))
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", recorder.Code)
	}
	if recorder.Header().Get(logger.CorrelationIDHeader) == "" {
		t.Error("Expected correlation ID response header")
	}
	out := buf.String()
	if !strings.Contains(out, "HTTP response sent") || !strings.Contains(out, `"http_status":"200"`) {
		t.Errorf("Expected response log line with status, got %s", out)
	}
}

func TestApplyToRouter_Heartbeat(t *testing.T) {
	router := chi.NewRouter()
	ApplyToRouter(router, DefaultConfig())
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if recorder.Code != http.StatusOK || strings.TrimSpace(recorder.Body.String()) != "." {
		t.Errorf("Expected heartbeat response, got %d %q", recorder.Code, recorder.Body.String())
	}
}

func TestApplyToRouter_Recovery(t *testing.T) {
	router := chi.NewRouter()
	ApplyToRouter(router, DefaultConfig())
	router.Get("/panic", func(w http.ResponseWriter, r *http.Request) { panic("boom") })

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 after panic, got %d", recorder.Code)
	}
}

func TestApplyToRouter_ExtraMiddleware(t *testing.T) {
	config := DefaultConfig()
	calls := 0
	config.Extra = append(config.Extra, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			next.ServeHTTP(w, r)
		})
	})

	router := chi.NewRouter()
	ApplyToRouter(router, config)
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if calls != 1 {
		t.Errorf("Expected extra middleware to run once, ran %d times", calls)
	}
}

func TestSkipPaths(t *testing.T) {
	marked := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Wrapped", "yes")
			next.ServeHTTP(w, r)
		})
	}
	handler := SkipPaths([]string{"/ws"}, marked)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		path    string
		wrapped bool
	}{
		{"/ws", false},
		{"/run", true},
		{"/ws/extra", true},
	}
	for _, tt := range tests {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if got := recorder.Header().Get("X-Wrapped") == "yes"; got != tt.wrapped {
			t.Errorf("%s: wrapped=%v, want %v", tt.path, got, tt.wrapped)
		}
	}
}
