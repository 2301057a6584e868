package httpmiddleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lewisedginton/itinerary_planner/pkg/logger"
	"github.com/unrolled/secure"
)

// Config selects and configures the middleware stack. Start from
// DefaultConfig() and override what you need.
type Config struct {
	Logger   logger.Logger
	CORS     *CORSConfig
	Security *secure.Options // nil means DefaultSecurityOptions
	Timeout  time.Duration

	// StreamingPaths are exempt from Timeout and Compression. Websocket
	// upgrades need the raw connection and live as long as a pipeline run.
	StreamingPaths []string

	// Extra middleware appended after the built-in stack, e.g. metrics.
	Extra []func(http.Handler) http.Handler

	EnableCorrelationID bool
	EnableLogging       bool // requires Logger
	EnableRecovery      bool
	EnableCORS          bool
	EnableSecurity      bool
	EnableCompression   bool
	EnableHeartbeat     bool // /ping
	EnableRealIP        bool
	EnableTimeout       bool
}

// DefaultConfig returns a production-ready middleware configuration.
// Logging is disabled until a Logger is set and EnableLogging is true.
func DefaultConfig() Config {
	corsConfig := DefaultCORSConfig()
	return Config{
		CORS:    &corsConfig,
		Timeout: 60 * time.Second,

		EnableCorrelationID: true,
		EnableRecovery:      true,
		EnableCORS:          true,
		EnableSecurity:      true,
		EnableCompression:   true,
		EnableHeartbeat:     true,
		EnableRealIP:        true,
		EnableTimeout:       true,
	}
}

// ApplyToRouter installs the configured middleware on router, outermost first:
// correlation ID, security headers, real IP, logging, recovery, CORS,
// heartbeat, extras, then timeout and compression (skipped on StreamingPaths).
func ApplyToRouter(router chi.Router, config Config) {
	if config.EnableCorrelationID {
		router.Use(CorrelationID())
	}
	if config.EnableSecurity {
		router.Use(Security(config.Security))
	}
	if config.EnableRealIP {
		router.Use(middleware.RealIP)
	}
	if config.EnableLogging && config.Logger != nil {
		router.Use(NewHTTPLogger(config.Logger).Middleware)
	}
	if config.EnableRecovery {
		if config.Logger != nil {
			router.Use(Recovery(config.Logger))
		} else {
			router.Use(middleware.Recoverer)
		}
	}
	if config.EnableCORS && config.CORS != nil {
		router.Use(CORS(*config.CORS))
	}
	if config.EnableHeartbeat {
		router.Use(middleware.Heartbeat("/ping"))
	}
	for _, mw := range config.Extra {
		router.Use(mw)
	}
	if config.EnableTimeout {
		router.Use(SkipPaths(config.StreamingPaths, middleware.Timeout(config.Timeout)))
	}
	if config.EnableCompression {
		router.Use(SkipPaths(config.StreamingPaths, middleware.Compress(5)))
	}
}

// WithLogger applies DefaultConfig with request logging through log.
func WithLogger(router chi.Router, log logger.Logger) {
	config := DefaultConfig()
	config.Logger = log
	config.EnableLogging = true
	ApplyToRouter(router, config)
}

// SkipPaths wraps mw so that requests whose path is in paths bypass it.
func SkipPaths(paths []string, mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if len(paths) == 0 {
		return mw
	}
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(paths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}
