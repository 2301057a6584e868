package httpmiddleware

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/unrolled/secure"
)

// CORSConfig represents CORS configuration options
type CORSConfig struct {
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowedOrigins   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig allows the methods the UI uses. Origins are left empty,
// which go-chi/cors treats as "*"; set AllowedOrigins to restrict it.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders: []string{"X-Correlation-ID"},
		MaxAge:         300,
	}
}

// CORS middleware configures Cross-Origin Resource Sharing
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedMethods:   config.AllowedMethods,
		AllowedHeaders:   config.AllowedHeaders,
		AllowedOrigins:   config.AllowedOrigins,
		ExposedHeaders:   config.ExposedHeaders,
		AllowCredentials: config.AllowCredentials,
		MaxAge:           config.MaxAge,
	})
}

// ContentSecurityPolicy fits the planner page: inline styles carry the base64
// background, images may be data URIs, and the page opens a websocket back to
// its own origin.
const ContentSecurityPolicy = "default-src 'self'; " +
	"style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data:; " +
	"script-src 'self' 'unsafe-inline'; " +
	"connect-src 'self' ws: wss:; " +
	"frame-ancestors 'none'"

// DefaultSecurityOptions returns the header set applied to the UI.
func DefaultSecurityOptions() secure.Options {
	return secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "same-origin",
		ContentSecurityPolicy: ContentSecurityPolicy,
	}
}

// Security middleware adds security headers. A nil opts uses DefaultSecurityOptions.
func Security(opts *secure.Options) func(http.Handler) http.Handler {
	if opts == nil {
		o := DefaultSecurityOptions()
		opts = &o
	}
	return secure.New(*opts).Handler
}
