// Package server wires configuration, models, tools and storage into the
// itinerary planner web service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/go-chi/chi/v5"
	"github.com/lewisedginton/itinerary_planner/internal/archive"
	appconfig "github.com/lewisedginton/itinerary_planner/internal/config"
	"github.com/lewisedginton/itinerary_planner/internal/crew"
	"github.com/lewisedginton/itinerary_planner/internal/itinerary"
	"github.com/lewisedginton/itinerary_planner/internal/models/anthropic"
	"github.com/lewisedginton/itinerary_planner/internal/models/openai"
	"github.com/lewisedginton/itinerary_planner/internal/planner"
	"github.com/lewisedginton/itinerary_planner/internal/tools/serper_search"
	"github.com/lewisedginton/itinerary_planner/internal/tools/tavily_search"
	"github.com/lewisedginton/itinerary_planner/internal/web"
	"github.com/lewisedginton/itinerary_planner/pkg/health"
	"github.com/lewisedginton/itinerary_planner/pkg/health/checkers"
	"github.com/lewisedginton/itinerary_planner/pkg/httpmiddleware"
	"github.com/lewisedginton/itinerary_planner/pkg/logger"
	"github.com/lewisedginton/itinerary_planner/pkg/metrics"
	"github.com/muesli/termenv"
	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/tool"
	"google.golang.org/genai"
)

const shutdownTimeout = 30 * time.Second

// Server encapsulates the web service and its lifecycle.
type Server struct {
	cfg        *appconfig.AppConfig
	log        logger.Logger
	metrics    *metrics.Metrics
	health     *health.HealthChecker
	planner    *planner.Planner
	router     chi.Router
	httpServer *http.Server
	cancel     context.CancelFunc
}

// New creates a Server with all components initialized.
func New(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: metrics.NewMetrics(cfg.Metrics.EnableHTTPMetrics, cfg.Metrics.EnableJobMetrics, log),
	}

	var err error
	// the trace is ANSI coloured like a terminal run; the log stream strips it
	s.planner, err = NewPlanner(ctx, cfg, log, PlannerOptions{Metrics: s.metrics, Profile: termenv.ANSI})
	if err != nil {
		return nil, err
	}

	s.health = s.createHealthChecker()

	webCfg := web.Config{
		Planner:        s.planner,
		Logger:         log,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}
	if store := s.planner.Archive(); store != nil {
		webCfg.Archive = store
	}
	ui, err := web.New(webCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create web handler: %w", err)
	}

	s.router = s.createRouter(ui)
	s.httpServer = &http.Server{
		Addr:           cfg.HTTP.Addr(),
		Handler:        s.router,
		ReadTimeout:    cfg.HTTP.ReadTimeout(),
		WriteTimeout:   cfg.HTTP.WriteTimeout(),
		IdleTimeout:    cfg.HTTP.IdleTimeout(),
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}
	return s, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled or a shutdown signal arrives.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	s.setupGracefulShutdown()

	if s.cfg.Metrics.ExposeMetrics {
		s.metrics.Listen(ctx, s.cfg.Metrics.Port)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", logger.StringField("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout) //nolint:contextcheck // parent is already cancelled
	defer shutdownCancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil { //nolint:contextcheck // using new context for graceful shutdown
		s.log.Error("HTTP server shutdown error", logger.ErrorField(err))
		return err
	}
	s.log.Info("HTTP server stopped")
	return nil
}

// setupGracefulShutdown cancels Run on SIGINT/SIGTERM and force exits if
// in-flight runs outlive the shutdown timeout.
func (s *Server) setupGracefulShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		s.log.Info("Received shutdown signal", logger.StringField("signal", sig.String()))
		if s.cancel != nil {
			s.cancel()
		}
		time.AfterFunc(shutdownTimeout+5*time.Second, func() {
			s.log.Warn("Force exiting due to timeout")
			os.Exit(1)
		})
	}()
}

func (s *Server) createRouter(ui *web.Handler) chi.Router {
	r := chi.NewRouter()

	mw := httpmiddleware.DefaultConfig()
	mw.Logger = s.log
	mw.EnableLogging = true
	mw.StreamingPaths = []string{web.StreamPath}
	mw.Extra = append(mw.Extra, s.metrics.HTTPMiddleware())
	if len(s.cfg.HTTP.AllowedOrigins) > 0 {
		mw.CORS.AllowedOrigins = s.cfg.HTTP.AllowedOrigins
	}
	// /run blocks for the whole pipeline
	mw.Timeout = s.cfg.Pipeline.RunTimeout + 30*time.Second
	httpmiddleware.ApplyToRouter(r, mw)

	if s.cfg.Health.Enabled {
		r.Get("/healthz", s.health.LivenessHandler())
		r.Get("/readyz", s.health.ReadinessHandler())
	}
	ui.Routes(r)
	return r
}

func (s *Server) createHealthChecker() *health.HealthChecker {
	hc := health.New(
		health.WithLogger(s.log),
		health.WithTimeout(s.cfg.Health.Timeout),
		health.WithFailureThreshold(s.cfg.Health.FailureThreshold),
	)
	hc.AddLivenessCheck(health.NewCheckFunc("planner", func(context.Context) error {
		if s.planner == nil {
			return errors.New("planner not initialized")
		}
		return nil
	}))

	client := &http.Client{Timeout: s.cfg.Health.Timeout}
	hc.AddReadinessCheck(checkers.NewHTTPChecker(s.cfg.LLM.BaseURL(), "llm_"+s.cfg.LLM.Provider, checkers.WithClient(client)))
	hc.AddReadinessCheck(checkers.NewHTTPChecker(s.cfg.Search.Tavily.BaseURL, tavily_search.ToolName, checkers.WithClient(client)))
	hc.AddReadinessCheck(checkers.NewHTTPChecker(s.cfg.Search.Serper.BaseURL, serper_search.ToolName, checkers.WithClient(client)))
	return hc
}

// PlannerOptions carries the settings that differ between the web service
// and a terminal run.
type PlannerOptions struct {
	Metrics *metrics.Metrics
	Profile termenv.Profile
}

// NewPlanner builds the model, tools and archive from cfg.
func NewPlanner(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger, opts PlannerOptions) (*planner.Planner, error) {
	llm, err := createLLMModel(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM model: %w", err)
	}

	search, err := createSearchTools(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create search tools: %w", err)
	}

	store, err := archive.Open(ctx, cfg.Archive, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if store != nil {
		log.Info("Itinerary archive enabled", logger.StringField("backend", cfg.Archive.Backend))
	}

	return planner.New(planner.Config{
		LLM: llm,
		Tools: itinerary.Tools{
			Search: search,
			MCP:    crew.NewMCPToolsets(cfg.MCP, log),
		},
		Archive:          store,
		Metrics:          opts.Metrics,
		Logger:           log,
		Verbose:          cfg.Pipeline.Verbose,
		Timeout:          cfg.Pipeline.RunTimeout,
		ObservationLimit: cfg.Pipeline.ObservationLimit,
		Profile:          opts.Profile,
	})
}

// createSearchTools builds both search tools bound to the agents.
func createSearchTools(cfg *appconfig.AppConfig) ([]tool.Tool, error) {
	tavily, err := tavily_search.New(tavily_search.Config{
		APIKey:     cfg.Search.Tavily.APIKey,
		BaseURL:    cfg.Search.Tavily.BaseURL,
		MaxResults: cfg.Search.Tavily.MaxResults,
		Timeout:    cfg.Search.Tavily.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}

	serper, err := serper_search.New(serper_search.Config{
		APIKey:     cfg.Search.Serper.APIKey,
		BaseURL:    cfg.Search.Serper.BaseURL,
		NumResults: cfg.Search.Serper.NumResults,
		Timeout:    cfg.Search.Serper.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("serper: %w", err)
	}

	return []tool.Tool{tavily, serper}, nil
}

// createLLMModel creates the model shared by both agents.
func createLLMModel(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger) (model.LLM, error) {
	provider := strings.ToLower(cfg.LLM.Provider)
	log = log.WithFields(logger.StringField("provider", provider), logger.StringField("model", cfg.LLM.ModelName()))

	switch provider {
	case appconfig.ProviderGroq:
		log.Info("Initializing Groq model")
		groq := cfg.LLM.Groq
		return openai.New(openai.Config{
			APIKey:     groq.APIKey,
			Model:      groq.Model,
			BaseURL:    groq.APIBaseURL,
			MaxRetries: groq.MaxRetries,
			Timeout:    groq.Timeout,
			Logger:     log,
		})

	case appconfig.ProviderOpenAI:
		log.Info("Initializing OpenAI model")
		oa := cfg.LLM.OpenAI
		return openai.New(openai.Config{
			APIKey:     oa.APIKey,
			Model:      oa.Model,
			BaseURL:    oa.APIBaseURL,
			MaxRetries: oa.MaxRetries,
			Timeout:    oa.Timeout,
			Logger:     log,
		})

	case appconfig.ProviderClaude:
		log.Info("Initializing Claude model")
		c := cfg.LLM.Anthropic
		return anthropic.NewClaudeModel(anthropic.Config{
			APIKey:    c.APIKey,
			Model:     c.Model,
			MaxTokens: c.MaxTokens,
			Logger:    log,
		},
			anthropicoption.WithBaseURL(c.APIBaseURL),
			anthropicoption.WithMaxRetries(c.MaxRetries),
			anthropicoption.WithRequestTimeout(c.Timeout),
		)

	case appconfig.ProviderGemini:
		log.Info("Initializing Gemini model")
		return gemini.NewModel(ctx, cfg.LLM.Gemini.Model, &genai.ClientConfig{
			APIKey:  cfg.LLM.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
