// Package planner runs the itinerary crew for one trip request and records
// the outcome in metrics and the archive.
package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lewisedginton/itinerary_planner/internal/archive"
	"github.com/lewisedginton/itinerary_planner/internal/crew"
	"github.com/lewisedginton/itinerary_planner/internal/itinerary"
	"github.com/lewisedginton/itinerary_planner/pkg/logger"
	"github.com/lewisedginton/itinerary_planner/pkg/metrics"
	"github.com/lewisedginton/itinerary_planner/pkg/prefixed_uuid"
	"github.com/muesli/termenv"
	"google.golang.org/adk/model"
)

const appName = "itinerary_planner"

// Config holds the planner's dependencies. Archive and Metrics are optional.
type Config struct {
	LLM   model.LLM
	Tools itinerary.Tools

	Archive *archive.Store
	Metrics *metrics.Metrics
	Logger  logger.Logger

	// Verbose controls whether the crew trace reaches the caller's writer.
	Verbose bool
	// Timeout bounds a whole run; zero means no limit beyond the caller's context.
	Timeout          time.Duration
	ObservationLimit int
	Profile          termenv.Profile
}

// Planner turns trip requests into itineraries.
type Planner struct {
	cfg Config
	log logger.Logger
}

// New validates cfg and returns a planner.
func New(cfg Config) (*Planner, error) {
	if cfg.LLM == nil {
		return nil, errors.New("planner requires an LLM")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Planner{cfg: cfg, log: log.WithFields(logger.StringField("component", "planner"))}, nil
}

// Plan runs both tasks for req, streaming the trace to trace when verbose.
// The returned record carries the run id, the final itinerary and the time
// taken. Archive failures are logged and do not fail the run.
func (p *Planner) Plan(ctx context.Context, req itinerary.TripRequest, trace io.Writer) (*archive.Record, error) {
	runID := prefixed_uuid.NewRunID()
	log := logger.GetLoggerFromContext(ctx, p.log).WithFields(logger.RunIDField(runID.String()))
	log.Info("Starting itinerary run", logger.StringField("trip", req.Summary()))

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	base := crew.Config{
		AppName:          appName,
		Profile:          p.cfg.Profile,
		ObservationLimit: p.cfg.ObservationLimit,
		Logger:           log,
	}
	if p.cfg.Verbose && trace != nil {
		base.Verbose = trace
	}
	if p.cfg.Metrics != nil {
		base.Observer = p.cfg.Metrics
	}

	c, err := itinerary.BuildCrew(req, p.cfg.LLM, p.cfg.Tools, base)
	if err != nil {
		return nil, fmt.Errorf("failed to build crew: %w", err)
	}

	p.cfg.Metrics.RunStarted()
	start := time.Now()
	result, err := c.Kickoff(ctx)
	elapsed := time.Since(start)
	p.cfg.Metrics.RunFinished(elapsed, err)
	if err != nil {
		log.Error("Itinerary run failed", logger.ErrorField(err), logger.DurationField("elapsed", elapsed))
		return nil, err
	}

	record := &archive.Record{
		ID:             runID,
		Request:        req,
		Itinerary:      result.Output,
		Tasks:          result.Tasks,
		ElapsedSeconds: elapsed.Seconds(),
		CreatedAt:      start.UTC(),
	}
	log.Info("Itinerary run completed", logger.DurationField("elapsed", elapsed))

	if p.cfg.Archive != nil {
		if err := p.cfg.Archive.Save(ctx, record); err != nil {
			log.Warn("Failed to archive itinerary", logger.ErrorField(err))
		}
	}
	return record, nil
}

// Archive returns the configured store, or nil when archiving is disabled.
func (p *Planner) Archive() *archive.Store {
	return p.cfg.Archive
}
