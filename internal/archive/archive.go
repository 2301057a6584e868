// Package archive persists completed itinerary runs as JSON records on the
// local filesystem or in S3.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lewisedginton/itinerary_planner/internal/config"
	"github.com/lewisedginton/itinerary_planner/internal/crew"
	"github.com/lewisedginton/itinerary_planner/internal/itinerary"
	"github.com/lewisedginton/itinerary_planner/pkg/logger"
	"github.com/lewisedginton/itinerary_planner/pkg/prefixed_uuid"
)

const (
	namespace = "itineraries"
	extension = ".json"
)

// ErrInvalidID is returned for ids that are not run ids.
var ErrInvalidID = errors.New("invalid run id")

// Record is one archived run.
type Record struct {
	ID             prefixed_uuid.PrefixedUUID `json:"id"`
	Request        itinerary.TripRequest      `json:"request"`
	Itinerary      string                     `json:"itinerary"`
	Tasks          []crew.TaskOutput          `json:"tasks,omitempty"`
	ElapsedSeconds float64                    `json:"elapsed_seconds"`
	CreatedAt      time.Time                  `json:"created_at"`
}

// Store reads and writes records under the itineraries/ namespace.
type Store struct {
	provider FileProvider
	log      logger.Logger
}

// NewStore scopes provider to the itineraries namespace.
func NewStore(provider FileProvider, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Store{provider: NewPrefixedFileProvider(provider, namespace), log: log}
}

// Open builds the store for the configured backend. It returns nil for the
// none backend; callers treat a nil store as a disabled archive.
func Open(ctx context.Context, cfg config.ArchiveConfig, log logger.Logger) (*Store, error) {
	switch cfg.Backend {
	case "", config.ArchiveNone:
		return nil, nil
	case config.ArchiveLocal:
		return NewStore(NewLocalFileProvider(cfg.LocalDir), log), nil
	case config.ArchiveS3:
		client, err := LoadS3Client(ctx, cfg.S3Region, cfg.S3Profile)
		if err != nil {
			return nil, err
		}
		return NewStore(NewS3FileProvider(cfg.S3Bucket, cfg.S3Prefix, client), log), nil
	default:
		return nil, fmt.Errorf("unsupported archive backend: %s", cfg.Backend)
	}
}

// Save writes rec, assigning an id and timestamp when missing.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec.ID.IsZero() {
		rec.ID = prefixed_uuid.NewRunID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := s.provider.Write(ctx, rec.ID.String()+extension, data); err != nil {
		return fmt.Errorf("failed to save run %s: %w", rec.ID, err)
	}

	s.log.Debug("Itinerary archived", logger.RunIDField(rec.ID.String()), logger.IntField("bytes", len(data)))
	return nil
}

// Get loads one record. Unknown runs return ErrNotFound and malformed ids
// return ErrInvalidID, so untrusted ids never reach a storage key.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	runID, err := prefixed_uuid.ParseWithPrefix(id, prefixed_uuid.RunPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}

	data, err := s.provider.Read(ctx, runID.String()+extension)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", runID, err)
	}
	return &rec, nil
}

// List returns the ids of all archived runs, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	files, err := s.provider.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	ids := make([]string, 0, len(files))
	for _, f := range files {
		name, ok := strings.CutSuffix(f, extension)
		if !ok || strings.Contains(name, "/") {
			continue
		}
		if _, err := prefixed_uuid.ParseWithPrefix(name, prefixed_uuid.RunPrefix); err != nil {
			continue
		}
		ids = append(ids, name)
	}
	slices.Sort(ids)
	return ids, nil
}
