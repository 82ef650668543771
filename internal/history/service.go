// Package history exposes the activity log.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/database"
)

// Retention is how long activity rows are kept before the cleanup worker
// removes them.
const Retention = 7 * 24 * time.Hour

// Service reads the activity log and sweeps expired rows.
type Service struct {
	queries *database.Queries
	logger  zerolog.Logger
}

// NewService creates the history service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		queries: database.NewQueries(db),
		logger:  logger.With().Str("component", "history").Logger(),
	}
}

// List returns activity rows, newest first.
func (s *Service) List(ctx context.Context, f database.HistoryFilter) ([]*database.HistoryEntry, error) {
	return s.queries.ListHistory(ctx, f)
}

// Count returns the number of rows matching the filter.
func (s *Service) Count(ctx context.Context, f database.HistoryFilter) (int64, error) {
	return s.queries.CountHistory(ctx, f)
}

// Append records one activity row.
func (s *Service) Append(ctx context.Context, entityType, entityID, eventType, message, data string) (int64, error) {
	return s.queries.AppendHistory(ctx, entityType, entityID, eventType, message, data)
}

// Cleanup removes rows older than Retention. One pass of the
// activity-cleanup worker.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	purged, err := s.queries.PurgeHistoryOlderThan(ctx, time.Now().UTC().Add(-Retention))
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		s.logger.Info().Int64("purged", purged).Msg("Purged old activity rows")
	}
	return purged, nil
}
