// Package tv provides the series side of the library catalog.
package tv

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/apperr"
	"github.com/levijay/mediastack/internal/database"
)

// Publisher receives catalog events for the activity stream.
type Publisher interface {
	Publish(event string, payload any)
}

// Service provides series, season, and episode catalog operations.
type Service struct {
	db      *sql.DB
	queries *database.Queries
	events  Publisher
	logger  zerolog.Logger
}

// NewService creates the TV catalog service.
func NewService(db *sql.DB, events Publisher, logger zerolog.Logger) *Service {
	return &Service{
		db:      db,
		queries: database.NewQueries(db),
		events:  events,
		logger:  logger.With().Str("component", "tv").Logger(),
	}
}

// CreateSeriesInput is the user- or list-supplied portion of a new series.
type CreateSeriesInput struct {
	TvdbID            int    `json:"tvdbId"`
	TmdbID            int    `json:"tmdbId"`
	ImdbID            string `json:"imdbId"`
	Title             string `json:"title"`
	Year              int    `json:"year"`
	SeriesType        string `json:"seriesType"`
	MonitorNewSeasons string `json:"monitorNewSeasons"`
	UseSeasonFolder   bool   `json:"useSeasonFolder"`
	Monitored         bool   `json:"monitored"`
	QualityProfileID  string `json:"qualityProfileId"`
	FolderPath        string `json:"folderPath"`
}

// Get retrieves a series.
func (s *Service) Get(ctx context.Context, id string) (*database.Series, error) {
	return s.queries.GetSeries(ctx, id)
}

// List returns all series.
func (s *Service) List(ctx context.Context) ([]*database.Series, error) {
	return s.queries.ListSeries(ctx)
}

// Create adds a series to the catalog.
func (s *Service) Create(ctx context.Context, input CreateSeriesInput) (*database.Series, error) {
	if input.Title == "" {
		return nil, apperr.Validation("series title is required")
	}
	if input.TvdbID > 0 {
		if _, err := s.queries.GetSeriesByTvdbID(ctx, input.TvdbID); err == nil {
			return nil, apperr.Conflict("series with TVDB id %d already exists", input.TvdbID)
		} else if !apperr.IsNotFound(err) {
			return nil, err
		}
	}

	seriesType := input.SeriesType
	if seriesType == "" {
		seriesType = "standard"
	}
	monitorNewSeasons := input.MonitorNewSeasons
	if monitorNewSeasons == "" {
		monitorNewSeasons = MonitorNewSeasonsAll
	}

	series := &database.Series{
		ID:                uuid.NewString(),
		TvdbID:            input.TvdbID,
		TmdbID:            input.TmdbID,
		ImdbID:            input.ImdbID,
		Title:             input.Title,
		Year:              input.Year,
		SeriesType:        seriesType,
		MonitorNewSeasons: monitorNewSeasons,
		UseSeasonFolder:   input.UseSeasonFolder,
		Monitored:         input.Monitored,
		QualityProfileID:  input.QualityProfileID,
		FolderPath:        input.FolderPath,
	}

	err := database.InTx(ctx, s.db, func(q *database.Queries) error {
		if err := q.CreateSeries(ctx, series); err != nil {
			return err
		}
		message := fmt.Sprintf("Added %s (%d)", series.Title, series.Year)
		_, err := q.AppendHistory(ctx, "series", series.ID, database.HistoryEventAdded, message, "{}")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("id", series.ID).Str("title", series.Title).Msg("Created series")
	s.publish("series_added", series)
	return series, nil
}

// Update persists edits to a series row.
func (s *Service) Update(ctx context.Context, series *database.Series) error {
	return s.queries.UpdateSeries(ctx, series)
}

// Delete removes a series. Seasons and episodes cascade at the database
// layer; files are removed only when deleteFiles is set.
func (s *Service) Delete(ctx context.Context, id string, deleteFiles bool) error {
	series, err := s.queries.GetSeries(ctx, id)
	if err != nil {
		return err
	}

	var filePaths []string
	if deleteFiles {
		episodes, err := s.queries.ListEpisodes(ctx, id)
		if err != nil {
			return err
		}
		for _, ep := range episodes {
			if ep.FilePath != "" {
				filePaths = append(filePaths, ep.FilePath)
			}
		}
	}

	err = database.InTx(ctx, s.db, func(q *database.Queries) error {
		if err := q.DeleteSeries(ctx, id); err != nil {
			return err
		}
		message := fmt.Sprintf("Removed %s (%d)", series.Title, series.Year)
		_, err := q.AppendHistory(ctx, "series", id, database.HistoryEventRemoved, message, "{}")
		return err
	})
	if err != nil {
		return err
	}

	for _, path := range filePaths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", path).Msg("Failed to delete episode file")
		}
	}
	s.publish("series_removed", series)
	return nil
}

// Seasons lists a series' seasons.
func (s *Service) Seasons(ctx context.Context, seriesID string) ([]*database.Season, error) {
	return s.queries.ListSeasons(ctx, seriesID)
}

// Episodes lists a series' episodes.
func (s *Service) Episodes(ctx context.Context, seriesID string) ([]*database.Episode, error) {
	return s.queries.ListEpisodes(ctx, seriesID)
}

// ClearEpisodeFile drops an episode's file state.
func (s *Service) ClearEpisodeFile(ctx context.Context, episodeID string) error {
	return s.queries.ClearEpisodeFile(ctx, episodeID)
}

func (s *Service) publish(event string, payload any) {
	if s.events != nil {
		s.events.Publish(event, payload)
	}
}
