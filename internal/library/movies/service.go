// Package movies provides the movie side of the library catalog.
package movies

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

// Service provides movie catalog operations.
type Service struct {
	db      *sql.DB
	queries *database.Queries
	events  Publisher
	logger  zerolog.Logger
}

// NewService creates the movie catalog service.
func NewService(db *sql.DB, events Publisher, logger zerolog.Logger) *Service {
	return &Service{
		db:      db,
		queries: database.NewQueries(db),
		events:  events,
		logger:  logger.With().Str("component", "movies").Logger(),
	}
}

// CreateMovieInput is the user- or list-supplied portion of a new movie.
type CreateMovieInput struct {
	TmdbID              int64  `json:"tmdbId"`
	ImdbID              string `json:"imdbId"`
	Title               string `json:"title"`
	Year                int    `json:"year"`
	Overview            string `json:"overview"`
	MinimumAvailability string `json:"minimumAvailability"`
	QualityProfileID    string `json:"qualityProfileId"`
	FolderPath          string `json:"folderPath"`
	RootFolder          string `json:"rootFolder"`
	Monitored           bool   `json:"monitored"`
}

// Get retrieves a movie.
func (s *Service) Get(ctx context.Context, id string) (*database.Movie, error) {
	return s.queries.GetMovie(ctx, id)
}

// List returns movies matching the filter.
func (s *Service) List(ctx context.Context, f database.MovieFilter) ([]*database.Movie, error) {
	return s.queries.ListMovies(ctx, f)
}

// Create adds a movie to the catalog and logs the addition.
func (s *Service) Create(ctx context.Context, input CreateMovieInput) (*database.Movie, error) {
	if input.Title == "" {
		return nil, apperr.Validation("movie title is required")
	}
	if input.TmdbID > 0 {
		if _, err := s.queries.GetMovieByTmdbID(ctx, input.TmdbID); err == nil {
			return nil, apperr.Conflict("movie with TMDB id %d already exists", input.TmdbID)
		} else if !apperr.IsNotFound(err) {
			return nil, err
		}
	}

	availability := input.MinimumAvailability
	if availability == "" {
		availability = AvailabilityReleased
	}

	movie := &database.Movie{
		ID:                  uuid.NewString(),
		TmdbID:              sql.NullInt64{Int64: input.TmdbID, Valid: input.TmdbID > 0},
		ImdbID:              input.ImdbID,
		Title:               input.Title,
		Year:                input.Year,
		Overview:            input.Overview,
		MinimumAvailability: availability,
		Status:              "announced",
		Monitored:           input.Monitored,
		QualityProfileID:    input.QualityProfileID,
		FolderPath:          input.FolderPath,
	}

	err := database.InTx(ctx, s.db, func(q *database.Queries) error {
		if err := q.CreateMovie(ctx, movie); err != nil {
			return err
		}
		message := fmt.Sprintf("Added %s (%d)", movie.Title, movie.Year)
		_, err := q.AppendHistory(ctx, "movie", movie.ID, database.HistoryEventAdded, message, "{}")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("id", movie.ID).Str("title", movie.Title).Msg("Created movie")
	s.publish("movie_added", movie)
	return movie, nil
}

// Update persists edits to a movie row.
func (s *Service) Update(ctx context.Context, movie *database.Movie) error {
	return s.queries.UpdateMovie(ctx, movie)
}

// SetMonitored toggles monitoring.
func (s *Service) SetMonitored(ctx context.Context, id string, monitored bool) error {
	return s.queries.SetMovieMonitored(ctx, id, monitored)
}

// Delete removes a movie. Files on disk are left alone unless deleteFiles
// is set; addExclusion permanently blocks import lists from re-adding it.
func (s *Service) Delete(ctx context.Context, id string, deleteFiles, addExclusion bool) error {
	movie, err := s.queries.GetMovie(ctx, id)
	if err != nil {
		return err
	}

	err = database.InTx(ctx, s.db, func(q *database.Queries) error {
		if err := q.DeleteMovie(ctx, id); err != nil {
			return err
		}
		if addExclusion && movie.TmdbID.Valid {
			exclusion := &database.Exclusion{
				ID:        uuid.NewString(),
				TmdbID:    movie.TmdbID.Int64,
				MediaType: "movie",
				Title:     movie.Title,
			}
			if err := q.AddExclusion(ctx, exclusion); err != nil && !isConflict(err) {
				return err
			}
		}
		message := fmt.Sprintf("Removed %s (%d)", movie.Title, movie.Year)
		_, err := q.AppendHistory(ctx, "movie", id, database.HistoryEventRemoved, message, "{}")
		return err
	})
	if err != nil {
		return err
	}

	if deleteFiles && movie.FilePath != "" {
		s.removeFile(movie.FilePath)
	}
	s.publish("movie_removed", movie)
	return nil
}

// ClearFile drops a movie's file state after the file disappeared on disk.
func (s *Service) ClearFile(ctx context.Context, id string) error {
	return s.queries.ClearMovieFile(ctx, id)
}

// CountByState reports totals for the dashboard.
type Counts struct {
	Total     int64 `json:"total"`
	Monitored int64 `json:"monitored"`
	WithFile  int64 `json:"withFile"`
	Missing   int64 `json:"missing"`
}

// Count summarizes the movie catalog.
func (s *Service) Count(ctx context.Context) (*Counts, error) {
	total, err := s.queries.CountMovies(ctx, database.MovieFilter{})
	if err != nil {
		return nil, err
	}
	monitored, err := s.queries.CountMovies(ctx, database.MovieFilter{Monitored: ptr(true)})
	if err != nil {
		return nil, err
	}
	withFile, err := s.queries.CountMovies(ctx, database.MovieFilter{HasFile: ptr(true)})
	if err != nil {
		return nil, err
	}
	missing, err := s.queries.CountMovies(ctx, database.MovieFilter{Monitored: ptr(true), Missing: ptr(true)})
	if err != nil {
		return nil, err
	}
	return &Counts{
		Total:     total,
		Monitored: monitored,
		WithFile:  withFile,
		Missing:   missing,
	}, nil
}

func (s *Service) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to delete movie file")
	}
}

func (s *Service) publish(event string, payload any) {
	if s.events != nil {
		s.events.Publish(event, payload)
	}
}

func isConflict(err error) bool {
	return apperr.KindOf(err) == apperr.KindConflict
}

func ptr[T any](v T) *T { return &v }
