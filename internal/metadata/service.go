package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/library/tv"
)

// Publisher receives refresh events for the activity stream.
type Publisher interface {
	Publish(event string, payload any)
}

// Service refreshes catalog rows from the configured provider. Library
// state (monitoring, files, profile) is never touched; only descriptive
// fields and the season/episode structure are.
type Service struct {
	db       *sql.DB
	queries  *database.Queries
	provider Provider
	events   Publisher
	logger   zerolog.Logger
}

// NewService creates the metadata refresh service.
func NewService(db *sql.DB, provider Provider, events Publisher, logger zerolog.Logger) *Service {
	return &Service{
		db:       db,
		queries:  database.NewQueries(db),
		provider: provider,
		events:   events,
		logger:   logger.With().Str("component", "metadata").Logger(),
	}
}

// Provider returns the wrapped provider, for callers that need raw lookups.
func (s *Service) Provider() Provider { return s.provider }

// RefreshMovie reloads a movie's descriptive fields from the provider.
// Movies without a TMDB id are left alone.
func (s *Service) RefreshMovie(ctx context.Context, id string) error {
	movie, err := s.queries.GetMovie(ctx, id)
	if err != nil {
		return err
	}
	if !movie.TmdbID.Valid {
		return nil
	}

	result, err := s.provider.GetMovie(ctx, movie.TmdbID.Int64)
	if err != nil {
		return fmt.Errorf("fetch movie metadata: %w", err)
	}

	applyMovieResult(movie, result)
	if err := s.queries.UpdateMovie(ctx, movie); err != nil {
		return err
	}
	s.logger.Debug().Str("id", id).Str("title", movie.Title).Msg("Refreshed movie metadata")
	s.publish("movie_refreshed", movie)
	return nil
}

func applyMovieResult(movie *database.Movie, r *MovieResult) {
	if r.Title != "" {
		movie.Title = r.Title
	}
	if r.Year > 0 {
		movie.Year = r.Year
	}
	if r.Runtime > 0 {
		movie.Runtime = r.Runtime
	}
	if r.Overview != "" {
		movie.Overview = r.Overview
	}
	if r.Status != "" {
		movie.Status = r.Status
	}
	if r.ImdbID != "" {
		movie.ImdbID = r.ImdbID
	}
	movie.Certification = r.Certification
	movie.CollectionTitle = r.CollectionTitle
	movie.VoteAverage = r.VoteAverage
	if r.PosterPath != "" {
		movie.PosterPath = r.PosterPath
	}
	if r.BackdropPath != "" {
		movie.BackdropPath = r.BackdropPath
	}
	movie.TheatricalRelease = nullString(r.TheatricalRelease)
	movie.DigitalRelease = nullString(r.DigitalRelease)
	movie.PhysicalRelease = nullString(r.PhysicalRelease)
	movie.Directors = jsonArray(r.Directors)
	movie.Writers = jsonArray(r.Writers)
	movie.CastMembers = jsonArray(r.Cast)
	movie.Genres = jsonArray(r.Genres)
}

// RefreshSeries reloads a series' descriptive fields and reconciles its
// season and episode rows against the provider, all in one transaction.
// New seasons start monitored per the series' monitor_new_seasons mode;
// specials never auto-monitor.
func (s *Service) RefreshSeries(ctx context.Context, id string) error {
	series, err := s.queries.GetSeries(ctx, id)
	if err != nil {
		return err
	}
	if series.TmdbID == 0 {
		return nil
	}

	result, err := s.provider.GetSeries(ctx, series.TmdbID)
	if err != nil {
		return fmt.Errorf("fetch series metadata: %w", err)
	}

	if result.Title != "" {
		series.Title = result.Title
	}
	if result.Year > 0 {
		series.Year = result.Year
	}
	series.Network = result.Network
	if result.Status != "" {
		series.Status = result.Status
	}
	if result.Overview != "" {
		series.Overview = result.Overview
	}
	if result.TvdbID > 0 {
		series.TvdbID = result.TvdbID
	}
	if result.ImdbID != "" {
		series.ImdbID = result.ImdbID
	}
	if result.PosterPath != "" {
		series.PosterPath = result.PosterPath
	}

	err = database.InTx(ctx, s.db, func(q *database.Queries) error {
		if err := q.UpdateSeries(ctx, series); err != nil {
			return err
		}
		return s.reconcileSeasons(ctx, q, series, result)
	})
	if err != nil {
		return err
	}

	s.logger.Debug().Str("id", id).Str("title", series.Title).Msg("Refreshed series metadata")
	s.publish("series_refreshed", series)
	return nil
}

// reconcileSeasons creates missing season and episode rows and updates the
// descriptive fields of existing episodes.
func (s *Service) reconcileSeasons(ctx context.Context, q *database.Queries, series *database.Series, result *SeriesResult) error {
	existing, err := q.ListSeasons(ctx, series.ID)
	if err != nil {
		return err
	}
	known := make(map[int]*database.Season, len(existing))
	previousLatest := 0
	for _, season := range existing {
		known[season.SeasonNumber] = season
		if season.SeasonNumber > previousLatest {
			previousLatest = season.SeasonNumber
		}
	}

	episodes, err := q.ListEpisodes(ctx, series.ID)
	if err != nil {
		return err
	}
	byNumber := make(map[[2]int]*database.Episode, len(episodes))
	for _, ep := range episodes {
		byNumber[[2]int{ep.SeasonNumber, ep.EpisodeNumber}] = ep
	}

	// Absolute numbering walks the ordered season list, specials excluded.
	absolute := 0
	for _, season := range result.Seasons {
		monitored := false
		if row, ok := known[season.SeasonNumber]; ok {
			monitored = row.Monitored
		} else {
			monitored = series.Monitored &&
				tv.ShouldMonitorNewSeason(series, season.SeasonNumber, previousLatest)
			if err := q.CreateSeason(ctx, &database.Season{
				ID:           uuid.NewString(),
				SeriesID:     series.ID,
				SeasonNumber: season.SeasonNumber,
				Monitored:    monitored,
			}); err != nil {
				return err
			}
		}

		for _, ep := range season.Episodes {
			abs := ep.AbsoluteNumber
			if season.SeasonNumber > 0 {
				absolute++
				if abs == 0 {
					abs = absolute
				}
			}

			if row, ok := byNumber[[2]int{season.SeasonNumber, ep.EpisodeNumber}]; ok {
				if err := q.UpdateEpisodeMetadata(ctx, row.ID, ep.Title, ep.Overview,
					nullString(ep.AirDate), abs); err != nil {
					return err
				}
				continue
			}
			if err := q.CreateEpisode(ctx, &database.Episode{
				ID:             uuid.NewString(),
				SeriesID:       series.ID,
				SeasonNumber:   season.SeasonNumber,
				EpisodeNumber:  ep.EpisodeNumber,
				AbsoluteNumber: abs,
				Title:          ep.Title,
				Overview:       ep.Overview,
				AirDate:        nullString(ep.AirDate),
				Monitored:      monitored,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// RefreshAll is one pass of the metadata-refresh worker: every movie and
// series is refreshed sequentially. Per-item failures are logged and
// counted, never fatal.
func (s *Service) RefreshAll(ctx context.Context) error {
	moviesList, err := s.queries.ListMovies(ctx, database.MovieFilter{})
	if err != nil {
		return err
	}
	seriesList, err := s.queries.ListSeries(ctx)
	if err != nil {
		return err
	}

	var failed int
	for _, movie := range moviesList {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.RefreshMovie(ctx, movie.ID); err != nil {
			failed++
			s.logger.Warn().Err(err).Str("movie", movie.ID).Msg("Movie refresh failed")
		}
	}
	for _, series := range seriesList {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.RefreshSeries(ctx, series.ID); err != nil {
			failed++
			s.logger.Warn().Err(err).Str("series", series.ID).Msg("Series refresh failed")
		}
	}

	s.logger.Info().
		Int("movies", len(moviesList)).
		Int("series", len(seriesList)).
		Int("failed", failed).
		Msg("Metadata refresh completed")
	return nil
}

func (s *Service) publish(event string, payload any) {
	if s.events != nil {
		s.events.Publish(event, payload)
	}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func jsonArray(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}
