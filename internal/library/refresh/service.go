// Package refresh reconciles the catalog with the filesystem: it clears
// file state for media whose files vanished and attaches files found by a
// root folder scan.
package refresh

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/indexer/search"
	"github.com/levijay/mediastack/internal/library/scanner"
)

// Publisher receives refresh events for the activity stream.
type Publisher interface {
	Publish(event string, payload any)
}

// Result summarizes one refresh pass.
type Result struct {
	MoviesCleared   int `json:"moviesCleared"`
	EpisodesCleared int `json:"episodesCleared"`
	MoviesMatched   int `json:"moviesMatched"`
	EpisodesMatched int `json:"episodesMatched"`
	FilesScanned    int `json:"filesScanned"`
	ScanErrors      int `json:"scanErrors"`
}

// Service runs the library-refresh worker pass.
type Service struct {
	queries *database.Queries
	scanner *scanner.Service
	events  Publisher
	logger  zerolog.Logger
}

// NewService creates the refresh service.
func NewService(db *sql.DB, scannerSvc *scanner.Service, events Publisher, logger zerolog.Logger) *Service {
	return &Service{
		queries: database.NewQueries(db),
		scanner: scannerSvc,
		events:  events,
		logger:  logger.With().Str("component", "refresh").Logger(),
	}
}

// Refresh is one worker pass: verify recorded files still exist, then scan
// every root folder and attach unclaimed files to fileless catalog entries.
func (s *Service) Refresh(ctx context.Context) (*Result, error) {
	result := &Result{}
	if err := s.verifyFiles(ctx, result); err != nil {
		return result, err
	}
	if err := s.scanRootFolders(ctx, result); err != nil {
		return result, err
	}

	s.logger.Info().
		Int("moviesCleared", result.MoviesCleared).
		Int("episodesCleared", result.EpisodesCleared).
		Int("moviesMatched", result.MoviesMatched).
		Int("episodesMatched", result.EpisodesMatched).
		Int("filesScanned", result.FilesScanned).
		Msg("Library refresh completed")
	if s.events != nil {
		s.events.Publish("scan_completed", result)
	}
	return result, nil
}

// verifyFiles clears the file columns of any movie or episode whose
// recorded file no longer exists on disk.
func (s *Service) verifyFiles(ctx context.Context, result *Result) error {
	movies, err := s.queries.ListMoviesWithFiles(ctx)
	if err != nil {
		return err
	}
	for _, movie := range movies {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if movie.FilePath == "" || fileExists(movie.FilePath) {
			continue
		}
		if err := s.queries.ClearMovieFile(ctx, movie.ID); err != nil {
			return err
		}
		message := fmt.Sprintf("File missing on disk: %s", movie.FilePath)
		if _, err := s.queries.AppendHistory(ctx, "movie", movie.ID, database.HistoryEventDeleted, message, "{}"); err != nil {
			s.logger.Warn().Err(err).Str("movie", movie.ID).Msg("Failed to append history")
		}
		result.MoviesCleared++
	}

	episodes, err := s.queries.ListEpisodesWithFiles(ctx)
	if err != nil {
		return err
	}
	for _, episode := range episodes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if episode.FilePath == "" || fileExists(episode.FilePath) {
			continue
		}
		if err := s.queries.ClearEpisodeFile(ctx, episode.ID); err != nil {
			return err
		}
		message := fmt.Sprintf("File missing on disk: %s", episode.FilePath)
		if _, err := s.queries.AppendHistory(ctx, "episode", episode.ID, database.HistoryEventDeleted, message, "{}"); err != nil {
			s.logger.Warn().Err(err).Str("episode", episode.ID).Msg("Failed to append history")
		}
		result.EpisodesCleared++
	}
	return nil
}

// scanRootFolders walks every configured root and attaches found files to
// catalog entries that have none.
func (s *Service) scanRootFolders(ctx context.Context, result *Result) error {
	folders, err := s.queries.ListRootFolders(ctx)
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		return nil
	}

	movieIndex, err := s.movieIndex(ctx)
	if err != nil {
		return err
	}
	episodeIndex, seriesIDs, err := s.episodeIndex(ctx)
	if err != nil {
		return err
	}

	for _, folder := range folders {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		scan, err := s.scanner.ScanFolder(ctx, folder.Path, folder.MediaType)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", folder.Path).Msg("Root folder scan failed")
			result.ScanErrors++
			continue
		}
		result.FilesScanned += scan.TotalFiles
		result.ScanErrors += len(scan.Errors)

		for i := range scan.Movies {
			if s.attachMovie(ctx, movieIndex, &scan.Movies[i]) {
				result.MoviesMatched++
			}
		}
		for i := range scan.Episodes {
			if s.attachEpisode(ctx, episodeIndex, seriesIDs, &scan.Episodes[i]) {
				result.EpisodesMatched++
			}
		}
	}
	return nil
}

// movieIndex maps normalized title -> fileless movies.
func (s *Service) movieIndex(ctx context.Context) (map[string][]*database.Movie, error) {
	hasFile := false
	movies, err := s.queries.ListMovies(ctx, database.MovieFilter{HasFile: &hasFile})
	if err != nil {
		return nil, err
	}
	index := make(map[string][]*database.Movie)
	for _, movie := range movies {
		key := search.NormalizeTitle(movie.Title)
		index[key] = append(index[key], movie)
	}
	return index, nil
}

// episodeIndex maps normalized series title -> series id, plus per-series
// fileless episodes keyed by (season, episode).
type episodeKey struct {
	seriesID string
	season   int
	episode  int
}

func (s *Service) episodeIndex(ctx context.Context) (map[episodeKey]*database.Episode, map[string]string, error) {
	series, err := s.queries.ListSeries(ctx)
	if err != nil {
		return nil, nil, err
	}
	seriesIDs := make(map[string]string, len(series))
	index := make(map[episodeKey]*database.Episode)
	for _, sr := range series {
		seriesIDs[search.NormalizeTitle(sr.Title)] = sr.ID
		episodes, err := s.queries.ListEpisodes(ctx, sr.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, ep := range episodes {
			if ep.HasFile {
				continue
			}
			index[episodeKey{sr.ID, ep.SeasonNumber, ep.EpisodeNumber}] = ep
		}
	}
	return index, seriesIDs, nil
}

func (s *Service) attachMovie(ctx context.Context, index map[string][]*database.Movie, parsed *scanner.ParsedRelease) bool {
	for _, movie := range index[search.NormalizeTitle(parsed.Title)] {
		if movie.HasFile {
			continue
		}
		if parsed.Year != 0 && movie.Year != 0 && parsed.Year != movie.Year {
			continue
		}
		err := s.queries.UpdateMovieFile(ctx, movie.ID, parsed.FilePath, parsed.FileSize,
			parsed.Quality, parsed.Codec, "", parsed.ReleaseGroup, parsed.IsProper, parsed.IsRepack)
		if err != nil {
			s.logger.Warn().Err(err).Str("movie", movie.ID).Msg("Failed to attach file")
			return false
		}
		movie.HasFile = true
		s.logger.Debug().Str("movie", movie.Title).Str("file", parsed.FilePath).Msg("Attached scanned file")
		return true
	}
	return false
}

func (s *Service) attachEpisode(ctx context.Context, index map[episodeKey]*database.Episode, seriesIDs map[string]string, parsed *scanner.ParsedRelease) bool {
	seriesID, ok := seriesIDs[search.NormalizeTitle(parsed.Title)]
	if !ok || parsed.Season == 0 && parsed.Episode == 0 {
		return false
	}
	episode, ok := index[episodeKey{seriesID, parsed.Season, parsed.Episode}]
	if !ok {
		return false
	}
	err := s.queries.UpdateEpisodeFile(ctx, episode.ID, parsed.FilePath, parsed.FileSize,
		parsed.Quality, parsed.Codec, "", parsed.ReleaseGroup, parsed.IsProper, parsed.IsRepack)
	if err != nil {
		s.logger.Warn().Err(err).Str("episode", episode.ID).Msg("Failed to attach file")
		return false
	}
	delete(index, episodeKey{seriesID, parsed.Season, parsed.Episode})
	return true
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
