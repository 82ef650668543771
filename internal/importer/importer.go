// Package importer moves completed downloads into the library.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/library/scanner"
	"github.com/levijay/mediastack/internal/mediainfo"
	"github.com/levijay/mediastack/internal/renamer"
)

// Service imports completed download payloads into canonical library paths.
type Service struct {
	queries *database.Queries
	naming  *renamer.Service
	probe   mediainfo.Probe
	logger  zerolog.Logger

	// StagingRoot bounds empty-directory cleanup after imports. Nothing at
	// or above this path is ever removed.
	StagingRoot string
}

// NewService creates the importer.
func NewService(queries *database.Queries, naming *renamer.Service, probe mediainfo.Probe, stagingRoot string, logger zerolog.Logger) *Service {
	return &Service{
		queries:     queries,
		naming:      naming,
		probe:       probe,
		logger:      logger.With().Str("component", "importer").Logger(),
		StagingRoot: stagingRoot,
	}
}

// Request describes one completed payload to import.
type Request struct {
	// ContentPath is the completed file or folder reported by the client.
	ContentPath string
	// ReleaseTitle is the grabbed release name, used for quality and
	// season/episode parsing when the file name is unhelpful.
	ReleaseTitle string
	// KeepSource leaves the payload in place (torrent seeding). When false
	// the source file is deleted after a successful copy.
	KeepSource bool
}

// Result reports what one import did.
type Result struct {
	Imported   bool   `json:"imported"`
	Idempotent bool   `json:"idempotent"`
	Path       string `json:"path"`
	LinkMode   string `json:"linkMode,omitempty"`
	FileSize   int64  `json:"fileSize"`
}

// ImportMovie places the payload's main video file at the movie's canonical
// path and updates the catalog row.
func (s *Service) ImportMovie(ctx context.Context, req Request, movie *database.Movie) (*Result, error) {
	source, size, err := findLargestVideo(req.ContentPath)
	if err != nil {
		return nil, err
	}

	parsed := s.parseRelease(req, source)
	info := s.probeInfo(ctx, source)

	cfg, err := s.naming.Config(ctx)
	if err != nil {
		return nil, err
	}

	renamed := *movie
	renamed.Quality = parsed.Quality
	renamed.IsProper = parsed.IsProper
	renamed.IsRepack = parsed.IsRepack
	if info.VideoCodec != "" {
		renamed.VideoCodec = info.VideoCodec
	} else {
		renamed.VideoCodec = parsed.Codec
	}
	renamed.AudioCodec = info.AudioCodec
	renamed.ReleaseGroup = parsed.ReleaseGroup

	dest := s.naming.MoviePath(cfg, &renamed, filepath.Ext(source))
	result, err := s.place(ctx, source, dest, size, req)
	if err != nil {
		return nil, err
	}
	if result.Idempotent {
		return result, nil
	}

	oldPath := movie.FilePath
	if err := s.queries.UpdateMovieFile(ctx, movie.ID, dest, size,
		renamed.Quality, renamed.VideoCodec, renamed.AudioCodec, renamed.ReleaseGroup,
		renamed.IsProper, renamed.IsRepack); err != nil {
		return nil, err
	}
	s.removeUpgraded(oldPath, dest)
	s.appendImported(ctx, "movie", movie.ID, movie.Title, result)
	return result, nil
}

// ImportEpisodeFile places one video file for the given episodes (several
// for a multi-episode file) and updates each episode row.
func (s *Service) ImportEpisodeFile(ctx context.Context, req Request, series *database.Series, episodes []*database.Episode) (*Result, error) {
	if len(episodes) == 0 {
		return nil, fmt.Errorf("no episodes to import")
	}
	source, size, err := findLargestVideo(req.ContentPath)
	if err != nil {
		return nil, err
	}

	parsed := s.parseRelease(req, source)
	info := s.probeInfo(ctx, source)

	cfg, err := s.naming.Config(ctx)
	if err != nil {
		return nil, err
	}

	videoCodec := info.VideoCodec
	if videoCodec == "" {
		videoCodec = parsed.Codec
	}

	rows := make([]database.Episode, 0, len(episodes))
	for _, ep := range episodes {
		row := *ep
		row.Quality = parsed.Quality
		row.IsProper = parsed.IsProper
		row.IsRepack = parsed.IsRepack
		row.VideoCodec = videoCodec
		row.AudioCodec = info.AudioCodec
		row.ReleaseGroup = parsed.ReleaseGroup
		rows = append(rows, row)
	}

	dest := s.naming.EpisodePath(cfg, series, rows, filepath.Ext(source))
	result, err := s.place(ctx, source, dest, size, req)
	if err != nil {
		return nil, err
	}
	if result.Idempotent {
		return result, nil
	}

	for i, ep := range episodes {
		oldPath := ep.FilePath
		row := rows[i]
		if err := s.queries.UpdateEpisodeFile(ctx, ep.ID, dest, size,
			row.Quality, row.VideoCodec, row.AudioCodec, row.ReleaseGroup,
			row.IsProper, row.IsRepack); err != nil {
			return nil, err
		}
		s.removeUpgraded(oldPath, dest)
	}
	label := fmt.Sprintf("%s S%02dE%02d", series.Title, episodes[0].SeasonNumber, episodes[0].EpisodeNumber)
	s.appendImported(ctx, "episode", episodes[0].ID, label, result)
	return result, nil
}

// ImportSeasonPack walks every video file in the payload, matches each to
// an episode by its parsed numbering, and imports them one by one. Files
// that match no episode are skipped with a warning.
func (s *Service) ImportSeasonPack(ctx context.Context, req Request, series *database.Series, seasonNumber int) ([]*Result, error) {
	var videoFiles []string
	err := filepath.WalkDir(req.ContentPath, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if scanner.IsVideoFile(path) && !scanner.IsSampleFile(path) {
			videoFiles = append(videoFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFilesystem, err)
	}
	if len(videoFiles) == 0 {
		return nil, ErrNoVideo
	}

	var results []*Result
	for _, file := range videoFiles {
		parsed := scanner.ParseFilename(filepath.Base(file))
		if parsed.Episode == 0 {
			s.logger.Warn().Str("file", file).Msg("Season pack file has no episode numbering, skipping")
			continue
		}
		season := parsed.Season
		if season == 0 {
			season = seasonNumber
		}

		episodes, err := s.resolveEpisodeRun(ctx, series.ID, season, parsed)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", file).Msg("No matching episode for season pack file")
			continue
		}

		fileReq := req
		fileReq.ContentPath = file
		result, err := s.ImportEpisodeFile(ctx, fileReq, series, episodes)
		if err != nil {
			s.logger.Error().Err(err).Str("file", file).Msg("Season pack file import failed")
			continue
		}
		results = append(results, result)
	}
	if len(results) == 0 {
		return nil, ErrNoVideo
	}
	return results, nil
}

func (s *Service) resolveEpisodeRun(ctx context.Context, seriesID string, season int, parsed *scanner.ParsedRelease) ([]*database.Episode, error) {
	last := parsed.Episode
	if parsed.EndEpisode > last {
		last = parsed.EndEpisode
	}
	var episodes []*database.Episode
	for number := parsed.Episode; number <= last; number++ {
		ep, err := s.queries.GetEpisodeByNumber(ctx, seriesID, season, number)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}

func (s *Service) probeInfo(ctx context.Context, source string) *mediainfo.Info {
	info, err := s.probe.Probe(ctx, source)
	if err != nil || info == nil {
		return mediainfo.FromFilename(source)
	}
	return info
}

func (s *Service) parseRelease(req Request, source string) *scanner.ParsedRelease {
	name := req.ReleaseTitle
	if name == "" {
		name = filepath.Base(source)
	}
	parsed := scanner.ParseFilename(name)
	if parsed.Quality == "" {
		parsed = scanner.ParseFilename(filepath.Base(source))
	}
	return parsed
}

func (s *Service) place(ctx context.Context, source, dest string, size int64, req Request) (*Result, error) {
	linkMode, idempotent, err := placeFile(source, dest)
	if err != nil {
		return nil, err
	}
	if idempotent {
		s.logger.Info().Str("dest", dest).Msg("Destination already holds this file, skipping")
		return &Result{Imported: false, Idempotent: true, Path: dest, FileSize: size}, nil
	}

	// With a hardlink the data survives at dest even after the source
	// unlinks, so source deletion is safe in either mode.
	if !req.KeepSource {
		if err := os.Remove(source); err != nil {
			s.logger.Warn().Err(err).Str("source", source).Msg("Failed to delete imported source")
		}
		cleanEmptyDirs(filepath.Dir(source), s.StagingRoot)
	}

	s.logger.Info().
		Str("source", source).
		Str("dest", dest).
		Str("mode", linkMode).
		Msg("Imported file")
	return &Result{Imported: true, Path: dest, LinkMode: linkMode, FileSize: size}, nil
}

func (s *Service) removeUpgraded(oldPath, newPath string) {
	if oldPath == "" || oldPath == newPath {
		return
	}
	if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn().Err(err).Str("path", oldPath).Msg("Failed to delete upgraded file")
	}
}

func (s *Service) appendImported(ctx context.Context, entityType, entityID, title string, result *Result) {
	data, _ := json.Marshal(map[string]any{
		"path":     result.Path,
		"size":     result.FileSize,
		"linkMode": result.LinkMode,
	})
	message := fmt.Sprintf("Imported %s", title)
	if _, err := s.queries.AppendHistory(ctx, entityType, entityID, database.HistoryEventImported, message, string(data)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to append import history")
	}
}
