package renamer

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/database"
)

// Service renders library paths from the stored naming configuration.
type Service struct {
	queries *database.Queries
	logger  zerolog.Logger
}

// NewService creates the naming service.
func NewService(queries *database.Queries, logger zerolog.Logger) *Service {
	return &Service{
		queries: queries,
		logger:  logger.With().Str("component", "renamer").Logger(),
	}
}

// Config loads the active naming configuration.
func (s *Service) Config(ctx context.Context) (*database.NamingConfig, error) {
	return s.queries.GetNamingConfig(ctx)
}

func sanitizeOpts(cfg *database.NamingConfig) SanitizeOptions {
	return SanitizeOptions{
		ColonReplacement: cfg.ColonReplacement,
		ReplaceIllegal:   cfg.ReplaceIllegal,
	}
}

func movieContext(movie *database.Movie) TokenContext {
	return TokenContext{
		MovieTitle:   movie.Title,
		Year:         movie.Year,
		Quality:      movie.Quality,
		IsProper:     movie.IsProper,
		IsRepack:     movie.IsRepack,
		VideoCodec:   movie.VideoCodec,
		AudioCodec:   movie.AudioCodec,
		ReleaseGroup: movie.ReleaseGroup,
		ImdbID:       movie.ImdbID,
		TmdbID:       movie.TmdbID.Int64,
	}
}

// MovieFilename renders the file name for a movie, without extension.
func (s *Service) MovieFilename(cfg *database.NamingConfig, movie *database.Movie) string {
	return Sanitize(Render(cfg.MovieFormat, movieContext(movie)), sanitizeOpts(cfg))
}

// MovieFolder renders the folder name for a movie.
func (s *Service) MovieFolder(cfg *database.NamingConfig, movie *database.Movie) string {
	return Sanitize(Render(cfg.MovieFolderFormat, movieContext(movie)), sanitizeOpts(cfg))
}

// MoviePath joins the movie's canonical folder with its rendered file name.
func (s *Service) MoviePath(cfg *database.NamingConfig, movie *database.Movie, extension string) string {
	return filepath.Join(movie.FolderPath, s.MovieFilename(cfg, movie)+extension)
}

// SeriesFolder renders the folder name for a series.
func (s *Service) SeriesFolder(cfg *database.NamingConfig, series *database.Series) string {
	ctx := TokenContext{
		SeriesTitle: series.Title,
		Year:        series.Year,
		ImdbID:      series.ImdbID,
		TmdbID:      int64(series.TmdbID),
		TvdbID:      series.TvdbID,
	}
	return Sanitize(Render(cfg.SeriesFolderFormat, ctx), sanitizeOpts(cfg))
}

// SeasonFolder renders the folder name for one season. Season zero uses the
// specials format.
func (s *Service) SeasonFolder(cfg *database.NamingConfig, series *database.Series, seasonNumber int) string {
	format := cfg.SeasonFolderFormat
	if seasonNumber == 0 {
		format = cfg.SpecialsFolderFormat
	}
	ctx := TokenContext{
		SeriesTitle:  series.Title,
		Year:         series.Year,
		SeasonNumber: seasonNumber,
	}
	return Sanitize(Render(format, ctx), sanitizeOpts(cfg))
}

// EpisodeFilename renders the file name for one or more episodes of a
// series, without extension. The format follows the series type.
func (s *Service) EpisodeFilename(cfg *database.NamingConfig, series *database.Series, episodes []database.Episode) string {
	if len(episodes) == 0 {
		return ""
	}

	format := cfg.StandardEpisodeFormat
	switch series.SeriesType {
	case "daily":
		format = cfg.DailyEpisodeFormat
	case "anime":
		format = cfg.AnimeEpisodeFormat
	}

	first := episodes[0]
	ctx := TokenContext{
		SeriesTitle:       series.Title,
		Year:              series.Year,
		SeasonNumber:      first.SeasonNumber,
		EpisodeTitle:      first.Title,
		AirDate:           first.AirDate.String,
		Quality:           first.Quality,
		IsProper:          first.IsProper,
		IsRepack:          first.IsRepack,
		VideoCodec:        first.VideoCodec,
		AudioCodec:        first.AudioCodec,
		ReleaseGroup:      first.ReleaseGroup,
		TvdbID:            series.TvdbID,
		MultiEpisodeStyle: MultiEpisodeStyle(cfg.MultiEpisodeStyle),
	}
	for _, ep := range episodes {
		ctx.EpisodeNumbers = append(ctx.EpisodeNumbers, ep.EpisodeNumber)
		if ep.AbsoluteNumber > 0 {
			ctx.AbsoluteNumbers = append(ctx.AbsoluteNumbers, ep.AbsoluteNumber)
		}
	}

	return Sanitize(Render(format, ctx), sanitizeOpts(cfg))
}

// EpisodePath joins the series folder, the season folder when enabled, and
// the rendered episode file name.
func (s *Service) EpisodePath(cfg *database.NamingConfig, series *database.Series, episodes []database.Episode, extension string) string {
	if len(episodes) == 0 {
		return ""
	}
	dir := series.FolderPath
	if series.UseSeasonFolder {
		dir = filepath.Join(dir, s.SeasonFolder(cfg, series, episodes[0].SeasonNumber))
	}
	return filepath.Join(dir, s.EpisodeFilename(cfg, series, episodes)+extension)
}

// RenamePreview pairs an existing file with the path it would move to.
type RenamePreview struct {
	ExistingPath string `json:"existingPath"`
	NewPath      string `json:"newPath"`
}

// PreviewMovieRename reports the rename a movie's file would undergo under
// the current naming config, or nil when nothing would change.
func (s *Service) PreviewMovieRename(cfg *database.NamingConfig, movie *database.Movie) *RenamePreview {
	if !movie.HasFile || movie.FilePath == "" {
		return nil
	}
	newPath := s.MoviePath(cfg, movie, filepath.Ext(movie.FilePath))
	if newPath == movie.FilePath {
		return nil
	}
	return &RenamePreview{ExistingPath: movie.FilePath, NewPath: newPath}
}

// PreviewEpisodeRename reports the rename one episode's file would undergo,
// or nil when nothing would change.
func (s *Service) PreviewEpisodeRename(cfg *database.NamingConfig, series *database.Series, episode *database.Episode) *RenamePreview {
	if !episode.HasFile || episode.FilePath == "" {
		return nil
	}
	newPath := s.EpisodePath(cfg, series, []database.Episode{*episode}, filepath.Ext(episode.FilePath))
	if newPath == episode.FilePath {
		return nil
	}
	return &RenamePreview{ExistingPath: episode.FilePath, NewPath: newPath}
}
