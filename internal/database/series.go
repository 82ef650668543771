package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/levijay/mediastack/internal/apperr"
)

const seriesColumns = `id, tvdb_id, tmdb_id, imdb_id, title, year, network, status,
	overview, poster_path, series_type, monitor_new_seasons, use_season_folder,
	monitored, quality_profile_id, folder_path, tags, added_at, updated_at`

func scanSeries(row interface{ Scan(...any) error }) (*Series, error) {
	var s Series
	err := row.Scan(
		&s.ID, &s.TvdbID, &s.TmdbID, &s.ImdbID, &s.Title, &s.Year, &s.Network, &s.Status,
		&s.Overview, &s.PosterPath, &s.SeriesType, &s.MonitorNewSeasons, &s.UseSeasonFolder,
		&s.Monitored, &s.QualityProfileID, &s.FolderPath, &s.Tags, &s.AddedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("series not found")
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSeries inserts a series row.
func (q *Queries) CreateSeries(ctx context.Context, s *Series) error {
	now := Now()
	s.AddedAt = now
	s.UpdatedAt = now
	_, err := q.db.ExecContext(ctx, `INSERT INTO series (`+seriesColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.TvdbID, s.TmdbID, s.ImdbID, s.Title, s.Year, s.Network, s.Status,
		s.Overview, s.PosterPath, s.SeriesType, s.MonitorNewSeasons, s.UseSeasonFolder,
		s.Monitored, s.QualityProfileID, s.FolderPath, s.Tags, s.AddedAt, s.UpdatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperr.Conflict("series already exists")
	}
	return err
}

// GetSeries returns a series by id.
func (q *Queries) GetSeries(ctx context.Context, id string) (*Series, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+seriesColumns+` FROM series WHERE id = ?`, id)
	return scanSeries(row)
}

// GetSeriesByTvdbID returns a series by its TVDB id.
func (q *Queries) GetSeriesByTvdbID(ctx context.Context, tvdbID int) (*Series, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+seriesColumns+` FROM series WHERE tvdb_id = ?`, tvdbID)
	return scanSeries(row)
}

// GetSeriesByTmdbID returns a series by its TMDB id.
func (q *Queries) GetSeriesByTmdbID(ctx context.Context, tmdbID int) (*Series, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+seriesColumns+` FROM series WHERE tmdb_id = ?`, tmdbID)
	return scanSeries(row)
}

// ListSeries returns all series ordered by title.
func (q *Queries) ListSeries(ctx context.Context) ([]*Series, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+seriesColumns+` FROM series ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Series
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateSeries rewrites all mutable series fields.
func (q *Queries) UpdateSeries(ctx context.Context, s *Series) error {
	s.UpdatedAt = Now()
	res, err := q.db.ExecContext(ctx, `UPDATE series SET tvdb_id=?, tmdb_id=?, imdb_id=?,
		title=?, year=?, network=?, status=?, overview=?, poster_path=?, series_type=?,
		monitor_new_seasons=?, use_season_folder=?, monitored=?, quality_profile_id=?,
		folder_path=?, tags=?, updated_at=? WHERE id=?`,
		s.TvdbID, s.TmdbID, s.ImdbID, s.Title, s.Year, s.Network, s.Status, s.Overview,
		s.PosterPath, s.SeriesType, s.MonitorNewSeasons, s.UseSeasonFolder, s.Monitored,
		s.QualityProfileID, s.FolderPath, s.Tags, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("series not found")
	}
	return nil
}

// SetSeriesMonitored toggles the series monitored flag only.
func (q *Queries) SetSeriesMonitored(ctx context.Context, id string, monitored bool) error {
	_, err := q.db.ExecContext(ctx, `UPDATE series SET monitored=?, updated_at=? WHERE id=?`, monitored, Now(), id)
	return err
}

// DeleteSeries removes a series. Seasons and episodes cascade.
func (q *Queries) DeleteSeries(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM series WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("series not found")
	}
	return nil
}

// CreateSeason inserts a season row.
func (q *Queries) CreateSeason(ctx context.Context, s *Season) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO seasons (id, series_id, season_number, monitored) VALUES (?,?,?,?)`,
		s.ID, s.SeriesID, s.SeasonNumber, s.Monitored)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperr.Conflict("season already exists")
	}
	return err
}

// ListSeasons returns all seasons for a series ordered by number.
func (q *Queries) ListSeasons(ctx context.Context, seriesID string) ([]*Season, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, series_id, season_number, monitored FROM seasons WHERE series_id = ? ORDER BY season_number`, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Season
	for rows.Next() {
		var s Season
		if err := rows.Scan(&s.ID, &s.SeriesID, &s.SeasonNumber, &s.Monitored); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// SetSeasonMonitored toggles a season's monitored flag.
func (q *Queries) SetSeasonMonitored(ctx context.Context, seriesID string, seasonNumber int, monitored bool) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE seasons SET monitored=? WHERE series_id=? AND season_number=?`, monitored, seriesID, seasonNumber)
	return err
}

// SetAllSeasonsMonitored toggles every season of a series.
func (q *Queries) SetAllSeasonsMonitored(ctx context.Context, seriesID string, monitored bool) error {
	_, err := q.db.ExecContext(ctx, `UPDATE seasons SET monitored=? WHERE series_id=?`, monitored, seriesID)
	return err
}

// CountMonitoredSeasons returns the number of monitored seasons for a series.
func (q *Queries) CountMonitoredSeasons(ctx context.Context, seriesID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seasons WHERE series_id=? AND monitored=1`, seriesID).Scan(&count)
	return count, err
}

const episodeColumns = `id, series_id, season_number, episode_number, absolute_number,
	title, overview, air_date, monitored, has_file, file_path, file_size, quality,
	video_codec, audio_codec, release_group, is_proper, is_repack`

func scanEpisode(row interface{ Scan(...any) error }) (*Episode, error) {
	var e Episode
	err := row.Scan(
		&e.ID, &e.SeriesID, &e.SeasonNumber, &e.EpisodeNumber, &e.AbsoluteNumber,
		&e.Title, &e.Overview, &e.AirDate, &e.Monitored, &e.HasFile, &e.FilePath, &e.FileSize, &e.Quality,
		&e.VideoCodec, &e.AudioCodec, &e.ReleaseGroup, &e.IsProper, &e.IsRepack,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("episode not found")
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEpisode inserts an episode row.
func (q *Queries) CreateEpisode(ctx context.Context, e *Episode) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO episodes (`+episodeColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.SeriesID, e.SeasonNumber, e.EpisodeNumber, e.AbsoluteNumber,
		e.Title, e.Overview, e.AirDate, e.Monitored, e.HasFile, e.FilePath, e.FileSize, e.Quality,
		e.VideoCodec, e.AudioCodec, e.ReleaseGroup, e.IsProper, e.IsRepack,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperr.Conflict("episode already exists")
	}
	return err
}

// GetEpisode returns an episode by id.
func (q *Queries) GetEpisode(ctx context.Context, id string) (*Episode, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	return scanEpisode(row)
}

// GetEpisodeByNumber returns an episode by (series, season, episode).
func (q *Queries) GetEpisodeByNumber(ctx context.Context, seriesID string, season, episode int) (*Episode, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE series_id=? AND season_number=? AND episode_number=?`,
		seriesID, season, episode)
	return scanEpisode(row)
}

// ListEpisodes returns all episodes for a series in airing order.
func (q *Queries) ListEpisodes(ctx context.Context, seriesID string) ([]*Episode, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE series_id = ? ORDER BY season_number, episode_number`, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

// ListSeasonEpisodes returns all episodes in a season.
func (q *Queries) ListSeasonEpisodes(ctx context.Context, seriesID string, season int) ([]*Episode, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE series_id = ? AND season_number = ? ORDER BY episode_number`,
		seriesID, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

// ListMissingEpisodes returns monitored, aired episodes without a file across all
// monitored series, joined against monitored seasons.
func (q *Queries) ListMissingEpisodes(ctx context.Context) ([]*Episode, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT e.id, e.series_id, e.season_number,
		e.episode_number, e.absolute_number, e.title, e.overview, e.air_date, e.monitored,
		e.has_file, e.file_path, e.file_size, e.quality, e.video_codec, e.audio_codec,
		e.release_group, e.is_proper, e.is_repack
		FROM episodes e
		JOIN series s ON s.id = e.series_id
		JOIN seasons se ON se.series_id = e.series_id AND se.season_number = e.season_number
		WHERE e.monitored = 1 AND e.has_file = 0 AND s.monitored = 1 AND se.monitored = 1
		  AND e.air_date IS NOT NULL AND e.air_date <= ?
		ORDER BY e.air_date DESC`, Now())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

// ListEpisodesWithFiles returns monitored episodes that have a file.
func (q *Queries) ListEpisodesWithFiles(ctx context.Context) ([]*Episode, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT e.id, e.series_id, e.season_number,
		e.episode_number, e.absolute_number, e.title, e.overview, e.air_date, e.monitored,
		e.has_file, e.file_path, e.file_size, e.quality, e.video_codec, e.audio_codec,
		e.release_group, e.is_proper, e.is_repack
		FROM episodes e
		JOIN series s ON s.id = e.series_id
		WHERE e.monitored = 1 AND e.has_file = 1 AND s.monitored = 1
		ORDER BY e.series_id, e.season_number, e.episode_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

func collectEpisodes(rows *sql.Rows) ([]*Episode, error) {
	var out []*Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateEpisodeFile sets the file columns after an import.
func (q *Queries) UpdateEpisodeFile(ctx context.Context, id, filePath string, fileSize int64, quality, videoCodec, audioCodec, releaseGroup string, isProper, isRepack bool) error {
	_, err := q.db.ExecContext(ctx, `UPDATE episodes SET has_file=1, file_path=?, file_size=?,
		quality=?, video_codec=?, audio_codec=?, release_group=?, is_proper=?, is_repack=?
		WHERE id=?`,
		filePath, fileSize, quality, videoCodec, audioCodec, releaseGroup, isProper, isRepack, id)
	return err
}

// UpdateEpisodeMetadata refreshes the descriptive columns without touching
// monitoring or file state.
func (q *Queries) UpdateEpisodeMetadata(ctx context.Context, id, title, overview string, airDate sql.NullString, absoluteNumber int) error {
	_, err := q.db.ExecContext(ctx, `UPDATE episodes SET title=?, overview=?, air_date=?, absolute_number=?
		WHERE id=?`, title, overview, airDate, absoluteNumber, id)
	return err
}

// ClearEpisodeFile resets the file columns.
func (q *Queries) ClearEpisodeFile(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE episodes SET has_file=0, file_path='', file_size=0,
		quality='', video_codec='', audio_codec='', release_group='', is_proper=0, is_repack=0
		WHERE id=?`, id)
	return err
}

// SetEpisodeMonitored toggles an episode's monitored flag.
func (q *Queries) SetEpisodeMonitored(ctx context.Context, id string, monitored bool) error {
	_, err := q.db.ExecContext(ctx, `UPDATE episodes SET monitored=? WHERE id=?`, monitored, id)
	return err
}

// SetSeasonEpisodesMonitored toggles every episode of a season.
func (q *Queries) SetSeasonEpisodesMonitored(ctx context.Context, seriesID string, season int, monitored bool) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE episodes SET monitored=? WHERE series_id=? AND season_number=?`, monitored, seriesID, season)
	return err
}

// SetAllEpisodesMonitored toggles every episode of a series.
func (q *Queries) SetAllEpisodesMonitored(ctx context.Context, seriesID string, monitored bool) error {
	_, err := q.db.ExecContext(ctx, `UPDATE episodes SET monitored=? WHERE series_id=?`, monitored, seriesID)
	return err
}

// DeleteEpisode removes an episode row.
func (q *Queries) DeleteEpisode(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM episodes WHERE id=?`, id)
	return err
}
