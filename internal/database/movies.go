package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/levijay/mediastack/internal/apperr"
)

const movieColumns = `id, tmdb_id, imdb_id, title, year, runtime, overview,
	theatrical_release, digital_release, physical_release, poster_path, backdrop_path,
	minimum_availability, status, certification, collection_title, vote_average,
	directors, writers, cast_members, genres, tags, monitored, has_file, file_path,
	file_size, quality, video_codec, audio_codec, release_group, is_proper, is_repack,
	quality_profile_id, folder_path, added_at, updated_at`

func scanMovie(row interface{ Scan(...any) error }) (*Movie, error) {
	var m Movie
	err := row.Scan(
		&m.ID, &m.TmdbID, &m.ImdbID, &m.Title, &m.Year, &m.Runtime, &m.Overview,
		&m.TheatricalRelease, &m.DigitalRelease, &m.PhysicalRelease, &m.PosterPath, &m.BackdropPath,
		&m.MinimumAvailability, &m.Status, &m.Certification, &m.CollectionTitle, &m.VoteAverage,
		&m.Directors, &m.Writers, &m.CastMembers, &m.Genres, &m.Tags, &m.Monitored, &m.HasFile, &m.FilePath,
		&m.FileSize, &m.Quality, &m.VideoCodec, &m.AudioCodec, &m.ReleaseGroup, &m.IsProper, &m.IsRepack,
		&m.QualityProfileID, &m.FolderPath, &m.AddedAt, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("movie not found")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMovie inserts a movie row.
func (q *Queries) CreateMovie(ctx context.Context, m *Movie) error {
	now := Now()
	m.AddedAt = now
	m.UpdatedAt = now
	_, err := q.db.ExecContext(ctx, `INSERT INTO movies (`+movieColumns+`) VALUES
		(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.TmdbID, m.ImdbID, m.Title, m.Year, m.Runtime, m.Overview,
		m.TheatricalRelease, m.DigitalRelease, m.PhysicalRelease, m.PosterPath, m.BackdropPath,
		m.MinimumAvailability, m.Status, m.Certification, m.CollectionTitle, m.VoteAverage,
		m.Directors, m.Writers, m.CastMembers, m.Genres, m.Tags, m.Monitored, m.HasFile, m.FilePath,
		m.FileSize, m.Quality, m.VideoCodec, m.AudioCodec, m.ReleaseGroup, m.IsProper, m.IsRepack,
		m.QualityProfileID, m.FolderPath, m.AddedAt, m.UpdatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperr.Conflict("movie already exists")
	}
	return err
}

// GetMovie returns a movie by id.
func (q *Queries) GetMovie(ctx context.Context, id string) (*Movie, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
	return scanMovie(row)
}

// GetMovieByTmdbID returns a movie by its TMDB id.
func (q *Queries) GetMovieByTmdbID(ctx context.Context, tmdbID int64) (*Movie, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE tmdb_id = ?`, tmdbID)
	return scanMovie(row)
}

// MovieFilter narrows ListMovies results.
type MovieFilter struct {
	Monitored *bool
	Missing   *bool
	HasFile   *bool
	Limit     int
	Offset    int
}

// ListMovies returns movies matching the filter, newest first.
func (q *Queries) ListMovies(ctx context.Context, f MovieFilter) ([]*Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM movies WHERE 1=1`
	var args []any
	if f.Monitored != nil {
		query += ` AND monitored = ?`
		args = append(args, *f.Monitored)
	}
	if f.Missing != nil && *f.Missing {
		query += ` AND has_file = 0`
	}
	if f.HasFile != nil {
		query += ` AND has_file = ?`
		args = append(args, *f.HasFile)
	}
	query += ` ORDER BY added_at DESC, id`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d OFFSET %d`, f.Limit, f.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []*Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// CountMovies returns the number of movies matching the filter.
func (q *Queries) CountMovies(ctx context.Context, f MovieFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM movies WHERE 1=1`
	var args []any
	if f.Monitored != nil {
		query += ` AND monitored = ?`
		args = append(args, *f.Monitored)
	}
	if f.Missing != nil && *f.Missing {
		query += ` AND has_file = 0`
	}
	if f.HasFile != nil {
		query += ` AND has_file = ?`
		args = append(args, *f.HasFile)
	}
	var count int64
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// UpdateMovie rewrites all mutable movie fields.
func (q *Queries) UpdateMovie(ctx context.Context, m *Movie) error {
	m.UpdatedAt = Now()
	res, err := q.db.ExecContext(ctx, `UPDATE movies SET
		tmdb_id=?, imdb_id=?, title=?, year=?, runtime=?, overview=?,
		theatrical_release=?, digital_release=?, physical_release=?, poster_path=?, backdrop_path=?,
		minimum_availability=?, status=?, certification=?, collection_title=?, vote_average=?,
		directors=?, writers=?, cast_members=?, genres=?, tags=?, monitored=?, has_file=?, file_path=?,
		file_size=?, quality=?, video_codec=?, audio_codec=?, release_group=?, is_proper=?, is_repack=?,
		quality_profile_id=?, folder_path=?, updated_at=?
		WHERE id=?`,
		m.TmdbID, m.ImdbID, m.Title, m.Year, m.Runtime, m.Overview,
		m.TheatricalRelease, m.DigitalRelease, m.PhysicalRelease, m.PosterPath, m.BackdropPath,
		m.MinimumAvailability, m.Status, m.Certification, m.CollectionTitle, m.VoteAverage,
		m.Directors, m.Writers, m.CastMembers, m.Genres, m.Tags, m.Monitored, m.HasFile, m.FilePath,
		m.FileSize, m.Quality, m.VideoCodec, m.AudioCodec, m.ReleaseGroup, m.IsProper, m.IsRepack,
		m.QualityProfileID, m.FolderPath, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("movie not found")
	}
	return nil
}

// UpdateMovieFile sets the file columns after an import.
func (q *Queries) UpdateMovieFile(ctx context.Context, id, filePath string, fileSize int64, quality, videoCodec, audioCodec, releaseGroup string, isProper, isRepack bool) error {
	_, err := q.db.ExecContext(ctx, `UPDATE movies SET has_file=1, file_path=?, file_size=?,
		quality=?, video_codec=?, audio_codec=?, release_group=?, is_proper=?, is_repack=?, updated_at=?
		WHERE id=?`,
		filePath, fileSize, quality, videoCodec, audioCodec, releaseGroup, isProper, isRepack, Now(), id)
	return err
}

// ClearMovieFile resets the file columns.
func (q *Queries) ClearMovieFile(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE movies SET has_file=0, file_path='', file_size=0,
		quality='', video_codec='', audio_codec='', release_group='', is_proper=0, is_repack=0, updated_at=?
		WHERE id=?`, Now(), id)
	return err
}

// SetMovieMonitored toggles the monitored flag.
func (q *Queries) SetMovieMonitored(ctx context.Context, id string, monitored bool) error {
	_, err := q.db.ExecContext(ctx, `UPDATE movies SET monitored=?, updated_at=? WHERE id=?`, monitored, Now(), id)
	return err
}

// DeleteMovie removes a movie row. Downloads and blacklist rows cascade.
func (q *Queries) DeleteMovie(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("movie not found")
	}
	return nil
}

// ListMissingMovies returns monitored movies without a file.
func (q *Queries) ListMissingMovies(ctx context.Context) ([]*Movie, error) {
	monitored, missing := true, true
	return q.ListMovies(ctx, MovieFilter{Monitored: &monitored, Missing: &missing})
}

// ListMoviesWithFiles returns monitored movies that have a file.
func (q *Queries) ListMoviesWithFiles(ctx context.Context) ([]*Movie, error) {
	monitored, hasFile := true, true
	return q.ListMovies(ctx, MovieFilter{Monitored: &monitored, HasFile: &hasFile})
}
