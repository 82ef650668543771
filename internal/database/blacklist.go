package database

import (
	"context"
	"strings"

	"github.com/levijay/mediastack/internal/apperr"
)

// AddBlacklistEntry records a release title that must never be grabbed again.
func (q *Queries) AddBlacklistEntry(ctx context.Context, e *BlacklistEntry) error {
	e.CreatedAt = Now()
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO release_blacklist
		   (id, release_title, movie_id, series_id, season_number, episode_number, reason, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		e.ID, e.ReleaseTitle, e.MovieID, e.SeriesID, e.SeasonNumber, e.EpisodeNumber, e.Reason, e.CreatedAt)
	return err
}

// BlacklistScope identifies the media item a blacklist lookup is for.
// Exactly one of MovieID or SeriesID is set; a zero season or episode
// number on either side means "any".
type BlacklistScope struct {
	MovieID       string
	SeriesID      string
	SeasonNumber  int
	EpisodeNumber int
}

// ListBlacklistTitlesFor returns the blacklisted release titles that apply
// to the given media item: rows scoped to that item, plus rows with no
// scope at all, which block everywhere. Title comparison is left to the
// caller so it can run on normalized forms.
func (q *Queries) ListBlacklistTitlesFor(ctx context.Context, scope BlacklistScope) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT release_title FROM release_blacklist
		 WHERE (movie_id IS NULL AND series_id IS NULL)
		    OR (movie_id IS NOT NULL AND movie_id = ?)
		    OR (series_id IS NOT NULL AND series_id = ?
		        AND (season_number = 0 OR ? = 0 OR season_number = ?)
		        AND (episode_number = 0 OR ? = 0 OR episode_number = ?))`,
		scope.MovieID, scope.SeriesID,
		scope.SeasonNumber, scope.SeasonNumber,
		scope.EpisodeNumber, scope.EpisodeNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		out = append(out, title)
	}
	return out, rows.Err()
}

// ListBlacklist returns all blacklist rows, newest first.
func (q *Queries) ListBlacklist(ctx context.Context) ([]*BlacklistEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, release_title, movie_id, series_id, season_number, episode_number, reason, created_at
		 FROM release_blacklist ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*BlacklistEntry
	for rows.Next() {
		var e BlacklistEntry
		if err := rows.Scan(&e.ID, &e.ReleaseTitle, &e.MovieID, &e.SeriesID,
			&e.SeasonNumber, &e.EpisodeNumber, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// DeleteBlacklistEntry removes one blacklist row.
func (q *Queries) DeleteBlacklistEntry(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM release_blacklist WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("blacklist entry not found")
	}
	return nil
}

// AddExclusion records a list item the user removed so reconciliation will
// not re-add it.
func (q *Queries) AddExclusion(ctx context.Context, e *Exclusion) error {
	e.CreatedAt = Now()
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO exclusions (id, tmdb_id, media_type, title, created_at) VALUES (?,?,?,?,?)`,
		e.ID, e.TmdbID, e.MediaType, e.Title, e.CreatedAt)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperr.Conflict("exclusion already exists")
	}
	return err
}

// IsExcluded reports whether the external id is excluded for the media type.
func (q *Queries) IsExcluded(ctx context.Context, tmdbID int64, mediaType string) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exclusions WHERE tmdb_id=? AND media_type=?`,
		tmdbID, mediaType).Scan(&count)
	return count > 0, err
}

// ListExclusions returns all exclusions, newest first.
func (q *Queries) ListExclusions(ctx context.Context) ([]*Exclusion, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, tmdb_id, media_type, title, created_at FROM exclusions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Exclusion
	for rows.Next() {
		var e Exclusion
		if err := rows.Scan(&e.ID, &e.TmdbID, &e.MediaType, &e.Title, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// DeleteExclusion removes one exclusion row.
func (q *Queries) DeleteExclusion(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM exclusions WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("exclusion not found")
	}
	return nil
}
