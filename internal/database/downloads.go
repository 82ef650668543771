package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/levijay/mediastack/internal/apperr"
)

// Download statuses. Transitions are monotonic:
// queued -> downloading -> importing -> {completed|failed};
// cancelled may occur from any non-terminal state.
const (
	DownloadStatusQueued      = "queued"
	DownloadStatusDownloading = "downloading"
	DownloadStatusImporting   = "importing"
	DownloadStatusCompleted   = "completed"
	DownloadStatusFailed      = "failed"
	DownloadStatusCancelled   = "cancelled"
)

// ActiveDownloadStatuses are the in-flight states used by the no-double-grab guard.
var ActiveDownloadStatuses = []string{DownloadStatusQueued, DownloadStatusDownloading, DownloadStatusImporting}

const downloadColumns = `id, media_type, movie_id, series_id, episode_id, season_number,
	title, download_url, size, indexer, quality, status, progress, client_id,
	client_job_id, error_message, created_at, updated_at`

func scanDownload(row interface{ Scan(...any) error }) (*Download, error) {
	var d Download
	err := row.Scan(
		&d.ID, &d.MediaType, &d.MovieID, &d.SeriesID, &d.EpisodeID, &d.SeasonNumber,
		&d.Title, &d.DownloadURL, &d.Size, &d.Indexer, &d.Quality, &d.Status, &d.Progress, &d.ClientID,
		&d.ClientJobID, &d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("download not found")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDownload inserts a download row.
func (q *Queries) CreateDownload(ctx context.Context, d *Download) error {
	now := Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.Status == "" {
		d.Status = DownloadStatusQueued
	}
	_, err := q.db.ExecContext(ctx, `INSERT INTO downloads (`+downloadColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.MediaType, d.MovieID, d.SeriesID, d.EpisodeID, d.SeasonNumber,
		d.Title, d.DownloadURL, d.Size, d.Indexer, d.Quality, d.Status, d.Progress, d.ClientID,
		d.ClientJobID, d.ErrorMessage, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

// GetDownload returns a download by id.
func (q *Queries) GetDownload(ctx context.Context, id string) (*Download, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+downloadColumns+` FROM downloads WHERE id = ?`, id)
	return scanDownload(row)
}

// ListDownloads returns all downloads, newest first.
func (q *Queries) ListDownloads(ctx context.Context) ([]*Download, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+downloadColumns+` FROM downloads ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDownloads(rows)
}

// ListActiveDownloads returns downloads in an in-flight state.
func (q *Queries) ListActiveDownloads(ctx context.Context) ([]*Download, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+downloadColumns+` FROM downloads WHERE status IN (?,?,?) ORDER BY created_at`,
		DownloadStatusQueued, DownloadStatusDownloading, DownloadStatusImporting)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDownloads(rows)
}

func collectDownloads(rows *sql.Rows) ([]*Download, error) {
	var out []*Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// HasActiveDownloadForMovie reports whether an in-flight download targets the movie.
func (q *Queries) HasActiveDownloadForMovie(ctx context.Context, movieID string) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM downloads WHERE movie_id=? AND status IN (?,?,?)`,
		movieID, DownloadStatusQueued, DownloadStatusDownloading, DownloadStatusImporting).Scan(&count)
	return count > 0, err
}

// HasActiveDownloadForEpisode reports whether an in-flight download targets the
// episode directly or via a season pack of the same season.
func (q *Queries) HasActiveDownloadForEpisode(ctx context.Context, episodeID, seriesID string, season int) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM downloads WHERE status IN (?,?,?)
		   AND (episode_id = ? OR (media_type = 'season' AND series_id = ? AND season_number = ?))`,
		DownloadStatusQueued, DownloadStatusDownloading, DownloadStatusImporting,
		episodeID, seriesID, season).Scan(&count)
	return count > 0, err
}

// HasDownloadURL reports whether the exact download URL was already recorded.
func (q *Queries) HasDownloadURL(ctx context.Context, url string) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM downloads WHERE download_url=?`, url).Scan(&count)
	return count > 0, err
}

// UpdateDownloadProgress updates the live progress columns.
func (q *Queries) UpdateDownloadProgress(ctx context.Context, id string, progress float64, size int64, status string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE downloads SET progress=?, size=?, status=?, updated_at=? WHERE id=?`,
		progress, size, status, Now(), id)
	return err
}

// SetDownloadStatus sets the status and optional error message.
func (q *Queries) SetDownloadStatus(ctx context.Context, id, status, errorMessage string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE downloads SET status=?, error_message=?, updated_at=? WHERE id=?`,
		status, errorMessage, Now(), id)
	return err
}

// SetDownloadClientJob records the client handle after a successful add.
func (q *Queries) SetDownloadClientJob(ctx context.Context, id, clientID, clientJobID string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE downloads SET client_id=?, client_job_id=?, updated_at=? WHERE id=?`,
		clientID, clientJobID, Now(), id)
	return err
}

// DeleteDownload removes a download row.
func (q *Queries) DeleteDownload(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM downloads WHERE id=?`, id)
	return err
}
