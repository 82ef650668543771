package database

import (
	"context"
	"time"
)

// InsertRSSRelease records a feed item. Items already seen for the same
// indexer (matched by guid) are skipped; the return value reports whether
// the row was new.
func (q *Queries) InsertRSSRelease(ctx context.Context, r *RSSRelease) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO rss_releases
		   (indexer_id, guid, title, download_url, size, publish_date, processed, grabbed, created_at)
		 VALUES (?,?,?,?,?,?,0,0,?)`,
		r.IndexerID, r.GUID, r.Title, r.DownloadURL, r.Size, r.PublishDate, Now())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		r.ID, _ = res.LastInsertId()
	}
	return n > 0, nil
}

// ListUnprocessedRSSReleases returns cached feed items not yet evaluated,
// oldest first.
func (q *Queries) ListUnprocessedRSSReleases(ctx context.Context) ([]*RSSRelease, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, indexer_id, guid, title, download_url, size, publish_date, processed, grabbed, created_at
		 FROM rss_releases WHERE processed = 0 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*RSSRelease
	for rows.Next() {
		var r RSSRelease
		if err := rows.Scan(&r.ID, &r.IndexerID, &r.GUID, &r.Title, &r.DownloadURL, &r.Size,
			&r.PublishDate, &r.Processed, &r.Grabbed, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// MarkRSSReleaseProcessed flags an item as evaluated, optionally as grabbed.
func (q *Queries) MarkRSSReleaseProcessed(ctx context.Context, id int64, grabbed bool) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE rss_releases SET processed = 1, grabbed = ? WHERE id = ?`, grabbed, id)
	return err
}

// SweepRSSReleasesOlderThan removes cache rows older than the cutoff and
// returns the number deleted.
func (q *Queries) SweepRSSReleasesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM rss_releases WHERE created_at < ?`,
		cutoff.UTC().Format(TimeFormat))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
