package database

import (
	"context"
	"time"
)

// History event types.
const (
	HistoryEventGrabbed         = "grabbed"
	HistoryEventImported        = "imported"
	HistoryEventImportFailed    = "import_failed"
	HistoryEventDownloadFailed  = "download_failed"
	HistoryEventDeleted         = "deleted"
	HistoryEventRenamed         = "renamed"
	HistoryEventBlacklisted     = "blacklisted"
	HistoryEventAdded           = "added"
	HistoryEventRemoved         = "removed"
	HistoryEventSearchCompleted = "search_completed"
)

// AppendHistory inserts an activity row and returns its id.
func (q *Queries) AppendHistory(ctx context.Context, entityType, entityID, eventType, message, data string) (int64, error) {
	if data == "" {
		data = "{}"
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO history (entity_type, entity_id, event_type, message, data, created_at)
		 VALUES (?,?,?,?,?,?)`,
		entityType, entityID, eventType, message, data, Now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// HistoryFilter narrows ListHistory results.
type HistoryFilter struct {
	EntityType string
	EntityID   string
	EventType  string
	Limit      int
	Offset     int
}

// ListHistory returns activity rows, newest first.
func (q *Queries) ListHistory(ctx context.Context, f HistoryFilter) ([]*HistoryEntry, error) {
	query := `SELECT id, entity_type, entity_id, event_type, message, data, created_at
		FROM history WHERE 1=1`
	var args []any
	if f.EntityType != "" {
		query += ` AND entity_type = ?`
		args = append(args, f.EntityType)
	}
	if f.EntityID != "" {
		query += ` AND entity_id = ?`
		args = append(args, f.EntityID)
	}
	if f.EventType != "" {
		query += ` AND event_type = ?`
		args = append(args, f.EventType)
	}
	query += ` ORDER BY id DESC`
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ID, &h.EntityType, &h.EntityID, &h.EventType, &h.Message, &h.Data, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

// CountHistory returns the number of activity rows matching the filter.
func (q *Queries) CountHistory(ctx context.Context, f HistoryFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM history WHERE 1=1`
	var args []any
	if f.EntityType != "" {
		query += ` AND entity_type = ?`
		args = append(args, f.EntityType)
	}
	if f.EntityID != "" {
		query += ` AND entity_id = ?`
		args = append(args, f.EntityID)
	}
	var count int64
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// PurgeHistoryOlderThan removes activity rows older than the cutoff and
// returns the number deleted.
func (q *Queries) PurgeHistoryOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM history WHERE created_at < ?`,
		cutoff.UTC().Format(TimeFormat))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
