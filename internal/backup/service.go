// Package backup exports and restores the application state as JSON, and
// keeps rolling snapshot copies of the database file.
package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/apperr"
	"github.com/levijay/mediastack/internal/database"
)

// Version tags the export format.
const Version = 1

// backupTables lists every exported table, parents before children so a
// restore can insert in order with foreign keys intact.
var backupTables = []string{
	"quality_definitions",
	"quality_profiles",
	"custom_formats",
	"naming_config",
	"root_folders",
	"indexers",
	"download_clients",
	"import_lists",
	"exclusions",
	"release_blacklist",
	"movies",
	"series",
	"seasons",
	"episodes",
	"downloads",
	"rss_releases",
	"history",
}

// Meta is the `_meta` entry of an export.
type Meta struct {
	Version   int      `json:"version"`
	CreatedAt string   `json:"created_at"`
	Tables    []string `json:"tables"`
}

// RestoreResult reports per-table row counts of a restore.
type RestoreResult struct {
	Tables map[string]int `json:"tables"`
	Total  int            `json:"total"`
}

// Service implements JSON export, preview, and restore.
type Service struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewService creates the backup service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{db: db, logger: logger.With().Str("component", "backup").Logger()}
}

// Export dumps every backed-up table as an ordered row array, keyed by
// table name, plus a `_meta` entry. Rows are ordered by rowid so repeated
// exports of the same state are identical.
func (s *Service) Export(ctx context.Context) (map[string]any, error) {
	out := make(map[string]any, len(backupTables)+1)
	for _, table := range backupTables {
		rows, err := s.dumpTable(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", table, err)
		}
		out[table] = rows
	}
	out["_meta"] = []Meta{{
		Version:   Version,
		CreatedAt: time.Now().UTC().Format(database.TimeFormat),
		Tables:    append([]string(nil), backupTables...),
	}}
	return out, nil
}

// Preview returns the row count of every backed-up table.
func (s *Service) Preview(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(backupTables))
	for _, table := range backupTables {
		var count int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("preview %s: %w", table, err)
		}
		counts[table] = count
	}
	return counts, nil
}

// Restore replaces table contents from an export. With selectedTables set,
// only those tables are touched; otherwise every table in the payload is
// restored. Deletes run children-first and inserts parents-first, with
// foreign key enforcement suspended for the duration.
func (s *Service) Restore(ctx context.Context, payload map[string]json.RawMessage, selectedTables []string) (*RestoreResult, error) {
	if meta, ok := payload["_meta"]; ok {
		var entries []Meta
		if err := json.Unmarshal(meta, &entries); err != nil || len(entries) == 0 {
			return nil, apperr.Validation("backup has a malformed _meta entry")
		}
		if entries[0].Version > Version {
			return nil, apperr.Validation("backup version %d is newer than supported version %d",
				entries[0].Version, Version)
		}
	}

	selected := make(map[string]bool, len(selectedTables))
	for _, t := range selectedTables {
		selected[t] = true
	}
	restore := make([]string, 0, len(backupTables))
	for _, table := range backupTables {
		if _, present := payload[table]; !present {
			continue
		}
		if len(selected) > 0 && !selected[table] {
			continue
		}
		restore = append(restore, table)
	}
	if len(restore) == 0 {
		return nil, apperr.Validation("backup contains no restorable tables")
	}

	if _, err := s.db.ExecContext(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
		return nil, err
	}
	defer func() {
		if _, err := s.db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON`); err != nil {
			s.logger.Error().Err(err).Msg("Failed to re-enable foreign keys")
		}
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	result := &RestoreResult{Tables: make(map[string]int, len(restore))}
	for i := len(restore) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+restore[i]); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("clear %s: %w", restore[i], err)
		}
	}
	for _, table := range restore {
		n, err := insertRows(ctx, tx, table, payload[table])
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("restore %s: %w", table, err)
		}
		result.Tables[table] = n
		result.Total += n
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info().Int("rows", result.Total).Int("tables", len(restore)).Msg("Backup restored")
	return result, nil
}

// dumpTable reads every row into a column-keyed map, in rowid order.
func (s *Service) dumpTable(ctx context.Context, table string) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT * FROM `+table+` ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	dump := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		dump = append(dump, row)
	}
	return dump, rows.Err()
}

// insertRows decodes one table's row array and inserts it. Column order is
// canonicalized by sorting so the statement shape is stable per table.
func insertRows(ctx context.Context, tx *sql.Tx, table string, raw json.RawMessage) (int, error) {
	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return 0, err
	}

	for _, row := range rows {
		columns := make([]string, 0, len(row))
		for col := range row {
			columns = append(columns, col)
		}
		sort.Strings(columns)

		placeholders := make([]string, len(columns))
		values := make([]any, len(columns))
		for i, col := range columns {
			placeholders[i] = "?"
			values[i] = normalizeValue(row[col])
		}

		stmt := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
			table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
		if _, err := tx.ExecContext(ctx, stmt, values...); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

// normalizeValue undoes JSON's float64 coercion for integral values so
// INTEGER columns round-trip exactly.
func normalizeValue(v any) any {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return int64(f)
	}
	return v
}
