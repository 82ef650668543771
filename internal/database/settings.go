package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/levijay/mediastack/internal/apperr"
)

const importListColumns = `id, name, type, media_type, enabled, list_id, url,
	quality_profile_id, root_folder, monitor, minimum_availability, search_on_add,
	refresh_interval_minutes, last_sync`

func scanImportList(row interface{ Scan(...any) error }) (*ImportList, error) {
	var l ImportList
	err := row.Scan(&l.ID, &l.Name, &l.Type, &l.MediaType, &l.Enabled, &l.ListID, &l.URL,
		&l.QualityProfileID, &l.RootFolder, &l.Monitor, &l.MinimumAvailability, &l.SearchOnAdd,
		&l.RefreshIntervalMinutes, &l.LastSync)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("import list not found")
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateImportList inserts an import list row.
func (q *Queries) CreateImportList(ctx context.Context, l *ImportList) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO import_lists (`+importListColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		l.ID, l.Name, l.Type, l.MediaType, l.Enabled, l.ListID, l.URL,
		l.QualityProfileID, l.RootFolder, l.Monitor, l.MinimumAvailability, l.SearchOnAdd,
		l.RefreshIntervalMinutes, l.LastSync)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperr.Conflict("import list already exists")
	}
	return err
}

// GetImportList returns an import list by id.
func (q *Queries) GetImportList(ctx context.Context, id string) (*ImportList, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+importListColumns+` FROM import_lists WHERE id=?`, id)
	return scanImportList(row)
}

// ListImportLists returns all import lists ordered by name.
func (q *Queries) ListImportLists(ctx context.Context) ([]*ImportList, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+importListColumns+` FROM import_lists ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ImportList
	for rows.Next() {
		l, err := scanImportList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListEnabledImportLists returns only enabled import lists.
func (q *Queries) ListEnabledImportLists(ctx context.Context) ([]*ImportList, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+importListColumns+` FROM import_lists WHERE enabled = 1 ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ImportList
	for rows.Next() {
		l, err := scanImportList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpdateImportList rewrites all mutable import list fields.
func (q *Queries) UpdateImportList(ctx context.Context, l *ImportList) error {
	res, err := q.db.ExecContext(ctx, `UPDATE import_lists SET
		name=?, type=?, media_type=?, enabled=?, list_id=?, url=?,
		quality_profile_id=?, root_folder=?, monitor=?, minimum_availability=?,
		search_on_add=?, refresh_interval_minutes=?
		WHERE id=?`,
		l.Name, l.Type, l.MediaType, l.Enabled, l.ListID, l.URL,
		l.QualityProfileID, l.RootFolder, l.Monitor, l.MinimumAvailability,
		l.SearchOnAdd, l.RefreshIntervalMinutes, l.ID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("import list not found")
	}
	return nil
}

// TouchImportListSync stamps the last successful reconciliation.
func (q *Queries) TouchImportListSync(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE import_lists SET last_sync=? WHERE id=?`, Now(), id)
	return err
}

// DeleteImportList removes an import list row.
func (q *Queries) DeleteImportList(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM import_lists WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("import list not found")
	}
	return nil
}

const indexerColumns = `id, name, url, api_key, enabled, priority, rss_enabled, protocol`

func scanIndexer(row interface{ Scan(...any) error }) (*Indexer, error) {
	var ix Indexer
	err := row.Scan(&ix.ID, &ix.Name, &ix.URL, &ix.APIKey, &ix.Enabled, &ix.Priority, &ix.RSSEnabled, &ix.Protocol)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("indexer not found")
	}
	if err != nil {
		return nil, err
	}
	return &ix, nil
}

// CreateIndexer inserts an indexer row.
func (q *Queries) CreateIndexer(ctx context.Context, ix *Indexer) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO indexers (`+indexerColumns+`)
		VALUES (?,?,?,?,?,?,?,?)`,
		ix.ID, ix.Name, ix.URL, ix.APIKey, ix.Enabled, ix.Priority, ix.RSSEnabled, ix.Protocol)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperr.Conflict("indexer already exists")
	}
	return err
}

// GetIndexer returns an indexer by id.
func (q *Queries) GetIndexer(ctx context.Context, id string) (*Indexer, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+indexerColumns+` FROM indexers WHERE id=?`, id)
	return scanIndexer(row)
}

// ListIndexers returns all indexers ordered by priority.
func (q *Queries) ListIndexers(ctx context.Context) ([]*Indexer, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+indexerColumns+` FROM indexers ORDER BY priority, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIndexers(rows)
}

// ListEnabledIndexers returns only enabled indexers ordered by priority.
func (q *Queries) ListEnabledIndexers(ctx context.Context) ([]*Indexer, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+indexerColumns+` FROM indexers WHERE enabled = 1 ORDER BY priority, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIndexers(rows)
}

// ListRSSIndexers returns enabled indexers that also participate in feed polling.
func (q *Queries) ListRSSIndexers(ctx context.Context) ([]*Indexer, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+indexerColumns+` FROM indexers WHERE enabled = 1 AND rss_enabled = 1 ORDER BY priority, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIndexers(rows)
}

func collectIndexers(rows *sql.Rows) ([]*Indexer, error) {
	var out []*Indexer
	for rows.Next() {
		ix, err := scanIndexer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, rows.Err()
}

// UpdateIndexer rewrites all mutable indexer fields.
func (q *Queries) UpdateIndexer(ctx context.Context, ix *Indexer) error {
	res, err := q.db.ExecContext(ctx, `UPDATE indexers SET
		name=?, url=?, api_key=?, enabled=?, priority=?, rss_enabled=?, protocol=? WHERE id=?`,
		ix.Name, ix.URL, ix.APIKey, ix.Enabled, ix.Priority, ix.RSSEnabled, ix.Protocol, ix.ID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("indexer not found")
	}
	return nil
}

// DeleteIndexer removes an indexer row.
func (q *Queries) DeleteIndexer(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM indexers WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("indexer not found")
	}
	return nil
}

const downloadClientColumns = `id, name, type, host, port, category, enabled, protocol, keep_source`

func scanDownloadClient(row interface{ Scan(...any) error }) (*DownloadClientConfig, error) {
	var c DownloadClientConfig
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Host, &c.Port, &c.Category, &c.Enabled, &c.Protocol, &c.KeepSource)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("download client not found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateDownloadClient inserts a download client row.
func (q *Queries) CreateDownloadClient(ctx context.Context, c *DownloadClientConfig) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO download_clients (`+downloadClientColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Name, c.Type, c.Host, c.Port, c.Category, c.Enabled, c.Protocol, c.KeepSource)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperr.Conflict("download client already exists")
	}
	return err
}

// GetDownloadClient returns a download client by id.
func (q *Queries) GetDownloadClient(ctx context.Context, id string) (*DownloadClientConfig, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+downloadClientColumns+` FROM download_clients WHERE id=?`, id)
	return scanDownloadClient(row)
}

// ListDownloadClients returns all download clients ordered by name.
func (q *Queries) ListDownloadClients(ctx context.Context) ([]*DownloadClientConfig, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+downloadClientColumns+` FROM download_clients ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*DownloadClientConfig
	for rows.Next() {
		c, err := scanDownloadClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateDownloadClient rewrites all mutable client fields.
func (q *Queries) UpdateDownloadClient(ctx context.Context, c *DownloadClientConfig) error {
	res, err := q.db.ExecContext(ctx, `UPDATE download_clients SET
		name=?, type=?, host=?, port=?, category=?, enabled=?, protocol=?, keep_source=? WHERE id=?`,
		c.Name, c.Type, c.Host, c.Port, c.Category, c.Enabled, c.Protocol, c.KeepSource, c.ID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("download client not found")
	}
	return nil
}

// DeleteDownloadClient removes a download client row.
func (q *Queries) DeleteDownloadClient(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM download_clients WHERE id=?`, id)
	return err
}

// GetNamingConfig returns the single naming configuration row.
func (q *Queries) GetNamingConfig(ctx context.Context) (*NamingConfig, error) {
	var n NamingConfig
	err := q.db.QueryRowContext(ctx,
		`SELECT movie_format, movie_folder_format, standard_episode_format, daily_episode_format,
		        anime_episode_format, series_folder_format, season_folder_format, specials_folder_format,
		        colon_replacement, replace_illegal, multi_episode_style
		 FROM naming_config WHERE id = 1`).Scan(
		&n.MovieFormat, &n.MovieFolderFormat, &n.StandardEpisodeFormat, &n.DailyEpisodeFormat,
		&n.AnimeEpisodeFormat, &n.SeriesFolderFormat, &n.SeasonFolderFormat, &n.SpecialsFolderFormat,
		&n.ColonReplacement, &n.ReplaceIllegal, &n.MultiEpisodeStyle)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// UpdateNamingConfig rewrites the single naming configuration row.
func (q *Queries) UpdateNamingConfig(ctx context.Context, n *NamingConfig) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE naming_config SET movie_format=?, movie_folder_format=?, standard_episode_format=?,
		   daily_episode_format=?, anime_episode_format=?, series_folder_format=?,
		   season_folder_format=?, specials_folder_format=?, colon_replacement=?,
		   replace_illegal=?, multi_episode_style=?
		 WHERE id = 1`,
		n.MovieFormat, n.MovieFolderFormat, n.StandardEpisodeFormat,
		n.DailyEpisodeFormat, n.AnimeEpisodeFormat, n.SeriesFolderFormat,
		n.SeasonFolderFormat, n.SpecialsFolderFormat, n.ColonReplacement,
		n.ReplaceIllegal, n.MultiEpisodeStyle)
	return err
}

// CreateRootFolder inserts a root folder row.
func (q *Queries) CreateRootFolder(ctx context.Context, r *RootFolder) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO root_folders (id, path, media_type) VALUES (?,?,?)`,
		r.ID, r.Path, r.MediaType)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperr.Conflict("root folder already exists")
	}
	return err
}

// ListRootFolders returns all root folders.
func (q *Queries) ListRootFolders(ctx context.Context) ([]*RootFolder, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, path, media_type FROM root_folders ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*RootFolder
	for rows.Next() {
		var r RootFolder
		if err := rows.Scan(&r.ID, &r.Path, &r.MediaType); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// DeleteRootFolder removes a root folder row.
func (q *Queries) DeleteRootFolder(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM root_folders WHERE id=?`, id)
	return err
}
