package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/levijay/mediastack/internal/apperr"
)

const qualityDefinitionColumns = `id, name, weight, min_size, max_size, preferred_size, resolution, source`

func scanQualityDefinition(row interface{ Scan(...any) error }) (*QualityDefinition, error) {
	var d QualityDefinition
	err := row.Scan(&d.ID, &d.Name, &d.Weight, &d.MinSize, &d.MaxSize, &d.PreferredSize, &d.Resolution, &d.Source)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListQualityDefinitions returns all quality definitions ordered by weight.
func (q *Queries) ListQualityDefinitions(ctx context.Context) ([]*QualityDefinition, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+qualityDefinitionColumns+` FROM quality_definitions ORDER BY weight`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*QualityDefinition
	for rows.Next() {
		d, err := scanQualityDefinition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateQualityDefinitionSizes adjusts the size bounds for one definition.
func (q *Queries) UpdateQualityDefinitionSizes(ctx context.Context, id string, minSize, maxSize, preferredSize int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE quality_definitions SET min_size=?, max_size=?, preferred_size=? WHERE id=?`,
		minSize, maxSize, preferredSize, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("quality definition not found")
	}
	return nil
}

const qualityProfileColumns = `id, name, media_type, items, cutoff, upgrade_allowed,
	min_format_score, format_scores, propers_preference`

func scanQualityProfile(row interface{ Scan(...any) error }) (*QualityProfile, error) {
	var p QualityProfile
	err := row.Scan(&p.ID, &p.Name, &p.MediaType, &p.Items, &p.Cutoff, &p.UpgradeAllowed,
		&p.MinFormatScore, &p.FormatScores, &p.PropersPreference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("quality profile not found")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateQualityProfile inserts a profile row.
func (q *Queries) CreateQualityProfile(ctx context.Context, p *QualityProfile) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO quality_profiles (`+qualityProfileColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.MediaType, p.Items, p.Cutoff, p.UpgradeAllowed,
		p.MinFormatScore, p.FormatScores, p.PropersPreference)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperr.Conflict("quality profile already exists")
	}
	return err
}

// GetQualityProfile returns a profile by id.
func (q *Queries) GetQualityProfile(ctx context.Context, id string) (*QualityProfile, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+qualityProfileColumns+` FROM quality_profiles WHERE id=?`, id)
	return scanQualityProfile(row)
}

// ListQualityProfiles returns all profiles ordered by name.
func (q *Queries) ListQualityProfiles(ctx context.Context) ([]*QualityProfile, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+qualityProfileColumns+` FROM quality_profiles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*QualityProfile
	for rows.Next() {
		p, err := scanQualityProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateQualityProfile rewrites all mutable profile fields.
func (q *Queries) UpdateQualityProfile(ctx context.Context, p *QualityProfile) error {
	res, err := q.db.ExecContext(ctx, `UPDATE quality_profiles SET
		name=?, media_type=?, items=?, cutoff=?, upgrade_allowed=?,
		min_format_score=?, format_scores=?, propers_preference=?
		WHERE id=?`,
		p.Name, p.MediaType, p.Items, p.Cutoff, p.UpgradeAllowed,
		p.MinFormatScore, p.FormatScores, p.PropersPreference, p.ID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("quality profile not found")
	}
	return nil
}

// DeleteQualityProfile removes a profile. Fails with a conflict when any
// movie or series still references it.
func (q *Queries) DeleteQualityProfile(ctx context.Context, id string) error {
	var inUse int64
	err := q.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM movies WHERE quality_profile_id=?) +
		        (SELECT COUNT(*) FROM series WHERE quality_profile_id=?)`, id, id).Scan(&inUse)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return apperr.Conflict("quality profile is in use")
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM quality_profiles WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("quality profile not found")
	}
	return nil
}

const customFormatColumns = `id, name, score, rules`

// CreateCustomFormat inserts a custom format row.
func (q *Queries) CreateCustomFormat(ctx context.Context, f *CustomFormat) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO custom_formats (`+customFormatColumns+`) VALUES (?,?,?,?)`,
		f.ID, f.Name, f.Score, f.Rules)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperr.Conflict("custom format already exists")
	}
	return err
}

// ListCustomFormats returns all custom formats ordered by name.
func (q *Queries) ListCustomFormats(ctx context.Context) ([]*CustomFormat, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+customFormatColumns+` FROM custom_formats ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*CustomFormat
	for rows.Next() {
		var f CustomFormat
		if err := rows.Scan(&f.ID, &f.Name, &f.Score, &f.Rules); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// UpdateCustomFormat rewrites a custom format.
func (q *Queries) UpdateCustomFormat(ctx context.Context, f *CustomFormat) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE custom_formats SET name=?, score=?, rules=? WHERE id=?`,
		f.Name, f.Score, f.Rules, f.ID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("custom format not found")
	}
	return nil
}

// DeleteCustomFormat removes a custom format row.
func (q *Queries) DeleteCustomFormat(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM custom_formats WHERE id=?`, id)
	return err
}
