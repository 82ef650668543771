package quality

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/database"
)

// Service provides quality definition, profile, and custom format operations.
type Service struct {
	queries *database.Queries
	logger  zerolog.Logger
}

// NewService creates a new quality service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		queries: database.NewQueries(db),
		logger:  logger.With().Str("component", "quality").Logger(),
	}
}

// Definitions loads all quality tiers ordered by weight.
func (s *Service) Definitions(ctx context.Context) (*Definitions, error) {
	rows, err := s.queries.ListQualityDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list quality definitions: %w", err)
	}
	list := make([]Definition, len(rows))
	for i, r := range rows {
		list[i] = Definition{
			ID:            r.ID,
			Name:          r.Name,
			Weight:        r.Weight,
			MinSize:       r.MinSize,
			MaxSize:       r.MaxSize,
			PreferredSize: r.PreferredSize,
			Resolution:    r.Resolution,
			Source:        r.Source,
		}
	}
	return NewDefinitions(list), nil
}

// UpdateDefinitionSizes adjusts the size bounds for one tier.
func (s *Service) UpdateDefinitionSizes(ctx context.Context, id string, minSize, maxSize, preferredSize int64) error {
	if minSize < 0 || maxSize < minSize {
		return fmt.Errorf("invalid size bounds: min=%d max=%d", minSize, maxSize)
	}
	return s.queries.UpdateQualityDefinitionSizes(ctx, id, minSize, maxSize, preferredSize)
}

// GetProfile retrieves a quality profile by id.
func (s *Service) GetProfile(ctx context.Context, id string) (*Profile, error) {
	row, err := s.queries.GetQualityProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	return ProfileFromRow(row)
}

// ListProfiles returns all quality profiles.
func (s *Service) ListProfiles(ctx context.Context) ([]*Profile, error) {
	rows, err := s.queries.ListQualityProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list quality profiles: %w", err)
	}
	profiles := make([]*Profile, 0, len(rows))
	for _, row := range rows {
		p, err := ProfileFromRow(row)
		if err != nil {
			s.logger.Warn().Err(err).Str("profile", row.Name).Msg("Skipping unparseable quality profile")
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// CreateProfile persists a new profile.
func (s *Service) CreateProfile(ctx context.Context, p *Profile) error {
	if err := validateProfile(p); err != nil {
		return err
	}
	row, err := p.ToRow()
	if err != nil {
		return err
	}
	if err := s.queries.CreateQualityProfile(ctx, row); err != nil {
		return err
	}
	s.logger.Info().Str("profile", p.Name).Msg("Created quality profile")
	return nil
}

// UpdateProfile rewrites an existing profile.
func (s *Service) UpdateProfile(ctx context.Context, p *Profile) error {
	if err := validateProfile(p); err != nil {
		return err
	}
	row, err := p.ToRow()
	if err != nil {
		return err
	}
	return s.queries.UpdateQualityProfile(ctx, row)
}

// DeleteProfile removes a profile unless media still references it.
func (s *Service) DeleteProfile(ctx context.Context, id string) error {
	return s.queries.DeleteQualityProfile(ctx, id)
}

func validateProfile(p *Profile) error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	allowed := false
	cutoffAllowed := false
	for _, item := range p.Items {
		if item.Allowed {
			allowed = true
			if item.Quality == p.Cutoff {
				cutoffAllowed = true
			}
		}
	}
	if !allowed {
		return fmt.Errorf("profile must allow at least one quality")
	}
	if p.Cutoff != "" && !cutoffAllowed {
		return fmt.Errorf("cutoff quality %q must be in the allowed set", p.Cutoff)
	}
	return nil
}

// Formats loads all custom formats with compiled rules.
func (s *Service) Formats(ctx context.Context) ([]*Format, error) {
	rows, err := s.queries.ListCustomFormats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom formats: %w", err)
	}
	formats := make([]*Format, 0, len(rows))
	for _, row := range rows {
		f, err := FormatFromRow(row)
		if err != nil {
			s.logger.Warn().Err(err).Str("format", row.Name).Msg("Skipping unparseable custom format")
			continue
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// CreateFormat persists a new custom format after verifying its rules compile.
func (s *Service) CreateFormat(ctx context.Context, row *database.CustomFormat) error {
	if _, err := FormatFromRow(row); err != nil {
		return err
	}
	return s.queries.CreateCustomFormat(ctx, row)
}

// UpdateFormat rewrites a custom format after verifying its rules compile.
func (s *Service) UpdateFormat(ctx context.Context, row *database.CustomFormat) error {
	if _, err := FormatFromRow(row); err != nil {
		return err
	}
	return s.queries.UpdateCustomFormat(ctx, row)
}

// DeleteFormat removes a custom format.
func (s *Service) DeleteFormat(ctx context.Context, id string) error {
	return s.queries.DeleteCustomFormat(ctx, id)
}
