package movies

import (
	"context"
	"database/sql"
	"time"

	"github.com/levijay/mediastack/internal/database"
)

// Minimum availability thresholds, in release order.
const (
	AvailabilityAnnounced = "announced"
	AvailabilityInCinemas = "inCinemas"
	AvailabilityReleased  = "released"
	AvailabilityPreDB     = "preDB"
)

// IsAvailable reports whether the movie has crossed its minimum
// availability threshold. Evaluated at search time, not at add time.
func IsAvailable(movie *database.Movie, now time.Time) bool {
	switch movie.MinimumAvailability {
	case AvailabilityAnnounced:
		return true
	case AvailabilityInCinemas:
		return dateReached(movie.TheatricalRelease, now)
	default:
		// released and preDB: any confirmed release date in the past
		// counts, since digital and physical availability differ by
		// region and the dates are unreliable individually.
		return dateReached(movie.TheatricalRelease, now) ||
			dateReached(movie.DigitalRelease, now) ||
			dateReached(movie.PhysicalRelease, now)
	}
}

func dateReached(value sql.NullString, now time.Time) bool {
	if !value.Valid || value.String == "" {
		return false
	}
	for _, layout := range []string{database.TimeFormat, "2006-01-02"} {
		if t, err := time.Parse(layout, value.String); err == nil {
			return !t.After(now)
		}
	}
	return false
}

// ListSearchable returns monitored movies without a file whose availability
// threshold has been met.
func (s *Service) ListSearchable(ctx context.Context, now time.Time) ([]*database.Movie, error) {
	missing, err := s.queries.ListMissingMovies(ctx)
	if err != nil {
		return nil, err
	}
	searchable := make([]*database.Movie, 0, len(missing))
	for _, movie := range missing {
		if IsAvailable(movie, now) {
			searchable = append(searchable, movie)
		}
	}
	return searchable, nil
}
