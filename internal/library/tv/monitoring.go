package tv

import (
	"context"

	"github.com/levijay/mediastack/internal/database"
)

// monitor_new_seasons modes.
const (
	MonitorNewSeasonsAll     = "all"
	MonitorNewSeasonsFuture  = "future"
	MonitorNewSeasonsCurrent = "current"
	MonitorNewSeasonsNone    = "none"
)

// SetSeriesMonitored toggles the series and cascades the state to every
// season and episode in one transaction.
func (s *Service) SetSeriesMonitored(ctx context.Context, seriesID string, monitored bool) error {
	return database.InTx(ctx, s.db, func(q *database.Queries) error {
		if err := q.SetSeriesMonitored(ctx, seriesID, monitored); err != nil {
			return err
		}
		if err := q.SetAllSeasonsMonitored(ctx, seriesID, monitored); err != nil {
			return err
		}
		return q.SetAllEpisodesMonitored(ctx, seriesID, monitored)
	})
}

// SetSeasonMonitored toggles one season and its episodes. Unmonitoring the
// last monitored season also unmonitors the series itself.
func (s *Service) SetSeasonMonitored(ctx context.Context, seriesID string, seasonNumber int, monitored bool) error {
	return database.InTx(ctx, s.db, func(q *database.Queries) error {
		if err := q.SetSeasonMonitored(ctx, seriesID, seasonNumber, monitored); err != nil {
			return err
		}
		if err := q.SetSeasonEpisodesMonitored(ctx, seriesID, seasonNumber, monitored); err != nil {
			return err
		}
		if monitored {
			// A monitored season implies a monitored series.
			return q.SetSeriesMonitored(ctx, seriesID, true)
		}
		remaining, err := q.CountMonitoredSeasons(ctx, seriesID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return q.SetSeriesMonitored(ctx, seriesID, false)
		}
		return nil
	})
}

// SetEpisodeMonitored toggles a single episode.
func (s *Service) SetEpisodeMonitored(ctx context.Context, episodeID string, monitored bool) error {
	return s.queries.SetEpisodeMonitored(ctx, episodeID, monitored)
}

// ShouldMonitorNewSeason decides whether a season discovered during a
// metadata refresh starts monitored, given the series' mode and the highest
// season number known before the refresh.
func ShouldMonitorNewSeason(series *database.Series, seasonNumber, previousLatest int) bool {
	if seasonNumber == 0 {
		return false // specials never auto-monitor
	}
	switch series.MonitorNewSeasons {
	case MonitorNewSeasonsAll:
		return true
	case MonitorNewSeasonsFuture:
		return seasonNumber > previousLatest
	case MonitorNewSeasonsCurrent:
		return seasonNumber >= previousLatest
	default:
		return false
	}
}
