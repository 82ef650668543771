package autosearch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/levijay/mediastack/internal/decisioning"
	"github.com/levijay/mediastack/internal/library/quality"
)

const (
	defaultConcurrency = 5
	batchPause         = 3 * time.Second
	siblingDelay       = 500 * time.Millisecond
)

type batchItem struct {
	mediaType decisioning.MediaType
	id        string
}

// SearchAllMissing sweeps every monitored, available movie and every
// monitored, aired episode that has no file.
func (s *Service) SearchAllMissing(ctx context.Context, concurrency int) (*BatchResult, error) {
	missingMovies, err := s.queries.ListMissingMovies(ctx)
	if err != nil {
		return nil, err
	}
	missingEpisodes, err := s.queries.ListMissingEpisodes(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]batchItem, 0, len(missingMovies)+len(missingEpisodes))
	for _, m := range missingMovies {
		items = append(items, batchItem{mediaType: decisioning.MediaTypeMovie, id: m.ID})
	}
	for _, e := range missingEpisodes {
		items = append(items, batchItem{mediaType: decisioning.MediaTypeEpisode, id: e.ID})
	}

	s.logger.Info().
		Int("movies", len(missingMovies)).
		Int("episodes", len(missingEpisodes)).
		Msg("Searching all missing")
	return s.runBatches(ctx, items, concurrency, false)
}

// SearchAllCutoffUnmet sweeps items that have a file but whose profile allows
// upgrades and whose quality is still below the cutoff.
func (s *Service) SearchAllCutoffUnmet(ctx context.Context, concurrency int) (*BatchResult, error) {
	defs, err := s.quality.Definitions(ctx)
	if err != nil {
		return nil, err
	}
	profiles := map[string]*quality.Profile{}
	upgradable := func(profileID, currentQuality string) bool {
		if profileID == "" {
			return false
		}
		profile, ok := profiles[profileID]
		if !ok {
			loaded, pErr := s.quality.GetProfile(ctx, profileID)
			if pErr != nil {
				s.logger.Warn().Err(pErr).Str("profile", profileID).Msg("Skipping items with unloadable profile")
				profiles[profileID] = nil
				return false
			}
			profiles[profileID] = loaded
			profile = loaded
		}
		if profile == nil || !profile.UpgradeAllowed {
			return false
		}
		return !profile.MeetsCutoff(defs, currentQuality)
	}

	withFiles, err := s.queries.ListMoviesWithFiles(ctx)
	if err != nil {
		return nil, err
	}
	var items []batchItem
	for _, m := range withFiles {
		if upgradable(m.QualityProfileID, m.Quality) {
			items = append(items, batchItem{mediaType: decisioning.MediaTypeMovie, id: m.ID})
		}
	}

	episodes, err := s.queries.ListEpisodesWithFiles(ctx)
	if err != nil {
		return nil, err
	}
	seriesProfile := map[string]string{}
	for _, e := range episodes {
		profileID, ok := seriesProfile[e.SeriesID]
		if !ok {
			series, sErr := s.queries.GetSeries(ctx, e.SeriesID)
			if sErr != nil {
				s.logger.Warn().Err(sErr).Str("series", e.SeriesID).Msg("Skipping episodes of unloadable series")
				seriesProfile[e.SeriesID] = ""
				continue
			}
			profileID = series.QualityProfileID
			seriesProfile[e.SeriesID] = profileID
		}
		if upgradable(profileID, e.Quality) {
			items = append(items, batchItem{mediaType: decisioning.MediaTypeEpisode, id: e.ID})
		}
	}

	s.logger.Info().Int("items", len(items)).Msg("Searching cutoff unmet")
	return s.runBatches(ctx, items, concurrency, false)
}

// runBatches works through items concurrency at a time, staggering siblings
// within a batch and pausing between batches to stay polite to indexers.
// Per-item failures are tallied, never fatal.
func (s *Service) runBatches(ctx context.Context, items []batchItem, concurrency int, forceUpgrade bool) (*BatchResult, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	batch := &BatchResult{}
	var mu sync.Mutex
	for start := 0; start < len(items); start += concurrency {
		if start > 0 {
			if err := pause(ctx, batchPause); err != nil {
				return batch, err
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		for i, item := range items[start:min(start+concurrency, len(items))] {
			delay := time.Duration(i) * siblingDelay
			g.Go(func() error {
				if delay > 0 {
					if err := pause(gctx, delay); err != nil {
						return err
					}
				}

				var res *Result
				var err error
				switch item.mediaType {
				case decisioning.MediaTypeMovie:
					res, err = s.SearchMovie(gctx, item.id, forceUpgrade)
				default:
					res, err = s.SearchEpisode(gctx, item.id, forceUpgrade)
				}

				mu.Lock()
				defer mu.Unlock()
				batch.Searched++
				switch {
				case err != nil:
					batch.Failed++
					s.logger.Warn().Err(err).
						Str("mediaType", string(item.mediaType)).Str("id", item.id).
						Msg("Batch search item failed")
				case res.Grabbed:
					batch.Grabbed++
				default:
					batch.Skipped++
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return batch, err
		}
	}
	return batch, nil
}

// pause sleeps unless the context ends first.
func pause(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
