// Package rsssync polls indexer feeds and grabs wanted releases as they
// appear, without a per-item search.
package rsssync

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/autosearch"
	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/decisioning"
	"github.com/levijay/mediastack/internal/indexer"
	"github.com/levijay/mediastack/internal/indexer/search"
	"github.com/levijay/mediastack/internal/library/quality"
	"github.com/levijay/mediastack/internal/library/scanner"
)

// cacheRetention is how long processed feed rows stay before the sweep.
const cacheRetention = 7 * 24 * time.Hour

// Status reports the outcome of the last sync pass.
type Status struct {
	Running      bool      `json:"running"`
	LastRun      time.Time `json:"lastRun,omitempty"`
	FeedReleases int       `json:"feedReleases"`
	NewReleases  int       `json:"newReleases"`
	Matched      int       `json:"matched"`
	Grabbed      int       `json:"grabbed"`
	Swept        int64     `json:"swept"`
	FeedErrors   int       `json:"feedErrors"`
	Error        string    `json:"error,omitempty"`
}

// Publisher receives sync events for the activity stream.
type Publisher interface {
	Publish(event string, payload any)
}

// Service runs the feed-driven grab pipeline.
type Service struct {
	queries  *database.Queries
	indexers *indexer.Service
	quality  *quality.Service
	grabber  *autosearch.Service
	locks    *decisioning.GrabLock
	events   Publisher
	logger   zerolog.Logger

	running atomic.Bool
	mu      sync.RWMutex
	status  Status
}

// NewService creates the RSS sync service.
func NewService(
	db *sql.DB,
	indexers *indexer.Service,
	qualitySvc *quality.Service,
	grabber *autosearch.Service,
	locks *decisioning.GrabLock,
	events Publisher,
	logger zerolog.Logger,
) *Service {
	return &Service{
		queries:  database.NewQueries(db),
		indexers: indexers,
		quality:  qualitySvc,
		grabber:  grabber,
		locks:    locks,
		events:   events,
		logger:   logger.With().Str("component", "rsssync").Logger(),
	}
}

// LastStatus returns the last pass's outcome.
func (s *Service) LastStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := s.status
	status.Running = s.running.Load()
	return status
}

// cachedRelease pairs a newly inserted cache row with its feed release.
type cachedRelease struct {
	row     *database.RSSRelease
	release indexer.Release
}

// Sync is one pass of the rss-sync worker: pull every feed, cache new
// releases, fan each one out against the wanted library, grab the matches,
// and sweep expired cache rows.
func (s *Service) Sync(ctx context.Context) (*Status, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug().Msg("RSS sync already running, skipping")
		return nil, nil
	}
	defer s.running.Store(false)

	start := time.Now()
	status := Status{LastRun: start.UTC()}
	defer func() {
		s.mu.Lock()
		s.status = status
		s.mu.Unlock()
	}()

	releases, feedErrors, err := s.indexers.FetchAllRSS(ctx)
	if err != nil {
		status.Error = err.Error()
		return &status, err
	}
	status.FeedReleases = len(releases)
	status.FeedErrors = len(feedErrors)

	fresh, err := s.cacheReleases(ctx, releases)
	if err != nil {
		status.Error = err.Error()
		return &status, err
	}
	status.NewReleases = len(fresh)

	if len(fresh) > 0 {
		matched, grabbed, err := s.processFresh(ctx, fresh)
		status.Matched = matched
		status.Grabbed = grabbed
		if err != nil {
			status.Error = err.Error()
			return &status, err
		}
	}

	swept, err := s.queries.SweepRSSReleasesOlderThan(ctx, time.Now().UTC().Add(-cacheRetention))
	if err != nil {
		status.Error = err.Error()
		return &status, err
	}
	status.Swept = swept

	if s.events != nil {
		s.events.Publish("rss_sync_completed", status)
	}
	s.logger.Info().
		Int("feed", status.FeedReleases).
		Int("new", status.NewReleases).
		Int("matched", status.Matched).
		Int("grabbed", status.Grabbed).
		Int64("swept", status.Swept).
		Dur("elapsed", time.Since(start)).
		Msg("RSS sync completed")
	return &status, nil
}

// cacheReleases inserts every feed item and returns the ones not seen
// before. The (indexer_id, guid) unique constraint is the dedup key.
func (s *Service) cacheReleases(ctx context.Context, releases []indexer.Release) ([]cachedRelease, error) {
	var fresh []cachedRelease
	for _, release := range releases {
		if release.GUID == "" || release.Title == "" {
			continue
		}
		row := &database.RSSRelease{
			IndexerID:   release.IndexerID,
			GUID:        release.GUID,
			Title:       release.Title,
			DownloadURL: release.DownloadURL,
			Size:        release.Size,
		}
		if !release.PublishDate.IsZero() {
			row.PublishDate = sql.NullString{
				String: release.PublishDate.UTC().Format(database.TimeFormat),
				Valid:  true,
			}
		}
		inserted, err := s.queries.InsertRSSRelease(ctx, row)
		if err != nil {
			return nil, err
		}
		if inserted {
			fresh = append(fresh, cachedRelease{row: row, release: release})
		}
	}
	return fresh, nil
}

// processFresh fans new releases out against the wanted index. The first
// wanted item a release serves grabs it; the cache row then records the
// outcome so a release is processed at most once.
func (s *Service) processFresh(ctx context.Context, fresh []cachedRelease) (matched, grabbed int, err error) {
	wanted, err := s.loadWanted(ctx)
	if err != nil {
		return 0, 0, err
	}
	index := BuildWantedIndex(wanted)
	if index.Size() == 0 {
		for _, item := range fresh {
			if err := s.queries.MarkRSSReleaseProcessed(ctx, item.row.ID, false); err != nil {
				return matched, grabbed, err
			}
		}
		return 0, 0, nil
	}

	defs, err := s.quality.Definitions(ctx)
	if err != nil {
		return 0, 0, err
	}
	formats, err := s.quality.Formats(ctx)
	if err != nil {
		return 0, 0, err
	}
	selector := decisioning.NewSelector(defs, formats, s.logger)
	selector.IsBlacklisted = func(title string, item decisioning.SearchableItem) bool {
		titles, blErr := s.queries.ListBlacklistTitlesFor(ctx, blacklistScope(item))
		if blErr != nil {
			s.logger.Warn().Err(blErr).Msg("Blacklist lookup failed")
			return false
		}
		normalized := search.NormalizeTitle(title)
		for _, entry := range titles {
			if search.NormalizeTitle(entry) == normalized {
				return true
			}
		}
		return false
	}

	profiles := make(map[string]*quality.Profile)
	for _, cached := range fresh {
		if ctx.Err() != nil {
			return matched, grabbed, ctx.Err()
		}

		parsed := scanner.ParseFilename(cached.release.Title)
		candidates := index.Lookup(search.NormalizeTitle(parsed.Title))
		if len(candidates) > 0 {
			matched++
		}

		wasGrabbed := false
		for _, item := range candidates {
			ok, grabErr := s.tryGrab(ctx, selector, profiles, cached.release, item)
			if grabErr != nil {
				s.logger.Warn().Err(grabErr).
					Str("release", cached.release.Title).
					Str("mediaType", string(item.MediaType)).
					Msg("Feed grab failed")
				continue
			}
			if ok {
				grabbed++
				wasGrabbed = true
				break
			}
		}

		if err := s.queries.MarkRSSReleaseProcessed(ctx, cached.row.ID, wasGrabbed); err != nil {
			return matched, grabbed, err
		}
	}
	return matched, grabbed, nil
}

// tryGrab evaluates one release against one wanted item with the same
// predicates as auto-search, and grabs it when it qualifies.
func (s *Service) tryGrab(
	ctx context.Context,
	selector *decisioning.Selector,
	profiles map[string]*quality.Profile,
	release indexer.Release,
	item decisioning.SearchableItem,
) (bool, error) {
	active, err := s.hasActiveDownload(ctx, item)
	if err != nil {
		return false, err
	}
	if active {
		return false, nil
	}

	profile, ok := profiles[item.QualityProfileID]
	if !ok {
		profile, err = s.quality.GetProfile(ctx, item.QualityProfileID)
		if err != nil {
			return false, err
		}
		profiles[item.QualityProfileID] = profile
	}

	candidate, _ := selector.Select([]indexer.Release{release}, profile, item)
	if candidate == nil {
		return false, nil
	}

	key := s.lockKey(item)
	if !s.locks.TryAcquire(key) {
		return false, nil
	}
	defer s.locks.Release(key)

	result := &autosearch.Result{MediaType: item.MediaType, MediaID: item.MediaID}
	result, err = s.grabber.Grab(ctx, result, candidate, item)
	if err != nil {
		return false, err
	}
	return result.Grabbed, nil
}

func (s *Service) hasActiveDownload(ctx context.Context, item decisioning.SearchableItem) (bool, error) {
	switch item.MediaType {
	case decisioning.MediaTypeMovie:
		return s.queries.HasActiveDownloadForMovie(ctx, item.MediaID)
	case decisioning.MediaTypeEpisode:
		return s.queries.HasActiveDownloadForEpisode(ctx, item.MediaID, item.SeriesID, item.SeasonNumber)
	default:
		return s.queries.HasActiveDownloadForEpisode(ctx, "", item.SeriesID, item.SeasonNumber)
	}
}

// blacklistScope narrows blacklist lookups to the wanted item a release is
// being evaluated for.
func blacklistScope(item decisioning.SearchableItem) database.BlacklistScope {
	if item.MediaType == decisioning.MediaTypeMovie {
		return database.BlacklistScope{MovieID: item.MediaID}
	}
	return database.BlacklistScope{
		SeriesID:      item.SeriesID,
		SeasonNumber:  item.SeasonNumber,
		EpisodeNumber: item.EpisodeNumber,
	}
}

func (s *Service) lockKey(item decisioning.SearchableItem) string {
	switch item.MediaType {
	case decisioning.MediaTypeMovie:
		return decisioning.Key(decisioning.MediaTypeMovie, item.MediaID)
	case decisioning.MediaTypeEpisode:
		return decisioning.Key(decisioning.MediaTypeEpisode, item.MediaID)
	default:
		return decisioning.SeasonKey(item.SeriesID, item.SeasonNumber)
	}
}
