// Package autosearch finds, selects, and grabs releases for wanted items.
package autosearch

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/apperr"
	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/decisioning"
	"github.com/levijay/mediastack/internal/downloader"
	"github.com/levijay/mediastack/internal/indexer"
	"github.com/levijay/mediastack/internal/indexer/search"
	"github.com/levijay/mediastack/internal/library/movies"
	"github.com/levijay/mediastack/internal/library/quality"
)

// Publisher receives grab events for the activity stream.
type Publisher interface {
	Publish(event string, payload any)
}

// Service searches indexers for wanted items and dispatches the best release
// to a download client.
type Service struct {
	queries   *database.Queries
	indexers  *indexer.Service
	quality   *quality.Service
	downloads *downloader.Service
	locks     *decisioning.GrabLock
	events    Publisher
	logger    zerolog.Logger
}

// NewService creates the auto-search service.
func NewService(
	db *sql.DB,
	indexers *indexer.Service,
	qualitySvc *quality.Service,
	downloads *downloader.Service,
	locks *decisioning.GrabLock,
	events Publisher,
	logger zerolog.Logger,
) *Service {
	return &Service{
		queries:   database.NewQueries(db),
		indexers:  indexers,
		quality:   qualitySvc,
		downloads: downloads,
		locks:     locks,
		events:    events,
		logger:    logger.With().Str("component", "autosearch").Logger(),
	}
}

// policy bundles the loaded quality state a single search decides against.
type policy struct {
	profile  *quality.Profile
	defs     *quality.Definitions
	selector *decisioning.Selector
}

func (s *Service) loadPolicy(ctx context.Context, profileID string) (*policy, error) {
	profile, err := s.quality.GetProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("load quality profile: %w", err)
	}
	defs, err := s.quality.Definitions(ctx)
	if err != nil {
		return nil, err
	}
	formats, err := s.quality.Formats(ctx)
	if err != nil {
		return nil, err
	}

	selector := decisioning.NewSelector(defs, formats, s.logger)
	selector.IsBlacklisted = func(title string, item decisioning.SearchableItem) bool {
		titles, blErr := s.queries.ListBlacklistTitlesFor(ctx, blacklistScope(item))
		if blErr != nil {
			s.logger.Warn().Err(blErr).Msg("Blacklist lookup failed")
			return false
		}
		return titleBlacklisted(title, titles)
	}
	return &policy{profile: profile, defs: defs, selector: selector}, nil
}

// blacklistScope narrows blacklist lookups to the item being searched.
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

// titleBlacklisted compares on normalized titles, so an entry recorded from
// one indexer's naming still blocks the same release named differently.
func titleBlacklisted(title string, blocked []string) bool {
	normalized := search.NormalizeTitle(title)
	for _, entry := range blocked {
		if search.NormalizeTitle(entry) == normalized {
			return true
		}
	}
	return false
}

// SearchMovie searches every enabled indexer for the movie and grabs the best
// qualifying release. forceUpgrade bypasses the cutoff short-circuit for
// manual searches.
func (s *Service) SearchMovie(ctx context.Context, movieID string, forceUpgrade bool) (*Result, error) {
	movie, err := s.queries.GetMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if movie.QualityProfileID == "" {
		return nil, apperr.Validation("movie %q has no quality profile", movie.Title)
	}

	result := &Result{MediaType: decisioning.MediaTypeMovie, MediaID: movie.ID}
	if !movie.Monitored {
		return skip(result, SkipNotMonitored), nil
	}
	if !movies.IsAvailable(movie, time.Now().UTC()) {
		return skip(result, SkipNotAvailable), nil
	}
	active, err := s.queries.HasActiveDownloadForMovie(ctx, movie.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return skip(result, SkipActiveDownload), nil
	}

	pol, err := s.loadPolicy(ctx, movie.QualityProfileID)
	if err != nil {
		return nil, err
	}
	if movie.HasFile && !forceUpgrade {
		if !pol.profile.UpgradeAllowed {
			return skip(result, SkipUpgradesDisabled), nil
		}
		if pol.profile.MeetsCutoff(pol.defs, movie.Quality) {
			return skip(result, SkipCutoffMet), nil
		}
	}

	key := decisioning.Key(decisioning.MediaTypeMovie, movie.ID)
	if !s.locks.TryAcquire(key) {
		return skip(result, SkipSearchRunning), nil
	}
	defer s.locks.Release(key)

	found, err := s.indexers.SearchAll(ctx, indexer.SearchCriteria{
		Query:     movie.Title,
		MediaType: "movie",
		Year:      movie.Year,
	})
	if err != nil {
		return nil, err
	}

	item := decisioning.SearchableItem{
		MediaType:        decisioning.MediaTypeMovie,
		MediaID:          movie.ID,
		Title:            movie.Title,
		Year:             movie.Year,
		QualityProfileID: movie.QualityProfileID,
		HasFile:          movie.HasFile,
		CurrentQuality:   movie.Quality,
		CurrentProper:    movie.IsProper,
		CurrentRepack:    movie.IsRepack,
		ForceUpgrade:     forceUpgrade,
	}
	candidate, rejections := pol.selector.Select(found.Releases, pol.profile, item)
	result.Rejections = rejections
	if candidate == nil {
		return skip(result, SkipNoResults), nil
	}
	return s.Grab(ctx, result, candidate, item)
}

// SearchEpisode mirrors SearchMovie for a single episode.
func (s *Service) SearchEpisode(ctx context.Context, episodeID string, forceUpgrade bool) (*Result, error) {
	episode, err := s.queries.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	series, err := s.queries.GetSeries(ctx, episode.SeriesID)
	if err != nil {
		return nil, err
	}
	if series.QualityProfileID == "" {
		return nil, apperr.Validation("series %q has no quality profile", series.Title)
	}

	result := &Result{MediaType: decisioning.MediaTypeEpisode, MediaID: episode.ID}
	if !episode.Monitored || !series.Monitored {
		return skip(result, SkipNotMonitored), nil
	}
	if !aired(episode, time.Now().UTC()) {
		return skip(result, SkipNotAired), nil
	}
	active, err := s.queries.HasActiveDownloadForEpisode(ctx, episode.ID, series.ID, episode.SeasonNumber)
	if err != nil {
		return nil, err
	}
	if active {
		return skip(result, SkipActiveDownload), nil
	}

	pol, err := s.loadPolicy(ctx, series.QualityProfileID)
	if err != nil {
		return nil, err
	}
	if episode.HasFile && !forceUpgrade {
		if !pol.profile.UpgradeAllowed {
			return skip(result, SkipUpgradesDisabled), nil
		}
		if pol.profile.MeetsCutoff(pol.defs, episode.Quality) {
			return skip(result, SkipCutoffMet), nil
		}
	}

	key := decisioning.Key(decisioning.MediaTypeEpisode, episode.ID)
	if !s.locks.TryAcquire(key) {
		return skip(result, SkipSearchRunning), nil
	}
	defer s.locks.Release(key)

	found, err := s.indexers.SearchAll(ctx, indexer.SearchCriteria{
		Query:     series.Title,
		MediaType: "series",
		Season:    episode.SeasonNumber,
		Episode:   episode.EpisodeNumber,
	})
	if err != nil {
		return nil, err
	}

	item := decisioning.SearchableItem{
		MediaType:        decisioning.MediaTypeEpisode,
		MediaID:          episode.ID,
		Title:            series.Title,
		SeriesID:         series.ID,
		SeasonNumber:     episode.SeasonNumber,
		EpisodeNumber:    episode.EpisodeNumber,
		QualityProfileID: series.QualityProfileID,
		HasFile:          episode.HasFile,
		CurrentQuality:   episode.Quality,
		CurrentProper:    episode.IsProper,
		CurrentRepack:    episode.IsRepack,
		ForceUpgrade:     forceUpgrade,
	}
	candidate, rejections := pol.selector.Select(found.Releases, pol.profile, item)
	result.Rejections = rejections
	if candidate == nil {
		return skip(result, SkipNoResults), nil
	}
	return s.Grab(ctx, result, candidate, item)
}

// SearchSeason fills a season: when every monitored episode is missing it
// tries a season pack first, otherwise it searches the missing episodes one
// by one with a short pause between siblings.
func (s *Service) SearchSeason(ctx context.Context, seriesID string, seasonNumber int, forceUpgrade bool) (*BatchResult, error) {
	series, err := s.queries.GetSeries(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	episodes, err := s.queries.ListSeasonEpisodes(ctx, seriesID, seasonNumber)
	if err != nil {
		return nil, err
	}

	var monitored, wanted []*database.Episode
	for _, ep := range episodes {
		if !ep.Monitored {
			continue
		}
		monitored = append(monitored, ep)
		if !ep.HasFile {
			wanted = append(wanted, ep)
		}
	}

	batch := &BatchResult{}
	if len(wanted) == 0 {
		return batch, nil
	}

	if len(wanted) == len(monitored) {
		packed, packErr := s.searchSeasonPack(ctx, series, seasonNumber, len(monitored))
		if packErr != nil {
			s.logger.Warn().Err(packErr).
				Str("series", series.Title).Int("season", seasonNumber).
				Msg("Season pack search failed, falling back to episodes")
		} else if packed.Grabbed {
			batch.Searched++
			batch.Grabbed++
			return batch, nil
		}
	}

	for i, ep := range wanted {
		if i > 0 {
			if err := pause(ctx, siblingDelay); err != nil {
				return batch, err
			}
		}
		res, epErr := s.SearchEpisode(ctx, ep.ID, forceUpgrade)
		batch.Searched++
		switch {
		case epErr != nil:
			batch.Failed++
			s.logger.Warn().Err(epErr).Str("episode", ep.ID).Msg("Episode search failed")
		case res.Grabbed:
			batch.Grabbed++
		default:
			batch.Skipped++
		}
	}
	return batch, nil
}

func (s *Service) searchSeasonPack(ctx context.Context, series *database.Series, seasonNumber, episodeCount int) (*Result, error) {
	result := &Result{MediaType: decisioning.MediaTypeSeason, MediaID: series.ID}

	active, err := s.queries.HasActiveDownloadForEpisode(ctx, "", series.ID, seasonNumber)
	if err != nil {
		return nil, err
	}
	if active {
		return skip(result, SkipActiveDownload), nil
	}

	key := decisioning.SeasonKey(series.ID, seasonNumber)
	if !s.locks.TryAcquire(key) {
		return skip(result, SkipSearchRunning), nil
	}
	defer s.locks.Release(key)

	pol, err := s.loadPolicy(ctx, series.QualityProfileID)
	if err != nil {
		return nil, err
	}
	found, err := s.indexers.SearchAll(ctx, indexer.SearchCriteria{
		Query:     series.Title,
		MediaType: "series",
		Season:    seasonNumber,
	})
	if err != nil {
		return nil, err
	}

	item := decisioning.SearchableItem{
		MediaType:        decisioning.MediaTypeSeason,
		MediaID:          series.ID,
		Title:            series.Title,
		SeriesID:         series.ID,
		SeasonNumber:     seasonNumber,
		EpisodeCount:     episodeCount,
		QualityProfileID: series.QualityProfileID,
	}
	candidate, rejections := pol.selector.Select(found.Releases, pol.profile, item)
	result.Rejections = rejections
	if candidate == nil {
		return skip(result, SkipNoResults), nil
	}
	return s.Grab(ctx, result, candidate, item)
}

// Grab records the download row for a selected candidate, dispatches it to
// a client, and logs history. The feed pipeline shares this path so its
// grabs carry identical bookkeeping.
func (s *Service) Grab(ctx context.Context, result *Result, candidate *decisioning.Candidate, item decisioning.SearchableItem) (*Result, error) {
	release := candidate.Release

	dup, err := s.queries.HasDownloadURL(ctx, release.DownloadURL)
	if err != nil {
		return nil, err
	}
	if dup {
		return skip(result, SkipDuplicateURL), nil
	}

	download := &database.Download{
		ID:          uuid.NewString(),
		MediaType:   string(item.MediaType),
		Title:       release.Title,
		DownloadURL: release.DownloadURL,
		Size:        release.Size,
		Indexer:     release.IndexerName,
		Quality:     candidate.Parsed.Quality,
		Status:      database.DownloadStatusQueued,
	}
	switch item.MediaType {
	case decisioning.MediaTypeMovie:
		download.MovieID = sql.NullString{String: item.MediaID, Valid: true}
	case decisioning.MediaTypeEpisode:
		download.SeriesID = sql.NullString{String: item.SeriesID, Valid: true}
		download.EpisodeID = sql.NullString{String: item.MediaID, Valid: true}
		download.SeasonNumber = item.SeasonNumber
	case decisioning.MediaTypeSeason:
		download.SeriesID = sql.NullString{String: item.SeriesID, Valid: true}
		download.SeasonNumber = item.SeasonNumber
	}

	if err := s.queries.CreateDownload(ctx, download); err != nil {
		return nil, err
	}
	if err := s.downloads.Dispatch(ctx, download, ""); err != nil {
		if dbErr := s.queries.SetDownloadStatus(ctx, download.ID, database.DownloadStatusFailed, err.Error()); dbErr != nil {
			s.logger.Warn().Err(dbErr).Str("download", download.ID).Msg("Failed to mark failed")
		}
		entityType, entityID := grabEntity(item)
		if _, hErr := s.queries.AppendHistory(ctx, entityType, entityID, database.HistoryEventDownloadFailed, err.Error(), "{}"); hErr != nil {
			s.logger.Warn().Err(hErr).Msg("Failed to append failure history")
		}
		return nil, fmt.Errorf("dispatch %q: %w", release.Title, err)
	}

	message := fmt.Sprintf("Grabbed %s (%s from %s, score %d)",
		release.Title, humanize.IBytes(uint64(release.Size)), release.IndexerName, candidate.Score.Total)
	entityType, entityID := grabEntity(item)
	if _, err := s.queries.AppendHistory(ctx, entityType, entityID, database.HistoryEventGrabbed, message, "{}"); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to append grab history")
	}

	s.logger.Info().
		Str("release", release.Title).
		Str("indexer", release.IndexerName).
		Int("score", candidate.Score.Total).
		Msg("Grabbed release")
	s.publish("release_grabbed", download)

	result.Grabbed = true
	result.DownloadID = download.ID
	result.Release = candidate
	return result, nil
}

func grabEntity(item decisioning.SearchableItem) (string, string) {
	switch item.MediaType {
	case decisioning.MediaTypeMovie:
		return "movie", item.MediaID
	case decisioning.MediaTypeEpisode:
		return "episode", item.MediaID
	default:
		return "series", item.SeriesID
	}
}

func skip(result *Result, reason string) *Result {
	result.SkipReason = reason
	return result
}

// aired reports whether the episode's air date has passed. Episodes without
// an air date are treated as unaired.
func aired(episode *database.Episode, now time.Time) bool {
	if !episode.AirDate.Valid || episode.AirDate.String == "" {
		return false
	}
	for _, layout := range []string{database.TimeFormat, "2006-01-02"} {
		if t, err := time.Parse(layout, episode.AirDate.String); err == nil {
			return !t.After(now)
		}
	}
	return false
}

func (s *Service) publish(event string, payload any) {
	if s.events != nil {
		s.events.Publish(event, payload)
	}
}
