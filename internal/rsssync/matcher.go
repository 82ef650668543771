package rsssync

import (
	"context"
	"time"

	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/decisioning"
	"github.com/levijay/mediastack/internal/indexer/search"
	"github.com/levijay/mediastack/internal/library/movies"
	"github.com/levijay/mediastack/internal/library/quality"
)

// WantedIndex maps normalized titles to the wanted items that carry them,
// so one feed pass stays O(releases) instead of O(releases × library).
type WantedIndex struct {
	byTitle map[string][]decisioning.SearchableItem
}

// BuildWantedIndex indexes wanted items by normalized title.
func BuildWantedIndex(items []decisioning.SearchableItem) *WantedIndex {
	idx := &WantedIndex{byTitle: make(map[string][]decisioning.SearchableItem)}
	for _, item := range items {
		key := search.NormalizeTitle(item.Title)
		if key == "" {
			continue
		}
		idx.byTitle[key] = append(idx.byTitle[key], item)
	}
	return idx
}

// Lookup returns the wanted items for a normalized release title, movies
// first, then episodes, then season packs, matching the fan-out order of
// the grab pipeline.
func (idx *WantedIndex) Lookup(normalizedTitle string) []decisioning.SearchableItem {
	items := idx.byTitle[normalizedTitle]
	if len(items) < 2 {
		return items
	}
	ordered := make([]decisioning.SearchableItem, 0, len(items))
	for _, mt := range []decisioning.MediaType{
		decisioning.MediaTypeMovie,
		decisioning.MediaTypeEpisode,
		decisioning.MediaTypeSeason,
	} {
		for _, item := range items {
			if item.MediaType == mt {
				ordered = append(ordered, item)
			}
		}
	}
	return ordered
}

// Size reports how many distinct titles are indexed.
func (idx *WantedIndex) Size() int { return len(idx.byTitle) }

// loadWanted assembles every item a feed release could serve: missing
// movies past their availability gate, upgrade-eligible movies, missing
// aired episodes, upgrade-eligible episodes, and season packs for seasons
// where every monitored episode is missing.
func (s *Service) loadWanted(ctx context.Context) ([]decisioning.SearchableItem, error) {
	defs, err := s.quality.Definitions(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make(map[string]*quality.Profile)
	profileFor := func(id string) *quality.Profile {
		if id == "" {
			return nil
		}
		if p, ok := profiles[id]; ok {
			return p
		}
		p, err := s.quality.GetProfile(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Str("profile", id).Msg("Skipping items with unloadable profile")
			p = nil
		}
		profiles[id] = p
		return p
	}
	upgradable := func(profileID, currentQuality string) bool {
		p := profileFor(profileID)
		return p != nil && p.UpgradeAllowed && !p.MeetsCutoff(defs, currentQuality)
	}

	now := time.Now().UTC()
	var items []decisioning.SearchableItem

	missingMovies, err := s.queries.ListMissingMovies(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range missingMovies {
		if profileFor(m.QualityProfileID) == nil || !movies.IsAvailable(m, now) {
			continue
		}
		items = append(items, movieItem(m))
	}

	upgradableMovies, err := s.queries.ListMoviesWithFiles(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range upgradableMovies {
		if upgradable(m.QualityProfileID, m.Quality) {
			items = append(items, movieItem(m))
		}
	}

	seriesProfile := make(map[string]string)
	seriesTitle := make(map[string]string)
	loadSeries := func(id string) (profileID, title string, ok bool) {
		if p, seen := seriesProfile[id]; seen {
			return p, seriesTitle[id], p != ""
		}
		series, err := s.queries.GetSeries(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Str("series", id).Msg("Skipping episodes of unloadable series")
			seriesProfile[id] = ""
			return "", "", false
		}
		seriesProfile[id] = series.QualityProfileID
		seriesTitle[id] = series.Title
		return series.QualityProfileID, series.Title, series.QualityProfileID != ""
	}

	missingEpisodes, err := s.queries.ListMissingEpisodes(ctx)
	if err != nil {
		return nil, err
	}
	// (series, season) -> missing episode count, for season pack eligibility.
	missingBySeason := make(map[[2]any]int)
	for _, ep := range missingEpisodes {
		profileID, title, ok := loadSeries(ep.SeriesID)
		if !ok || profileFor(profileID) == nil {
			continue
		}
		items = append(items, episodeItem(ep, title, profileID))
		missingBySeason[[2]any{ep.SeriesID, ep.SeasonNumber}]++
	}

	upgradableEpisodes, err := s.queries.ListEpisodesWithFiles(ctx)
	if err != nil {
		return nil, err
	}
	for _, ep := range upgradableEpisodes {
		profileID, title, ok := loadSeries(ep.SeriesID)
		if !ok || !upgradable(profileID, ep.Quality) {
			continue
		}
		items = append(items, episodeItem(ep, title, profileID))
	}

	// A season pack is wanted only when every monitored episode of the
	// season is missing.
	for key, missing := range missingBySeason {
		seriesID := key[0].(string)
		seasonNumber := key[1].(int)
		episodes, err := s.queries.ListSeasonEpisodes(ctx, seriesID, seasonNumber)
		if err != nil {
			return nil, err
		}
		monitored := 0
		for _, ep := range episodes {
			if ep.Monitored {
				monitored++
			}
		}
		if monitored == 0 || monitored != missing {
			continue
		}
		items = append(items, decisioning.SearchableItem{
			MediaType:        decisioning.MediaTypeSeason,
			MediaID:          seriesID,
			Title:            seriesTitle[seriesID],
			SeriesID:         seriesID,
			SeasonNumber:     seasonNumber,
			EpisodeCount:     monitored,
			QualityProfileID: seriesProfile[seriesID],
		})
	}

	return items, nil
}

func movieItem(m *database.Movie) decisioning.SearchableItem {
	return decisioning.SearchableItem{
		MediaType:        decisioning.MediaTypeMovie,
		MediaID:          m.ID,
		Title:            m.Title,
		Year:             m.Year,
		QualityProfileID: m.QualityProfileID,
		HasFile:          m.HasFile,
		CurrentQuality:   m.Quality,
		CurrentProper:    m.IsProper,
		CurrentRepack:    m.IsRepack,
	}
}

func episodeItem(ep *database.Episode, seriesTitle, profileID string) decisioning.SearchableItem {
	return decisioning.SearchableItem{
		MediaType:        decisioning.MediaTypeEpisode,
		MediaID:          ep.ID,
		Title:            seriesTitle,
		SeriesID:         ep.SeriesID,
		SeasonNumber:     ep.SeasonNumber,
		EpisodeNumber:    ep.EpisodeNumber,
		QualityProfileID: profileID,
		HasFile:          ep.HasFile,
		CurrentQuality:   ep.Quality,
		CurrentProper:    ep.IsProper,
		CurrentRepack:    ep.IsRepack,
	}
}
