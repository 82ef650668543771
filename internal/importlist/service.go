package importlist

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/apperr"
	"github.com/levijay/mediastack/internal/autosearch"
	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/library/movies"
	"github.com/levijay/mediastack/internal/library/tv"
	"github.com/levijay/mediastack/internal/metadata"
	"github.com/levijay/mediastack/internal/renamer"
)

// defaultItemDelay spaces item processing to stay under upstream API rate
// limits.
const defaultItemDelay = 250 * time.Millisecond

// ListResult summarizes one list's reconciliation.
type ListResult struct {
	ListID   string `json:"listId"`
	Name     string `json:"name"`
	Skipped  bool   `json:"skipped,omitempty"`
	Fetched  int    `json:"fetched"`
	Added    int    `json:"added"`
	Existing int    `json:"existing"`
	Excluded int    `json:"excluded"`
	Dropped  int    `json:"dropped"`
	Error    string `json:"error,omitempty"`
}

// Service reconciles configured import lists into the catalog.
type Service struct {
	queries  *database.Queries
	movies   *movies.Service
	tv       *tv.Service
	metadata *metadata.Service
	search   *autosearch.Service
	logger   zerolog.Logger

	// fetcherFor is swappable so tests can inject a mock fetcher.
	fetcherFor func(*database.ImportList) (Fetcher, error)
	itemDelay  time.Duration
}

// NewService creates the import list service.
func NewService(
	db *sql.DB,
	moviesSvc *movies.Service,
	tvSvc *tv.Service,
	metadataSvc *metadata.Service,
	search *autosearch.Service,
	logger zerolog.Logger,
) *Service {
	return &Service{
		queries:    database.NewQueries(db),
		movies:     moviesSvc,
		tv:         tvSvc,
		metadata:   metadataSvc,
		search:     search,
		logger:     logger.With().Str("component", "importlist").Logger(),
		fetcherFor: NewFetcher,
		itemDelay:  defaultItemDelay,
	}
}

// SyncAll reconciles every enabled list that is due. With force set, the
// due check is skipped.
func (s *Service) SyncAll(ctx context.Context, force bool) ([]ListResult, error) {
	lists, err := s.queries.ListEnabledImportLists(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]ListResult, 0, len(lists))
	for _, list := range lists {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		if !force && !s.isDue(list) {
			results = append(results, ListResult{ListID: list.ID, Name: list.Name, Skipped: true})
			continue
		}
		result := s.syncList(ctx, list)
		results = append(results, result)
	}
	return results, nil
}

// SyncList reconciles one list by id regardless of its schedule.
func (s *Service) SyncList(ctx context.Context, id string) (*ListResult, error) {
	list, err := s.queries.GetImportList(ctx, id)
	if err != nil {
		return nil, err
	}
	if !list.Enabled {
		return nil, apperr.Validation("import list %q is disabled", list.Name)
	}
	result := s.syncList(ctx, list)
	return &result, nil
}

// isDue reports whether last_sync + refresh interval has elapsed. Lists
// without a usable timestamp are always due.
func (s *Service) isDue(list *database.ImportList) bool {
	if !list.LastSync.Valid || list.RefreshIntervalMinutes <= 0 {
		return true
	}
	last, err := time.Parse(database.TimeFormat, list.LastSync.String)
	if err != nil {
		return true
	}
	return time.Since(last) >= time.Duration(list.RefreshIntervalMinutes)*time.Minute
}

func (s *Service) syncList(ctx context.Context, list *database.ImportList) ListResult {
	result := ListResult{ListID: list.ID, Name: list.Name}

	fetcher, err := s.fetcherFor(list)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	items, err := fetcher.Fetch(ctx, list)
	if err != nil {
		s.logger.Warn().Err(err).Str("list", list.Name).Msg("Import list fetch failed")
		result.Error = err.Error()
		return result
	}
	result.Fetched = len(items)

	for i, item := range items {
		if ctx.Err() != nil {
			result.Error = ctx.Err().Error()
			return result
		}
		if i > 0 && s.itemDelay > 0 {
			time.Sleep(s.itemDelay)
		}
		s.reconcileItem(ctx, list, item, &result)
	}

	if err := s.queries.TouchImportListSync(ctx, list.ID); err != nil {
		s.logger.Error().Err(err).Str("list", list.Name).Msg("Failed to stamp list sync")
	}
	s.logger.Info().
		Str("list", list.Name).
		Int("fetched", result.Fetched).
		Int("added", result.Added).
		Int("existing", result.Existing).
		Int("excluded", result.Excluded).
		Int("dropped", result.Dropped).
		Msg("Import list reconciled")
	return result
}

// reconcileItem resolves one list entry to a TMDB id and materializes it
// when it is new and not excluded.
func (s *Service) reconcileItem(ctx context.Context, list *database.ImportList, item Item, result *ListResult) {
	if item.TmdbID == 0 && item.ImdbID != "" {
		ref, err := s.metadata.Provider().FindByExternalID(ctx, item.ImdbID, list.MediaType)
		if err != nil {
			if !apperr.IsNotFound(err) {
				s.logger.Warn().Err(err).Str("imdbId", item.ImdbID).Msg("External id resolution failed")
			}
			result.Dropped++
			return
		}
		item.TmdbID = ref.TmdbID
		if item.Title == "" {
			item.Title = ref.Title
		}
		if item.Year == 0 {
			item.Year = ref.Year
		}
	}
	if item.TmdbID == 0 {
		result.Dropped++
		return
	}

	exists, err := s.inCatalog(ctx, list.MediaType, item.TmdbID)
	if err != nil {
		s.logger.Error().Err(err).Int64("tmdbId", item.TmdbID).Msg("Catalog lookup failed")
		result.Dropped++
		return
	}
	if exists {
		result.Existing++
		return
	}

	excluded, err := s.queries.IsExcluded(ctx, item.TmdbID, list.MediaType)
	if err != nil {
		s.logger.Error().Err(err).Int64("tmdbId", item.TmdbID).Msg("Exclusion lookup failed")
		result.Dropped++
		return
	}
	if excluded {
		result.Excluded++
		return
	}

	if err := s.addItem(ctx, list, item); err != nil {
		s.logger.Warn().Err(err).Str("title", item.Title).Msg("Failed to add list item")
		result.Dropped++
		return
	}
	result.Added++
}

func (s *Service) inCatalog(ctx context.Context, mediaType string, tmdbID int64) (bool, error) {
	var err error
	if mediaType == "movie" {
		_, err = s.queries.GetMovieByTmdbID(ctx, tmdbID)
	} else {
		_, err = s.queries.GetSeriesByTmdbID(ctx, int(tmdbID))
	}
	if err == nil {
		return true, nil
	}
	if apperr.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *Service) addItem(ctx context.Context, list *database.ImportList, item Item) error {
	if list.MediaType == "movie" {
		return s.addMovie(ctx, list, item)
	}
	return s.addSeries(ctx, list, item)
}

// addMovie creates the placeholder row, then enriches it and optionally
// kicks off the initial search.
func (s *Service) addMovie(ctx context.Context, list *database.ImportList, item Item) error {
	movie, err := s.movies.Create(ctx, movies.CreateMovieInput{
		TmdbID:              item.TmdbID,
		ImdbID:              item.ImdbID,
		Title:               item.Title,
		Year:                item.Year,
		MinimumAvailability: list.MinimumAvailability,
		QualityProfileID:    list.QualityProfileID,
		FolderPath:          s.folderPath(list.RootFolder, item.Title, item.Year),
		Monitored:           list.Monitor != MonitorNone,
	})
	if err != nil {
		return err
	}

	if err := s.metadata.RefreshMovie(ctx, movie.ID); err != nil {
		s.logger.Warn().Err(err).Str("movie", movie.ID).Msg("List item enrichment failed")
	}
	if list.SearchOnAdd && movie.Monitored {
		if _, err := s.search.SearchMovie(ctx, movie.ID, false); err != nil {
			s.logger.Warn().Err(err).Str("movie", movie.ID).Msg("List item search failed")
		}
	}
	return nil
}

func (s *Service) addSeries(ctx context.Context, list *database.ImportList, item Item) error {
	series, err := s.tv.Create(ctx, tv.CreateSeriesInput{
		TmdbID:            int(item.TmdbID),
		ImdbID:            item.ImdbID,
		Title:             item.Title,
		Year:              item.Year,
		MonitorNewSeasons: newSeasonsMode(list.Monitor),
		UseSeasonFolder:   true,
		Monitored:         list.Monitor != MonitorNone,
		QualityProfileID:  list.QualityProfileID,
		FolderPath:        s.folderPath(list.RootFolder, item.Title, item.Year),
	})
	if err != nil {
		return err
	}

	if err := s.metadata.RefreshSeries(ctx, series.ID); err != nil {
		s.logger.Warn().Err(err).Str("series", series.ID).Msg("List item enrichment failed")
		return nil
	}
	if err := s.applyMonitorMode(ctx, series.ID, list.Monitor); err != nil {
		s.logger.Warn().Err(err).Str("series", series.ID).Msg("Monitor mode application failed")
	}
	if list.SearchOnAdd && list.Monitor != MonitorNone {
		s.searchMonitoredSeasons(ctx, series.ID)
	}
	return nil
}

// newSeasonsMode maps the list's monitor mode to the series'
// monitor_new_seasons behavior for seasons that appear later.
func newSeasonsMode(monitor string) string {
	switch monitor {
	case MonitorAll:
		return tv.MonitorNewSeasonsAll
	case MonitorLatestSeason:
		return tv.MonitorNewSeasonsFuture
	default:
		return tv.MonitorNewSeasonsNone
	}
}

// applyMonitorMode narrows season monitoring after the metadata refresh has
// created the season rows. Specials stay unmonitored throughout.
func (s *Service) applyMonitorMode(ctx context.Context, seriesID, monitor string) error {
	if monitor == MonitorAll || monitor == MonitorNone {
		return nil // creation state already matches
	}

	seasons, err := s.queries.ListSeasons(ctx, seriesID)
	if err != nil {
		return err
	}
	latest := 0
	for _, season := range seasons {
		if season.SeasonNumber > latest {
			latest = season.SeasonNumber
		}
	}

	for _, season := range seasons {
		if season.SeasonNumber == 0 {
			continue
		}
		want := false
		switch monitor {
		case MonitorFirstSeason:
			want = season.SeasonNumber == 1
		case MonitorLatestSeason:
			want = season.SeasonNumber == latest
		}
		if season.Monitored == want {
			continue
		}
		if err := s.tv.SetSeasonMonitored(ctx, seriesID, season.SeasonNumber, want); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) searchMonitoredSeasons(ctx context.Context, seriesID string) {
	seasons, err := s.queries.ListSeasons(ctx, seriesID)
	if err != nil {
		s.logger.Warn().Err(err).Str("series", seriesID).Msg("Season listing failed")
		return
	}
	for _, season := range seasons {
		if !season.Monitored {
			continue
		}
		if _, err := s.search.SearchSeason(ctx, seriesID, season.SeasonNumber, false); err != nil {
			s.logger.Warn().Err(err).
				Str("series", seriesID).
				Int("season", season.SeasonNumber).
				Msg("List item season search failed")
		}
	}
}

// folderPath derives the on-disk folder for a new item under the list's
// root folder.
func (s *Service) folderPath(rootFolder, title string, year int) string {
	if rootFolder == "" {
		return ""
	}
	name := title
	if year > 0 {
		name = fmt.Sprintf("%s (%d)", title, year)
	}
	return filepath.Join(rootFolder, renamer.Sanitize(name, renamer.SanitizeOptions{}))
}
