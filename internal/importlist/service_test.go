package importlist

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/levijay/mediastack/internal/autosearch"
	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/decisioning"
	"github.com/levijay/mediastack/internal/downloader"
	"github.com/levijay/mediastack/internal/indexer"
	"github.com/levijay/mediastack/internal/library/movies"
	"github.com/levijay/mediastack/internal/library/quality"
	"github.com/levijay/mediastack/internal/library/tv"
	"github.com/levijay/mediastack/internal/metadata"
	"github.com/levijay/mediastack/internal/testutil"
)

type listEnv struct {
	svc      *Service
	fetcher  *MockFetcher
	provider *metadata.MockProvider
	queries  *database.Queries
}

func newListEnv(t *testing.T) *listEnv {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	conn := tdb.DB.Conn()
	logger := testutil.NopLogger()

	provider := metadata.NewMockProvider()
	metaSvc := metadata.NewService(conn, provider, nil, logger)
	searchSvc := autosearch.NewService(
		conn,
		indexer.NewService(conn, logger),
		quality.NewService(conn, logger),
		downloader.NewService(tdb.Queries, nil, nil, logger),
		decisioning.NewGrabLock(),
		nil,
		logger,
	)

	svc := NewService(
		conn,
		movies.NewService(conn, nil, logger),
		tv.NewService(conn, nil, logger),
		metaSvc,
		searchSvc,
		logger,
	)
	svc.itemDelay = 0
	fetcher := NewMockFetcher()
	svc.fetcherFor = func(*database.ImportList) (Fetcher, error) { return fetcher, nil }

	return &listEnv{svc: svc, fetcher: fetcher, provider: provider, queries: tdb.Queries}
}

func seedList(t *testing.T, env *listEnv, list *database.ImportList) *database.ImportList {
	t.Helper()
	if list.ID == "" {
		list.ID = uuid.NewString()
	}
	if list.Type == "" {
		list.Type = TypeIMDb
	}
	if list.QualityProfileID == "" {
		list.QualityProfileID = "qp-hd1080"
	}
	if list.Monitor == "" {
		list.Monitor = MonitorAll
	}
	list.Enabled = true
	if err := env.queries.CreateImportList(context.Background(), list); err != nil {
		t.Fatal(err)
	}
	return list
}

func TestSyncAddsAndEnrichesNewMovie(t *testing.T) {
	env := newListEnv(t)
	ctx := context.Background()
	list := seedList(t, env, &database.ImportList{
		Name: "Watchlist", MediaType: "movie", RootFolder: "/movies",
		MinimumAvailability: movies.AvailabilityAnnounced,
	})
	env.provider.AddMovie(&metadata.MovieResult{
		TmdbID: 603, ImdbID: "tt0133093", Title: "The Matrix", Year: 1999,
		Overview: "A hacker learns the truth.",
	})
	env.fetcher.Items[list.ID] = []Item{{ImdbID: "tt0133093"}}

	results, err := env.svc.SyncAll(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Added != 1 {
		t.Fatalf("results = %+v", results)
	}

	movie, err := env.queries.GetMovieByTmdbID(ctx, 603)
	if err != nil {
		t.Fatal(err)
	}
	if movie.Title != "The Matrix" || movie.Overview == "" {
		t.Errorf("movie not enriched: %+v", movie)
	}
	if movie.FolderPath != "/movies/The Matrix (1999)" {
		t.Errorf("folder = %q", movie.FolderPath)
	}
	if !movie.Monitored {
		t.Error("movie should be monitored")
	}

	updated, err := env.queries.GetImportList(ctx, list.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !updated.LastSync.Valid {
		t.Error("last_sync not stamped")
	}
}

func TestSyncSkipsExistingExcludedAndUnresolvable(t *testing.T) {
	env := newListEnv(t)
	ctx := context.Background()
	list := seedList(t, env, &database.ImportList{Name: "Watchlist", MediaType: "movie"})

	err := env.queries.CreateMovie(ctx, &database.Movie{
		ID: uuid.NewString(), TmdbID: toNullInt64(603), Title: "The Matrix",
		QualityProfileID: "qp-hd1080", MinimumAvailability: movies.AvailabilityAnnounced,
	})
	if err != nil {
		t.Fatal(err)
	}
	err = env.queries.AddExclusion(ctx, &database.Exclusion{
		ID: uuid.NewString(), TmdbID: 604, MediaType: "movie", Title: "Unwanted",
	})
	if err != nil {
		t.Fatal(err)
	}

	env.provider.AddMovie(&metadata.MovieResult{TmdbID: 603, ImdbID: "tt0133093", Title: "The Matrix"})
	env.provider.AddMovie(&metadata.MovieResult{TmdbID: 604, ImdbID: "tt0000604", Title: "Unwanted"})
	env.fetcher.Items[list.ID] = []Item{
		{ImdbID: "tt0133093"},
		{ImdbID: "tt0000604"},
		{ImdbID: "tt9999999"}, // unknown to the provider
	}

	results, err := env.svc.SyncAll(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	r := results[0]
	if r.Existing != 1 || r.Excluded != 1 || r.Dropped != 1 || r.Added != 0 {
		t.Fatalf("result = %+v", r)
	}
}

func TestSyncHonorsRefreshInterval(t *testing.T) {
	env := newListEnv(t)
	ctx := context.Background()
	list := seedList(t, env, &database.ImportList{
		Name: "Watchlist", MediaType: "movie", RefreshIntervalMinutes: 60,
	})
	if err := env.queries.TouchImportListSync(ctx, list.ID); err != nil {
		t.Fatal(err)
	}
	env.fetcher.Items[list.ID] = []Item{{TmdbID: 603, Title: "The Matrix"}}

	results, err := env.svc.SyncAll(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if !results[0].Skipped {
		t.Fatalf("freshly synced list was not skipped: %+v", results[0])
	}

	results, err = env.svc.SyncAll(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Skipped || results[0].Added != 1 {
		t.Fatalf("forced sync result = %+v", results[0])
	}
}

func TestSyncSeriesMonitorFirstSeason(t *testing.T) {
	env := newListEnv(t)
	ctx := context.Background()
	list := seedList(t, env, &database.ImportList{
		Name: "Shows", MediaType: "series", Monitor: MonitorFirstSeason, RootFolder: "/tv",
	})
	env.provider.AddSeries(&metadata.SeriesResult{
		TmdbID: 1399, ImdbID: "tt0944947", Title: "The Show", Year: 2011,
		Seasons: []metadata.SeasonResult{
			{SeasonNumber: 1, Episodes: []metadata.EpisodeResult{
				{SeasonNumber: 1, EpisodeNumber: 1, Title: "Pilot"},
			}},
			{SeasonNumber: 2, Episodes: []metadata.EpisodeResult{
				{SeasonNumber: 2, EpisodeNumber: 1, Title: "Return"},
			}},
		},
	})
	env.fetcher.Items[list.ID] = []Item{{ImdbID: "tt0944947"}}

	results, err := env.svc.SyncAll(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Added != 1 {
		t.Fatalf("result = %+v", results[0])
	}

	series, err := env.queries.GetSeriesByTmdbID(ctx, 1399)
	if err != nil {
		t.Fatal(err)
	}
	seasons, err := env.queries.ListSeasons(ctx, series.ID)
	if err != nil {
		t.Fatal(err)
	}
	monitored := make(map[int]bool)
	for _, season := range seasons {
		monitored[season.SeasonNumber] = season.Monitored
	}
	if !monitored[1] || monitored[2] {
		t.Errorf("season monitoring = %v", monitored)
	}
	if !series.Monitored {
		t.Error("series should stay monitored")
	}
}

func TestParseIMDbListExtractsTitles(t *testing.T) {
	html := `<html><body>
		<div class="item"><a href="/title/tt0133093/?ref_=x">1. The Matrix</a> <span>(1999)</span></div>
		<div class="item"><a href="/title/tt0234215/?ref_=x">2. The Matrix Reloaded</a> <span>(2003)</span></div>
		<div class="item"><a href="/title/tt0133093/?ref_=dup">The Matrix</a></div>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}

	items := parseIMDbList(doc)
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].ImdbID != "tt0133093" || items[0].Title != "The Matrix" || items[0].Year != 1999 {
		t.Errorf("first item = %+v", items[0])
	}
	if items[1].Title != "The Matrix Reloaded" || items[1].Year != 2003 {
		t.Errorf("second item = %+v", items[1])
	}
}

func toNullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v > 0}
}
