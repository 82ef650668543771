package autosearch

import (
	"context"
	"database/sql"
	"testing"

	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/decisioning"
	"github.com/levijay/mediastack/internal/downloader"
	"github.com/levijay/mediastack/internal/indexer"
	"github.com/levijay/mediastack/internal/library/movies"
	"github.com/levijay/mediastack/internal/library/quality"
	"github.com/levijay/mediastack/internal/testutil"
)

type searchEnv struct {
	svc     *Service
	queries *database.Queries
}

func newSearchEnv(t *testing.T) *searchEnv {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	ctx := context.Background()
	logger := testutil.NopLogger()

	indexers := indexer.NewService(tdb.DB.Conn(), logger)
	err := tdb.Queries.CreateIndexer(ctx, &database.Indexer{
		ID: "ix-mock", Name: "Mock Indexer", URL: "https://mock.indexer",
		Enabled: true, Protocol: "torrent",
	})
	if err != nil {
		t.Fatal(err)
	}
	indexers.RegisterClient("ix-mock", indexer.NewMockClient("ix-mock", "Mock Indexer"))

	downloads := downloader.NewService(tdb.Queries, nil, nil, logger)
	downloads.RegisterClient(downloader.NewMockClient("dc-mock", "Mock Client"))

	svc := NewService(
		tdb.DB.Conn(),
		indexers,
		quality.NewService(tdb.DB.Conn(), logger),
		downloads,
		decisioning.NewGrabLock(),
		nil,
		logger,
	)
	return &searchEnv{svc: svc, queries: tdb.Queries}
}

func seedMovie(t *testing.T, env *searchEnv, movie *database.Movie) *database.Movie {
	t.Helper()
	if movie.QualityProfileID == "" {
		movie.QualityProfileID = "qp-hd1080"
	}
	if movie.MinimumAvailability == "" {
		movie.MinimumAvailability = movies.AvailabilityAnnounced
	}
	if err := env.queries.CreateMovie(context.Background(), movie); err != nil {
		t.Fatal(err)
	}
	return movie
}

func seedEpisode(t *testing.T, env *searchEnv, airDate string) (*database.Series, *database.Episode) {
	t.Helper()
	ctx := context.Background()
	series := &database.Series{
		ID: "s-1", Title: "Show Name", Year: 2023, Monitored: true,
		SeriesType: "standard", MonitorNewSeasons: "all", QualityProfileID: "qp-hd1080",
	}
	if err := env.queries.CreateSeries(ctx, series); err != nil {
		t.Fatal(err)
	}
	err := env.queries.CreateSeason(ctx, &database.Season{
		ID: "s-1-s1", SeriesID: "s-1", SeasonNumber: 1, Monitored: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	episode := &database.Episode{
		ID: "s-1-e101", SeriesID: "s-1", SeasonNumber: 1, EpisodeNumber: 1,
		Title: "Pilot", Monitored: true,
	}
	if airDate != "" {
		episode.AirDate = sql.NullString{String: airDate, Valid: true}
	}
	if err := env.queries.CreateEpisode(ctx, episode); err != nil {
		t.Fatal(err)
	}
	return series, episode
}

func TestSearchMovieGrabsBestRelease(t *testing.T) {
	env := newSearchEnv(t)
	ctx := context.Background()
	movie := seedMovie(t, env, &database.Movie{ID: "m-1", Title: "The Movie", Year: 2020, Monitored: true})

	res, err := env.svc.SearchMovie(ctx, movie.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Grabbed {
		t.Fatalf("expected grab, skipped: %q, rejections: %+v", res.SkipReason, res.Rejections)
	}

	download, err := env.queries.GetDownload(ctx, res.DownloadID)
	if err != nil {
		t.Fatal(err)
	}
	if download.MediaType != "movie" || download.MovieID.String != movie.ID {
		t.Errorf("download row = %+v", download)
	}
	if download.Status != database.DownloadStatusQueued {
		t.Errorf("status = %q", download.Status)
	}
	// Bluray-1080p sits at the profile cutoff and outranks the other tiers.
	if download.Quality != "Bluray-1080p" {
		t.Errorf("quality = %q", download.Quality)
	}
	if download.ClientJobID == "" {
		t.Error("dispatch should record the client job id")
	}
}

func TestSearchMovieSkipsWhenNotMonitored(t *testing.T) {
	env := newSearchEnv(t)
	movie := seedMovie(t, env, &database.Movie{ID: "m-1", Title: "The Movie", Year: 2020})

	res, err := env.svc.SearchMovie(context.Background(), movie.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Grabbed || res.SkipReason != SkipNotMonitored {
		t.Errorf("got %+v", res)
	}
}

func TestSearchMovieSkipsWhenUnavailable(t *testing.T) {
	env := newSearchEnv(t)
	movie := seedMovie(t, env, &database.Movie{
		ID: "m-1", Title: "The Movie", Year: 2030, Monitored: true,
		MinimumAvailability: movies.AvailabilityReleased,
		TheatricalRelease:   sql.NullString{String: "2099-01-01", Valid: true},
	})

	res, err := env.svc.SearchMovie(context.Background(), movie.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.SkipReason != SkipNotAvailable {
		t.Errorf("skip = %q", res.SkipReason)
	}
}

func TestSearchMovieActiveDownloadGuard(t *testing.T) {
	env := newSearchEnv(t)
	ctx := context.Background()
	movie := seedMovie(t, env, &database.Movie{ID: "m-1", Title: "The Movie", Year: 2020, Monitored: true})

	if _, err := env.svc.SearchMovie(ctx, movie.ID, false); err != nil {
		t.Fatal(err)
	}
	res, err := env.svc.SearchMovie(ctx, movie.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Grabbed || res.SkipReason != SkipActiveDownload {
		t.Errorf("second search should hit the active-download guard, got %+v", res)
	}
}

func TestSearchMovieDuplicateURLGuard(t *testing.T) {
	env := newSearchEnv(t)
	ctx := context.Background()
	movie := seedMovie(t, env, &database.Movie{ID: "m-1", Title: "The Movie", Year: 2020, Monitored: true})

	first, err := env.svc.SearchMovie(ctx, movie.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	// Cancelling clears the in-flight guard, but the URL stays recorded.
	if err := env.queries.SetDownloadStatus(ctx, first.DownloadID, database.DownloadStatusCancelled, ""); err != nil {
		t.Fatal(err)
	}

	res, err := env.svc.SearchMovie(ctx, movie.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Grabbed || res.SkipReason != SkipDuplicateURL {
		t.Errorf("got %+v", res)
	}
}

func TestSearchMovieCutoffMet(t *testing.T) {
	env := newSearchEnv(t)
	movie := seedMovie(t, env, &database.Movie{
		ID: "m-1", Title: "The Movie", Year: 2020, Monitored: true,
		HasFile: true, Quality: "Bluray-1080p",
	})

	res, err := env.svc.SearchMovie(context.Background(), movie.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.SkipReason != SkipCutoffMet {
		t.Errorf("skip = %q", res.SkipReason)
	}
}

func TestSearchEpisodeGrabs(t *testing.T) {
	env := newSearchEnv(t)
	ctx := context.Background()
	series, episode := seedEpisode(t, env, "2023-01-01")

	res, err := env.svc.SearchEpisode(ctx, episode.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Grabbed {
		t.Fatalf("expected grab, skipped: %q, rejections: %+v", res.SkipReason, res.Rejections)
	}

	download, err := env.queries.GetDownload(ctx, res.DownloadID)
	if err != nil {
		t.Fatal(err)
	}
	if download.MediaType != "episode" || download.SeriesID.String != series.ID ||
		download.EpisodeID.String != episode.ID || download.SeasonNumber != 1 {
		t.Errorf("download row = %+v", download)
	}
}

func TestSearchEpisodeUnairedSkips(t *testing.T) {
	env := newSearchEnv(t)
	_, episode := seedEpisode(t, env, "2099-01-01")

	res, err := env.svc.SearchEpisode(context.Background(), episode.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.SkipReason != SkipNotAired {
		t.Errorf("skip = %q", res.SkipReason)
	}
}

func TestSearchSeasonGrabsSeasonPack(t *testing.T) {
	env := newSearchEnv(t)
	ctx := context.Background()
	series, _ := seedEpisode(t, env, "2023-01-01")
	err := env.queries.CreateEpisode(ctx, &database.Episode{
		ID: "s-1-e102", SeriesID: series.ID, SeasonNumber: 1, EpisodeNumber: 2,
		Title: "Second", Monitored: true,
		AirDate: sql.NullString{String: "2023-01-08", Valid: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	batch, err := env.svc.SearchSeason(ctx, series.ID, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	// Every monitored episode is missing, so one season pack covers the lot.
	if batch.Grabbed != 1 || batch.Searched != 1 {
		t.Fatalf("batch = %+v", batch)
	}

	downloads, err := env.queries.ListDownloads(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(downloads) != 1 || downloads[0].MediaType != "season" || downloads[0].SeasonNumber != 1 {
		t.Errorf("downloads = %+v", downloads)
	}
}

func TestSearchSeasonNothingWanted(t *testing.T) {
	env := newSearchEnv(t)
	ctx := context.Background()
	series, episode := seedEpisode(t, env, "2023-01-01")
	err := env.queries.UpdateEpisodeFile(ctx, episode.ID, "/library/show/e1.mkv", 1024,
		"Bluray-1080p", "x264", "DD", "GRP", false, false)
	if err != nil {
		t.Fatal(err)
	}

	batch, err := env.svc.SearchSeason(ctx, series.ID, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Searched != 0 {
		t.Errorf("batch = %+v", batch)
	}
}

func TestSearchAllMissing(t *testing.T) {
	env := newSearchEnv(t)
	ctx := context.Background()
	seedMovie(t, env, &database.Movie{ID: "m-1", Title: "First Movie", Year: 2020, Monitored: true})
	seedMovie(t, env, &database.Movie{ID: "m-2", Title: "Second Movie", Year: 2021, Monitored: true})
	seedMovie(t, env, &database.Movie{ID: "m-3", Title: "Third Movie", Year: 2022, Monitored: false})

	batch, err := env.svc.SearchAllMissing(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Searched != 2 || batch.Grabbed != 2 {
		t.Fatalf("batch = %+v", batch)
	}

	downloads, err := env.queries.ListDownloads(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(downloads) != 2 {
		t.Errorf("downloads = %d", len(downloads))
	}
}

func TestSearchAllCutoffUnmet(t *testing.T) {
	env := newSearchEnv(t)
	ctx := context.Background()
	seedMovie(t, env, &database.Movie{
		ID: "m-low", Title: "The Movie", Year: 2020, Monitored: true,
		HasFile: true, Quality: "HDTV-720p",
	})
	seedMovie(t, env, &database.Movie{
		ID: "m-done", Title: "Finished Movie", Year: 2021, Monitored: true,
		HasFile: true, Quality: "Bluray-1080p",
	})

	batch, err := env.svc.SearchAllCutoffUnmet(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Searched != 1 || batch.Grabbed != 1 {
		t.Fatalf("batch = %+v", batch)
	}

	download, err := env.queries.ListDownloads(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(download) != 1 || download[0].MovieID.String != "m-low" {
		t.Errorf("downloads = %+v", download)
	}
}
