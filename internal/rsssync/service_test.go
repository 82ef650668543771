package rsssync

import (
	"context"
	"database/sql"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/levijay/mediastack/internal/autosearch"
	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/decisioning"
	"github.com/levijay/mediastack/internal/downloader"
	"github.com/levijay/mediastack/internal/indexer"
	"github.com/levijay/mediastack/internal/library/movies"
	"github.com/levijay/mediastack/internal/library/quality"
	"github.com/levijay/mediastack/internal/testutil"
)

type syncEnv struct {
	svc     *Service
	mock    *indexer.MockClient
	queries *database.Queries
	conn    *sql.DB
}

func newSyncEnv(t *testing.T) *syncEnv {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	ctx := context.Background()
	logger := testutil.NopLogger()
	conn := tdb.DB.Conn()

	indexers := indexer.NewService(conn, logger)
	err := tdb.Queries.CreateIndexer(ctx, &database.Indexer{
		ID: "ix-mock", Name: "Mock Indexer", URL: "https://mock.indexer",
		Enabled: true, RSSEnabled: true, Protocol: "torrent",
	})
	if err != nil {
		t.Fatal(err)
	}
	mock := indexer.NewMockClient("ix-mock", "Mock Indexer")
	indexers.RegisterClient("ix-mock", mock)

	downloads := downloader.NewService(tdb.Queries, nil, nil, logger)
	downloads.RegisterClient(downloader.NewMockClient("dc-mock", "Mock Client"))

	qualitySvc := quality.NewService(conn, logger)
	locks := decisioning.NewGrabLock()
	grabber := autosearch.NewService(conn, indexers, qualitySvc, downloads, locks, nil, logger)

	svc := NewService(conn, indexers, qualitySvc, grabber, locks, nil, logger)
	return &syncEnv{svc: svc, mock: mock, queries: tdb.Queries, conn: conn}
}

func seedMissingMovie(t *testing.T, env *syncEnv, title string, year int) *database.Movie {
	t.Helper()
	movie := &database.Movie{
		ID: uuid.NewString(), Title: title, Year: year, Monitored: true,
		QualityProfileID:    "qp-hd1080",
		MinimumAvailability: movies.AvailabilityAnnounced,
	}
	if err := env.queries.CreateMovie(context.Background(), movie); err != nil {
		t.Fatal(err)
	}
	return movie
}

func feedRelease(title string, size int64, seeders int) indexer.Release {
	return indexer.Release{
		GUID:        "rss-" + title,
		Title:       title,
		DownloadURL: "https://mock.indexer/dl/" + title,
		Size:        size,
		Seeders:     seeders,
		PublishDate: time.Now().UTC(),
		IndexerID:   "ix-mock",
		IndexerName: "Mock Indexer",
		Protocol:    indexer.ProtocolTorrent,
	}
}

func TestSyncGrabsMatchingMovieRelease(t *testing.T) {
	env := newSyncEnv(t)
	ctx := context.Background()
	movie := seedMissingMovie(t, env, "The Movie", 2020)
	env.mock.Releases = []indexer.Release{
		feedRelease("The.Movie.2020.1080p.WEB-DL.x264-GRP", 4<<30, 50),
	}

	status, err := env.svc.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.NewReleases != 1 || status.Matched != 1 || status.Grabbed != 1 {
		t.Fatalf("status = %+v", status)
	}

	downloads, err := env.queries.ListDownloads(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(downloads) != 1 {
		t.Fatalf("downloads = %d", len(downloads))
	}
	if downloads[0].MovieID.String != movie.ID {
		t.Errorf("download movie = %q", downloads[0].MovieID.String)
	}

	// The cache row must record the outcome.
	var processed, grabbed bool
	err = env.conn.QueryRow(
		`SELECT processed, grabbed FROM rss_releases WHERE guid = ?`,
		env.mock.Releases[0].GUID).Scan(&processed, &grabbed)
	if err != nil {
		t.Fatal(err)
	}
	if !processed || !grabbed {
		t.Errorf("cache row processed=%v grabbed=%v", processed, grabbed)
	}
}

func TestSyncIsIdempotentAcrossPasses(t *testing.T) {
	env := newSyncEnv(t)
	ctx := context.Background()
	seedMissingMovie(t, env, "The Movie", 2020)
	env.mock.Releases = []indexer.Release{
		feedRelease("The.Movie.2020.1080p.WEB-DL.x264-GRP", 4<<30, 50),
	}

	if _, err := env.svc.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	second, err := env.svc.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second.NewReleases != 0 || second.Grabbed != 0 {
		t.Fatalf("second pass = %+v", second)
	}

	downloads, err := env.queries.ListDownloads(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(downloads) != 1 {
		t.Fatalf("downloads after two passes = %d", len(downloads))
	}
}

func TestSyncSkipsBlacklistedRelease(t *testing.T) {
	env := newSyncEnv(t)
	ctx := context.Background()
	movie := seedMissingMovie(t, env, "The Movie", 2020)
	// The entry is keyed to the movie and uses a different naming style than
	// the feed; normalized comparison still has to block it.
	err := env.queries.AddBlacklistEntry(ctx, &database.BlacklistEntry{
		ID:           uuid.NewString(),
		ReleaseTitle: "the movie 2020 1080p web-dl x264-grp",
		MovieID:      sql.NullString{String: movie.ID, Valid: true},
		Reason:       "failed import",
	})
	if err != nil {
		t.Fatal(err)
	}
	env.mock.Releases = []indexer.Release{
		feedRelease("The.Movie.2020.1080p.WEB-DL.x264-GRP", 4<<30, 50),
	}

	status, err := env.svc.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.Matched != 1 || status.Grabbed != 0 {
		t.Fatalf("status = %+v", status)
	}

	downloads, err := env.queries.ListDownloads(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(downloads) != 0 {
		t.Fatalf("blacklisted release was grabbed")
	}
}

func TestSyncBlacklistScopedToOtherMovie(t *testing.T) {
	env := newSyncEnv(t)
	ctx := context.Background()
	blocked := seedMissingMovie(t, env, "The Movie", 2020)
	wanted := seedMissingMovie(t, env, "The Movie", 2021)
	title := "The.Movie.2020.1080p.WEB-DL.x264-GRP"
	err := env.queries.AddBlacklistEntry(ctx, &database.BlacklistEntry{
		ID:           uuid.NewString(),
		ReleaseTitle: title,
		MovieID:      sql.NullString{String: blocked.ID, Valid: true},
		Reason:       "failed import",
	})
	if err != nil {
		t.Fatal(err)
	}
	env.mock.Releases = []indexer.Release{feedRelease(title, 4<<30, 50)}

	// The release matches both movies on title and year tolerance, but the
	// entry only blocks the first one.
	status, err := env.svc.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.Matched != 1 || status.Grabbed != 1 {
		t.Fatalf("status = %+v", status)
	}

	downloads, err := env.queries.ListDownloads(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(downloads) != 1 {
		t.Fatalf("downloads = %d", len(downloads))
	}
	if downloads[0].MovieID.String != wanted.ID {
		t.Errorf("download movie = %q, want %q", downloads[0].MovieID.String, wanted.ID)
	}
}

func TestBlacklistScopeGranularity(t *testing.T) {
	env := newSyncEnv(t)
	ctx := context.Background()
	movieA := seedMissingMovie(t, env, "Movie A", 2020)
	movieB := seedMissingMovie(t, env, "Movie B", 2021)
	series := &database.Series{
		ID: uuid.NewString(), Title: "Show Name", Year: 2023, Monitored: true,
		SeriesType: "standard", MonitorNewSeasons: "all", QualityProfileID: "qp-hd1080",
	}
	if err := env.queries.CreateSeries(ctx, series); err != nil {
		t.Fatal(err)
	}

	entries := []*database.BlacklistEntry{
		{ID: uuid.NewString(), ReleaseTitle: "Global.Release"},
		{ID: uuid.NewString(), ReleaseTitle: "Movie.Release",
			MovieID: sql.NullString{String: movieA.ID, Valid: true}},
		{ID: uuid.NewString(), ReleaseTitle: "Series.Release",
			SeriesID: sql.NullString{String: series.ID, Valid: true}},
		{ID: uuid.NewString(), ReleaseTitle: "Season.Release",
			SeriesID: sql.NullString{String: series.ID, Valid: true}, SeasonNumber: 2},
		{ID: uuid.NewString(), ReleaseTitle: "Episode.Release",
			SeriesID: sql.NullString{String: series.ID, Valid: true}, SeasonNumber: 2, EpisodeNumber: 3},
	}
	for _, e := range entries {
		if err := env.queries.AddBlacklistEntry(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	cases := []struct {
		name  string
		scope database.BlacklistScope
		want  []string
	}{
		{"scoped movie", database.BlacklistScope{MovieID: movieA.ID},
			[]string{"Global.Release", "Movie.Release"}},
		{"other movie", database.BlacklistScope{MovieID: movieB.ID},
			[]string{"Global.Release"}},
		{"scoped episode", database.BlacklistScope{SeriesID: series.ID, SeasonNumber: 2, EpisodeNumber: 3},
			[]string{"Episode.Release", "Global.Release", "Season.Release", "Series.Release"}},
		{"sibling episode", database.BlacklistScope{SeriesID: series.ID, SeasonNumber: 2, EpisodeNumber: 4},
			[]string{"Global.Release", "Season.Release", "Series.Release"}},
		{"other season pack", database.BlacklistScope{SeriesID: series.ID, SeasonNumber: 1},
			[]string{"Global.Release", "Series.Release"}},
	}
	for _, tc := range cases {
		titles, err := env.queries.ListBlacklistTitlesFor(ctx, tc.scope)
		if err != nil {
			t.Fatal(err)
		}
		slices.Sort(titles)
		if !slices.Equal(titles, tc.want) {
			t.Errorf("%s: titles = %v, want %v", tc.name, titles, tc.want)
		}
	}
}

func TestSyncIgnoresUnmatchedReleases(t *testing.T) {
	env := newSyncEnv(t)
	ctx := context.Background()
	seedMissingMovie(t, env, "The Movie", 2020)
	env.mock.Releases = []indexer.Release{
		feedRelease("Some.Other.Film.2019.1080p.WEB-DL.x264-GRP", 4<<30, 50),
	}

	status, err := env.svc.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.NewReleases != 1 || status.Matched != 0 || status.Grabbed != 0 {
		t.Fatalf("status = %+v", status)
	}

	// Still marked processed so it is not re-evaluated next pass.
	unprocessed, err := env.queries.ListUnprocessedRSSReleases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(unprocessed) != 0 {
		t.Fatalf("unprocessed rows = %d", len(unprocessed))
	}
}

func TestSyncSkipsMovieWithActiveDownload(t *testing.T) {
	env := newSyncEnv(t)
	ctx := context.Background()
	movie := seedMissingMovie(t, env, "The Movie", 2020)
	err := env.queries.CreateDownload(ctx, &database.Download{
		ID: uuid.NewString(), MediaType: "movie",
		MovieID: sql.NullString{String: movie.ID, Valid: true},
		Title:   "The.Movie.2020.720p.HDTV.x264-OLD",
		Status:  database.DownloadStatusDownloading,
	})
	if err != nil {
		t.Fatal(err)
	}
	env.mock.Releases = []indexer.Release{
		feedRelease("The.Movie.2020.1080p.WEB-DL.x264-GRP", 4<<30, 50),
	}

	status, err := env.svc.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.Grabbed != 0 {
		t.Fatalf("status = %+v", status)
	}

	downloads, err := env.queries.ListDownloads(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(downloads) != 1 {
		t.Fatalf("downloads = %d", len(downloads))
	}
}

func TestSyncSweepsExpiredCacheRows(t *testing.T) {
	env := newSyncEnv(t)
	ctx := context.Background()

	stale := &database.RSSRelease{
		IndexerID: "ix-mock", GUID: "stale-guid", Title: "Old.Release.2015.1080p",
	}
	if _, err := env.queries.InsertRSSRelease(ctx, stale); err != nil {
		t.Fatal(err)
	}
	old := time.Now().UTC().Add(-8 * 24 * time.Hour).Format(database.TimeFormat)
	if _, err := env.conn.Exec(`UPDATE rss_releases SET created_at = ? WHERE id = ?`, old, stale.ID); err != nil {
		t.Fatal(err)
	}

	status, err := env.svc.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.Swept != 1 {
		t.Fatalf("swept = %d", status.Swept)
	}
}
