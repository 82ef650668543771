package refresh

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/library/scanner"
	"github.com/levijay/mediastack/internal/testutil"
)

func newRefreshEnv(t *testing.T) (*Service, *database.Queries) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	logger := testutil.NopLogger()
	svc := NewService(tdb.DB.Conn(), scanner.NewService(logger), nil, logger)
	return svc, tdb.Queries
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("video payload"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRefreshClearsVanishedMovieFile(t *testing.T) {
	svc, queries := newRefreshEnv(t)
	ctx := context.Background()

	movie := &database.Movie{
		ID: uuid.NewString(), Title: "The Movie", Year: 2020, Monitored: true,
		QualityProfileID: "qp-hd1080", MinimumAvailability: "announced",
	}
	if err := queries.CreateMovie(ctx, movie); err != nil {
		t.Fatal(err)
	}
	err := queries.UpdateMovieFile(ctx, movie.ID, "/nonexistent/The.Movie.2020.mkv",
		1000, "WEBDL-1080p", "x264", "", "GRP", false, false)
	if err != nil {
		t.Fatal(err)
	}

	result, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.MoviesCleared != 1 {
		t.Fatalf("result = %+v", result)
	}

	updated, err := queries.GetMovie(ctx, movie.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.HasFile || updated.FilePath != "" {
		t.Errorf("file state not cleared: %+v", updated)
	}
}

func TestRefreshAttachesScannedMovieFile(t *testing.T) {
	svc, queries := newRefreshEnv(t)
	ctx := context.Background()
	root := t.TempDir()

	movie := &database.Movie{
		ID: uuid.NewString(), Title: "The Movie", Year: 2020, Monitored: true,
		QualityProfileID: "qp-hd1080", MinimumAvailability: "announced",
	}
	if err := queries.CreateMovie(ctx, movie); err != nil {
		t.Fatal(err)
	}
	err := queries.CreateRootFolder(ctx, &database.RootFolder{
		ID: uuid.NewString(), Path: root, MediaType: "movie",
	})
	if err != nil {
		t.Fatal(err)
	}
	moviePath := filepath.Join(root, "The Movie (2020)", "The.Movie.2020.1080p.WEB-DL.x264-GRP.mkv")
	writeFile(t, moviePath)

	result, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.MoviesMatched != 1 {
		t.Fatalf("result = %+v", result)
	}

	updated, err := queries.GetMovie(ctx, movie.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !updated.HasFile || updated.FilePath != moviePath {
		t.Errorf("file not attached: %+v", updated)
	}
	if updated.Quality != "WEBDL-1080p" {
		t.Errorf("quality = %q", updated.Quality)
	}
}

func TestRefreshAttachesScannedEpisodeFile(t *testing.T) {
	svc, queries := newRefreshEnv(t)
	ctx := context.Background()
	root := t.TempDir()

	series := &database.Series{
		ID: uuid.NewString(), Title: "Show Name", Year: 2023, Monitored: true,
		SeriesType: "standard", MonitorNewSeasons: "all", QualityProfileID: "qp-hd1080",
	}
	if err := queries.CreateSeries(ctx, series); err != nil {
		t.Fatal(err)
	}
	err := queries.CreateSeason(ctx, &database.Season{
		ID: uuid.NewString(), SeriesID: series.ID, SeasonNumber: 1, Monitored: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	episode := &database.Episode{
		ID: uuid.NewString(), SeriesID: series.ID, SeasonNumber: 1, EpisodeNumber: 2,
		Title: "Second", Monitored: true,
	}
	if err := queries.CreateEpisode(ctx, episode); err != nil {
		t.Fatal(err)
	}
	err = queries.CreateRootFolder(ctx, &database.RootFolder{
		ID: uuid.NewString(), Path: root, MediaType: "tv",
	})
	if err != nil {
		t.Fatal(err)
	}
	episodePath := filepath.Join(root, "Show Name", "Season 01", "Show.Name.S01E02.1080p.WEB-DL.x264-GRP.mkv")
	writeFile(t, episodePath)

	result, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.EpisodesMatched != 1 {
		t.Fatalf("result = %+v", result)
	}

	updated, err := queries.GetEpisode(ctx, episode.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !updated.HasFile || updated.FilePath != episodePath {
		t.Errorf("file not attached: %+v", updated)
	}
}
