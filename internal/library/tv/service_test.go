package tv

import (
	"context"
	"testing"

	"github.com/levijay/mediastack/internal/apperr"
	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *database.Queries) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	return NewService(tdb.DB.Conn(), nil, testutil.NopLogger()), tdb.Queries
}

func seedSeries(t *testing.T, svc *Service, queries *database.Queries, seasons, episodesPerSeason int) *database.Series {
	t.Helper()
	ctx := context.Background()
	series, err := svc.Create(ctx, CreateSeriesInput{
		Title: "Show Name", Year: 2023, TvdbID: 1000, Monitored: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	for season := 1; season <= seasons; season++ {
		err := queries.CreateSeason(ctx, &database.Season{
			ID:       series.ID + "-s" + string(rune('0'+season)),
			SeriesID: series.ID, SeasonNumber: season, Monitored: true,
		})
		if err != nil {
			t.Fatal(err)
		}
		for episode := 1; episode <= episodesPerSeason; episode++ {
			err := queries.CreateEpisode(ctx, &database.Episode{
				ID:       series.ID + "-e" + string(rune('0'+season)) + string(rune('0'+episode)),
				SeriesID: series.ID, SeasonNumber: season, EpisodeNumber: episode,
				Monitored: true,
			})
			if err != nil {
				t.Fatal(err)
			}
		}
	}
	return series
}

func TestCreateDuplicateTvdbID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateSeriesInput{Title: "Show", TvdbID: 7}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, CreateSeriesInput{Title: "Show Again", TvdbID: 7}); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestSeriesMonitorCascade(t *testing.T) {
	svc, queries := newTestService(t)
	ctx := context.Background()
	series := seedSeries(t, svc, queries, 2, 2)

	if err := svc.SetSeriesMonitored(ctx, series.ID, false); err != nil {
		t.Fatal(err)
	}

	seasons, err := queries.ListSeasons(ctx, series.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, season := range seasons {
		if season.Monitored {
			t.Errorf("season %d still monitored", season.SeasonNumber)
		}
	}
	episodes, err := queries.ListEpisodes(ctx, series.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, ep := range episodes {
		if ep.Monitored {
			t.Errorf("episode S%02dE%02d still monitored", ep.SeasonNumber, ep.EpisodeNumber)
		}
	}
}

func TestLastSeasonUnmonitorCascadesUp(t *testing.T) {
	svc, queries := newTestService(t)
	ctx := context.Background()
	series := seedSeries(t, svc, queries, 2, 1)

	if err := svc.SetSeasonMonitored(ctx, series.ID, 1, false); err != nil {
		t.Fatal(err)
	}
	got, err := queries.GetSeries(ctx, series.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Monitored {
		t.Fatal("series should stay monitored while a season remains monitored")
	}

	if err := svc.SetSeasonMonitored(ctx, series.ID, 2, false); err != nil {
		t.Fatal(err)
	}
	got, err = queries.GetSeries(ctx, series.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Monitored {
		t.Fatal("unmonitoring every season should unmonitor the series")
	}
}

func TestMonitoredSeasonImpliesMonitoredSeries(t *testing.T) {
	svc, queries := newTestService(t)
	ctx := context.Background()
	series := seedSeries(t, svc, queries, 1, 1)

	if err := svc.SetSeriesMonitored(ctx, series.ID, false); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetSeasonMonitored(ctx, series.ID, 1, true); err != nil {
		t.Fatal(err)
	}

	got, err := queries.GetSeries(ctx, series.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Monitored {
		t.Fatal("monitoring a season should re-monitor the series")
	}
}

func TestDeleteCascadesEpisodes(t *testing.T) {
	svc, queries := newTestService(t)
	ctx := context.Background()
	series := seedSeries(t, svc, queries, 1, 2)

	if err := svc.Delete(ctx, series.ID, false); err != nil {
		t.Fatal(err)
	}
	episodes, err := queries.ListEpisodes(ctx, series.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(episodes) != 0 {
		t.Errorf("episodes survived series deletion: %d", len(episodes))
	}
}

func TestShouldMonitorNewSeason(t *testing.T) {
	cases := []struct {
		mode           string
		season, latest int
		want           bool
	}{
		{MonitorNewSeasonsAll, 3, 2, true},
		{MonitorNewSeasonsAll, 0, 2, false},
		{MonitorNewSeasonsFuture, 3, 2, true},
		{MonitorNewSeasonsFuture, 2, 2, false},
		{MonitorNewSeasonsCurrent, 2, 2, true},
		{MonitorNewSeasonsCurrent, 1, 2, false},
		{MonitorNewSeasonsNone, 3, 2, false},
	}
	for _, tc := range cases {
		series := &database.Series{MonitorNewSeasons: tc.mode}
		if got := ShouldMonitorNewSeason(series, tc.season, tc.latest); got != tc.want {
			t.Errorf("mode %s season %d latest %d: got %v", tc.mode, tc.season, tc.latest, got)
		}
	}
}
