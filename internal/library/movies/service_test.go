package movies

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/levijay/mediastack/internal/apperr"
	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *database.Queries) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	return NewService(tdb.DB.Conn(), nil, testutil.NopLogger()), tdb.Queries
}

func TestCreateAndDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	movie, err := svc.Create(ctx, CreateMovieInput{Title: "The Movie", Year: 2020, TmdbID: 42, Monitored: true})
	if err != nil {
		t.Fatal(err)
	}
	if movie.MinimumAvailability != AvailabilityReleased {
		t.Errorf("default availability = %q", movie.MinimumAvailability)
	}

	if _, err := svc.Create(ctx, CreateMovieInput{Title: "The Movie", TmdbID: 42}); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("duplicate TMDB id should conflict, got %v", err)
	}
}

func TestDeleteWithExclusion(t *testing.T) {
	svc, queries := newTestService(t)
	ctx := context.Background()

	movie, err := svc.Create(ctx, CreateMovieInput{Title: "The Movie", Year: 2020, TmdbID: 42})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, movie.ID, false, true); err != nil {
		t.Fatal(err)
	}

	excluded, err := queries.IsExcluded(ctx, 42, "movie")
	if err != nil {
		t.Fatal(err)
	}
	if !excluded {
		t.Error("deleting with exclusion should add an exclusion row")
	}
	if _, err := queries.GetMovie(ctx, movie.ID); !apperr.IsNotFound(err) {
		t.Errorf("movie should be gone, got %v", err)
	}
}

func date(value string) sql.NullString {
	return sql.NullString{String: value, Valid: true}
}

func TestAvailabilityGate(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		movie database.Movie
		want  bool
	}{
		{"announced always available", database.Movie{MinimumAvailability: AvailabilityAnnounced}, true},
		{"in cinemas before theatrical", database.Movie{
			MinimumAvailability: AvailabilityInCinemas,
			TheatricalRelease:   date("2026-09-01"),
		}, false},
		{"in cinemas after theatrical", database.Movie{
			MinimumAvailability: AvailabilityInCinemas,
			TheatricalRelease:   date("2026-03-01"),
		}, true},
		{"released with only future dates", database.Movie{
			MinimumAvailability: AvailabilityReleased,
			TheatricalRelease:   date("2026-05-01"),
			PhysicalRelease:     date("2026-10-01"),
		}, true},
		{"released with no past date", database.Movie{
			MinimumAvailability: AvailabilityReleased,
			TheatricalRelease:   date("2026-09-01"),
		}, false},
		{"released with no dates at all", database.Movie{
			MinimumAvailability: AvailabilityReleased,
		}, false},
	}
	for _, tc := range cases {
		if got := IsAvailable(&tc.movie, now); got != tc.want {
			t.Errorf("%s: IsAvailable = %v", tc.name, got)
		}
	}
}

func TestListSearchable(t *testing.T) {
	svc, queries := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	ready := &database.Movie{
		ID: "m-ready", Title: "Ready", Monitored: true,
		MinimumAvailability: AvailabilityReleased,
		TheatricalRelease:   date("2020-01-01"),
	}
	early := &database.Movie{
		ID: "m-early", Title: "Early", Monitored: true,
		MinimumAvailability: AvailabilityReleased,
		TheatricalRelease:   date(now.AddDate(1, 0, 0).Format("2006-01-02")),
	}
	for _, m := range []*database.Movie{ready, early} {
		if err := queries.CreateMovie(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	searchable, err := svc.ListSearchable(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(searchable) != 1 || searchable[0].ID != "m-ready" {
		t.Errorf("searchable = %+v", searchable)
	}
}

func TestRelatedRanking(t *testing.T) {
	svc, queries := newTestService(t)
	ctx := context.Background()

	seed := []*database.Movie{
		{
			ID: "m-base", Title: "Alien", CollectionTitle: "Alien Collection",
			Directors: `["Ridley Scott"]`, CastMembers: `["Sigourney Weaver","Tom Skerritt","John Hurt"]`,
		},
		{
			ID: "m-sequel", Title: "Aliens", CollectionTitle: "Alien Collection",
			Directors: `["James Cameron"]`, CastMembers: `["Sigourney Weaver","Michael Biehn"]`,
			VoteAverage: 8.4,
		},
		{
			ID: "m-franchise", Title: "Alien Resurrection",
			Directors: `["Jean-Pierre Jeunet"]`, CastMembers: `["Sigourney Weaver","Winona Ryder"]`,
			VoteAverage: 6.1,
		},
		{
			ID: "m-same-director", Title: "Blade Runner",
			Directors: `["Ridley Scott"]`, CastMembers: `["Harrison Ford"]`,
		},
		{ID: "m-unrelated", Title: "Totally Different", Directors: `["Someone Else"]`},
	}
	for _, m := range seed {
		if err := queries.CreateMovie(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	related, err := svc.Related(ctx, "m-base", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(related) != 3 {
		t.Fatalf("got %d related movies", len(related))
	}
	// Shared collection (100) beats franchise prefix alone (100 ties,
	// then vote average), both beat a single shared director (40).
	if related[0].ID != "m-sequel" {
		t.Errorf("top related = %s", related[0].ID)
	}
	if related[1].ID != "m-franchise" {
		t.Errorf("second related = %s", related[1].ID)
	}
	if related[2].ID != "m-same-director" {
		t.Errorf("third related = %s", related[2].ID)
	}
	for _, r := range related {
		if r.ID == "m-unrelated" {
			t.Error("unrelated movie must not appear")
		}
	}
}
