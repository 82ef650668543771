package decisioning

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/indexer"
	"github.com/levijay/mediastack/internal/library/quality"
)

func testDefinitions() *quality.Definitions {
	const gb = int64(1) << 30
	return quality.NewDefinitions([]quality.Definition{
		{Name: "SDTV", Weight: 1, Resolution: 480, PreferredSize: 1 * gb},
		{Name: "HDTV-720p", Weight: 4, Resolution: 720, PreferredSize: 2 * gb},
		{Name: "WEBDL-720p", Weight: 6, Resolution: 720, PreferredSize: 3 * gb},
		{Name: "HDTV-1080p", Weight: 8, Resolution: 1080, PreferredSize: 4 * gb},
		{Name: "WEBRip-1080p", Weight: 9, Resolution: 1080, PreferredSize: 5 * gb},
		{Name: "WEBDL-1080p", Weight: 10, Resolution: 1080, PreferredSize: 5 * gb},
		{Name: "Bluray-1080p", Weight: 11, Resolution: 1080, PreferredSize: 9 * gb},
		{Name: "WEBDL-2160p", Weight: 15, Resolution: 2160, PreferredSize: 15 * gb},
		{Name: "Bluray-2160p", Weight: 16, Resolution: 2160, PreferredSize: 25 * gb},
		{Name: "Remux-2160p", Weight: 17, Resolution: 2160, PreferredSize: 50 * gb},
	})
}

func anyProfile() *quality.Profile {
	defs := testDefinitions()
	items := make([]quality.Item, 0, len(defs.List()))
	for _, d := range defs.List() {
		items = append(items, quality.Item{Quality: d.Name, Allowed: true})
	}
	return &quality.Profile{
		Name:              "Any",
		Items:             items,
		Cutoff:            "Bluray-2160p",
		UpgradeAllowed:    true,
		PropersPreference: quality.PrefersProperUpgrade,
	}
}

func newTestSelector() *Selector {
	return NewSelector(testDefinitions(), nil, zerolog.Nop())
}

func release(title string, size int64, seeders int) indexer.Release {
	return indexer.Release{
		GUID:        title,
		Title:       title,
		DownloadURL: "https://indexer/dl/" + title,
		Size:        size,
		Seeders:     seeders,
	}
}

func TestSelectProperUpgradeAtSameResolution(t *testing.T) {
	s := newTestSelector()
	item := SearchableItem{
		MediaType:      MediaTypeEpisode,
		MediaID:        "ep-1",
		Title:          "Show Name",
		SeasonNumber:   1,
		EpisodeNumber:  2,
		HasFile:        true,
		CurrentQuality: "WEBDL-1080p",
	}
	best, _ := s.Select([]indexer.Release{
		release("Show.Name.S01E02.1080p.WEB-DL.PROPER-GRP", 500<<20, 40),
	}, anyProfile(), item)

	if best == nil {
		t.Fatal("expected proper release to be selected")
	}
	if !best.Parsed.IsProper {
		t.Error("selected release should carry the proper flag")
	}
}

func TestSelectCutoffAlreadyMet(t *testing.T) {
	s := newTestSelector()
	item := SearchableItem{
		MediaType:      MediaTypeMovie,
		MediaID:        "m-1",
		Title:          "The Movie",
		Year:           2020,
		HasFile:        true,
		CurrentQuality: "Bluray-2160p",
	}
	best, rejections := s.Select([]indexer.Release{
		release("The.Movie.2020.2160p.REMUX-GRP", 50<<30, 10),
	}, anyProfile(), item)

	if best != nil {
		t.Fatalf("expected no grab above cutoff, got %q", best.Release.Title)
	}
	if len(rejections) != 1 || rejections[0].Reason != "not an upgrade" {
		t.Errorf("rejections = %+v", rejections)
	}
}

func TestSelectTitleHijackRejected(t *testing.T) {
	s := newTestSelector()
	item := SearchableItem{
		MediaType: MediaTypeMovie,
		MediaID:   "m-2",
		Title:     "Masters of the Universe",
		Year:      2025,
	}
	best, _ := s.Select([]indexer.Release{
		release("He-Man.and.the.Masters.of.the.Universe.2025.1080p.WEB", 5<<30, 100),
	}, anyProfile(), item)

	if best != nil {
		t.Fatalf("expected hijack rejection, got %q", best.Release.Title)
	}
}

func TestSelectTVReleaseForMovieRejected(t *testing.T) {
	s := newTestSelector()
	item := SearchableItem{
		MediaType: MediaTypeMovie,
		MediaID:   "m-3",
		Title:     "Severance",
		Year:      2025,
	}
	best, rejections := s.Select([]indexer.Release{
		release("Severance.S02E03.1080p.WEB", 3<<30, 60),
	}, anyProfile(), item)

	if best != nil {
		t.Fatalf("expected TV-shape rejection, got %q", best.Release.Title)
	}
	if len(rejections) != 1 {
		t.Fatalf("rejections = %+v", rejections)
	}
}

func TestSelectBlacklistFilter(t *testing.T) {
	s := newTestSelector()
	s.IsBlacklisted = func(title string, item SearchableItem) bool {
		return item.MediaID == "m-4" && title == "The.Movie.2020.1080p.BluRay.x264-BAD"
	}
	item := SearchableItem{
		MediaType: MediaTypeMovie,
		MediaID:   "m-4",
		Title:     "The Movie",
		Year:      2020,
	}
	best, _ := s.Select([]indexer.Release{
		release("The.Movie.2020.1080p.BluRay.x264-BAD", 9<<30, 200),
		release("The.Movie.2020.1080p.WEB-DL.x264-GOOD", 5<<30, 50),
	}, anyProfile(), item)

	if best == nil {
		t.Fatal("expected the non-blacklisted release")
	}
	if best.Release.Title != "The.Movie.2020.1080p.WEB-DL.x264-GOOD" {
		t.Errorf("selected %q", best.Release.Title)
	}
}

func TestSelectPrefersBetterQualityAndSeeders(t *testing.T) {
	s := newTestSelector()
	item := SearchableItem{
		MediaType: MediaTypeMovie,
		MediaID:   "m-5",
		Title:     "The Movie",
		Year:      2020,
	}
	best, _ := s.Select([]indexer.Release{
		release("The.Movie.2020.720p.HDTV.x264-GRP", 2<<30, 10),
		release("The.Movie.2020.2160p.BluRay.x265-GRP", 25<<30, 40),
		release("The.Movie.2020.1080p.WEB-DL.x264-GRP", 5<<30, 40),
	}, anyProfile(), item)

	if best == nil {
		t.Fatal("expected a selection")
	}
	// Bluray-2160p is the cutoff quality: +50 cutoff bonus beats the others.
	if best.Parsed.Quality != "Bluray-2160p" {
		t.Errorf("selected quality %q", best.Parsed.Quality)
	}
}

func TestSelectSeasonPackShape(t *testing.T) {
	s := newTestSelector()
	item := SearchableItem{
		MediaType:    MediaTypeSeason,
		MediaID:      "se-1",
		Title:        "Show Name",
		SeasonNumber: 2,
		EpisodeCount: 10,
	}
	best, _ := s.Select([]indexer.Release{
		release("Show.Name.S02E01.1080p.WEB-DL.x264-GRP", 500<<20, 50),
		release("Show.Name.S02.1080p.WEB-DL.x264-GRP", 5<<30, 30),
	}, anyProfile(), item)

	if best == nil {
		t.Fatal("expected the season pack")
	}
	if !best.Parsed.IsSeasonPack {
		t.Errorf("selected %q, not a season pack", best.Release.Title)
	}
}

func TestSelectOversizedPenalty(t *testing.T) {
	s := newTestSelector()
	item := SearchableItem{
		MediaType: MediaTypeMovie,
		MediaID:   "m-6",
		Title:     "The Movie",
		Year:      2020,
	}
	// Same quality; the absurdly oversized release loses despite more seeders.
	best, _ := s.Select([]indexer.Release{
		release("The.Movie.2020.1080p.WEB-DL.x264-BIG", 40<<30, 100),
		release("The.Movie.2020.1080p.WEB-DL.x264-OK", 5<<30, 60),
	}, anyProfile(), item)

	if best == nil {
		t.Fatal("expected a selection")
	}
	if best.Release.Title != "The.Movie.2020.1080p.WEB-DL.x264-OK" {
		t.Errorf("selected %q", best.Release.Title)
	}
}

func TestGrabLock(t *testing.T) {
	l := NewGrabLock()
	key := Key(MediaTypeMovie, "m-1")

	if !l.TryAcquire(key) {
		t.Fatal("first acquire should succeed")
	}
	if l.TryAcquire(key) {
		t.Fatal("second acquire should fail while held")
	}
	l.Release(key)
	if !l.TryAcquire(key) {
		t.Fatal("acquire after release should succeed")
	}
}
