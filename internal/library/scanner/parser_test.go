package scanner

import "testing"

func TestParseFilenameEpisodes(t *testing.T) {
	tests := []struct {
		in          string
		wantTitle   string
		wantSeason  int
		wantEpisode int
		wantEndEp   int
	}{
		{"Show.Name.S01E02.1080p.WEB-DL.x264-GRP.mkv", "Show Name", 1, 2, 0},
		{"Show Name S02E10E11 720p HDTV", "Show Name", 2, 10, 11},
		{"Show.Name.S03E04-E05.2160p.WEB-DL", "Show Name", 3, 4, 5},
		{"Show.Name.1x02.HDTV.x264", "Show Name", 1, 2, 0},
	}
	for _, tt := range tests {
		p := ParseFilename(tt.in)
		if !p.IsTV {
			t.Errorf("%q: expected TV", tt.in)
			continue
		}
		if p.Title != tt.wantTitle || p.Season != tt.wantSeason || p.Episode != tt.wantEpisode || p.EndEpisode != tt.wantEndEp {
			t.Errorf("%q: got (%q, S%d E%d-%d), want (%q, S%d E%d-%d)",
				tt.in, p.Title, p.Season, p.Episode, p.EndEpisode,
				tt.wantTitle, tt.wantSeason, tt.wantEpisode, tt.wantEndEp)
		}
	}
}

func TestParseFilenameSeasonPacks(t *testing.T) {
	p := ParseFilename("Show.Name.S02.1080p.BluRay.x264-GRP")
	if !p.IsSeasonPack || p.Season != 2 || p.Episode != 0 {
		t.Errorf("season pack: got %+v", p)
	}

	p = ParseFilename("Show Name Season 3 720p WEB-DL")
	if !p.IsSeasonPack || p.Season != 3 {
		t.Errorf("spelled season: got %+v", p)
	}

	p = ParseFilename("Show.Name.S01-S04.1080p.BluRay")
	if !p.IsCompleteSeries || p.Season != 1 || p.EndSeason != 4 {
		t.Errorf("multi-season range: got %+v", p)
	}

	p = ParseFilename("Show.Name.COMPLETE.SERIES.720p.WEB-DL")
	if !p.IsCompleteSeries || !p.IsSeasonPack {
		t.Errorf("complete series: got %+v", p)
	}
}

func TestParseFilenameMovies(t *testing.T) {
	tests := []struct {
		in        string
		wantTitle string
		wantYear  int
	}{
		{"The.Movie.2023.1080p.BluRay.x264-GRP.mkv", "The Movie", 2023},
		{"The Movie (2023) 2160p WEB-DL", "The Movie", 2023},
		{"Another.Film.1999", "Another Film", 1999},
	}
	for _, tt := range tests {
		p := ParseFilename(tt.in)
		if p.IsTV {
			t.Errorf("%q: expected movie", tt.in)
			continue
		}
		if p.Title != tt.wantTitle || p.Year != tt.wantYear {
			t.Errorf("%q: got (%q, %d), want (%q, %d)", tt.in, p.Title, p.Year, tt.wantTitle, tt.wantYear)
		}
	}
}

func TestParseFilenameAnimeAbsolute(t *testing.T) {
	p := ParseFilename("Anime Show - 012 [1080p]")
	if !p.IsTV || p.AbsoluteEpisode != 12 {
		t.Errorf("anime absolute: got %+v", p)
	}
}

func TestDetectQuality(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantRes int
	}{
		{"1080p.WEB-DL.x264", "WEBDL-1080p", 1080},
		{"2160p.BluRay.x265", "Bluray-2160p", 2160},
		{"720p.HDTV", "HDTV-720p", 720},
		{"REMUX.2160p", "Remux-2160p", 2160},
		{"WEBRip.1080p", "WEBRip-1080p", 1080},
		{"HDCAM.720p", "CAM", 0},           // low-quality source wins over resolution
		{"TELESYNC.XviD", "TELESYNC", 0},
		{"DVDSCR.x264", "DVDSCR", 0},
		{"WORKPRINT", "WORKPRINT", 0},
		{"WEB-DL.x264", "WEBDL-1080p", 1080}, // default resolution
		{"DVDRip.XviD", "DVD", 1080},
	}
	for _, tt := range tests {
		got, res, _ := DetectQuality(tt.in)
		if got != tt.want || res != tt.wantRes {
			t.Errorf("DetectQuality(%q) = (%q, %d), want (%q, %d)", tt.in, got, res, tt.want, tt.wantRes)
		}
	}
}

func TestParseReleaseAttributes(t *testing.T) {
	p := ParseFilename("Movie.2023.2160p.WEB-DL.DV.Atmos.x265-GRP")
	if p.Codec != "x265" {
		t.Errorf("codec = %q", p.Codec)
	}
	if p.ReleaseGroup != "GRP" {
		t.Errorf("release group = %q", p.ReleaseGroup)
	}
	wantAttrs := map[string]bool{"DV": true, "Atmos": true}
	for _, a := range p.Attributes {
		if !wantAttrs[a] {
			t.Errorf("unexpected attribute %q", a)
		}
		delete(wantAttrs, a)
	}
	if len(wantAttrs) != 0 {
		t.Errorf("missing attributes: %v", wantAttrs)
	}

	p = ParseFilename("Show.Name.S01E02.1080p.WEB-DL.PROPER-GRP")
	if !p.IsProper {
		t.Error("expected proper flag")
	}
	p = ParseFilename("Movie.2023.REPACK.1080p.BluRay.x264-GRP")
	if !p.IsRepack {
		t.Error("expected repack flag")
	}
}

func TestParsePathFolderFallback(t *testing.T) {
	p := ParsePath("/media/movies/The Matrix (1999)/The.Matrix.1080p.BluRay.mkv")
	if p.Year != 1999 {
		t.Errorf("year = %d, want 1999", p.Year)
	}
	if p.Title != "The Matrix" {
		t.Errorf("title = %q, want The Matrix", p.Title)
	}
}

func TestIsSampleFile(t *testing.T) {
	if !IsSampleFile("/downloads/Movie.2023/sample.mkv") {
		t.Error("sample.mkv should be flagged")
	}
	if IsSampleFile("/downloads/Movie.2023/Movie.2023.mkv") {
		t.Error("main feature flagged as sample")
	}
}
