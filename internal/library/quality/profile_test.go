package quality

import (
	"testing"

	"github.com/levijay/mediastack/internal/database"
)

func testDefinitions() *Definitions {
	return NewDefinitions([]Definition{
		{Name: "SDTV", Weight: 1, Resolution: 480, Source: "tv"},
		{Name: "DVD", Weight: 2, Resolution: 480, Source: "dvd"},
		{Name: "WEBRip-480p", Weight: 3, Resolution: 480, Source: "webrip"},
		{Name: "HDTV-720p", Weight: 4, Resolution: 720, Source: "tv"},
		{Name: "WEBRip-720p", Weight: 5, Resolution: 720, Source: "webrip"},
		{Name: "WEBDL-720p", Weight: 6, Resolution: 720, Source: "webdl"},
		{Name: "Bluray-720p", Weight: 7, Resolution: 720, Source: "bluray"},
		{Name: "HDTV-1080p", Weight: 8, Resolution: 1080, Source: "tv"},
		{Name: "WEBRip-1080p", Weight: 9, Resolution: 1080, Source: "webrip"},
		{Name: "WEBDL-1080p", Weight: 10, Resolution: 1080, Source: "webdl"},
		{Name: "Bluray-1080p", Weight: 11, Resolution: 1080, Source: "bluray"},
		{Name: "Remux-1080p", Weight: 12, Resolution: 1080, Source: "remux"},
		{Name: "HDTV-2160p", Weight: 13, Resolution: 2160, Source: "tv"},
		{Name: "WEBRip-2160p", Weight: 14, Resolution: 2160, Source: "webrip"},
		{Name: "WEBDL-2160p", Weight: 15, Resolution: 2160, Source: "webdl"},
		{Name: "Bluray-2160p", Weight: 16, Resolution: 2160, Source: "bluray"},
		{Name: "Remux-2160p", Weight: 17, Resolution: 2160, Source: "remux"},
	})
}

func allowAll(cutoff string) *Profile {
	defs := testDefinitions()
	items := make([]Item, 0, len(defs.List()))
	for _, d := range defs.List() {
		items = append(items, Item{Quality: d.Name, Allowed: true})
	}
	return &Profile{
		Name:              "Any",
		Items:             items,
		Cutoff:            cutoff,
		UpgradeAllowed:    true,
		PropersPreference: PrefersProperUpgrade,
	}
}

func TestWeightLookup(t *testing.T) {
	defs := testDefinitions()

	tests := []struct {
		name string
		want int
	}{
		{"Bluray-1080p", 11},
		{"bluray-1080p", 11}, // case-insensitive
		{"WEBDL-2160p", 15},
		{"Some.Unknown.1080p.Thing", 8}, // min weight at 1080p
		{"Weird 4K rip", 13},            // 4K maps to 2160p
		{"NoResolutionHere", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := defs.Weight(tt.name); got != tt.want {
			t.Errorf("Weight(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"WEBDL-1080p", "WEB-1080p"},
		{"WEBRip-1080p", "WEB-1080p"},
		{"WEB-720p", "WEB-720p"},
		{"Bluray-1080p", "Bluray-1080p"},
		{"SDTV", "SDTV"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMeetsProfileGroupFallback(t *testing.T) {
	p := &Profile{
		Items: []Item{
			{Quality: "WEBRip-1080p", Allowed: true},
			{Quality: "Bluray-1080p", Allowed: false},
		},
	}

	if !p.MeetsProfile("WEBRip-1080p") {
		t.Error("direct match should pass")
	}
	if !p.MeetsProfile("WEBDL-1080p") {
		t.Error("WEBDL-1080p should pass via WEB-1080p group")
	}
	if p.MeetsProfile("Bluray-1080p") {
		t.Error("disallowed quality should fail")
	}
	if p.MeetsProfile("WEBDL-720p") {
		t.Error("different resolution should fail")
	}
}

func TestMeetsCutoff(t *testing.T) {
	defs := testDefinitions()
	p := allowAll("Bluray-1080p")

	if !p.MeetsCutoff(defs, "Bluray-1080p") {
		t.Error("cutoff quality itself meets cutoff")
	}
	if !p.MeetsCutoff(defs, "Remux-2160p") {
		t.Error("quality above cutoff meets cutoff")
	}
	if p.MeetsCutoff(defs, "WEBDL-1080p") {
		t.Error("quality below cutoff does not meet cutoff")
	}
	if p.MeetsCutoff(defs, "TotallyUnknown") {
		t.Error("unresolvable quality never meets cutoff")
	}
}

func TestShouldUpgrade(t *testing.T) {
	defs := testDefinitions()

	tests := []struct {
		name      string
		profile   *Profile
		current   string
		candidate string
		flags     UpgradeFlags
		want      bool
	}{
		{
			name:      "higher weight below cutoff",
			profile:   allowAll("Bluray-2160p"),
			current:   "WEBDL-1080p",
			candidate: "Bluray-1080p",
			want:      true,
		},
		{
			name:      "lower weight",
			profile:   allowAll("Bluray-2160p"),
			current:   "Bluray-1080p",
			candidate: "HDTV-1080p",
			want:      false,
		},
		{
			name:      "cutoff already met",
			profile:   allowAll("Bluray-2160p"),
			current:   "Bluray-2160p",
			candidate: "Remux-2160p",
			want:      false,
		},
		{
			name:      "equal weight proper over plain file",
			profile:   allowAll("Bluray-2160p"),
			current:   "WEBDL-1080p",
			candidate: "WEBDL-1080p",
			flags:     UpgradeFlags{CandidateProper: true},
			want:      true,
		},
		{
			name:      "equal weight proper but current already proper",
			profile:   allowAll("Bluray-2160p"),
			current:   "WEBDL-1080p",
			candidate: "WEBDL-1080p",
			flags:     UpgradeFlags{CurrentProper: true, CandidateProper: true},
			want:      false,
		},
		{
			name:      "equal weight no proper flag",
			profile:   allowAll("Bluray-2160p"),
			current:   "WEBDL-1080p",
			candidate: "WEBRip-1080p",
			want:      false,
		},
		{
			name: "upgrades disabled",
			profile: func() *Profile {
				p := allowAll("Bluray-2160p")
				p.UpgradeAllowed = false
				return p
			}(),
			current:   "HDTV-720p",
			candidate: "Bluray-1080p",
			want:      false,
		},
		{
			name: "proper upgrade suppressed by doNotUpgrade",
			profile: func() *Profile {
				p := allowAll("Bluray-2160p")
				p.PropersPreference = PrefersProperNever
				return p
			}(),
			current:   "WEBDL-1080p",
			candidate: "WEBDL-1080p",
			flags:     UpgradeFlags{CandidateRepack: true},
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.profile.ShouldUpgrade(defs, tt.current, tt.candidate, tt.flags)
			if got != tt.want {
				t.Errorf("ShouldUpgrade(%q -> %q) = %v, want %v", tt.current, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestProperRepackDetection(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Show.Name.S01E02.1080p.WEB-DL.PROPER-GRP", true},
		{"Movie.2023.REPACK.1080p.BluRay.x264", true},
		{"Movie.2023.RERIP.720p", true},
		{"Movie.2023.1080p.BluRay", false},
		{"Properties.Of.Steel.2020.1080p", false}, // no word boundary match
	}
	for _, tt := range tests {
		if got := IsProperOrRepack(tt.in); got != tt.want {
			t.Errorf("IsProperOrRepack(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatScoring(t *testing.T) {
	hdr, err := FormatFromRow(&database.CustomFormat{
		ID: "cf-hdr", Name: "HDR", Score: 25,
		Rules: `[{"field":"release_title","pattern":"\\bHDR\\b"}]`,
	})
	if err != nil {
		t.Fatalf("compile HDR: %v", err)
	}
	badGroup, err := FormatFromRow(&database.CustomFormat{
		ID: "cf-bad", Name: "Bad Group", Score: -100,
		Rules: `[{"field":"release_group","pattern":"^YIFY$"}]`,
	})
	if err != nil {
		t.Fatalf("compile Bad Group: %v", err)
	}

	profile := &Profile{FormatScores: map[string]int{"cf-hdr": 40}}

	got := ScoreFormats([]*Format{hdr, badGroup}, profile, "Movie.2023.2160p.HDR.WEB-DL", "GRP")
	if got != 40 {
		t.Errorf("score = %d, want 40 (profile override)", got)
	}

	got = ScoreFormats([]*Format{hdr, badGroup}, nil, "Movie.2023.1080p.BluRay", "YIFY")
	if got != -100 {
		t.Errorf("score = %d, want -100", got)
	}
}
