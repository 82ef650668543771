package decisioning

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/indexer"
	"github.com/levijay/mediastack/internal/indexer/search"
	"github.com/levijay/mediastack/internal/library/quality"
	"github.com/levijay/mediastack/internal/library/scanner"
)

// Candidate is a release that survived selection, with its score attached.
type Candidate struct {
	Release indexer.Release        `json:"release"`
	Parsed  *scanner.ParsedRelease `json:"parsed"`
	Score   ScoreBreakdown         `json:"score"`
}

// Selector scores candidate releases against a quality profile and picks
// the best one.
type Selector struct {
	defs    *quality.Definitions
	formats []*quality.Format
	logger  zerolog.Logger

	// IsBlacklisted reports whether a release title must never be grabbed
	// for the item being searched.
	IsBlacklisted func(title string, item SearchableItem) bool
}

// NewSelector creates a selector over the loaded quality policy.
func NewSelector(defs *quality.Definitions, formats []*quality.Format, logger zerolog.Logger) *Selector {
	return &Selector{
		defs:    defs,
		formats: formats,
		logger:  logger.With().Str("component", "selector").Logger(),
		IsBlacklisted: func(string, SearchableItem) bool {
			return false
		},
	}
}

// Select filters and scores releases for the item and returns the best
// candidate, or nil when nothing qualifies. Rejections explain every drop.
func (s *Selector) Select(releases []indexer.Release, profile *quality.Profile, item SearchableItem) (*Candidate, []Rejection) {
	var rejections []Rejection
	var candidates []Candidate

	for _, release := range releases {
		if s.IsBlacklisted(release.Title, item) {
			rejections = append(rejections, Rejection{Title: release.Title, Reason: "blacklisted"})
			continue
		}

		parsed := scanner.ParseFilename(release.Title)

		if reason := s.checkShape(parsed, item); reason != "" {
			rejections = append(rejections, Rejection{Title: release.Title, Reason: reason})
			continue
		}

		if !search.MatchTitle(item.Title, release.Title, search.MatchOptions{
			ExpectedYear: item.Year,
			IsMovie:      item.MediaType == MediaTypeMovie,
		}) {
			rejections = append(rejections, Rejection{Title: release.Title, Reason: "title mismatch"})
			continue
		}

		if !profile.MeetsProfile(parsed.Quality) {
			rejections = append(rejections, Rejection{Title: release.Title, Reason: "quality not allowed by profile"})
			continue
		}

		if item.HasFile {
			flags := quality.UpgradeFlags{
				CurrentProper:   item.CurrentProper,
				CurrentRepack:   item.CurrentRepack,
				CandidateProper: parsed.IsProper,
				CandidateRepack: parsed.IsRepack,
			}
			upgrade := profile.ShouldUpgrade(s.defs, item.CurrentQuality, parsed.Quality, flags)
			if !upgrade && item.ForceUpgrade {
				w := s.defs.Weight(quality.Normalize(parsed.Quality))
				c := s.defs.Weight(quality.Normalize(item.CurrentQuality))
				upgrade = w > c || (w == c && (parsed.IsProper || parsed.IsRepack) && !item.CurrentProper && !item.CurrentRepack)
			}
			if !upgrade {
				rejections = append(rejections, Rejection{Title: release.Title, Reason: "not an upgrade"})
				continue
			}
		}

		base := s.baseScore(release, parsed, profile, item)
		if base <= 0 {
			rejections = append(rejections, Rejection{Title: release.Title, Reason: "score too low"})
			continue
		}

		format := quality.ScoreFormats(s.formats, profile, release.Title, parsed.ReleaseGroup)
		if format < profile.MinFormatScore {
			rejections = append(rejections, Rejection{Title: release.Title, Reason: "below minimum custom format score"})
			continue
		}

		candidates = append(candidates, Candidate{
			Release: release,
			Parsed:  parsed,
			Score:   ScoreBreakdown{Base: base, Format: format, Total: base + format},
		})
	}

	if len(candidates) == 0 {
		return nil, rejections
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score.Total > candidates[j].Score.Total
	})

	best := candidates[0]
	s.logger.Debug().
		Str("release", best.Release.Title).
		Int("score", best.Score.Total).
		Int("candidates", len(candidates)).
		Int("rejected", len(rejections)).
		Msg("Selected release")

	return &best, rejections
}

// checkShape verifies the release covers the searched season/episode. An
// empty return means the shape is fine.
func (s *Selector) checkShape(parsed *scanner.ParsedRelease, item SearchableItem) string {
	switch item.MediaType {
	case MediaTypeMovie:
		if parsed.IsTV {
			return "tv-shaped release for movie search"
		}
	case MediaTypeEpisode:
		if item.SeasonNumber > 0 && parsed.Season > 0 && !coversSeason(parsed, item.SeasonNumber) {
			return "wrong season"
		}
		if item.EpisodeNumber > 0 && parsed.Episode != item.EpisodeNumber {
			return "wrong episode"
		}
	case MediaTypeSeason:
		if !parsed.IsSeasonPack {
			return "not a season pack"
		}
		if item.SeasonNumber > 0 && parsed.Season > 0 && !coversSeason(parsed, item.SeasonNumber) {
			return "wrong season"
		}
	}
	return ""
}

func coversSeason(parsed *scanner.ParsedRelease, season int) bool {
	if parsed.IsCompleteSeries && parsed.EndSeason > 0 {
		return season >= parsed.Season && season <= parsed.EndSeason
	}
	return parsed.Season == season
}

// baseScore computes the quality-and-health score for one release. Zero or
// negative means reject.
func (s *Selector) baseScore(release indexer.Release, parsed *scanner.ParsedRelease, profile *quality.Profile, item SearchableItem) int {
	score := 100

	w := s.defs.Weight(parsed.Quality)
	k := s.defs.Weight(profile.Cutoff)
	if w > 0 && k > 0 {
		switch {
		case w == k:
			score += 50
		case w < k:
			score -= min(5*(k-w), 40)
		default:
			score -= min(2*(w-k), 20)
		}
	}

	score += min(release.Seeders/2, 50)

	if expected := s.expectedSize(parsed.Quality, item); expected > 0 && release.Size > 0 {
		ratio := float64(release.Size) / float64(expected)
		switch {
		case ratio < 0.3 || ratio > 3:
			score -= 50
		case ratio < 0.5 || ratio > 2:
			score -= 20
		}
	}

	switch strings.ToUpper(parsed.Source) {
	case "WEBDL", "BLURAY", "BRRIP":
		score += 20
	}

	return score
}

// expectedSize estimates the expected byte size for a release of the given
// quality targeting the item. Season packs scale by episode count.
func (s *Selector) expectedSize(qualityName string, item SearchableItem) int64 {
	_, _, preferred, ok := s.defs.SizeBounds(qualityName)
	if !ok || preferred <= 0 {
		return 0
	}
	switch item.MediaType {
	case MediaTypeEpisode:
		return preferred / 10
	case MediaTypeSeason:
		count := item.EpisodeCount
		if count <= 0 {
			count = 10
		}
		return preferred / 10 * int64(count)
	default:
		return preferred
	}
}
