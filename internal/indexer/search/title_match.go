package search

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	apostropheRegex    = regexp.MustCompile(`[''\x60\x{2018}\x{2019}\x{02BC}]`)
	dottedAcronymRegex = regexp.MustCompile(`\b(?:[a-z]\.){2,}`)
	specialCharsRegex  = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpaceRegex = regexp.MustCompile(`\s+`)

	seasonEpisodeRegex = regexp.MustCompile(`^s\d{1,2}e\d{1,3}$`)
	seasonOnlyRegex    = regexp.MustCompile(`^s\d{1,2}$`)
	crossShapeRegex    = regexp.MustCompile(`^\d{1,2}x\d{2}$`)
	resolutionTokens   = map[string]bool{
		"2160p": true, "1080p": true, "720p": true, "480p": true, "576p": true, "4k": true, "uhd": true,
	}
	sourceTokens = map[string]bool{
		"remux": true, "bluray": true, "bdrip": true, "brrip": true, "webdl": true,
		"webrip": true, "web": true, "hdtv": true, "dvdrip": true, "dvd": true,
		"sdtv": true, "cam": true, "hdcam": true, "telesync": true, "hdts": true,
		"telecine": true, "dvdscr": true, "screener": true, "workprint": true,
		"proper": true, "repack": true, "rerip": true, "internal": true, "limited": true,
	}

	// Articles ignored when computing the overlap ratio but still counted as
	// known words for extra-word accounting.
	stopWords = map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "of": true,
		"in": true, "on": true, "at": true, "to": true, "for": true,
	}
)

// NormalizeTitle converts a title to a canonical comparison form: lowercase,
// dotted acronyms collapsed (a.i. becomes ai), ampersands spelled out,
// apostrophes stripped, slashes and remaining punctuation turned into
// spaces, whitespace collapsed.
func NormalizeTitle(title string) string {
	normalized := strings.ToLower(title)
	normalized = dottedAcronymRegex.ReplaceAllStringFunc(normalized, func(m string) string {
		return strings.ReplaceAll(m, ".", "")
	})
	normalized = strings.ReplaceAll(normalized, "&", " and ")
	normalized = apostropheRegex.ReplaceAllString(normalized, "")
	normalized = strings.NewReplacer("/", " ", "\\", " ").Replace(normalized)
	normalized = specialCharsRegex.ReplaceAllString(normalized, " ")
	normalized = multipleSpaceRegex.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// TitlesMatch reports exact equality of two titles after normalization.
func TitlesMatch(parsedTitle, searchQuery string) bool {
	return NormalizeTitle(parsedTitle) == NormalizeTitle(searchQuery)
}

// titlePortion returns the release words before the first year, episode,
// resolution, or source marker.
func titlePortion(releaseWords []string) []string {
	for i, w := range releaseWords {
		if isMarkerToken(w) {
			return releaseWords[:i]
		}
	}
	return releaseWords
}

func isMarkerToken(w string) bool {
	if resolutionTokens[w] || sourceTokens[w] {
		return true
	}
	if seasonEpisodeRegex.MatchString(w) || seasonOnlyRegex.MatchString(w) || crossShapeRegex.MatchString(w) {
		return true
	}
	if year, err := strconv.Atoi(w); err == nil && year >= 1900 && year <= 2100 {
		return true
	}
	return false
}

// releaseYear extracts the first plausible year token from the release.
func releaseYear(releaseWords []string) int {
	for _, w := range releaseWords {
		if year, err := strconv.Atoi(w); err == nil && year >= 1900 && year <= 2100 {
			return year
		}
	}
	return 0
}

// hasTVShape reports episode-or-season shaped tokens anywhere in the release.
func hasTVShape(releaseWords []string) bool {
	for i, w := range releaseWords {
		if seasonEpisodeRegex.MatchString(w) || seasonOnlyRegex.MatchString(w) || crossShapeRegex.MatchString(w) {
			return true
		}
		if w == "season" && i+1 < len(releaseWords) {
			if _, err := strconv.Atoi(releaseWords[i+1]); err == nil {
				return true
			}
		}
		if w == "series" && i > 0 && (releaseWords[i-1] == "complete" || releaseWords[i-1] == "mini") {
			return true
		}
	}
	return false
}

// MatchOptions tunes MatchTitle behavior per media type.
type MatchOptions struct {
	ExpectedYear int  // 0 when unknown
	IsMovie      bool // reject TV-shaped releases and enforce the year window
}

// MatchTitle decides whether a release plausibly names the expected media
// title. The match is strict: high word overlap, the title anchored near
// the start of the release, a bounded number of unexplained words, and for
// movies a year within one of the expected year.
func MatchTitle(expectedTitle, releaseTitle string, opts MatchOptions) bool {
	expectedWords := strings.Fields(NormalizeTitle(expectedTitle))
	releaseWords := strings.Fields(NormalizeTitle(releaseTitle))
	if len(expectedWords) == 0 || len(releaseWords) == 0 {
		return false
	}

	if opts.IsMovie && hasTVShape(releaseWords) {
		return false
	}

	if opts.IsMovie && opts.ExpectedYear > 0 {
		year := releaseYear(releaseWords)
		if year == 0 {
			// Unreleased or current-year movies attract mislabeled uploads;
			// insist on an explicit year for them.
			if opts.ExpectedYear >= time.Now().Year() {
				return false
			}
		} else if year < opts.ExpectedYear-1 || year > opts.ExpectedYear+1 {
			return false
		}
	}

	titleWords := titlePortion(releaseWords)
	if len(titleWords) == 0 {
		return false
	}

	releaseSet := make(map[string]bool, len(titleWords))
	for _, w := range titleWords {
		releaseSet[w] = true
	}
	expectedSet := make(map[string]bool, len(expectedWords))
	for _, w := range expectedWords {
		expectedSet[w] = true
	}

	var contentWords []string
	for _, w := range expectedWords {
		if !stopWords[w] {
			contentWords = append(contentWords, w)
		}
	}
	if len(contentWords) == 0 {
		contentWords = expectedWords
	}

	matched := 0
	for _, w := range contentWords {
		if releaseSet[w] {
			matched++
		}
	}
	if float64(matched) < 0.8*float64(len(contentWords)) {
		return false
	}

	// The title must be anchored near the front of the release so a longer
	// title cannot hijack a substring of it.
	firstPos := -1
	for i, w := range titleWords {
		if w == contentWords[0] {
			firstPos = i
			break
		}
	}
	maxPos := 2
	shortTitle := len(contentWords) <= 2
	if shortTitle {
		maxPos = 1
	}
	if firstPos < 0 || firstPos > maxPos {
		return false
	}

	extras := 0
	for _, w := range titleWords {
		if !expectedSet[w] {
			extras++
		}
	}
	maxExtras := matched / 2
	if maxExtras < 2 {
		maxExtras = 2
	}
	if shortTitle {
		maxExtras = 1
	}
	return extras <= maxExtras
}
