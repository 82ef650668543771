// Package renamer builds file and folder names from tokenized format
// strings.
package renamer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TokenContext carries everything a format string can reference. Unused
// fields simply leave their tokens empty.
type TokenContext struct {
	MovieTitle   string
	SeriesTitle  string
	Year         int
	SeasonNumber int
	// EpisodeNumbers holds one entry for a single-episode file and the
	// full sorted run for a multi-episode file.
	EpisodeNumbers  []int
	AbsoluteNumbers []int
	EpisodeTitle    string
	AirDate         string // YYYY-MM-DD
	Quality         string // composed name, e.g. "WEBDL-1080p"
	IsProper        bool
	IsRepack        bool
	VideoCodec      string
	AudioCodec      string
	DynamicRange    string
	ReleaseGroup    string
	ImdbID          string
	TmdbID          int64
	TvdbID          int

	MultiEpisodeStyle MultiEpisodeStyle
}

var (
	tokenPattern = regexp.MustCompile(`\{([^{}]+)\}`)

	// A season token immediately followed by an episode token, with their
	// S/E prefixes, is rewritten as one unit for multi-episode files.
	episodeRunPattern = regexp.MustCompile(`(?i)[Ss]\{season(?::(0+))?\}[Ee]\{episode(?::(0+))?\}`)
)

type token struct {
	raw       string
	name      string // canonical, lowercase, space-separated
	separator string // replaces spaces in the resolved value
	modifier  string // text after the colon
}

// knownTokens is the whitelist of resolvable token names. Anything else is
// left in the output verbatim.
var knownTokens = map[string]struct{}{
	"movie title":                 {},
	"movie cleantitle":            {},
	"movie titlethe":              {},
	"series title":                {},
	"series cleantitle":           {},
	"series titlethe":             {},
	"year":                        {},
	"season":                      {},
	"episode":                     {},
	"absolute":                    {},
	"episode title":               {},
	"air date":                    {},
	"quality full":                {},
	"quality title":               {},
	"mediainfo simple":            {},
	"mediainfo videocodec":        {},
	"mediainfo audiocodec":        {},
	"mediainfo videodynamicrange": {},
	"release group":               {},
	"imdbid":                      {},
	"tmdbid":                      {},
	"tvdbid":                      {},
}

func parseToken(raw string) token {
	inner := raw[1 : len(raw)-1]
	name, modifier := inner, ""
	if i := strings.Index(inner, ":"); i >= 0 {
		name, modifier = inner[:i], inner[i+1:]
	}

	lower := strings.ToLower(name)
	separator := " "
	if _, ok := knownTokens[lower]; !ok {
		// {Series.Title} means "Series Title" joined with dots. Same for
		// dashes and underscores.
		for _, sep := range []string{".", "_", "-"} {
			candidate := strings.ToLower(strings.ReplaceAll(name, sep, " "))
			if _, ok := knownTokens[candidate]; ok {
				lower = candidate
				separator = sep
				break
			}
		}
	}

	return token{raw: raw, name: lower, separator: separator, modifier: modifier}
}

// Render substitutes every known token in the format string and cleans up
// the result. Unknown tokens are preserved literally.
func Render(format string, ctx TokenContext) string {
	out := format
	if len(ctx.EpisodeNumbers) > 1 {
		out = episodeRunPattern.ReplaceAllStringFunc(out, func(run string) string {
			match := episodeRunPattern.FindStringSubmatch(run)
			seasonPad := padWidth(match[1], 2)
			episodePad := padWidth(match[2], 2)
			return FormatMultiEpisode(ctx.MultiEpisodeStyle, ctx.SeasonNumber, ctx.EpisodeNumbers, seasonPad, episodePad)
		})
	}

	out = tokenPattern.ReplaceAllStringFunc(out, func(raw string) string {
		tok := parseToken(raw)
		value, ok := resolveToken(tok, ctx)
		if !ok {
			return raw
		}
		if tok.separator != " " {
			value = strings.ReplaceAll(value, " ", tok.separator)
		}
		return value
	})

	return cleanupSpaces(out)
}

func padWidth(modifier string, fallback int) int {
	if modifier == "" {
		return fallback
	}
	return len(modifier)
}

func resolveToken(tok token, ctx TokenContext) (string, bool) {
	switch tok.name {
	case "movie title":
		return ctx.MovieTitle, true
	case "movie cleantitle":
		return CleanTitle(ctx.MovieTitle), true
	case "movie titlethe":
		return titleThe(ctx.MovieTitle), true
	case "series title":
		return ctx.SeriesTitle, true
	case "series cleantitle":
		return CleanTitle(ctx.SeriesTitle), true
	case "series titlethe":
		return titleThe(ctx.SeriesTitle), true
	case "year":
		if ctx.Year == 0 {
			return "", true
		}
		return strconv.Itoa(ctx.Year), true
	case "season":
		return fmt.Sprintf("%0*d", padWidth(tok.modifier, 2), ctx.SeasonNumber), true
	case "episode":
		if len(ctx.EpisodeNumbers) == 0 {
			return "", true
		}
		return fmt.Sprintf("%0*d", padWidth(tok.modifier, 2), ctx.EpisodeNumbers[0]), true
	case "absolute":
		if len(ctx.AbsoluteNumbers) == 0 {
			return "", true
		}
		pad := padWidth(tok.modifier, 3)
		parts := make([]string, 0, len(ctx.AbsoluteNumbers))
		for _, n := range ctx.AbsoluteNumbers {
			parts = append(parts, fmt.Sprintf("%0*d", pad, n))
		}
		return strings.Join(parts, "-"), true
	case "episode title":
		return truncate(ctx.EpisodeTitle, tok.modifier), true
	case "air date":
		return ctx.AirDate, true
	case "quality full":
		return qualityFull(ctx), true
	case "quality title":
		return ctx.Quality, true
	case "mediainfo simple":
		return strings.TrimSpace(strings.Join(nonEmpty(ctx.VideoCodec, ctx.AudioCodec), " ")), true
	case "mediainfo videocodec":
		return ctx.VideoCodec, true
	case "mediainfo audiocodec":
		return ctx.AudioCodec, true
	case "mediainfo videodynamicrange":
		return ctx.DynamicRange, true
	case "release group":
		return ctx.ReleaseGroup, true
	case "imdbid":
		return ctx.ImdbID, true
	case "tmdbid":
		if ctx.TmdbID == 0 {
			return "", true
		}
		return strconv.FormatInt(ctx.TmdbID, 10), true
	case "tvdbid":
		if ctx.TvdbID == 0 {
			return "", true
		}
		return strconv.Itoa(ctx.TvdbID), true
	}
	return "", false
}

func qualityFull(ctx TokenContext) string {
	q := ctx.Quality
	if q == "" {
		return ""
	}
	switch {
	case ctx.IsRepack:
		return q + " REPACK"
	case ctx.IsProper:
		return q + " PROPER"
	}
	return q
}

// truncate applies a numeric modifier as a maximum rune length.
func truncate(value, modifier string) string {
	if modifier == "" {
		return value
	}
	limit, err := strconv.Atoi(modifier)
	if err != nil || limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit]))
}

// titleThe moves a leading article to the end: "The Matrix" -> "Matrix, The".
func titleThe(title string) string {
	for _, article := range []string{"The ", "A ", "An "} {
		if strings.HasPrefix(title, article) {
			return strings.TrimSpace(title[len(article):]) + ", " + strings.TrimSpace(article)
		}
	}
	return title
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
