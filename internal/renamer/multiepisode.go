package renamer

import (
	"fmt"
	"sort"
	"strings"
)

// MultiEpisodeStyle controls how a file spanning several episodes renders
// its season/episode block.
type MultiEpisodeStyle string

const (
	StyleExtend        MultiEpisodeStyle = "extend"         // S01E01E02
	StyleDuplicate     MultiEpisodeStyle = "duplicate"      // S01E01 S01E02
	StyleScene         MultiEpisodeStyle = "scene"          // S01E01-E02-E03
	StyleRange         MultiEpisodeStyle = "range"          // S01E01-03
	StylePrefixedRange MultiEpisodeStyle = "prefixed_range" // S01E01-E03
)

// FormatMultiEpisode renders the season/episode block for the sorted run of
// episode numbers. Unknown styles fall back to prefixed_range.
func FormatMultiEpisode(style MultiEpisodeStyle, season int, episodes []int, seasonPad, episodePad int) string {
	if len(episodes) == 0 {
		return fmt.Sprintf("S%0*d", seasonPad, season)
	}
	sorted := append([]int(nil), episodes...)
	sort.Ints(sorted)

	first := fmt.Sprintf("S%0*dE%0*d", seasonPad, season, episodePad, sorted[0])
	if len(sorted) == 1 {
		return first
	}

	switch style {
	case StyleExtend:
		var b strings.Builder
		b.WriteString(first)
		for _, ep := range sorted[1:] {
			fmt.Fprintf(&b, "E%0*d", episodePad, ep)
		}
		return b.String()
	case StyleDuplicate:
		parts := make([]string, 0, len(sorted))
		for _, ep := range sorted {
			parts = append(parts, fmt.Sprintf("S%0*dE%0*d", seasonPad, season, episodePad, ep))
		}
		return strings.Join(parts, " ")
	case StyleScene:
		var b strings.Builder
		b.WriteString(first)
		for _, ep := range sorted[1:] {
			fmt.Fprintf(&b, "-E%0*d", episodePad, ep)
		}
		return b.String()
	case StyleRange:
		return fmt.Sprintf("%s-%0*d", first, episodePad, sorted[len(sorted)-1])
	default:
		return fmt.Sprintf("%s-E%0*d", first, episodePad, sorted[len(sorted)-1])
	}
}
