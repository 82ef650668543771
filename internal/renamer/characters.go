package renamer

import (
	"regexp"
	"strings"
)

// illegalReplacements maps filesystem-hostile characters to safe stand-ins
// when the config asks for replacement rather than stripping.
var illegalReplacements = map[rune]string{
	'<':  "",
	'>':  "",
	'"':  "",
	'/':  "+",
	'\\': "+",
	'|':  "",
	'?':  "!",
	'*':  "-",
}

// windowsReserved is the set of file names Windows refuses regardless of
// extension.
var windowsReserved = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {},
	"com5": {}, "com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {},
	"lpt5": {}, "lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

var (
	multiSpacePattern   = regexp.MustCompile(`\s{2,}`)
	emptyBracketPattern = regexp.MustCompile(`\(\s*\)|\[\s*\]|\{\s*\}`)
	multiDotPattern     = regexp.MustCompile(`\.{2,}`)
)

// SanitizeOptions mirror the naming_config sanitization columns.
type SanitizeOptions struct {
	// ColonReplacement substitutes every colon. Default " - ".
	ColonReplacement string
	// ReplaceIllegal substitutes illegal characters with safe equivalents
	// instead of stripping them.
	ReplaceIllegal bool
}

// Sanitize makes a single path segment safe for the filesystem. The result
// is a fixed point: sanitizing it again changes nothing.
func Sanitize(name string, opts SanitizeOptions) string {
	replacement := opts.ColonReplacement
	if replacement == "" {
		replacement = " - "
	}
	name = strings.ReplaceAll(name, ":", replacement)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		sub, illegal := illegalReplacements[r]
		switch {
		case !illegal:
			b.WriteRune(r)
		case opts.ReplaceIllegal:
			b.WriteString(sub)
		}
	}
	name = cleanupSpaces(b.String())

	if _, reserved := windowsReserved[strings.ToLower(name)]; reserved {
		name += "_"
	}
	return name
}

// CleanTitle reduces a title to word characters: ampersands spelled out,
// apostrophes dropped, everything else punctuation-free.
func CleanTitle(title string) string {
	title = strings.ReplaceAll(title, "&", "and")
	title = strings.ReplaceAll(title, "'", "")
	title = strings.ReplaceAll(title, "’", "")

	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r > 127:
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return cleanupSpaces(b.String())
}

// cleanupSpaces collapses whitespace runs, removes empty brackets, and trims
// leftover separators from both ends.
func cleanupSpaces(s string) string {
	for {
		stripped := emptyBracketPattern.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = multiDotPattern.ReplaceAllString(s, ".")
	s = multiSpacePattern.ReplaceAllString(s, " ")
	s = strings.Trim(s, " .-_")
	return s
}
