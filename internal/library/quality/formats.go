package quality

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/levijay/mediastack/internal/database"
)

// FormatRule is one predicate inside a custom format. All rules in a format
// must hold for the format to match.
type FormatRule struct {
	Field   string `json:"field"` // "release_title" or "release_group"
	Pattern string `json:"pattern"`
	Negate  bool   `json:"negate"`
}

// Format is a named, scored rule bundle evaluated against a release.
type Format struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Score int          `json:"score"`
	Rules []FormatRule `json:"rules"`

	compiled []*regexp.Regexp
}

// FormatFromRow parses a stored custom format and compiles its patterns.
func FormatFromRow(row *database.CustomFormat) (*Format, error) {
	f := &Format{ID: row.ID, Name: row.Name, Score: row.Score}
	if err := json.Unmarshal([]byte(row.Rules), &f.Rules); err != nil {
		return nil, fmt.Errorf("parse format %q rules: %w", row.Name, err)
	}
	f.compiled = make([]*regexp.Regexp, len(f.Rules))
	for i, r := range f.Rules {
		re, err := regexp.Compile(`(?i)` + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile format %q rule %d: %w", row.Name, i, err)
		}
		f.compiled[i] = re
	}
	return f, nil
}

// Matches evaluates the format against a release title and group.
func (f *Format) Matches(releaseTitle, releaseGroup string) bool {
	if len(f.Rules) == 0 {
		return false
	}
	for i, r := range f.Rules {
		subject := releaseTitle
		if r.Field == "release_group" {
			subject = releaseGroup
		}
		matched := f.compiled[i].MatchString(subject)
		if matched == r.Negate {
			return false
		}
	}
	return true
}

// ScoreFormats sums the scores of all matching formats. Profile-level
// overrides in FormatScores replace a format's own score.
func ScoreFormats(formats []*Format, profile *Profile, releaseTitle, releaseGroup string) int {
	total := 0
	for _, f := range formats {
		if !f.Matches(releaseTitle, releaseGroup) {
			continue
		}
		score := f.Score
		if profile != nil {
			if override, ok := profile.FormatScores[f.ID]; ok {
				score = override
			}
		}
		total += score
	}
	return total
}
