package quality

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/levijay/mediastack/internal/database"
)

// Propers/repacks preferences.
const (
	PrefersProperUpgrade = "preferAndUpgrade"
	PrefersProperNoPref  = "doNotPrefer"
	PrefersProperNever   = "doNotUpgrade"
)

// Item is one quality tier in a profile with its allowed flag.
type Item struct {
	Quality string `json:"quality"`
	Allowed bool   `json:"allowed"`
}

// Profile is a quality profile: the allowed tier set, the cutoff at which
// upgrades stop, and the upgrade and format-score settings.
type Profile struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	MediaType         string         `json:"mediaType"` // movie, series, both
	Items             []Item         `json:"items"`
	Cutoff            string         `json:"cutoff"`
	UpgradeAllowed    bool           `json:"upgradeAllowed"`
	MinFormatScore    int            `json:"minFormatScore"`
	FormatScores      map[string]int `json:"formatScores"`
	PropersPreference string         `json:"propersPreference"`
}

// ProfileFromRow parses a stored profile row into the domain type.
func ProfileFromRow(row *database.QualityProfile) (*Profile, error) {
	p := &Profile{
		ID:                row.ID,
		Name:              row.Name,
		MediaType:         row.MediaType,
		Cutoff:            row.Cutoff,
		UpgradeAllowed:    row.UpgradeAllowed,
		MinFormatScore:    row.MinFormatScore,
		PropersPreference: row.PropersPreference,
		FormatScores:      map[string]int{},
	}
	if err := json.Unmarshal([]byte(row.Items), &p.Items); err != nil {
		return nil, fmt.Errorf("parse profile items: %w", err)
	}
	if row.FormatScores != "" {
		if err := json.Unmarshal([]byte(row.FormatScores), &p.FormatScores); err != nil {
			return nil, fmt.Errorf("parse format scores: %w", err)
		}
	}
	return p, nil
}

// ToRow serializes the profile back to its storage shape.
func (p *Profile) ToRow() (*database.QualityProfile, error) {
	items, err := json.Marshal(p.Items)
	if err != nil {
		return nil, err
	}
	scores, err := json.Marshal(p.FormatScores)
	if err != nil {
		return nil, err
	}
	return &database.QualityProfile{
		ID:                p.ID,
		Name:              p.Name,
		MediaType:         p.MediaType,
		Items:             string(items),
		Cutoff:            p.Cutoff,
		UpgradeAllowed:    p.UpgradeAllowed,
		MinFormatScore:    p.MinFormatScore,
		FormatScores:      string(scores),
		PropersPreference: p.PropersPreference,
	}, nil
}

// MeetsProfile reports whether a quality name is in the profile's allowed
// set. Falls back to group-normalized comparison so WEBDL-1080p satisfies a
// profile that allows WEBRip-1080p.
func (p *Profile) MeetsProfile(quality string) bool {
	for _, item := range p.Items {
		if item.Allowed && strings.EqualFold(item.Quality, quality) {
			return true
		}
	}
	norm := Normalize(quality)
	for _, item := range p.Items {
		if item.Allowed && strings.EqualFold(Normalize(item.Quality), norm) {
			return true
		}
	}
	return false
}

// MeetsCutoff reports whether the quality satisfies the profile's cutoff.
// Unresolvable weights return false so unknown qualities never stop
// monitoring.
func (p *Profile) MeetsCutoff(defs *Definitions, quality string) bool {
	w := defs.Weight(quality)
	k := defs.Weight(p.Cutoff)
	if w <= 0 || k <= 0 {
		return false
	}
	return w >= k
}

// UpgradeFlags carries the proper/repack state of the current file and the
// candidate release.
type UpgradeFlags struct {
	CurrentProper   bool
	CurrentRepack   bool
	CandidateProper bool
	CandidateRepack bool
}

// ShouldUpgrade decides whether a candidate quality replaces the current
// file. Equal-weight candidates win only as a proper/repack over a
// non-proper file; above the cutoff nothing upgrades.
func (p *Profile) ShouldUpgrade(defs *Definitions, current, candidate string, flags UpgradeFlags) bool {
	if !p.UpgradeAllowed {
		return false
	}
	c := defs.Weight(Normalize(current))
	n := defs.Weight(Normalize(candidate))
	k := defs.Weight(Normalize(p.Cutoff))
	if n < c {
		return false
	}
	if n == c {
		if flags.CurrentProper || flags.CurrentRepack {
			return false
		}
		if (flags.CandidateProper || flags.CandidateRepack) &&
			(p.PropersPreference == PrefersProperUpgrade || p.PropersPreference == PrefersProperNoPref) {
			return p.MeetsProfile(candidate)
		}
		return false
	}
	if k > 0 && c >= k {
		return false
	}
	return p.MeetsProfile(candidate)
}
