package quality

import (
	"regexp"
	"strings"
)

// Definition is a quality tier with its ordering weight and size bounds.
type Definition struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Weight        int    `json:"weight"`
	MinSize       int64  `json:"minSize"`
	MaxSize       int64  `json:"maxSize"`
	PreferredSize int64  `json:"preferredSize"`
	Resolution    int    `json:"resolution"` // 480, 720, 1080, 2160
	Source        string `json:"source"`     // "bluray", "webdl", "tv", etc.
}

// Definitions is the ordered set of quality tiers, loaded from storage.
type Definitions struct {
	list   []Definition
	byName map[string]Definition
}

// NewDefinitions builds lookup structures over the tier list.
func NewDefinitions(list []Definition) *Definitions {
	d := &Definitions{
		list:   list,
		byName: make(map[string]Definition, len(list)),
	}
	for _, def := range list {
		d.byName[strings.ToLower(def.Name)] = def
	}
	return d
}

// List returns the tiers ordered by weight.
func (d *Definitions) List() []Definition {
	return d.list
}

// Get returns the definition matching the name exactly (case-insensitive).
func (d *Definitions) Get(name string) (Definition, bool) {
	def, ok := d.byName[strings.ToLower(name)]
	return def, ok
}

var resolutionRe = regexp.MustCompile(`(?i)\b(2160p|1080p|720p|480p|4k)\b`)

// Weight resolves a quality name to its ordering weight. Unknown names fall
// back to the resolution token, taking the minimum weight among tiers at
// that resolution. Returns 0 when nothing resolves.
func (d *Definitions) Weight(name string) int {
	if def, ok := d.Get(name); ok {
		return def.Weight
	}
	res := 0
	switch strings.ToLower(resolutionRe.FindString(name)) {
	case "2160p", "4k":
		res = 2160
	case "1080p":
		res = 1080
	case "720p":
		res = 720
	case "480p":
		res = 480
	}
	if res == 0 {
		return 0
	}
	min := 0
	for _, def := range d.list {
		if def.Resolution != res {
			continue
		}
		if min == 0 || def.Weight < min {
			min = def.Weight
		}
	}
	return min
}

// SizeBounds returns the expected byte-size bounds for a quality name,
// resolving through the same fallback as Weight.
func (d *Definitions) SizeBounds(name string) (min, max, preferred int64, ok bool) {
	if def, found := d.Get(name); found {
		return def.MinSize, def.MaxSize, def.PreferredSize, true
	}
	w := d.Weight(name)
	if w == 0 {
		return 0, 0, 0, false
	}
	for _, def := range d.list {
		if def.Weight == w {
			return def.MinSize, def.MaxSize, def.PreferredSize, true
		}
	}
	return 0, 0, 0, false
}

// Normalize collapses equivalent quality spellings into a group name so
// WEBDL-1080p and WEBRip-1080p both compare as WEB-1080p.
func Normalize(name string) string {
	parts := strings.SplitN(name, "-", 2)
	if len(parts) != 2 {
		return name
	}
	switch strings.ToLower(parts[0]) {
	case "webdl", "webrip", "web":
		return "WEB-" + parts[1]
	}
	return name
}

var (
	properOrRepackRe = regexp.MustCompile(`(?i)\b(PROPER|REPACK|RERIP)\b`)
	properRe         = regexp.MustCompile(`(?i)\bPROPER\b`)
	repackRe         = regexp.MustCompile(`(?i)\b(REPACK|RERIP)\b`)
)

// IsProperOrRepack reports whether the release title or file path carries a
// proper/repack/rerip marker.
func IsProperOrRepack(s string) bool {
	return properOrRepackRe.MatchString(s)
}

// IsProper reports a PROPER marker specifically.
func IsProper(s string) bool {
	return properRe.MatchString(s)
}

// IsRepack reports a REPACK or RERIP marker specifically.
func IsRepack(s string) bool {
	return repackRe.MatchString(s)
}
