package scanner

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ParsedRelease is the structured form of a release or file name.
type ParsedRelease struct {
	Title            string   `json:"title"`
	Year             int      `json:"year,omitempty"`
	Season           int      `json:"season,omitempty"`
	EndSeason        int      `json:"endSeason,omitempty"`  // multi-season packs (S01-S04)
	Episode          int      `json:"episode,omitempty"`    // 0 for movies and season packs
	EndEpisode       int      `json:"endEpisode,omitempty"` // multi-episode files
	AbsoluteEpisode  int      `json:"absoluteEpisode,omitempty"`
	IsSeasonPack     bool     `json:"isSeasonPack,omitempty"`
	IsCompleteSeries bool     `json:"isCompleteSeries,omitempty"`
	IsTV             bool     `json:"isTv"`
	Quality          string   `json:"quality,omitempty"`    // composed name, e.g. "WEBDL-1080p"
	Resolution       int      `json:"resolution,omitempty"` // 480, 720, 1080, 2160
	Source           string   `json:"source,omitempty"`
	Codec            string   `json:"codec,omitempty"`
	ReleaseGroup     string   `json:"releaseGroup,omitempty"`
	IsProper         bool     `json:"isProper,omitempty"`
	IsRepack         bool     `json:"isRepack,omitempty"`
	Attributes       []string `json:"attributes,omitempty"` // HDR, Atmos, REMUX, etc.
	FilePath         string   `json:"filePath,omitempty"`
	FileSize         int64    `json:"fileSize,omitempty"`
}

var (
	// TV shapes: Show.S01E02(E03), Show.1x02
	tvPatternSE = regexp.MustCompile(`(?i)^(.+?)[\.\s_-]+[Ss](\d{1,2})[Ee](\d{1,3})(?:-?[Ee](\d{1,3}))?[\.\s_-]*(.*)$`)
	tvPatternX  = regexp.MustCompile(`(?i)^(.+?)[\.\s_-]+(\d{1,2})[xX](\d{2})[\.\s_-]*(.*)$`)

	// Season packs: Show.S01, Show.Season.1, Show.S01-S04, Show.COMPLETE
	tvPatternSeasonRange   = regexp.MustCompile(`(?i)^(.+?)[\.\s_-]+[Ss](\d{1,2})-[Ss]?(\d{1,2})[\.\s_-]+(.*)$`)
	tvPatternSeasonPack    = regexp.MustCompile(`(?i)^(.+?)[\.\s_-]+[Ss](\d{1,2})(?:[\.\s_-]|$)(.*)$`)
	tvPatternSeasonSpelled = regexp.MustCompile(`(?i)^(.+?)[\.\s_-]+[Ss]eason[\.\s_-]+(\d{1,2})(?:[\.\s_-]|$)(.*)$`)
	tvPatternComplete      = regexp.MustCompile(`(?i)^(.+?)[\.\s_-]+(?:the[\.\s_-]+)?complete[\.\s_-]*(?:series)?[\.\s_-]+(.*)$`)

	// Anime absolute numbering: Show - 012
	animePattern = regexp.MustCompile(`^(.+?)\s+-\s+(\d{2,4})(?:[\.\s_-]+(.*))?$`)

	// Movies: Title.Year.rest, Title (Year) rest, Title.Year
	moviePatternDot    = regexp.MustCompile(`^(.+?)[\.\s_-]+(\d{4})[\.\s_-]+(.*)$`)
	moviePatternParen  = regexp.MustCompile(`^(.+?)\s*\((\d{4})\)\s*(.*)$`)
	moviePatternSimple = regexp.MustCompile(`^(.+?)[\.\s_-]+(\d{4})$`)

	// Low-quality sources that short-circuit quality composition. Checked in
	// order; the label is returned bare, without a resolution suffix.
	lowQualitySources = []struct {
		label   string
		pattern *regexp.Regexp
	}{
		{"WORKPRINT", regexp.MustCompile(`(?i)\bworkprint\b`)},
		{"CAM", regexp.MustCompile(`(?i)\b(hd)?cam(rip)?\b`)},
		{"TELESYNC", regexp.MustCompile(`(?i)\b(telesync|hdts|pdvd|predvdrip|\bts\b)\b`)},
		{"TELECINE", regexp.MustCompile(`(?i)\b(telecine|hdtc|\btc\b)\b`)},
		{"DVDSCR", regexp.MustCompile(`(?i)\b(dvdscr(eener)?|screener|bdscr|webscreener)\b`)},
		{"REGIONAL", regexp.MustCompile(`(?i)\b(r5|regional)\b`)},
	}

	resolutionPatterns = []struct {
		label   string
		value   int
		pattern *regexp.Regexp
	}{
		{"2160p", 2160, regexp.MustCompile(`(?i)\b(2160p|4k|uhd)\b`)},
		{"1080p", 1080, regexp.MustCompile(`(?i)\b1080p?\b`)},
		{"720p", 720, regexp.MustCompile(`(?i)\b720p?\b`)},
		{"480p", 480, regexp.MustCompile(`(?i)\b(480p|576p)\b`)},
	}

	// Checked in order; earlier entries are more specific.
	sourcePatterns = []struct {
		label   string
		pattern *regexp.Regexp
	}{
		{"Remux", regexp.MustCompile(`(?i)\b(remux|bdremux)\b`)},
		{"Bluray", regexp.MustCompile(`(?i)\b(blu-?ray|bdrip|brrip|bd25|bd50)\b`)},
		{"WEBDL", regexp.MustCompile(`(?i)\bweb-?dl\b`)},
		{"WEBRip", regexp.MustCompile(`(?i)\bweb-?rip\b`)},
		{"WEB", regexp.MustCompile(`(?i)\bweb\b`)},
		{"HDTV", regexp.MustCompile(`(?i)\b(hdtv|ahdtv)\b`)},
		{"DVD", regexp.MustCompile(`(?i)\b(dvdrip|dvd-?r|dvd[59]?|ntsc|pal)\b`)},
		{"SDTV", regexp.MustCompile(`(?i)\b(sdtv|pdtv|dsr|tvrip)\b`)},
	}

	codecPatterns = []struct {
		label   string
		pattern *regexp.Regexp
	}{
		{"x265", regexp.MustCompile(`(?i)\b(x265|h\.?265|hevc)\b`)},
		{"x264", regexp.MustCompile(`(?i)\b(x264|h\.?264|avc)\b`)},
		{"AV1", regexp.MustCompile(`(?i)\bav1\b`)},
		{"VP9", regexp.MustCompile(`(?i)\bvp9\b`)},
		{"XviD", regexp.MustCompile(`(?i)\bxvid\b`)},
		{"DivX", regexp.MustCompile(`(?i)\bdivx\b`)},
		{"MPEG2", regexp.MustCompile(`(?i)\bmpeg-?2\b`)},
	}

	hdrPatterns = []struct {
		label   string
		pattern *regexp.Regexp
	}{
		{"DV", regexp.MustCompile(`(?i)(dolby[\.\s]?vision|dovi|[\.\s\-]dv[\.\s\-])`)},
		{"HDR10+", regexp.MustCompile(`(?i)hdr10\+`)},
		{"HDR10", regexp.MustCompile(`(?i)hdr10`)},
		{"HDR", regexp.MustCompile(`(?i)[\.\s\-]hdr[\.\s\-]`)},
		{"HLG", regexp.MustCompile(`(?i)\bhlg\b`)},
	}

	audioPatterns = []struct {
		label   string
		pattern *regexp.Regexp
	}{
		{"Atmos", regexp.MustCompile(`(?i)\batmos\b`)},
		{"DTS-X", regexp.MustCompile(`(?i)\bdts[\.\-]?x\b`)},
		{"DTS-HD", regexp.MustCompile(`(?i)\bdts[\.\-]?hd([\.\-]?ma)?\b`)},
		{"TrueHD", regexp.MustCompile(`(?i)\btruehd\b`)},
		{"DTS", regexp.MustCompile(`(?i)[\.\s\-]dts[\.\s\-]`)},
		{"DD+", regexp.MustCompile(`(?i)\b(ddp|dd\+|e[\.\-]?ac[\.\-]?3)`)},
		{"DD", regexp.MustCompile(`(?i)(dd[25]\.[01]|[\.\s\-]ac[\.\-]?3[\.\s\-])`)},
		{"AAC", regexp.MustCompile(`(?i)[\.\s\-]aac[\.\s\-]`)},
		{"FLAC", regexp.MustCompile(`(?i)[\.\s\-]flac[\.\s\-]`)},
	}

	properPattern = regexp.MustCompile(`(?i)\bPROPER\b`)
	repackPattern = regexp.MustCompile(`(?i)\b(REPACK|RERIP)\b`)

	// Release group: trailing -GRP token, excluding resolution-like tails
	releaseGroupPattern = regexp.MustCompile(`-([A-Za-z0-9]+)$`)

	cleanupPattern = regexp.MustCompile(`[\.\s_-]+`)
)

// ParseFilename parses a release or file name into structured data.
func ParseFilename(filename string) *ParsedRelease {
	ext := filepath.Ext(filename)
	if isVideoExtension(ext) {
		filename = strings.TrimSuffix(filename, ext)
	}
	name := filename

	parsed := &ParsedRelease{}

	if match := tvPatternSE.FindStringSubmatch(name); match != nil {
		parsed.IsTV = true
		parsed.Title = cleanTitle(match[1])
		parsed.Season, _ = strconv.Atoi(match[2])
		parsed.Episode, _ = strconv.Atoi(match[3])
		if match[4] != "" {
			parsed.EndEpisode, _ = strconv.Atoi(match[4])
		}
		parseReleaseInfo(match[5], parsed)
		return parsed
	}

	if match := tvPatternX.FindStringSubmatch(name); match != nil {
		parsed.IsTV = true
		parsed.Title = cleanTitle(match[1])
		parsed.Season, _ = strconv.Atoi(match[2])
		parsed.Episode, _ = strconv.Atoi(match[3])
		parseReleaseInfo(match[4], parsed)
		return parsed
	}

	// Multi-season range before single season pack so S01-S04 does not stop at S01.
	if match := tvPatternSeasonRange.FindStringSubmatch(name); match != nil {
		parsed.IsTV = true
		parsed.IsSeasonPack = true
		parsed.IsCompleteSeries = true
		parsed.Title = cleanTitle(match[1])
		parsed.Season, _ = strconv.Atoi(match[2])
		parsed.EndSeason, _ = strconv.Atoi(match[3])
		parseReleaseInfo(match[4], parsed)
		return parsed
	}

	if match := tvPatternSeasonPack.FindStringSubmatch(name); match != nil {
		parsed.IsTV = true
		parsed.IsSeasonPack = true
		parsed.Title = cleanTitle(match[1])
		parsed.Season, _ = strconv.Atoi(match[2])
		parseReleaseInfo(match[3], parsed)
		return parsed
	}

	if match := tvPatternSeasonSpelled.FindStringSubmatch(name); match != nil {
		parsed.IsTV = true
		parsed.IsSeasonPack = true
		parsed.Title = cleanTitle(match[1])
		parsed.Season, _ = strconv.Atoi(match[2])
		parseReleaseInfo(match[3], parsed)
		return parsed
	}

	if match := tvPatternComplete.FindStringSubmatch(name); match != nil {
		parsed.IsTV = true
		parsed.IsSeasonPack = true
		parsed.IsCompleteSeries = true
		parsed.Title = cleanTitle(match[1])
		parseReleaseInfo(match[2], parsed)
		return parsed
	}

	if match := moviePatternParen.FindStringSubmatch(name); match != nil {
		parsed.Title = cleanTitle(match[1])
		parsed.Year, _ = strconv.Atoi(match[2])
		parseReleaseInfo(match[3], parsed)
		return parsed
	}

	if match := moviePatternDot.FindStringSubmatch(name); match != nil {
		year, _ := strconv.Atoi(match[2])
		if year >= 1900 && year <= 2100 {
			parsed.Title = cleanTitle(match[1])
			parsed.Year = year
			parseReleaseInfo(match[3], parsed)
			return parsed
		}
	}

	if match := animePattern.FindStringSubmatch(name); match != nil {
		abs, _ := strconv.Atoi(match[2])
		if abs > 0 && abs < 1900 {
			parsed.IsTV = true
			parsed.Title = cleanTitle(match[1])
			parsed.AbsoluteEpisode = abs
			parseReleaseInfo(match[3], parsed)
			return parsed
		}
	}

	if match := moviePatternSimple.FindStringSubmatch(name); match != nil {
		year, _ := strconv.Atoi(match[2])
		if year >= 1900 && year <= 2100 {
			parsed.Title = cleanTitle(match[1])
			parsed.Year = year
			return parsed
		}
	}

	parsed.Title = cleanTitle(name)
	parseReleaseInfo(name, parsed)
	return parsed
}

// ParsePath parses a full path, falling back to the parent folder when the
// filename alone lacks a movie year.
func ParsePath(fullPath string) *ParsedRelease {
	parsed := ParseFilename(filepath.Base(fullPath))

	if !parsed.IsTV && parsed.Year == 0 {
		folderParsed := ParseFilename(filepath.Base(filepath.Dir(fullPath)))
		if folderParsed.Year != 0 {
			parsed.Year = folderParsed.Year
			if folderParsed.Title != "" {
				parsed.Title = folderParsed.Title
			}
		}
	}

	parsed.FilePath = fullPath
	return parsed
}

func cleanTitle(title string) string {
	return strings.TrimSpace(cleanupPattern.ReplaceAllString(title, " "))
}

// DetectQuality resolves a release name to a quality label. Low-grade
// sources win outright as bare labels; everything else composes
// "<source>-<resolution>" with 1080p assumed when no resolution token is
// present.
func DetectQuality(text string) (quality string, resolution int, source string) {
	for _, lq := range lowQualitySources {
		if lq.pattern.MatchString(text) {
			return lq.label, 0, lq.label
		}
	}

	resolution = 1080
	resLabel := "1080p"
	for _, r := range resolutionPatterns {
		if r.pattern.MatchString(text) {
			resolution = r.value
			resLabel = r.label
			break
		}
	}

	source = ""
	for _, s := range sourcePatterns {
		if s.pattern.MatchString(text) {
			source = s.label
			break
		}
	}
	if source == "" {
		switch resolution {
		case 480:
			return "SDTV", 480, "SDTV"
		default:
			source = "HDTV"
		}
	}
	if source == "SDTV" || source == "DVD" {
		return source, resolution, source
	}
	return source + "-" + resLabel, resolution, source
}

func parseReleaseInfo(text string, parsed *ParsedRelease) {
	parsed.Quality, parsed.Resolution, parsed.Source = DetectQuality(text)

	for _, c := range codecPatterns {
		if c.pattern.MatchString(text) {
			parsed.Codec = c.label
			break
		}
	}

	parsed.IsProper = properPattern.MatchString(text)
	parsed.IsRepack = repackPattern.MatchString(text)

	if match := releaseGroupPattern.FindStringSubmatch(strings.TrimSpace(text)); match != nil {
		group := match[1]
		if !isQualityToken(group) {
			parsed.ReleaseGroup = group
		}
	}

	var attributes []string
	if parsed.Source == "Remux" {
		attributes = append(attributes, "REMUX")
	}
	for _, h := range hdrPatterns {
		if h.pattern.MatchString(text) {
			attributes = append(attributes, h.label)
			break
		}
	}
	for _, a := range audioPatterns {
		if a.pattern.MatchString(text) {
			attributes = append(attributes, a.label)
			break
		}
	}
	parsed.Attributes = attributes
}

// isQualityToken filters trailing tokens that look like a release group but
// are actually quality or codec markers (e.g. "...BluRay.x264-1080p").
func isQualityToken(token string) bool {
	for _, r := range resolutionPatterns {
		if r.pattern.MatchString(token) {
			return true
		}
	}
	for _, c := range codecPatterns {
		if c.pattern.MatchString(token) {
			return true
		}
	}
	return false
}
