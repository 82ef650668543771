package decisioning

// MediaType is the kind of item a search targets.
type MediaType string

const (
	MediaTypeMovie   MediaType = "movie"
	MediaTypeEpisode MediaType = "episode"
	MediaTypeSeason  MediaType = "season"
)

// SearchableItem is a wanted media item prepared for release decisioning.
type SearchableItem struct {
	MediaType MediaType `json:"mediaType"`
	MediaID   string    `json:"mediaId"`
	Title     string    `json:"title"`
	Year      int       `json:"year,omitempty"`

	// TV-specific fields
	SeriesID      string `json:"seriesId,omitempty"`
	SeasonNumber  int    `json:"seasonNumber,omitempty"`
	EpisodeNumber int    `json:"episodeNumber,omitempty"`
	EpisodeCount  int    `json:"episodeCount,omitempty"` // episodes in season, for pack sizing

	QualityProfileID string `json:"qualityProfileId"`

	// Current file info for upgrade decisions.
	HasFile        bool   `json:"hasFile"`
	CurrentQuality string `json:"currentQuality,omitempty"`
	CurrentProper  bool   `json:"currentProper,omitempty"`
	CurrentRepack  bool   `json:"currentRepack,omitempty"`

	// ForceUpgrade bypasses the cutoff short-circuit for manual searches.
	ForceUpgrade bool `json:"forceUpgrade,omitempty"`
}

// ScoreBreakdown explains how a candidate was scored.
type ScoreBreakdown struct {
	Base   int `json:"base"`
	Format int `json:"format"`
	Total  int `json:"total"`
}

// Rejection records why a candidate was dropped.
type Rejection struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}
