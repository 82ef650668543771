package autosearch

import "github.com/levijay/mediastack/internal/decisioning"

// Skip reasons reported on a Result when no grab happened. These are surfaced
// to the API and logged, so keep them human-readable.
const (
	SkipNotMonitored     = "not monitored"
	SkipNotAvailable     = "not yet available"
	SkipNotAired         = "not yet aired"
	SkipActiveDownload   = "download already in flight"
	SkipUpgradesDisabled = "upgrades disabled by profile"
	SkipCutoffMet        = "cutoff already met"
	SkipSearchRunning    = "search already running"
	SkipNoResults        = "no suitable release"
	SkipDuplicateURL     = "release already grabbed"
	SkipNothingWanted    = "nothing wanted"
)

// Result is the outcome of searching one item.
type Result struct {
	MediaType  decisioning.MediaType   `json:"mediaType"`
	MediaID    string                  `json:"mediaId"`
	Grabbed    bool                    `json:"grabbed"`
	SkipReason string                  `json:"skipReason,omitempty"`
	DownloadID string                  `json:"downloadId,omitempty"`
	Release    *decisioning.Candidate  `json:"release,omitempty"`
	Rejections []decisioning.Rejection `json:"rejections,omitempty"`
}

// BatchResult aggregates a sweep over many items.
type BatchResult struct {
	Searched int `json:"searched"`
	Grabbed  int `json:"grabbed"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
