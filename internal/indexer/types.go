package indexer

import "time"

// Protocol is the download protocol a release uses.
type Protocol string

const (
	ProtocolTorrent Protocol = "torrent"
	ProtocolUsenet  Protocol = "usenet"
)

// Release is a candidate release returned by an indexer.
type Release struct {
	GUID        string    `json:"guid"`
	Title       string    `json:"title"`
	DownloadURL string    `json:"downloadUrl"`
	InfoURL     string    `json:"infoUrl,omitempty"`
	Size        int64     `json:"size"`
	Seeders     int       `json:"seeders"`
	Leechers    int       `json:"leechers"`
	PublishDate time.Time `json:"publishDate"`
	IndexerID   string    `json:"indexerId"`
	IndexerName string    `json:"indexer"`
	Protocol    Protocol  `json:"protocol"`
}

// SearchCriteria defines search parameters.
type SearchCriteria struct {
	Query     string `json:"query"`
	MediaType string `json:"mediaType"` // "movie" or "series"
	Year      int    `json:"year,omitempty"`
	Season    int    `json:"season,omitempty"`
	Episode   int    `json:"episode,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// TestResult reports the outcome of an indexer connectivity check.
type TestResult struct {
	OK      bool   `json:"ok"`
	Version string `json:"version,omitempty"`
	Message string `json:"message,omitempty"`
}

// SearchError is a per-indexer failure collected during a fan-out search.
type SearchError struct {
	IndexerID   string `json:"indexerId"`
	IndexerName string `json:"indexerName"`
	Error       string `json:"error"`
}

// SearchResult aggregates releases across indexers.
type SearchResult struct {
	Releases []Release     `json:"releases"`
	Errors   []SearchError `json:"errors,omitempty"`
}
