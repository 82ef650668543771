// Package metadata enriches catalog entries from an external metadata
// provider.
package metadata

import "context"

// MovieResult is the provider's view of one movie.
type MovieResult struct {
	TmdbID            int64    `json:"tmdbId"`
	ImdbID            string   `json:"imdbId,omitempty"`
	Title             string   `json:"title"`
	Year              int      `json:"year,omitempty"`
	Runtime           int      `json:"runtime,omitempty"`
	Overview          string   `json:"overview,omitempty"`
	Status            string   `json:"status,omitempty"`
	Certification     string   `json:"certification,omitempty"`
	CollectionTitle   string   `json:"collectionTitle,omitempty"`
	VoteAverage       float64  `json:"voteAverage,omitempty"`
	PosterPath        string   `json:"posterPath,omitempty"`
	BackdropPath      string   `json:"backdropPath,omitempty"`
	TheatricalRelease string   `json:"theatricalRelease,omitempty"` // YYYY-MM-DD
	DigitalRelease    string   `json:"digitalRelease,omitempty"`
	PhysicalRelease   string   `json:"physicalRelease,omitempty"`
	Genres            []string `json:"genres,omitempty"`
	Directors         []string `json:"directors,omitempty"`
	Writers           []string `json:"writers,omitempty"`
	Cast              []string `json:"cast,omitempty"`
}

// EpisodeResult is the provider's view of one episode.
type EpisodeResult struct {
	SeasonNumber   int    `json:"seasonNumber"`
	EpisodeNumber  int    `json:"episodeNumber"`
	AbsoluteNumber int    `json:"absoluteNumber,omitempty"`
	Title          string `json:"title,omitempty"`
	Overview       string `json:"overview,omitempty"`
	AirDate        string `json:"airDate,omitempty"` // YYYY-MM-DD
}

// SeasonResult is the provider's view of one season.
type SeasonResult struct {
	SeasonNumber int             `json:"seasonNumber"`
	Episodes     []EpisodeResult `json:"episodes"`
}

// SeriesResult is the provider's view of one series.
type SeriesResult struct {
	TvdbID     int            `json:"tvdbId,omitempty"`
	TmdbID     int            `json:"tmdbId,omitempty"`
	ImdbID     string         `json:"imdbId,omitempty"`
	Title      string         `json:"title"`
	Year       int            `json:"year,omitempty"`
	Network    string         `json:"network,omitempty"`
	Status     string         `json:"status,omitempty"`
	Overview   string         `json:"overview,omitempty"`
	PosterPath string         `json:"posterPath,omitempty"`
	Seasons    []SeasonResult `json:"seasons,omitempty"`
}

// ExternalRef resolves a foreign identifier to a TMDB id.
type ExternalRef struct {
	TmdbID    int64  `json:"tmdbId"`
	MediaType string `json:"mediaType"` // "movie" or "series"
	Title     string `json:"title,omitempty"`
	Year      int    `json:"year,omitempty"`
}

// Provider is the capability surface of a metadata source. Implementations
// wrap a real API; the wire protocol is out of scope here.
type Provider interface {
	GetMovie(ctx context.Context, tmdbID int64) (*MovieResult, error)
	GetSeries(ctx context.Context, tmdbID int) (*SeriesResult, error)
	GetSeason(ctx context.Context, tmdbID, seasonNumber int) (*SeasonResult, error)
	FindByExternalID(ctx context.Context, imdbID, mediaType string) (*ExternalRef, error)
}
