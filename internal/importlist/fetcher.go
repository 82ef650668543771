// Package importlist reconciles external watch lists into the library
// catalog.
package importlist

import (
	"context"

	"github.com/levijay/mediastack/internal/apperr"
	"github.com/levijay/mediastack/internal/database"
)

// List types.
const (
	TypeIMDb = "imdb"
	TypeJSON = "json"
)

// Monitor modes for newly created series.
const (
	MonitorAll          = "all"
	MonitorFirstSeason  = "firstSeason"
	MonitorLatestSeason = "latestSeason"
	MonitorNone         = "none"
)

// Item is one entry of an external list. TmdbID may be zero when the list
// only carries an IMDb id; resolution happens during reconciliation.
type Item struct {
	Title     string `json:"title"`
	Year      int    `json:"year,omitempty"`
	ImdbID    string `json:"imdbId,omitempty"`
	TmdbID    int64  `json:"tmdbId,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
}

// Fetcher retrieves the raw items of one configured list.
type Fetcher interface {
	Fetch(ctx context.Context, list *database.ImportList) ([]Item, error)
}

// NewFetcher returns the fetcher for a list's type.
func NewFetcher(list *database.ImportList) (Fetcher, error) {
	switch list.Type {
	case TypeIMDb:
		return NewIMDbFetcher(), nil
	case TypeJSON:
		return NewJSONFetcher(), nil
	default:
		return nil, apperr.Validation("unknown import list type %q", list.Type)
	}
}
