// Package notification delivers media events to configured notifiers.
package notification

import (
	"context"
	"time"
)

// EventType identifies what happened.
type EventType string

const (
	EventGrab          EventType = "grab"
	EventImport        EventType = "import"
	EventUpgrade       EventType = "upgrade"
	EventFailed        EventType = "failed"
	EventMovieAdded    EventType = "movie_added"
	EventMovieDeleted  EventType = "movie_deleted"
	EventSeriesAdded   EventType = "series_added"
	EventSeriesDeleted EventType = "series_deleted"
	EventTest          EventType = "test"
)

// Event is one notification payload.
type Event struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	MediaType string    `json:"mediaType,omitempty"` // "movie", "episode", "series"
	MediaID   string    `json:"mediaId,omitempty"`
	Title     string    `json:"title,omitempty"`
	Quality   string    `json:"quality,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier is one delivery transport.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, event Event) error
}
