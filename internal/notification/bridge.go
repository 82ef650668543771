package notification

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// bridgeEvents maps internal event names to notification event types.
// Everything else on the bus stays internal.
var bridgeEvents = map[string]EventType{
	"release_grabbed":    EventGrab,
	"download_completed": EventImport,
	"download_failed":    EventFailed,
	"movie_added":        EventMovieAdded,
	"movie_removed":      EventMovieDeleted,
	"series_added":       EventSeriesAdded,
	"series_removed":     EventSeriesDeleted,
}

// Bridge forwards selected event-bus messages to the notification service.
type Bridge struct {
	svc    *Service
	logger zerolog.Logger
}

// NewBridge creates a bridge over the given service.
func NewBridge(svc *Service, logger zerolog.Logger) *Bridge {
	return &Bridge{
		svc:    svc,
		logger: logger.With().Str("component", "notification-bridge").Logger(),
	}
}

// Run consumes raw bus messages until the channel closes or the subscription
// is cancelled. Intended to run as a goroutine.
func (b *Bridge) Run(messages <-chan []byte) {
	for msg := range messages {
		if event, ok := b.translate(msg); ok {
			b.svc.Notify(event)
		}
	}
}

func (b *Bridge) translate(msg []byte) (Event, bool) {
	var envelope struct {
		Type    string `json:"type"`
		Payload struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			MediaType string `json:"mediaType"`
			Quality   string `json:"quality"`
			Message   string `json:"message"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(msg, &envelope); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to decode bus message")
		return Event{}, false
	}

	eventType, ok := bridgeEvents[envelope.Type]
	if !ok {
		return Event{}, false
	}
	return Event{
		Type:      eventType,
		Message:   envelope.Payload.Message,
		MediaType: envelope.Payload.MediaType,
		MediaID:   envelope.Payload.ID,
		Title:     envelope.Payload.Title,
		Quality:   envelope.Payload.Quality,
	}, true
}
