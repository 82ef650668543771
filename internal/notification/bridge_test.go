package notification

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeTranslatesBusEvents(t *testing.T) {
	bridge := NewBridge(NewService(zerolog.Nop()), zerolog.Nop())

	msg := []byte(`{"type":"release_grabbed","payload":{"id":"m-1","title":"Heat","mediaType":"movie","quality":"Bluray-1080p"}}`)
	event, ok := bridge.translate(msg)
	require.True(t, ok)
	assert.Equal(t, EventGrab, event.Type)
	assert.Equal(t, "m-1", event.MediaID)
	assert.Equal(t, "Heat", event.Title)
	assert.Equal(t, "Bluray-1080p", event.Quality)
}

func TestBridgeIgnoresInternalEvents(t *testing.T) {
	bridge := NewBridge(NewService(zerolog.Nop()), zerolog.Nop())

	_, ok := bridge.translate([]byte(`{"type":"download_progress","payload":{"id":"d-1"}}`))
	assert.False(t, ok)

	_, ok = bridge.translate([]byte(`not json`))
	assert.False(t, ok)
}

func TestBridgeDeliversToNotifiers(t *testing.T) {
	svc := NewService(zerolog.Nop())
	sink := NewMockNotifier("sink")
	svc.Register(sink)
	bridge := NewBridge(svc, zerolog.Nop())

	messages := make(chan []byte, 2)
	messages <- []byte(`{"type":"movie_added","payload":{"id":"m-2","title":"Ronin"}}`)
	messages <- []byte(`{"type":"download_progress","payload":{}}`)
	close(messages)

	bridge.Run(messages)
	svc.Flush()

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventMovieAdded, events[0].Type)
	assert.Equal(t, "Ronin", events[0].Title)
}
