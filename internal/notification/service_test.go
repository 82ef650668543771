package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyFansOutToAllNotifiers(t *testing.T) {
	svc := NewService(zerolog.New(zerolog.NewTestWriter(t)))
	first := NewMockNotifier("first")
	second := NewMockNotifier("second")
	svc.Register(first)
	svc.Register(second)

	svc.Notify(Event{Type: EventGrab, Message: "Grabbed something", MediaType: "movie"})
	svc.Flush()

	require.Len(t, first.Events(), 1)
	require.Len(t, second.Events(), 1)
	assert.Equal(t, EventGrab, first.Events()[0].Type)
	assert.False(t, first.Events()[0].Timestamp.IsZero())
}

func TestFailingNotifierDoesNotAffectOthers(t *testing.T) {
	svc := NewService(zerolog.New(zerolog.NewTestWriter(t)))
	broken := NewMockNotifier("broken")
	broken.Err = errors.New("transport down")
	ok := NewMockNotifier("ok")
	svc.Register(broken)
	svc.Register(ok)

	svc.Notify(Event{Type: EventImport, Message: "Imported"})
	svc.Flush()

	assert.Len(t, ok.Events(), 1)
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var received Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, jsonDecode(r, &received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	hook := NewWebhookNotifier("hook", server.URL)
	err := hook.Notify(context.Background(), Event{Type: EventUpgrade, Message: "Upgraded", Title: "The Matrix"})
	require.NoError(t, err)
	assert.Equal(t, EventUpgrade, received.Type)
	assert.Equal(t, "The Matrix", received.Title)
}

func TestWebhookNotifierRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	hook := NewWebhookNotifier("hook", server.URL)
	assert.Error(t, hook.Notify(context.Background(), Event{Type: EventTest}))
}

func jsonDecode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
