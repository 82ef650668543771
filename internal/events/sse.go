package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 30 * time.Second

// activityTypes maps internal event names to the categories the activity
// stream exposes. The websocket stream carries everything; SSE only what a
// history view renders.
var activityTypes = map[string]string{
	"release_grabbed":    "grabbed",
	"download_started":   "downloaded",
	"download_completed": "imported",
	"download_failed":    "failed",
	"movie_removed":      "deleted",
	"series_removed":     "deleted",
	"movie_unmonitored":  "unmonitored",
	"series_unmonitored": "unmonitored",
	"scan_completed":     "scan_completed",
}

// HandleSSE streams activity events to the client as server-sent events
// until the client disconnects.
func (h *Hub) HandleSSE(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	flusher, ok := res.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	events, cancel := h.Subscribe()
	defer cancel()

	if _, err := fmt.Fprint(res, "event: connected\ndata: {}\n\n"); err != nil {
		return nil
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil

		case message := <-events:
			activity, ok := toActivity(message)
			if !ok {
				continue
			}
			if _, err := fmt.Fprintf(res, "event: activity\ndata: %s\n\n", activity); err != nil {
				return nil
			}
			flusher.Flush()

		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, "event: heartbeat\ndata: {}\n\n"); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

// toActivity rewrites a hub event into its activity category, or reports
// that the event is not part of the activity stream.
func toActivity(message []byte) ([]byte, bool) {
	var envelope Event
	if err := json.Unmarshal(message, &envelope); err != nil {
		return nil, false
	}
	category, ok := activityTypes[envelope.Type]
	if !ok {
		return nil, false
	}
	envelope.Type = category
	activity, err := json.Marshal(envelope)
	if err != nil {
		return nil, false
	}
	return activity, true
}
