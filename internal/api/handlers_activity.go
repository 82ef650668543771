package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/levijay/mediastack/internal/database"
)

const defaultActivityLimit = 50

func (s *Server) listActivity(c echo.Context) error {
	ctx := c.Request().Context()

	filter := database.HistoryFilter{
		EntityType: c.QueryParam("entityType"),
		EntityID:   c.QueryParam("entityId"),
		EventType:  c.QueryParam("eventType"),
		Limit:      defaultActivityLimit,
	}
	if v := c.QueryParam("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := c.QueryParam("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	entries, err := s.history.List(ctx, filter)
	if err != nil {
		return err
	}
	total, err := s.history.Count(ctx, filter)
	if err != nil {
		return err
	}

	out := make([]*historyResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toHistoryResponse(e))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"activity": out,
		"total":    total,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

func (s *Server) streamActivity(c echo.Context) error {
	return s.hub.HandleSSE(c)
}

func (s *Server) activityWebSocket(c echo.Context) error {
	return s.hub.HandleWebSocket(c)
}

func (s *Server) refreshLibrary(c echo.Context) error {
	result, err := s.refresh.Refresh(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
