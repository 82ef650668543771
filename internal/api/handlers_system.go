package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/levijay/mediastack/internal/apperr"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

func (s *Server) systemStatus(c echo.Context) error {
	ctx := c.Request().Context()

	movieCounts, err := s.movies.Count(ctx)
	if err != nil {
		return err
	}
	series, err := s.tv.List(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"version":     Version,
		"time":        time.Now().UTC().Format(time.RFC3339),
		"movies":      movieCounts,
		"seriesCount": len(series),
		"sseClients":  s.hub.ClientCount(),
	})
}

func (s *Server) listWorkers(c echo.Context) error {
	return c.JSON(http.StatusOK, s.workers.List())
}

func (s *Server) getWorker(c echo.Context) error {
	info, err := s.workers.Get(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) startWorker(c echo.Context) error {
	id := c.Param("id")
	if raw := c.QueryParam("skipInitialRun"); raw != "" {
		skip, err := strconv.ParseBool(raw)
		if err != nil {
			return apperr.Validation("skipInitialRun must be a boolean")
		}
		if err := s.workers.Start(id, skip); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
	if err := s.workers.Start(id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) stopWorker(c echo.Context) error {
	if err := s.workers.Stop(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) restartWorker(c echo.Context) error {
	if err := s.workers.Restart(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) runWorker(c echo.Context) error {
	if err := s.workers.RunNow(c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "dispatched"})
}

type intervalRequest struct {
	IntervalMs int64 `json:"intervalMs" validate:"required,min=1000"`
}

func (s *Server) setWorkerInterval(c echo.Context) error {
	var req intervalRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := s.workers.SetInterval(c.Param("id"), time.Duration(req.IntervalMs)*time.Millisecond); err != nil {
		return err
	}
	info, err := s.workers.Get(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) exportBackup(c echo.Context) error {
	export, err := s.backup.Export(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, export)
}

func (s *Server) previewBackup(c echo.Context) error {
	preview, err := s.backup.Preview(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, preview)
}

// restoreBackup takes the export JSON back, optionally restricted by a
// sibling "selectedTables" key.
func (s *Server) restoreBackup(c echo.Context) error {
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&payload); err != nil {
		return apperr.Validation("invalid backup payload: %v", err)
	}

	var selected []string
	if raw, ok := payload["selectedTables"]; ok {
		if err := json.Unmarshal(raw, &selected); err != nil {
			return apperr.Validation("invalid selectedTables: %v", err)
		}
		delete(payload, "selectedTables")
	}

	result, err := s.backup.Restore(c.Request().Context(), payload, selected)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) listSnapshots(c echo.Context) error {
	names, err := s.snapshots.List()
	if err != nil {
		return err
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(http.StatusOK, map[string]any{"snapshots": names})
}

func (s *Server) takeSnapshot(c echo.Context) error {
	if err := s.snapshots.Run(c.Request().Context()); err != nil {
		return err
	}
	names, err := s.snapshots.List()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"snapshots": names})
}
