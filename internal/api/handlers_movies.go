package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/levijay/mediastack/internal/apperr"
	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/importer"
	"github.com/levijay/mediastack/internal/library/movies"
)

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listMovies(c echo.Context) error {
	ctx := c.Request().Context()

	filter := database.MovieFilter{}
	if v := c.QueryParam("monitored"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apperr.Validation("invalid monitored parameter %q", v)
		}
		filter.Monitored = &b
	}
	if v := c.QueryParam("missing"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apperr.Validation("invalid missing parameter %q", v)
		}
		filter.Missing = &b
	}
	if v := c.QueryParam("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := c.QueryParam("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	list, err := s.movies.List(ctx, filter)
	if err != nil {
		return err
	}
	total, err := s.queries.CountMovies(ctx, filter)
	if err != nil {
		return err
	}

	statuses, err := s.activeDownloadStatuses(ctx)
	if err != nil {
		return err
	}
	out := make([]*movieResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMovieResponse(m, statuses[m.ID]))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"movies": out,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// activeDownloadStatuses maps movie id -> in-flight download status.
func (s *Server) activeDownloadStatuses(ctx context.Context) (map[string]string, error) {
	active, err := s.queries.ListActiveDownloads(ctx)
	if err != nil {
		return nil, err
	}
	statuses := make(map[string]string, len(active))
	for _, d := range active {
		if d.MovieID.Valid {
			statuses[d.MovieID.String] = d.Status
		}
	}
	return statuses, nil
}

func (s *Server) getMovie(c echo.Context) error {
	ctx := c.Request().Context()
	movie, err := s.movies.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	statuses, err := s.activeDownloadStatuses(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMovieResponse(movie, statuses[movie.ID]))
}

func (s *Server) createMovie(c echo.Context) error {
	var input movies.CreateMovieInput
	if err := c.Bind(&input); err != nil {
		return apperr.Validation("invalid request body")
	}

	movie, err := s.movies.Create(c.Request().Context(), input)
	if err != nil {
		return err
	}

	// Metadata enrichment runs after the response; the catalog row is
	// already usable without it.
	go func() {
		if err := s.metadata.RefreshMovie(context.Background(), movie.ID); err != nil {
			s.logger.Warn().Err(err).Str("movie", movie.ID).Msg("Metadata refresh failed")
		}
	}()

	return c.JSON(http.StatusCreated, toMovieResponse(movie, ""))
}

type updateMovieRequest struct {
	Monitored           *bool   `json:"monitored"`
	QualityProfileID    *string `json:"qualityProfileId"`
	MinimumAvailability *string `json:"minimumAvailability"`
	FolderPath          *string `json:"folderPath"`
}

func (s *Server) updateMovie(c echo.Context) error {
	ctx := c.Request().Context()

	var req updateMovieRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	movie, err := s.movies.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if req.Monitored != nil {
		movie.Monitored = *req.Monitored
	}
	if req.QualityProfileID != nil {
		movie.QualityProfileID = *req.QualityProfileID
	}
	if req.MinimumAvailability != nil {
		movie.MinimumAvailability = *req.MinimumAvailability
	}
	if req.FolderPath != nil {
		movie.FolderPath = *req.FolderPath
	}

	if err := s.movies.Update(ctx, movie); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMovieResponse(movie, ""))
}

func (s *Server) deleteMovie(c echo.Context) error {
	deleteFiles := c.QueryParam("deleteFiles") == "true"
	addExclusion := c.QueryParam("addExclusion") == "true"

	if err := s.movies.Delete(c.Request().Context(), c.Param("id"), deleteFiles, addExclusion); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type monitorRequest struct {
	Monitored bool `json:"monitored"`
}

func (s *Server) setMovieMonitored(c echo.Context) error {
	var req monitorRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := s.movies.SetMonitored(c.Request().Context(), c.Param("id"), req.Monitored); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type searchRequest struct {
	ForceUpgrade bool `json:"forceUpgrade"`
}

func (s *Server) searchMovie(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	result, err := s.search.SearchMovie(c.Request().Context(), c.Param("id"), req.ForceUpgrade)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type bulkSearchRequest struct {
	MovieIDs     []string `json:"movieIds" validate:"required,min=1"`
	ForceUpgrade bool     `json:"forceUpgrade"`
}

func (s *Server) bulkSearchMovies(c echo.Context) error {
	ctx := c.Request().Context()

	var req bulkSearchRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	results := make([]any, 0, len(req.MovieIDs))
	for _, id := range req.MovieIDs {
		result, err := s.search.SearchMovie(ctx, id, req.ForceUpgrade)
		if err != nil {
			results = append(results, map[string]string{"mediaId": id, "error": err.Error()})
			continue
		}
		results = append(results, result)
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

func (s *Server) refreshMovie(c echo.Context) error {
	if err := s.metadata.RefreshMovie(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	movie, err := s.movies.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMovieResponse(movie, ""))
}

func (s *Server) previewMovieRename(c echo.Context) error {
	ctx := c.Request().Context()
	movie, err := s.movies.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	cfg, err := s.renamer.Config(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"preview": s.renamer.PreviewMovieRename(cfg, movie),
	})
}

func (s *Server) renameMovie(c echo.Context) error {
	ctx := c.Request().Context()
	movie, err := s.movies.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	cfg, err := s.renamer.Config(ctx)
	if err != nil {
		return err
	}

	preview := s.renamer.PreviewMovieRename(cfg, movie)
	if preview == nil {
		return c.JSON(http.StatusOK, map[string]any{"renamed": false})
	}
	if err := s.moveFile(preview.ExistingPath, preview.NewPath); err != nil {
		return apperr.Upstream("rename failed", err)
	}
	if err := s.queries.UpdateMovieFile(ctx, movie.ID, preview.NewPath, movie.FileSize,
		movie.Quality, movie.VideoCodec, movie.AudioCodec, movie.ReleaseGroup,
		movie.IsProper, movie.IsRepack); err != nil {
		return err
	}
	message := "Renamed to " + preview.NewPath
	if _, err := s.queries.AppendHistory(ctx, "movie", movie.ID, database.HistoryEventRenamed, message, "{}"); err != nil {
		s.logger.Warn().Err(err).Str("movie", movie.ID).Msg("Failed to append history")
	}
	return c.JSON(http.StatusOK, map[string]any{"renamed": true, "path": preview.NewPath})
}

// moveFile renames within the library root, creating the destination folder.
func (s *Server) moveFile(from, to string) error {
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return err
	}
	return os.Rename(from, to)
}

type manualImportRequest struct {
	SourcePath   string `json:"sourcePath" validate:"required"`
	DeleteSource bool   `json:"deleteSource"`
}

func (s *Server) manualImportMovie(c echo.Context) error {
	ctx := c.Request().Context()

	var req manualImportRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	movie, err := s.movies.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	result, err := s.importer.ImportMovie(ctx, importer.Request{
		ContentPath:  req.SourcePath,
		ReleaseTitle: filepath.Base(req.SourcePath),
		KeepSource:   !req.DeleteSource,
	}, movie)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
