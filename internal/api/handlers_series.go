package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/levijay/mediastack/internal/apperr"
	"github.com/levijay/mediastack/internal/library/tv"
)

func (s *Server) listSeries(c echo.Context) error {
	list, err := s.tv.List(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]*seriesResponse, 0, len(list))
	for _, sr := range list {
		out = append(out, toSeriesResponse(sr))
	}
	return c.JSON(http.StatusOK, map[string]any{"series": out, "total": len(out)})
}

func (s *Server) getSeries(c echo.Context) error {
	series, err := s.tv.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeriesResponse(series))
}

func (s *Server) createSeries(c echo.Context) error {
	var input tv.CreateSeriesInput
	if err := c.Bind(&input); err != nil {
		return apperr.Validation("invalid request body")
	}

	series, err := s.tv.Create(c.Request().Context(), input)
	if err != nil {
		return err
	}

	go func() {
		if err := s.metadata.RefreshSeries(context.Background(), series.ID); err != nil {
			s.logger.Warn().Err(err).Str("series", series.ID).Msg("Metadata refresh failed")
		}
	}()

	return c.JSON(http.StatusCreated, toSeriesResponse(series))
}

type updateSeriesRequest struct {
	Monitored         *bool   `json:"monitored"`
	QualityProfileID  *string `json:"qualityProfileId"`
	MonitorNewSeasons *string `json:"monitorNewSeasons"`
	SeriesType        *string `json:"seriesType"`
	UseSeasonFolder   *bool   `json:"useSeasonFolder"`
	FolderPath        *string `json:"folderPath"`
}

func (s *Server) updateSeries(c echo.Context) error {
	ctx := c.Request().Context()

	var req updateSeriesRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	series, err := s.tv.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if req.Monitored != nil {
		series.Monitored = *req.Monitored
	}
	if req.QualityProfileID != nil {
		series.QualityProfileID = *req.QualityProfileID
	}
	if req.MonitorNewSeasons != nil {
		series.MonitorNewSeasons = *req.MonitorNewSeasons
	}
	if req.SeriesType != nil {
		series.SeriesType = *req.SeriesType
	}
	if req.UseSeasonFolder != nil {
		series.UseSeasonFolder = *req.UseSeasonFolder
	}
	if req.FolderPath != nil {
		series.FolderPath = *req.FolderPath
	}

	if err := s.tv.Update(ctx, series); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeriesResponse(series))
}

func (s *Server) deleteSeries(c echo.Context) error {
	deleteFiles := c.QueryParam("deleteFiles") == "true"
	if err := s.tv.Delete(c.Request().Context(), c.Param("id"), deleteFiles); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) setSeriesMonitored(c echo.Context) error {
	var req monitorRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := s.tv.SetSeriesMonitored(c.Request().Context(), c.Param("id"), req.Monitored); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) refreshSeries(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.metadata.RefreshSeries(ctx, c.Param("id")); err != nil {
		return err
	}
	series, err := s.tv.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeriesResponse(series))
}

func (s *Server) listSeasons(c echo.Context) error {
	seasons, err := s.tv.Seasons(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	out := make([]*seasonResponse, 0, len(seasons))
	for _, sn := range seasons {
		out = append(out, toSeasonResponse(sn))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) setSeasonMonitored(c echo.Context) error {
	season, err := strconv.Atoi(c.Param("season"))
	if err != nil {
		return apperr.Validation("invalid season number %q", c.Param("season"))
	}

	var req monitorRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := s.tv.SetSeasonMonitored(c.Request().Context(), c.Param("id"), season, req.Monitored); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) searchSeason(c echo.Context) error {
	season, err := strconv.Atoi(c.Param("season"))
	if err != nil {
		return apperr.Validation("invalid season number %q", c.Param("season"))
	}

	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	result, err := s.search.SearchSeason(c.Request().Context(), c.Param("id"), season, req.ForceUpgrade)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) listEpisodes(c echo.Context) error {
	episodes, err := s.tv.Episodes(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	out := make([]*episodeResponse, 0, len(episodes))
	for _, ep := range episodes {
		out = append(out, toEpisodeResponse(ep))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getEpisode(c echo.Context) error {
	episode, err := s.queries.GetEpisode(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEpisodeResponse(episode))
}

func (s *Server) setEpisodeMonitored(c echo.Context) error {
	var req monitorRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := s.tv.SetEpisodeMonitored(c.Request().Context(), c.Param("id"), req.Monitored); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) searchEpisode(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	result, err := s.search.SearchEpisode(c.Request().Context(), c.Param("id"), req.ForceUpgrade)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) previewEpisodeRename(c echo.Context) error {
	ctx := c.Request().Context()
	episode, err := s.queries.GetEpisode(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	series, err := s.tv.Get(ctx, episode.SeriesID)
	if err != nil {
		return err
	}
	cfg, err := s.renamer.Config(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"preview": s.renamer.PreviewEpisodeRename(cfg, series, episode),
	})
}

func (s *Server) deleteEpisodeFile(c echo.Context) error {
	ctx := c.Request().Context()
	episode, err := s.queries.GetEpisode(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if !episode.HasFile {
		return apperr.NotFound("episode has no file")
	}
	if err := s.tv.ClearEpisodeFile(ctx, episode.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
