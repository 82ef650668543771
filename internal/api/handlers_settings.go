package api

import (
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/levijay/mediastack/internal/apperr"
	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/library/quality"
)

func (s *Server) getNamingConfig(c echo.Context) error {
	cfg, err := s.renamer.Config(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toNamingPayload(cfg))
}

func (s *Server) updateNamingConfig(c echo.Context) error {
	var payload namingConfigPayload
	if err := c.Bind(&payload); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := s.queries.UpdateNamingConfig(c.Request().Context(), payload.toRow()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, payload)
}

func (s *Server) listRootFolders(c echo.Context) error {
	folders, err := s.queries.ListRootFolders(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]*rootFolderResponse, 0, len(folders))
	for _, f := range folders {
		out = append(out, toRootFolderResponse(f))
	}
	return c.JSON(http.StatusOK, out)
}

type rootFolderRequest struct {
	Path      string `json:"path" validate:"required"`
	MediaType string `json:"mediaType" validate:"required,oneof=movie tv"`
}

func (s *Server) createRootFolder(c echo.Context) error {
	var req rootFolderRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if info, err := os.Stat(req.Path); err != nil || !info.IsDir() {
		return apperr.Validation("path %q is not an existing directory", req.Path)
	}

	folder := &database.RootFolder{
		ID:        uuid.NewString(),
		Path:      req.Path,
		MediaType: req.MediaType,
	}
	if err := s.queries.CreateRootFolder(c.Request().Context(), folder); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toRootFolderResponse(folder))
}

func (s *Server) deleteRootFolder(c echo.Context) error {
	if err := s.queries.DeleteRootFolder(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listQualityDefinitions(c echo.Context) error {
	defs, err := s.quality.Definitions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, defs.List())
}

type definitionSizesRequest struct {
	MinSize       int64 `json:"minSize" validate:"min=0"`
	MaxSize       int64 `json:"maxSize" validate:"min=0"`
	PreferredSize int64 `json:"preferredSize" validate:"min=0"`
}

func (s *Server) updateDefinitionSizes(c echo.Context) error {
	var req definitionSizesRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	err := s.quality.UpdateDefinitionSizes(c.Request().Context(), c.Param("id"),
		req.MinSize, req.MaxSize, req.PreferredSize)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listQualityProfiles(c echo.Context) error {
	profiles, err := s.quality.ListProfiles(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profiles)
}

func (s *Server) getQualityProfile(c echo.Context) error {
	profile, err := s.quality.GetProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) createQualityProfile(c echo.Context) error {
	var profile quality.Profile
	if err := c.Bind(&profile); err != nil {
		return apperr.Validation("invalid request body")
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if err := s.quality.CreateProfile(c.Request().Context(), &profile); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, profile)
}

func (s *Server) updateQualityProfile(c echo.Context) error {
	var profile quality.Profile
	if err := c.Bind(&profile); err != nil {
		return apperr.Validation("invalid request body")
	}
	profile.ID = c.Param("id")
	if err := s.quality.UpdateProfile(c.Request().Context(), &profile); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) deleteQualityProfile(c echo.Context) error {
	if err := s.quality.DeleteProfile(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listCustomFormats(c echo.Context) error {
	formats, err := s.quality.Formats(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]*customFormatResponse, 0, len(formats))
	for _, f := range formats {
		out = append(out, toCustomFormatResponse(f))
	}
	return c.JSON(http.StatusOK, out)
}

type customFormatRequest struct {
	Name  string `json:"name" validate:"required"`
	Score int    `json:"score"`
	Rules string `json:"rules" validate:"required,json"`
}

func (s *Server) createCustomFormat(c echo.Context) error {
	var req customFormatRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	row := &database.CustomFormat{
		ID:    uuid.NewString(),
		Name:  req.Name,
		Score: req.Score,
		Rules: req.Rules,
	}
	if err := s.quality.CreateFormat(c.Request().Context(), row); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCustomFormatResponse(row))
}

func (s *Server) updateCustomFormat(c echo.Context) error {
	var req customFormatRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	row := &database.CustomFormat{
		ID:    c.Param("id"),
		Name:  req.Name,
		Score: req.Score,
		Rules: req.Rules,
	}
	if err := s.quality.UpdateFormat(c.Request().Context(), row); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCustomFormatResponse(row))
}

func (s *Server) deleteCustomFormat(c echo.Context) error {
	if err := s.quality.DeleteFormat(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
