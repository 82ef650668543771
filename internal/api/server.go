// Package api exposes the HTTP surface: library CRUD, automation controls,
// worker management, backup, and the activity stream.
package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/apperr"
	"github.com/levijay/mediastack/internal/autosearch"
	"github.com/levijay/mediastack/internal/backup"
	"github.com/levijay/mediastack/internal/config"
	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/downloader"
	"github.com/levijay/mediastack/internal/events"
	"github.com/levijay/mediastack/internal/history"
	"github.com/levijay/mediastack/internal/importer"
	"github.com/levijay/mediastack/internal/importlist"
	"github.com/levijay/mediastack/internal/indexer"
	"github.com/levijay/mediastack/internal/library/movies"
	"github.com/levijay/mediastack/internal/library/quality"
	"github.com/levijay/mediastack/internal/library/refresh"
	"github.com/levijay/mediastack/internal/library/tv"
	"github.com/levijay/mediastack/internal/metadata"
	"github.com/levijay/mediastack/internal/renamer"
	"github.com/levijay/mediastack/internal/rsssync"
	"github.com/levijay/mediastack/internal/scheduler"
)

// Deps carries the pre-built services the server routes to. Wiring between
// services (downloader -> importer, rss -> autosearch, ...) happens in main.
type Deps struct {
	DB        *sql.DB
	Hub       *events.Hub
	Movies    *movies.Service
	TV        *tv.Service
	Quality   *quality.Service
	Metadata  *metadata.Service
	Indexers  *indexer.Service
	Downloads *downloader.Service
	Search    *autosearch.Service
	RSS       *rsssync.Service
	Lists     *importlist.Service
	History   *history.Service
	Refresh   *refresh.Service
	Backup    *backup.Service
	Snapshots *backup.Snapshotter
	Workers   *scheduler.Registry
	Importer  *importer.Service
	Renamer   *renamer.Service
}

// Server handles HTTP requests for the mediastack API.
type Server struct {
	echo    *echo.Echo
	queries *database.Queries
	cfg     *config.Config
	logger  zerolog.Logger

	hub       *events.Hub
	movies    *movies.Service
	tv        *tv.Service
	quality   *quality.Service
	metadata  *metadata.Service
	indexers  *indexer.Service
	downloads *downloader.Service
	search    *autosearch.Service
	rss       *rsssync.Service
	lists     *importlist.Service
	history   *history.Service
	refresh   *refresh.Service
	backup    *backup.Service
	snapshots *backup.Snapshotter
	workers   *scheduler.Registry
	importer  *importer.Service
	renamer   *renamer.Service
}

// NewServer creates the API server over the given services.
func NewServer(cfg *config.Config, deps Deps, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		queries:   database.NewQueries(deps.DB),
		cfg:       cfg,
		logger:    logger.With().Str("component", "api").Logger(),
		hub:       deps.Hub,
		movies:    deps.Movies,
		tv:        deps.TV,
		quality:   deps.Quality,
		metadata:  deps.Metadata,
		indexers:  deps.Indexers,
		downloads: deps.Downloads,
		search:    deps.Search,
		rss:       deps.RSS,
		lists:     deps.Lists,
		history:   deps.History,
		refresh:   deps.Refresh,
		backup:    deps.Backup,
		snapshots: deps.Snapshots,
		workers:   deps.Workers,
		importer:  deps.Importer,
		renamer:   deps.Renamer,
	}

	e.Validator = &requestValidator{validate: validator.New()}
	e.HTTPErrorHandler = s.handleError

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// requestValidator plugs go-playground/validator into echo's binding step.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return apperr.Validation("%s", err.Error())
	}
	return nil
}

// handleError maps application error kinds onto HTTP status codes.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := apperr.HTTPStatus(err)
	message := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("Request failed")
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"error": message})
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.BodyLimit("10M"))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Compression buffers, which breaks websocket upgrades and
			// SSE flushing.
			if c.Request().Header.Get("Upgrade") == "websocket" {
				return true
			}
			return strings.HasSuffix(c.Path(), "/activity/stream")
		},
	}))
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("Starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
