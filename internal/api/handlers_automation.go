package api

import (
	"database/sql"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/levijay/mediastack/internal/apperr"
	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/importlist"
	"github.com/levijay/mediastack/internal/indexer"
)

type automationSearchRequest struct {
	MediaType    string `json:"mediaType" validate:"required,oneof=movie episode season"`
	ID           string `json:"id"`
	SeriesID     string `json:"seriesId"`
	SeasonNumber int    `json:"seasonNumber"`
	ForceUpgrade bool   `json:"forceUpgrade"`
}

func (s *Server) automationSearch(c echo.Context) error {
	ctx := c.Request().Context()

	var req automationSearchRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	switch req.MediaType {
	case "movie":
		if req.ID == "" {
			return apperr.Validation("id is required for a movie search")
		}
		result, err := s.search.SearchMovie(ctx, req.ID, req.ForceUpgrade)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, result)
	case "episode":
		if req.ID == "" {
			return apperr.Validation("id is required for an episode search")
		}
		result, err := s.search.SearchEpisode(ctx, req.ID, req.ForceUpgrade)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, result)
	default: // season
		if req.SeriesID == "" {
			return apperr.Validation("seriesId is required for a season search")
		}
		result, err := s.search.SearchSeason(ctx, req.SeriesID, req.SeasonNumber, req.ForceUpgrade)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, result)
	}
}

type batchSearchRequest struct {
	Concurrency int `json:"concurrency"`
}

func (s *Server) batchConcurrency(req batchSearchRequest) int {
	if req.Concurrency > 0 {
		return req.Concurrency
	}
	return s.cfg.Downloads.ConcurrentRequests
}

func (s *Server) searchAllMissing(c echo.Context) error {
	var req batchSearchRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	result, err := s.search.SearchAllMissing(c.Request().Context(), s.batchConcurrency(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) searchAllCutoffUnmet(c echo.Context) error {
	var req batchSearchRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	result, err := s.search.SearchAllCutoffUnmet(c.Request().Context(), s.batchConcurrency(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// interactiveSearch fans a raw query out to the indexers and returns the
// releases unfiltered, for manual grab decisions in the UI.
func (s *Server) interactiveSearch(c echo.Context) error {
	var criteria indexer.SearchCriteria
	if err := c.Bind(&criteria); err != nil {
		return apperr.Validation("invalid request body")
	}
	if criteria.Query == "" {
		return apperr.Validation("query is required")
	}
	result, err := s.indexers.SearchAll(c.Request().Context(), criteria)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) listDownloads(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		list []*database.Download
		err  error
	)
	if c.QueryParam("active") == "true" {
		list, err = s.queries.ListActiveDownloads(ctx)
	} else {
		list, err = s.queries.ListDownloads(ctx)
	}
	if err != nil {
		return err
	}

	out := make([]*downloadResponse, 0, len(list))
	for _, d := range list {
		out = append(out, toDownloadResponse(d))
	}
	return c.JSON(http.StatusOK, map[string]any{"downloads": out, "total": len(out)})
}

func (s *Server) cancelDownload(c echo.Context) error {
	deleteFiles := c.QueryParam("deleteFiles") == "true"
	if err := s.downloads.Cancel(c.Request().Context(), c.Param("id"), deleteFiles); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listBlacklist(c echo.Context) error {
	entries, err := s.queries.ListBlacklist(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]*blacklistResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toBlacklistResponse(e))
	}
	return c.JSON(http.StatusOK, out)
}

type blacklistRequest struct {
	ReleaseTitle  string `json:"releaseTitle" validate:"required"`
	MovieID       string `json:"movieId"`
	SeriesID      string `json:"seriesId"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	Reason        string `json:"reason"`
}

func (s *Server) addBlacklistEntry(c echo.Context) error {
	var req blacklistRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	entry := &database.BlacklistEntry{
		ID:            uuid.NewString(),
		ReleaseTitle:  req.ReleaseTitle,
		MovieID:       optionalString(req.MovieID),
		SeriesID:      optionalString(req.SeriesID),
		SeasonNumber:  req.SeasonNumber,
		EpisodeNumber: req.EpisodeNumber,
		Reason:        req.Reason,
	}
	if err := s.queries.AddBlacklistEntry(c.Request().Context(), entry); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toBlacklistResponse(entry))
}

func (s *Server) deleteBlacklistEntry(c echo.Context) error {
	if err := s.queries.DeleteBlacklistEntry(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listExclusions(c echo.Context) error {
	exclusions, err := s.queries.ListExclusions(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]*exclusionResponse, 0, len(exclusions))
	for _, e := range exclusions {
		out = append(out, toExclusionResponse(e))
	}
	return c.JSON(http.StatusOK, out)
}

type exclusionRequest struct {
	TmdbID    int64  `json:"tmdbId" validate:"required"`
	MediaType string `json:"mediaType" validate:"required,oneof=movie series"`
	Title     string `json:"title"`
}

func (s *Server) addExclusion(c echo.Context) error {
	var req exclusionRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	exclusion := &database.Exclusion{
		ID:        uuid.NewString(),
		TmdbID:    req.TmdbID,
		MediaType: req.MediaType,
		Title:     req.Title,
	}
	if err := s.queries.AddExclusion(c.Request().Context(), exclusion); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toExclusionResponse(exclusion))
}

func (s *Server) deleteExclusion(c echo.Context) error {
	if err := s.queries.DeleteExclusion(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listImportLists(c echo.Context) error {
	lists, err := s.queries.ListImportLists(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]*importListResponse, 0, len(lists))
	for _, l := range lists {
		out = append(out, toImportListResponse(l))
	}
	return c.JSON(http.StatusOK, out)
}

type importListRequest struct {
	Name                   string `json:"name" validate:"required"`
	Type                   string `json:"type" validate:"required,oneof=imdb json"`
	MediaType              string `json:"mediaType" validate:"required,oneof=movie series"`
	Enabled                bool   `json:"enabled"`
	ListID                 string `json:"listId"`
	URL                    string `json:"url"`
	QualityProfileID       string `json:"qualityProfileId" validate:"required"`
	RootFolder             string `json:"rootFolder" validate:"required"`
	Monitor                string `json:"monitor"`
	MinimumAvailability    string `json:"minimumAvailability"`
	SearchOnAdd            bool   `json:"searchOnAdd"`
	RefreshIntervalMinutes int    `json:"refreshIntervalMinutes"`
}

func (r *importListRequest) toRow(id string) *database.ImportList {
	monitor := r.Monitor
	if monitor == "" {
		monitor = importlist.MonitorAll
	}
	interval := r.RefreshIntervalMinutes
	if interval <= 0 {
		interval = 1440
	}
	return &database.ImportList{
		ID:                     id,
		Name:                   r.Name,
		Type:                   r.Type,
		MediaType:              r.MediaType,
		Enabled:                r.Enabled,
		ListID:                 r.ListID,
		URL:                    r.URL,
		QualityProfileID:       r.QualityProfileID,
		RootFolder:             r.RootFolder,
		Monitor:                monitor,
		MinimumAvailability:    r.MinimumAvailability,
		SearchOnAdd:            r.SearchOnAdd,
		RefreshIntervalMinutes: interval,
	}
}

func (s *Server) createImportList(c echo.Context) error {
	var req importListRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	row := req.toRow(uuid.NewString())
	if err := s.queries.CreateImportList(c.Request().Context(), row); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toImportListResponse(row))
}

func (s *Server) getImportList(c echo.Context) error {
	list, err := s.queries.GetImportList(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toImportListResponse(list))
}

func (s *Server) updateImportList(c echo.Context) error {
	ctx := c.Request().Context()

	existing, err := s.queries.GetImportList(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	var req importListRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	row := req.toRow(existing.ID)
	row.LastSync = existing.LastSync
	if err := s.queries.UpdateImportList(ctx, row); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toImportListResponse(row))
}

func (s *Server) deleteImportList(c echo.Context) error {
	if err := s.queries.DeleteImportList(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) syncImportLists(c echo.Context) error {
	results, err := s.lists.SyncAll(c.Request().Context(), true)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

func (s *Server) syncImportList(c echo.Context) error {
	result, err := s.lists.SyncList(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) listIndexers(c echo.Context) error {
	indexers, err := s.queries.ListIndexers(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]*indexerResponse, 0, len(indexers))
	for _, ix := range indexers {
		out = append(out, toIndexerResponse(ix))
	}
	return c.JSON(http.StatusOK, out)
}

type indexerRequest struct {
	Name       string `json:"name" validate:"required"`
	URL        string `json:"url" validate:"required,url"`
	APIKey     string `json:"apiKey"`
	Enabled    bool   `json:"enabled"`
	Priority   int    `json:"priority"`
	RSSEnabled bool   `json:"rssEnabled"`
	Protocol   string `json:"protocol" validate:"required,oneof=torrent usenet"`
}

func (r *indexerRequest) toRow(id string) *database.Indexer {
	return &database.Indexer{
		ID:         id,
		Name:       r.Name,
		URL:        r.URL,
		APIKey:     r.APIKey,
		Enabled:    r.Enabled,
		Priority:   r.Priority,
		RSSEnabled: r.RSSEnabled,
		Protocol:   r.Protocol,
	}
}

func (s *Server) createIndexer(c echo.Context) error {
	var req indexerRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	row := req.toRow(uuid.NewString())
	if err := s.queries.CreateIndexer(c.Request().Context(), row); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toIndexerResponse(row))
}

func (s *Server) getIndexer(c echo.Context) error {
	row, err := s.queries.GetIndexer(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toIndexerResponse(row))
}

func (s *Server) updateIndexer(c echo.Context) error {
	ctx := c.Request().Context()

	existing, err := s.queries.GetIndexer(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	var req indexerRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	row := req.toRow(existing.ID)
	if err := s.queries.UpdateIndexer(ctx, row); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toIndexerResponse(row))
}

func (s *Server) deleteIndexer(c echo.Context) error {
	if err := s.queries.DeleteIndexer(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) testIndexer(c echo.Context) error {
	result, err := s.indexers.Test(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) rssSyncStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.rss.LastStatus())
}

func (s *Server) runRSSSync(c echo.Context) error {
	status, err := s.rss.Sync(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) listDownloadClients(c echo.Context) error {
	clients, err := s.queries.ListDownloadClients(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]*downloadClientResponse, 0, len(clients))
	for _, dc := range clients {
		out = append(out, toDownloadClientResponse(dc))
	}
	return c.JSON(http.StatusOK, out)
}

type downloadClientRequest struct {
	Name       string `json:"name" validate:"required"`
	Type       string `json:"type" validate:"required"`
	Host       string `json:"host" validate:"required"`
	Port       int    `json:"port" validate:"required,min=1,max=65535"`
	Category   string `json:"category"`
	Enabled    bool   `json:"enabled"`
	Protocol   string `json:"protocol" validate:"required,oneof=torrent usenet"`
	KeepSource bool   `json:"keepSource"`
}

func (r *downloadClientRequest) toRow(id string) *database.DownloadClientConfig {
	return &database.DownloadClientConfig{
		ID:         id,
		Name:       r.Name,
		Type:       r.Type,
		Host:       r.Host,
		Port:       r.Port,
		Category:   r.Category,
		Enabled:    r.Enabled,
		Protocol:   r.Protocol,
		KeepSource: r.KeepSource,
	}
}

func (s *Server) createDownloadClient(c echo.Context) error {
	var req downloadClientRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	row := req.toRow(uuid.NewString())
	if err := s.queries.CreateDownloadClient(c.Request().Context(), row); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toDownloadClientResponse(row))
}

func (s *Server) getDownloadClient(c echo.Context) error {
	row, err := s.queries.GetDownloadClient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDownloadClientResponse(row))
}

func (s *Server) updateDownloadClient(c echo.Context) error {
	ctx := c.Request().Context()

	existing, err := s.queries.GetDownloadClient(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	var req downloadClientRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	row := req.toRow(existing.ID)
	if err := s.queries.UpdateDownloadClient(ctx, row); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDownloadClientResponse(row))
}

func (s *Server) deleteDownloadClient(c echo.Context) error {
	if err := s.queries.DeleteDownloadClient(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func optionalString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
