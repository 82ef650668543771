package api

import (
	"database/sql"
	"encoding/json"

	"github.com/levijay/mediastack/internal/database"
)

// Response DTOs. Database rows carry sql.Null* columns and JSON-encoded text
// blobs; the API surface exposes plain values and decoded arrays.

type movieResponse struct {
	ID                  string   `json:"id"`
	TmdbID              *int64   `json:"tmdbId,omitempty"`
	ImdbID              string   `json:"imdbId,omitempty"`
	Title               string   `json:"title"`
	Year                int      `json:"year"`
	Runtime             int      `json:"runtime,omitempty"`
	Overview            string   `json:"overview,omitempty"`
	TheatricalRelease   *string  `json:"theatricalRelease,omitempty"`
	DigitalRelease      *string  `json:"digitalRelease,omitempty"`
	PhysicalRelease     *string  `json:"physicalRelease,omitempty"`
	PosterPath          string   `json:"posterPath,omitempty"`
	BackdropPath        string   `json:"backdropPath,omitempty"`
	MinimumAvailability string   `json:"minimumAvailability"`
	Status              string   `json:"status,omitempty"`
	Certification       string   `json:"certification,omitempty"`
	CollectionTitle     string   `json:"collectionTitle,omitempty"`
	VoteAverage         float64  `json:"voteAverage,omitempty"`
	Genres              []string `json:"genres,omitempty"`
	Tags                []string `json:"tags,omitempty"`
	Monitored           bool     `json:"monitored"`
	HasFile             bool     `json:"hasFile"`
	FilePath            string   `json:"filePath,omitempty"`
	FileSize            int64    `json:"fileSize,omitempty"`
	Quality             string   `json:"quality,omitempty"`
	VideoCodec          string   `json:"videoCodec,omitempty"`
	AudioCodec          string   `json:"audioCodec,omitempty"`
	ReleaseGroup        string   `json:"releaseGroup,omitempty"`
	IsProper            bool     `json:"isProper"`
	IsRepack            bool     `json:"isRepack"`
	QualityProfileID    string   `json:"qualityProfileId"`
	FolderPath          string   `json:"folderPath,omitempty"`
	AddedAt             string   `json:"addedAt"`
	UpdatedAt           string   `json:"updatedAt"`
	DownloadStatus      string   `json:"downloadStatus,omitempty"`
}

func toMovieResponse(m *database.Movie, downloadStatus string) *movieResponse {
	return &movieResponse{
		ID:                  m.ID,
		TmdbID:              nullInt64(m.TmdbID),
		ImdbID:              m.ImdbID,
		Title:               m.Title,
		Year:                m.Year,
		Runtime:             m.Runtime,
		Overview:            m.Overview,
		TheatricalRelease:   nullString(m.TheatricalRelease),
		DigitalRelease:      nullString(m.DigitalRelease),
		PhysicalRelease:     nullString(m.PhysicalRelease),
		PosterPath:          m.PosterPath,
		BackdropPath:        m.BackdropPath,
		MinimumAvailability: m.MinimumAvailability,
		Status:              m.Status,
		Certification:       m.Certification,
		CollectionTitle:     m.CollectionTitle,
		VoteAverage:         m.VoteAverage,
		Genres:              jsonList(m.Genres),
		Tags:                jsonList(m.Tags),
		Monitored:           m.Monitored,
		HasFile:             m.HasFile,
		FilePath:            m.FilePath,
		FileSize:            m.FileSize,
		Quality:             m.Quality,
		VideoCodec:          m.VideoCodec,
		AudioCodec:          m.AudioCodec,
		ReleaseGroup:        m.ReleaseGroup,
		IsProper:            m.IsProper,
		IsRepack:            m.IsRepack,
		QualityProfileID:    m.QualityProfileID,
		FolderPath:          m.FolderPath,
		AddedAt:             m.AddedAt,
		UpdatedAt:           m.UpdatedAt,
		DownloadStatus:      downloadStatus,
	}
}

type seriesResponse struct {
	ID                string   `json:"id"`
	TvdbID            int      `json:"tvdbId,omitempty"`
	TmdbID            int      `json:"tmdbId,omitempty"`
	ImdbID            string   `json:"imdbId,omitempty"`
	Title             string   `json:"title"`
	Year              int      `json:"year"`
	Network           string   `json:"network,omitempty"`
	Status            string   `json:"status,omitempty"`
	Overview          string   `json:"overview,omitempty"`
	PosterPath        string   `json:"posterPath,omitempty"`
	SeriesType        string   `json:"seriesType"`
	MonitorNewSeasons string   `json:"monitorNewSeasons"`
	UseSeasonFolder   bool     `json:"useSeasonFolder"`
	Monitored         bool     `json:"monitored"`
	QualityProfileID  string   `json:"qualityProfileId"`
	FolderPath        string   `json:"folderPath,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	AddedAt           string   `json:"addedAt"`
	UpdatedAt         string   `json:"updatedAt"`
}

func toSeriesResponse(sr *database.Series) *seriesResponse {
	return &seriesResponse{
		ID:                sr.ID,
		TvdbID:            sr.TvdbID,
		TmdbID:            sr.TmdbID,
		ImdbID:            sr.ImdbID,
		Title:             sr.Title,
		Year:              sr.Year,
		Network:           sr.Network,
		Status:            sr.Status,
		Overview:          sr.Overview,
		PosterPath:        sr.PosterPath,
		SeriesType:        sr.SeriesType,
		MonitorNewSeasons: sr.MonitorNewSeasons,
		UseSeasonFolder:   sr.UseSeasonFolder,
		Monitored:         sr.Monitored,
		QualityProfileID:  sr.QualityProfileID,
		FolderPath:        sr.FolderPath,
		Tags:              jsonList(sr.Tags),
		AddedAt:           sr.AddedAt,
		UpdatedAt:         sr.UpdatedAt,
	}
}

type seasonResponse struct {
	ID           string `json:"id"`
	SeriesID     string `json:"seriesId"`
	SeasonNumber int    `json:"seasonNumber"`
	Monitored    bool   `json:"monitored"`
}

func toSeasonResponse(sn *database.Season) *seasonResponse {
	return &seasonResponse{
		ID:           sn.ID,
		SeriesID:     sn.SeriesID,
		SeasonNumber: sn.SeasonNumber,
		Monitored:    sn.Monitored,
	}
}

type episodeResponse struct {
	ID             string  `json:"id"`
	SeriesID       string  `json:"seriesId"`
	SeasonNumber   int     `json:"seasonNumber"`
	EpisodeNumber  int     `json:"episodeNumber"`
	AbsoluteNumber int     `json:"absoluteNumber,omitempty"`
	Title          string  `json:"title"`
	Overview       string  `json:"overview,omitempty"`
	AirDate        *string `json:"airDate,omitempty"`
	Monitored      bool    `json:"monitored"`
	HasFile        bool    `json:"hasFile"`
	FilePath       string  `json:"filePath,omitempty"`
	FileSize       int64   `json:"fileSize,omitempty"`
	Quality        string  `json:"quality,omitempty"`
	VideoCodec     string  `json:"videoCodec,omitempty"`
	AudioCodec     string  `json:"audioCodec,omitempty"`
	ReleaseGroup   string  `json:"releaseGroup,omitempty"`
	IsProper       bool    `json:"isProper"`
	IsRepack       bool    `json:"isRepack"`
}

func toEpisodeResponse(ep *database.Episode) *episodeResponse {
	return &episodeResponse{
		ID:             ep.ID,
		SeriesID:       ep.SeriesID,
		SeasonNumber:   ep.SeasonNumber,
		EpisodeNumber:  ep.EpisodeNumber,
		AbsoluteNumber: ep.AbsoluteNumber,
		Title:          ep.Title,
		Overview:       ep.Overview,
		AirDate:        nullString(ep.AirDate),
		Monitored:      ep.Monitored,
		HasFile:        ep.HasFile,
		FilePath:       ep.FilePath,
		FileSize:       ep.FileSize,
		Quality:        ep.Quality,
		VideoCodec:     ep.VideoCodec,
		AudioCodec:     ep.AudioCodec,
		ReleaseGroup:   ep.ReleaseGroup,
		IsProper:       ep.IsProper,
		IsRepack:       ep.IsRepack,
	}
}

type downloadResponse struct {
	ID           string  `json:"id"`
	MediaType    string  `json:"mediaType"`
	MovieID      *string `json:"movieId,omitempty"`
	SeriesID     *string `json:"seriesId,omitempty"`
	EpisodeID    *string `json:"episodeId,omitempty"`
	SeasonNumber int     `json:"seasonNumber,omitempty"`
	Title        string  `json:"title"`
	Size         int64   `json:"size"`
	Indexer      string  `json:"indexer,omitempty"`
	Quality      string  `json:"quality,omitempty"`
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
	ClientID     string  `json:"clientId,omitempty"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

func toDownloadResponse(d *database.Download) *downloadResponse {
	return &downloadResponse{
		ID:           d.ID,
		MediaType:    d.MediaType,
		MovieID:      nullString(d.MovieID),
		SeriesID:     nullString(d.SeriesID),
		EpisodeID:    nullString(d.EpisodeID),
		SeasonNumber: d.SeasonNumber,
		Title:        d.Title,
		Size:         d.Size,
		Indexer:      d.Indexer,
		Quality:      d.Quality,
		Status:       d.Status,
		Progress:     d.Progress,
		ClientID:     d.ClientID,
		ErrorMessage: d.ErrorMessage,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type blacklistResponse struct {
	ID            string  `json:"id"`
	ReleaseTitle  string  `json:"releaseTitle"`
	MovieID       *string `json:"movieId,omitempty"`
	SeriesID      *string `json:"seriesId,omitempty"`
	SeasonNumber  int     `json:"seasonNumber,omitempty"`
	EpisodeNumber int     `json:"episodeNumber,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	CreatedAt     string  `json:"createdAt"`
}

func toBlacklistResponse(e *database.BlacklistEntry) *blacklistResponse {
	return &blacklistResponse{
		ID:            e.ID,
		ReleaseTitle:  e.ReleaseTitle,
		MovieID:       nullString(e.MovieID),
		SeriesID:      nullString(e.SeriesID),
		SeasonNumber:  e.SeasonNumber,
		EpisodeNumber: e.EpisodeNumber,
		Reason:        e.Reason,
		CreatedAt:     e.CreatedAt,
	}
}

type importListResponse struct {
	ID                     string  `json:"id"`
	Name                   string  `json:"name"`
	Type                   string  `json:"type"`
	MediaType              string  `json:"mediaType"`
	Enabled                bool    `json:"enabled"`
	ListID                 string  `json:"listId,omitempty"`
	URL                    string  `json:"url,omitempty"`
	QualityProfileID       string  `json:"qualityProfileId"`
	RootFolder             string  `json:"rootFolder"`
	Monitor                string  `json:"monitor"`
	MinimumAvailability    string  `json:"minimumAvailability,omitempty"`
	SearchOnAdd            bool    `json:"searchOnAdd"`
	RefreshIntervalMinutes int     `json:"refreshIntervalMinutes"`
	LastSync               *string `json:"lastSync,omitempty"`
}

func toImportListResponse(l *database.ImportList) *importListResponse {
	return &importListResponse{
		ID:                     l.ID,
		Name:                   l.Name,
		Type:                   l.Type,
		MediaType:              l.MediaType,
		Enabled:                l.Enabled,
		ListID:                 l.ListID,
		URL:                    l.URL,
		QualityProfileID:       l.QualityProfileID,
		RootFolder:             l.RootFolder,
		Monitor:                l.Monitor,
		MinimumAvailability:    l.MinimumAvailability,
		SearchOnAdd:            l.SearchOnAdd,
		RefreshIntervalMinutes: l.RefreshIntervalMinutes,
		LastSync:               nullString(l.LastSync),
	}
}

type historyResponse struct {
	ID         int64           `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	EventType  string          `json:"eventType"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data,omitempty"`
	CreatedAt  string          `json:"createdAt"`
}

func toHistoryResponse(e *database.HistoryEntry) *historyResponse {
	r := &historyResponse{
		ID:         e.ID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		EventType:  e.EventType,
		Message:    e.Message,
		CreatedAt:  e.CreatedAt,
	}
	if e.Data != "" && e.Data != "{}" {
		r.Data = json.RawMessage(e.Data)
	}
	return r
}

type exclusionResponse struct {
	ID        string `json:"id"`
	TmdbID    int64  `json:"tmdbId"`
	MediaType string `json:"mediaType"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func toExclusionResponse(e *database.Exclusion) *exclusionResponse {
	return &exclusionResponse{
		ID:        e.ID,
		TmdbID:    e.TmdbID,
		MediaType: e.MediaType,
		Title:     e.Title,
		CreatedAt: e.CreatedAt,
	}
}

type indexerResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	APIKey     string `json:"apiKey,omitempty"`
	Enabled    bool   `json:"enabled"`
	Priority   int    `json:"priority"`
	RSSEnabled bool   `json:"rssEnabled"`
	Protocol   string `json:"protocol"`
}

func toIndexerResponse(ix *database.Indexer) *indexerResponse {
	return &indexerResponse{
		ID:         ix.ID,
		Name:       ix.Name,
		URL:        ix.URL,
		APIKey:     ix.APIKey,
		Enabled:    ix.Enabled,
		Priority:   ix.Priority,
		RSSEnabled: ix.RSSEnabled,
		Protocol:   ix.Protocol,
	}
}

type downloadClientResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Category   string `json:"category,omitempty"`
	Enabled    bool   `json:"enabled"`
	Protocol   string `json:"protocol"`
	KeepSource bool   `json:"keepSource"`
}

func toDownloadClientResponse(dc *database.DownloadClientConfig) *downloadClientResponse {
	return &downloadClientResponse{
		ID:         dc.ID,
		Name:       dc.Name,
		Type:       dc.Type,
		Host:       dc.Host,
		Port:       dc.Port,
		Category:   dc.Category,
		Enabled:    dc.Enabled,
		Protocol:   dc.Protocol,
		KeepSource: dc.KeepSource,
	}
}

type rootFolderResponse struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	MediaType string `json:"mediaType"`
}

func toRootFolderResponse(f *database.RootFolder) *rootFolderResponse {
	return &rootFolderResponse{ID: f.ID, Path: f.Path, MediaType: f.MediaType}
}

type customFormatResponse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Score int             `json:"score"`
	Rules json.RawMessage `json:"rules"`
}

func toCustomFormatResponse(f *database.CustomFormat) *customFormatResponse {
	return &customFormatResponse{
		ID:    f.ID,
		Name:  f.Name,
		Score: f.Score,
		Rules: json.RawMessage(f.Rules),
	}
}

// namingConfigPayload doubles as the request and response shape for the
// naming settings endpoint.
type namingConfigPayload struct {
	MovieFormat           string `json:"movieFormat"`
	MovieFolderFormat     string `json:"movieFolderFormat"`
	StandardEpisodeFormat string `json:"standardEpisodeFormat"`
	DailyEpisodeFormat    string `json:"dailyEpisodeFormat"`
	AnimeEpisodeFormat    string `json:"animeEpisodeFormat"`
	SeriesFolderFormat    string `json:"seriesFolderFormat"`
	SeasonFolderFormat    string `json:"seasonFolderFormat"`
	SpecialsFolderFormat  string `json:"specialsFolderFormat"`
	ColonReplacement      string `json:"colonReplacement"`
	ReplaceIllegal        bool   `json:"replaceIllegal"`
	MultiEpisodeStyle     string `json:"multiEpisodeStyle"`
}

func toNamingPayload(cfg *database.NamingConfig) *namingConfigPayload {
	return &namingConfigPayload{
		MovieFormat:           cfg.MovieFormat,
		MovieFolderFormat:     cfg.MovieFolderFormat,
		StandardEpisodeFormat: cfg.StandardEpisodeFormat,
		DailyEpisodeFormat:    cfg.DailyEpisodeFormat,
		AnimeEpisodeFormat:    cfg.AnimeEpisodeFormat,
		SeriesFolderFormat:    cfg.SeriesFolderFormat,
		SeasonFolderFormat:    cfg.SeasonFolderFormat,
		SpecialsFolderFormat:  cfg.SpecialsFolderFormat,
		ColonReplacement:      cfg.ColonReplacement,
		ReplaceIllegal:        cfg.ReplaceIllegal,
		MultiEpisodeStyle:     cfg.MultiEpisodeStyle,
	}
}

func (p *namingConfigPayload) toRow() *database.NamingConfig {
	return &database.NamingConfig{
		MovieFormat:           p.MovieFormat,
		MovieFolderFormat:     p.MovieFolderFormat,
		StandardEpisodeFormat: p.StandardEpisodeFormat,
		DailyEpisodeFormat:    p.DailyEpisodeFormat,
		AnimeEpisodeFormat:    p.AnimeEpisodeFormat,
		SeriesFolderFormat:    p.SeriesFolderFormat,
		SeasonFolderFormat:    p.SeasonFolderFormat,
		SpecialsFolderFormat:  p.SpecialsFolderFormat,
		ColonReplacement:      p.ColonReplacement,
		ReplaceIllegal:        p.ReplaceIllegal,
		MultiEpisodeStyle:     p.MultiEpisodeStyle,
	}
}

func nullString(v sql.NullString) *string {
	if !v.Valid || v.String == "" {
		return nil
	}
	return &v.String
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

// jsonList decodes a JSON-array text column, returning nil for empty or
// malformed blobs.
func jsonList(blob string) []string {
	if blob == "" || blob == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(blob), &out); err != nil {
		return nil
	}
	return out
}
