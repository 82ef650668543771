package downloader

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/importer"
)

// Publisher receives lifecycle events for the activity stream.
type Publisher interface {
	Publish(event string, payload any)
}

// Service tracks active downloads against their clients and imports
// completed payloads.
type Service struct {
	queries  *database.Queries
	importer *importer.Service
	events   Publisher
	logger   zerolog.Logger

	mu      sync.RWMutex
	clients map[string]Client
}

// NewService creates the download lifecycle service.
func NewService(queries *database.Queries, imp *importer.Service, events Publisher, logger zerolog.Logger) *Service {
	return &Service{
		queries:  queries,
		importer: imp,
		events:   events,
		clients:  make(map[string]Client),
		logger:   logger.With().Str("component", "downloader").Logger(),
	}
}

// RegisterClient makes a client available for dispatch and sync.
func (s *Service) RegisterClient(c Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID()] = c
}

// RemoveClient drops a client from the registry.
func (s *Service) RemoveClient(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
}

func (s *Service) client(id string) (Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	return c, ok
}

// Clients lists the registered clients.
func (s *Service) Clients() []Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out
}

// Dispatch sends a grabbed release to a client and records the job id on
// the download row.
func (s *Service) Dispatch(ctx context.Context, download *database.Download, savePath string) error {
	client, ok := s.client(download.ClientID)
	if !ok {
		// Fall back to any registered client.
		for _, c := range s.Clients() {
			client = c
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("no download client available")
	}

	result, err := client.Add(ctx, download.DownloadURL, AddOptions{SavePath: savePath})
	if err != nil {
		return err
	}
	return s.queries.SetDownloadClientJob(ctx, download.ID, client.ID(), result.JobID)
}

// Cancel removes a download from its client and marks the row cancelled.
func (s *Service) Cancel(ctx context.Context, downloadID string, deleteFiles bool) error {
	download, err := s.queries.GetDownload(ctx, downloadID)
	if err != nil {
		return err
	}
	if client, ok := s.client(download.ClientID); ok && download.ClientJobID != "" {
		if err := client.Remove(ctx, download.ClientJobID, deleteFiles); err != nil {
			s.logger.Warn().Err(err).Str("download", downloadID).Msg("Failed to remove job from client")
		}
	}
	return s.queries.SetDownloadStatus(ctx, downloadID, database.DownloadStatusCancelled, "")
}

// Sync is one pass of the download-sync worker: refresh progress for every
// active download and import the ones that completed.
func (s *Service) Sync(ctx context.Context) error {
	active, err := s.queries.ListActiveDownloads(ctx)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		return nil
	}

	jobsByClient := make(map[string]map[string]Job)
	for _, download := range active {
		if download.ClientID == "" {
			continue
		}
		if _, done := jobsByClient[download.ClientID]; done {
			continue
		}
		client, ok := s.client(download.ClientID)
		if !ok {
			continue
		}
		jobs, err := client.List(ctx, "")
		if err != nil {
			s.logger.Warn().Err(err).Str("client", download.ClientID).Msg("Download client list failed")
			jobsByClient[download.ClientID] = map[string]Job{}
			continue
		}
		byID := make(map[string]Job, len(jobs))
		for _, job := range jobs {
			byID[job.ID] = job
		}
		jobsByClient[download.ClientID] = byID
	}

	for _, download := range active {
		job, ok := jobsByClient[download.ClientID][download.ClientJobID]
		if !ok {
			continue
		}
		s.syncOne(ctx, download, job)
	}
	return nil
}

func (s *Service) syncOne(ctx context.Context, download *database.Download, job Job) {
	switch job.Status {
	case StatusError:
		s.fail(ctx, download, database.HistoryEventDownloadFailed, job.ErrorString)
	case StatusQueued:
		s.progress(ctx, download, job, database.DownloadStatusQueued)
	case StatusDownloading:
		if download.Status == database.DownloadStatusQueued {
			s.publish("download_started", download)
		}
		s.progress(ctx, download, job, database.DownloadStatusDownloading)
	case StatusCompleted:
		if download.Status == database.DownloadStatusImporting {
			return
		}
		s.importCompleted(ctx, download, job)
	}
}

func (s *Service) progress(ctx context.Context, download *database.Download, job Job, status string) {
	if err := s.queries.UpdateDownloadProgress(ctx, download.ID, job.Progress, job.Size, status); err != nil {
		s.logger.Warn().Err(err).Str("download", download.ID).Msg("Failed to update progress")
	}
}

func (s *Service) importCompleted(ctx context.Context, download *database.Download, job Job) {
	if err := s.queries.SetDownloadStatus(ctx, download.ID, database.DownloadStatusImporting, ""); err != nil {
		s.logger.Warn().Err(err).Str("download", download.ID).Msg("Failed to mark importing")
		return
	}

	contentPath := job.ContentPath
	if contentPath == "" {
		contentPath = job.DownloadDir
	}
	client, _ := s.client(download.ClientID)
	keepSource := client != nil && client.Protocol() == ProtocolTorrent

	req := importer.Request{
		ContentPath:  contentPath,
		ReleaseTitle: download.Title,
		KeepSource:   keepSource,
	}

	err := s.runImport(ctx, req, download)
	if err != nil {
		s.logger.Error().Err(err).Str("download", download.ID).Msg("Import failed")
		s.fail(ctx, download, database.HistoryEventImportFailed, importer.ErrorCode(err))
		return
	}

	if err := s.queries.SetDownloadStatus(ctx, download.ID, database.DownloadStatusCompleted, ""); err != nil {
		s.logger.Warn().Err(err).Str("download", download.ID).Msg("Failed to mark completed")
	}
	s.publish("download_completed", download)
}

func (s *Service) runImport(ctx context.Context, req importer.Request, download *database.Download) error {
	switch download.MediaType {
	case "movie":
		movie, err := s.queries.GetMovie(ctx, download.MovieID.String)
		if err != nil {
			return err
		}
		_, err = s.importer.ImportMovie(ctx, req, movie)
		return err
	case "episode":
		series, err := s.queries.GetSeries(ctx, download.SeriesID.String)
		if err != nil {
			return err
		}
		episode, err := s.queries.GetEpisode(ctx, download.EpisodeID.String)
		if err != nil {
			return err
		}
		_, err = s.importer.ImportEpisodeFile(ctx, req, series, []*database.Episode{episode})
		return err
	case "season":
		series, err := s.queries.GetSeries(ctx, download.SeriesID.String)
		if err != nil {
			return err
		}
		_, err = s.importer.ImportSeasonPack(ctx, req, series, download.SeasonNumber)
		return err
	default:
		return fmt.Errorf("unknown media type %q", download.MediaType)
	}
}

func (s *Service) fail(ctx context.Context, download *database.Download, event, message string) {
	if err := s.queries.SetDownloadStatus(ctx, download.ID, database.DownloadStatusFailed, message); err != nil {
		s.logger.Warn().Err(err).Str("download", download.ID).Msg("Failed to mark failed")
	}
	entityType, entityID := downloadEntity(download)
	if _, err := s.queries.AppendHistory(ctx, entityType, entityID, event, message, "{}"); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to append failure history")
	}
	s.publish("download_failed", download)
}

func downloadEntity(download *database.Download) (string, string) {
	switch download.MediaType {
	case "movie":
		return "movie", download.MovieID.String
	case "episode":
		return "episode", download.EpisodeID.String
	default:
		return "series", download.SeriesID.String
	}
}

func (s *Service) publish(event string, payload any) {
	if s.events != nil {
		s.events.Publish(event, payload)
	}
}
