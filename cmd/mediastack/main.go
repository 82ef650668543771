// mediastack is a self-hosted media library automation server: it tracks
// wanted movies and episodes, grabs releases from indexers under a quality
// policy, and imports completed downloads into a canonically named library.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/levijay/mediastack/internal/api"
	"github.com/levijay/mediastack/internal/autosearch"
	"github.com/levijay/mediastack/internal/backup"
	"github.com/levijay/mediastack/internal/config"
	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/decisioning"
	"github.com/levijay/mediastack/internal/downloader"
	"github.com/levijay/mediastack/internal/events"
	"github.com/levijay/mediastack/internal/history"
	"github.com/levijay/mediastack/internal/importer"
	"github.com/levijay/mediastack/internal/importlist"
	"github.com/levijay/mediastack/internal/indexer"
	"github.com/levijay/mediastack/internal/library/movies"
	"github.com/levijay/mediastack/internal/library/quality"
	"github.com/levijay/mediastack/internal/library/refresh"
	"github.com/levijay/mediastack/internal/library/scanner"
	"github.com/levijay/mediastack/internal/library/tv"
	"github.com/levijay/mediastack/internal/logger"
	"github.com/levijay/mediastack/internal/mediainfo"
	"github.com/levijay/mediastack/internal/metadata"
	"github.com/levijay/mediastack/internal/notification"
	"github.com/levijay/mediastack/internal/renamer"
	"github.com/levijay/mediastack/internal/rsssync"
	"github.com/levijay/mediastack/internal/scheduler"
)

const shutdownGrace = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Path:   cfg.Logging.Path,
	})
	defer log.Close()

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("mediastack exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	conn := db.Conn()
	queries := database.NewQueries(conn)
	zl := log.Logger

	hub := events.NewHub(zl)
	go hub.Run()

	// Leaf services first, then the automation layers over them.
	scannerSvc := scanner.NewService(zl)
	moviesSvc := movies.NewService(conn, hub, zl)
	tvSvc := tv.NewService(conn, hub, zl)
	qualitySvc := quality.NewService(conn, zl)
	renamerSvc := renamer.NewService(queries, zl)
	probe := mediainfo.NewService(zl)
	indexersSvc := indexer.NewService(conn, zl)
	historySvc := history.NewService(conn, zl)

	// Metadata transports are external collaborators; until one is
	// configured the in-memory provider answers lookups.
	metadataSvc := metadata.NewService(conn, metadata.NewMockProvider(), hub, zl)

	importerSvc := importer.NewService(queries, renamerSvc, probe, cfg.Downloads.StagingDir, zl)
	downloadsSvc := downloader.NewService(queries, importerSvc, hub, zl)
	if err := registerDownloadClients(queries, downloadsSvc, log); err != nil {
		return err
	}

	locks := decisioning.NewGrabLock()
	searchSvc := autosearch.NewService(conn, indexersSvc, qualitySvc, downloadsSvc, locks, hub, zl)
	rssSvc := rsssync.NewService(conn, indexersSvc, qualitySvc, searchSvc, locks, hub, zl)
	listsSvc := importlist.NewService(conn, moviesSvc, tvSvc, metadataSvc, searchSvc, zl)
	refreshSvc := refresh.NewService(conn, scannerSvc, hub, zl)

	notifySvc := notification.NewService(zl)
	if url := cfg.Notifications.WebhookURL; url != "" {
		notifySvc.Register(notification.NewWebhookNotifier("webhook", url))
	}
	busCh, unsubscribe := hub.Subscribe()
	go notification.NewBridge(notifySvc, zl).Run(busCh)

	backupSvc := backup.NewService(conn, zl)
	snapshots := backup.NewSnapshotter(conn, cfg.Backup.Dir, snapshotInterval(cfg.Backup.Interval), cfg.Backup.Keep, zl)

	registry, err := scheduler.New(zl)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	registerWorkers(cfg, registry, downloadsSvc, listsSvc, refreshSvc, metadataSvc, searchSvc, rssSvc, historySvc, snapshots)
	if err := registry.StartAll(); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	server := api.NewServer(cfg, api.Deps{
		DB:        conn,
		Hub:       hub,
		Movies:    moviesSvc,
		TV:        tvSvc,
		Quality:   qualitySvc,
		Metadata:  metadataSvc,
		Indexers:  indexersSvc,
		Downloads: downloadsSvc,
		Search:    searchSvc,
		RSS:       rssSvc,
		Lists:     listsSvc,
		History:   historySvc,
		Refresh:   refreshSvc,
		Backup:    backupSvc,
		Snapshots: snapshots,
		Workers:   registry,
		Importer:  importerSvc,
		Renamer:   renamerSvc,
	}, zl)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Address())
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	// Workers first so no task races the closing server or database.
	if err := registry.Shutdown(shutdownGrace); err != nil {
		log.Warn().Err(err).Msg("Worker shutdown incomplete")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}

	unsubscribe()
	notifySvc.Flush()
	return nil
}

// registerDownloadClients installs a client for every enabled download
// client row. Unknown types are skipped with a warning so one bad row
// cannot keep the process down.
func registerDownloadClients(queries *database.Queries, downloads *downloader.Service, log *logger.Logger) error {
	ctx := context.Background()
	rows, err := queries.ListDownloadClients(ctx)
	if err != nil {
		return fmt.Errorf("load download clients: %w", err)
	}
	for _, row := range rows {
		if !row.Enabled {
			continue
		}
		switch row.Type {
		case "qbittorrent":
			downloads.RegisterClient(downloader.NewQBittorrentClient(row))
		case "mock":
			downloads.RegisterClient(downloader.NewMockClient(row.ID, row.Name))
		default:
			log.Warn().Str("type", row.Type).Str("client", row.Name).Msg("Unknown download client type")
		}
	}
	return nil
}

func registerWorkers(
	cfg *config.Config,
	registry *scheduler.Registry,
	downloads *downloader.Service,
	lists *importlist.Service,
	libRefresh *refresh.Service,
	meta *metadata.Service,
	search *autosearch.Service,
	rss *rsssync.Service,
	hist *history.Service,
	snapshots *backup.Snapshotter,
) {
	concurrency := cfg.Downloads.ConcurrentRequests

	workers := []scheduler.Worker{
		{
			ID:       "download-sync",
			Name:     "Download Sync",
			Interval: 5 * time.Second,
			Run:      downloads.Sync,
		},
		{
			ID:             "import-list-sync",
			Name:           "Import List Sync",
			Interval:       time.Hour,
			SkipInitialRun: true,
			Run: func(ctx context.Context) error {
				_, err := lists.SyncAll(ctx, false)
				return err
			},
		},
		{
			ID:             "library-refresh",
			Name:           "Library Refresh",
			Interval:       time.Hour,
			SkipInitialRun: true,
			Run: func(ctx context.Context) error {
				_, err := libRefresh.Refresh(ctx)
				return err
			},
		},
		{
			ID:             "metadata-refresh",
			Name:           "Metadata Refresh",
			Interval:       24 * time.Hour,
			SkipInitialRun: true,
			Run:            meta.RefreshAll,
		},
		{
			ID:             "missing-search",
			Name:           "Missing Search",
			Interval:       time.Hour,
			SkipInitialRun: true,
			Run: func(ctx context.Context) error {
				_, err := search.SearchAllMissing(ctx, concurrency)
				return err
			},
		},
		{
			ID:             "cutoff-search",
			Name:           "Cutoff Unmet Search",
			Interval:       6 * time.Hour,
			SkipInitialRun: true,
			Run: func(ctx context.Context) error {
				_, err := search.SearchAllCutoffUnmet(ctx, concurrency)
				return err
			},
		},
		{
			ID:             "rss-sync",
			Name:           "RSS Sync",
			Interval:       15 * time.Minute,
			SkipInitialRun: true,
			Run: func(ctx context.Context) error {
				_, err := rss.Sync(ctx)
				return err
			},
		},
		{
			ID:             "activity-cleanup",
			Name:           "Activity Cleanup",
			Interval:       24 * time.Hour,
			SkipInitialRun: true,
			Run: func(ctx context.Context) error {
				_, err := hist.Cleanup(ctx)
				return err
			},
		},
		{
			// Ticks every minute; the snapshotter decides whether a
			// backup is actually due.
			ID:       "database-backup",
			Name:     "Database Backup",
			Interval: time.Minute,
			Run:      snapshots.RunIfDue,
		},
	}

	for _, w := range workers {
		// Registration only fails on empty ids, which are all literal here.
		_ = registry.Register(w)
	}
}

func snapshotInterval(name string) time.Duration {
	switch name {
	case "weekly":
		return 7 * 24 * time.Hour
	default: // daily
		return backup.DefaultSnapshotInterval
	}
}
