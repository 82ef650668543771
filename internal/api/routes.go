package api

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	library := s.echo.Group("/library")

	moviesGroup := library.Group("/movies")
	moviesGroup.GET("", s.listMovies)
	moviesGroup.POST("", s.createMovie)
	moviesGroup.POST("/bulk/search", s.bulkSearchMovies)
	moviesGroup.GET("/:id", s.getMovie)
	moviesGroup.PUT("/:id", s.updateMovie)
	moviesGroup.DELETE("/:id", s.deleteMovie)
	moviesGroup.PUT("/:id/monitor", s.setMovieMonitored)
	moviesGroup.POST("/:id/search", s.searchMovie)
	moviesGroup.POST("/:id/refresh", s.refreshMovie)
	moviesGroup.GET("/:id/rename", s.previewMovieRename)
	moviesGroup.POST("/:id/rename", s.renameMovie)
	moviesGroup.POST("/:id/manual-import", s.manualImportMovie)

	seriesGroup := library.Group("/series")
	seriesGroup.GET("", s.listSeries)
	seriesGroup.POST("", s.createSeries)
	seriesGroup.GET("/:id", s.getSeries)
	seriesGroup.PUT("/:id", s.updateSeries)
	seriesGroup.DELETE("/:id", s.deleteSeries)
	seriesGroup.PUT("/:id/monitor", s.setSeriesMonitored)
	seriesGroup.POST("/:id/refresh", s.refreshSeries)
	seriesGroup.GET("/:id/seasons", s.listSeasons)
	seriesGroup.PUT("/:id/seasons/:season/monitor", s.setSeasonMonitored)
	seriesGroup.POST("/:id/seasons/:season/search", s.searchSeason)
	seriesGroup.GET("/:id/episodes", s.listEpisodes)

	episodesGroup := library.Group("/episodes")
	episodesGroup.GET("/:id", s.getEpisode)
	episodesGroup.PUT("/:id/monitor", s.setEpisodeMonitored)
	episodesGroup.POST("/:id/search", s.searchEpisode)
	episodesGroup.GET("/:id/rename", s.previewEpisodeRename)
	episodesGroup.DELETE("/:id/file", s.deleteEpisodeFile)

	library.GET("/activity", s.listActivity)
	library.GET("/activity/stream", s.streamActivity)
	library.GET("/activity/ws", s.activityWebSocket)
	library.POST("/refresh", s.refreshLibrary)

	system := s.echo.Group("/system")
	system.GET("/status", s.systemStatus)
	system.GET("/workers", s.listWorkers)
	system.GET("/workers/:id", s.getWorker)
	system.POST("/workers/:id/start", s.startWorker)
	system.POST("/workers/:id/stop", s.stopWorker)
	system.POST("/workers/:id/restart", s.restartWorker)
	system.POST("/workers/:id/run", s.runWorker)
	system.PUT("/workers/:id/interval", s.setWorkerInterval)
	system.GET("/backup", s.exportBackup)
	system.GET("/backup/preview", s.previewBackup)
	system.POST("/backup/restore", s.restoreBackup)
	system.GET("/backup/snapshots", s.listSnapshots)
	system.POST("/backup/snapshots", s.takeSnapshot)

	automation := s.echo.Group("/automation")
	automation.POST("/search", s.automationSearch)
	automation.POST("/search/missing", s.searchAllMissing)
	automation.POST("/search/cutoff", s.searchAllCutoffUnmet)
	automation.POST("/search/interactive", s.interactiveSearch)

	automation.GET("/downloads", s.listDownloads)
	automation.DELETE("/downloads/:id", s.cancelDownload)

	automation.GET("/blacklist", s.listBlacklist)
	automation.POST("/blacklist", s.addBlacklistEntry)
	automation.DELETE("/blacklist/:id", s.deleteBlacklistEntry)

	automation.GET("/exclusions", s.listExclusions)
	automation.POST("/exclusions", s.addExclusion)
	automation.DELETE("/exclusions/:id", s.deleteExclusion)

	automation.GET("/import-lists", s.listImportLists)
	automation.POST("/import-lists", s.createImportList)
	automation.POST("/import-lists/sync", s.syncImportLists)
	automation.GET("/import-lists/:id", s.getImportList)
	automation.PUT("/import-lists/:id", s.updateImportList)
	automation.DELETE("/import-lists/:id", s.deleteImportList)
	automation.POST("/import-lists/:id/sync", s.syncImportList)

	automation.GET("/indexers", s.listIndexers)
	automation.POST("/indexers", s.createIndexer)
	automation.GET("/indexers/:id", s.getIndexer)
	automation.PUT("/indexers/:id", s.updateIndexer)
	automation.DELETE("/indexers/:id", s.deleteIndexer)
	automation.POST("/indexers/:id/test", s.testIndexer)

	automation.GET("/rss-sync", s.rssSyncStatus)
	automation.POST("/rss-sync", s.runRSSSync)

	automation.GET("/download-clients", s.listDownloadClients)
	automation.POST("/download-clients", s.createDownloadClient)
	automation.GET("/download-clients/:id", s.getDownloadClient)
	automation.PUT("/download-clients/:id", s.updateDownloadClient)
	automation.DELETE("/download-clients/:id", s.deleteDownloadClient)

	settings := s.echo.Group("/settings")
	settings.GET("/naming", s.getNamingConfig)
	settings.PUT("/naming", s.updateNamingConfig)
	settings.GET("/rootfolders", s.listRootFolders)
	settings.POST("/rootfolders", s.createRootFolder)
	settings.DELETE("/rootfolders/:id", s.deleteRootFolder)
	settings.GET("/quality/definitions", s.listQualityDefinitions)
	settings.PUT("/quality/definitions/:id/sizes", s.updateDefinitionSizes)
	settings.GET("/quality/profiles", s.listQualityProfiles)
	settings.POST("/quality/profiles", s.createQualityProfile)
	settings.GET("/quality/profiles/:id", s.getQualityProfile)
	settings.PUT("/quality/profiles/:id", s.updateQualityProfile)
	settings.DELETE("/quality/profiles/:id", s.deleteQualityProfile)
	settings.GET("/quality/formats", s.listCustomFormats)
	settings.POST("/quality/formats", s.createCustomFormat)
	settings.PUT("/quality/formats/:id", s.updateCustomFormat)
	settings.DELETE("/quality/formats/:id", s.deleteCustomFormat)
}
