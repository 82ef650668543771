package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/levijay/mediastack/internal/autosearch"
	"github.com/levijay/mediastack/internal/backup"
	"github.com/levijay/mediastack/internal/config"
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
	"github.com/levijay/mediastack/internal/mediainfo"
	"github.com/levijay/mediastack/internal/metadata"
	"github.com/levijay/mediastack/internal/renamer"
	"github.com/levijay/mediastack/internal/rsssync"
	"github.com/levijay/mediastack/internal/scheduler"
	"github.com/levijay/mediastack/internal/testutil"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	tdb := testutil.NewTestDB(t)
	conn := tdb.DB.Conn()
	log := testutil.NopLogger()

	cfg := &config.Config{}
	cfg.Downloads.ConcurrentRequests = 2
	cfg.Downloads.StagingDir = t.TempDir()
	cfg.Backup.Dir = t.TempDir()
	cfg.Backup.Keep = 3

	hub := events.NewHub(log)
	go hub.Run()

	scannerSvc := scanner.NewService(log)
	moviesSvc := movies.NewService(conn, hub, log)
	tvSvc := tv.NewService(conn, hub, log)
	qualitySvc := quality.NewService(conn, log)
	renamerSvc := renamer.NewService(tdb.Queries, log)
	probe := mediainfo.NewService(log)
	indexersSvc := indexer.NewService(conn, log)
	historySvc := history.NewService(conn, log)
	metadataSvc := metadata.NewService(conn, metadata.NewMockProvider(), hub, log)
	importerSvc := importer.NewService(tdb.Queries, renamerSvc, probe, cfg.Downloads.StagingDir, log)
	downloadsSvc := downloader.NewService(tdb.Queries, importerSvc, hub, log)

	locks := decisioning.NewGrabLock()
	searchSvc := autosearch.NewService(conn, indexersSvc, qualitySvc, downloadsSvc, locks, hub, log)
	rssSvc := rsssync.NewService(conn, indexersSvc, qualitySvc, searchSvc, locks, hub, log)
	listsSvc := importlist.NewService(conn, moviesSvc, tvSvc, metadataSvc, searchSvc, log)
	refreshSvc := refresh.NewService(conn, scannerSvc, hub, log)
	backupSvc := backup.NewService(conn, log)
	snapshots := backup.NewSnapshotter(conn, cfg.Backup.Dir, time.Hour, cfg.Backup.Keep, log)

	registry, err := scheduler.New(log)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}
	err = registry.Register(scheduler.Worker{
		ID:             "noop",
		Name:           "Noop",
		Interval:       time.Hour,
		SkipInitialRun: true,
		Run:            func(context.Context) error { return nil },
	})
	if err != nil {
		t.Fatalf("Failed to register worker: %v", err)
	}

	return NewServer(cfg, Deps{
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
	}, log)
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	s := setupTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("health status = %q, want %q", resp["status"], "ok")
	}
}

func TestSystemStatus(t *testing.T) {
	s := setupTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/system/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d. Body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if _, ok := resp["version"]; !ok {
		t.Error("status missing version field")
	}
	if _, ok := resp["movies"]; !ok {
		t.Error("status missing movies field")
	}
}

func TestMoviesAPI_Create(t *testing.T) {
	s := setupTestServer(t)

	body := `{"title": "The Matrix", "year": 1999, "tmdbId": 603, "monitored": true, "qualityProfileId": "qp-hd1080"}`
	rec := doJSON(t, s, http.MethodPost, "/library/movies", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d. Body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var movie map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &movie); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if movie["title"] != "The Matrix" {
		t.Errorf("title = %v, want %q", movie["title"], "The Matrix")
	}
	if id, _ := movie["id"].(string); id == "" {
		t.Error("create should return an id")
	}
}

func TestMoviesAPI_Create_EmptyTitle(t *testing.T) {
	s := setupTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/library/movies", `{"title": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("create with empty title status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestMoviesAPI_Create_DuplicateTmdbID(t *testing.T) {
	s := setupTestServer(t)

	body := `{"title": "Heat", "year": 1995, "tmdbId": 949, "qualityProfileId": "qp-any"}`
	if rec := doJSON(t, s, http.MethodPost, "/library/movies", body); rec.Code != http.StatusCreated {
		t.Fatalf("first create status = %d. Body: %s", rec.Code, rec.Body.String())
	}

	rec := doJSON(t, s, http.MethodPost, "/library/movies", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestMoviesAPI_List(t *testing.T) {
	s := setupTestServer(t)

	for _, body := range []string{
		`{"title": "Movie 1", "year": 2020, "qualityProfileId": "qp-any", "monitored": true}`,
		`{"title": "Movie 2", "year": 2021, "qualityProfileId": "qp-any"}`,
	} {
		if rec := doJSON(t, s, http.MethodPost, "/library/movies", body); rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d. Body: %s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/library/movies", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Movies []map[string]any `json:"movies"`
		Total  int64            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(resp.Movies) != 2 || resp.Total != 2 {
		t.Errorf("list returned %d movies (total %d), want 2", len(resp.Movies), resp.Total)
	}

	rec = doJSON(t, s, http.MethodGet, "/library/movies?monitored=true", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse filtered response: %v", err)
	}
	if len(resp.Movies) != 1 {
		t.Errorf("monitored filter returned %d movies, want 1", len(resp.Movies))
	}
}

func TestMoviesAPI_List_BadFilter(t *testing.T) {
	s := setupTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/library/movies?monitored=banana", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad filter status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestMoviesAPI_Get_NotFound(t *testing.T) {
	s := setupTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/library/movies/no-such-id", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing movie status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestMoviesAPI_UpdateAndDelete(t *testing.T) {
	s := setupTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/library/movies",
		`{"title": "Original", "year": 2020, "qualityProfileId": "qp-any", "monitored": true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d. Body: %s", rec.Code, rec.Body.String())
	}
	var created map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	id := created["id"].(string)

	rec = doJSON(t, s, http.MethodPut, "/library/movies/"+id, `{"monitored": false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want %d. Body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var updated map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if updated["monitored"] != false {
		t.Errorf("monitored = %v after update, want false", updated["monitored"])
	}

	rec = doJSON(t, s, http.MethodDelete, "/library/movies/"+id, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	rec = doJSON(t, s, http.MethodGet, "/library/movies/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted movie status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestMoviesAPI_BulkSearchValidation(t *testing.T) {
	s := setupTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/library/movies/bulk/search", `{"movieIds": []}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty movieIds status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSeriesAPI_CreateAndSeasons(t *testing.T) {
	s := setupTestServer(t)

	body := `{"title": "Breaking Bad", "year": 2008, "tvdbId": 81189, "monitored": true, "qualityProfileId": "qp-hd1080"}`
	rec := doJSON(t, s, http.MethodPost, "/library/series", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create series status = %d, want %d. Body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var series map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &series); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	id := series["id"].(string)

	rec = doJSON(t, s, http.MethodGet, "/library/series/"+id+"/seasons", "")
	if rec.Code != http.StatusOK {
		t.Errorf("list seasons status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = doJSON(t, s, http.MethodPut, "/library/series/"+id+"/seasons/abc/monitor", `{"monitored": true}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric season status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestEpisodesAPI_NotFound(t *testing.T) {
	s := setupTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/library/episodes/no-such-id", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing episode status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestActivityAPI_List(t *testing.T) {
	s := setupTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/library/movies",
		`{"title": "Logged", "year": 2022, "qualityProfileId": "qp-any"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d. Body: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/library/activity", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("activity status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Activity []map[string]any `json:"activity"`
		Total    int64            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Total < 1 {
		t.Errorf("activity total = %d, want at least the ADDED entry", resp.Total)
	}
}

func TestWorkersAPI(t *testing.T) {
	s := setupTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/system/workers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list workers status = %d, want %d", rec.Code, http.StatusOK)
	}
	var workers []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &workers); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(workers) != 1 {
		t.Fatalf("listed %d workers, want 1", len(workers))
	}

	rec = doJSON(t, s, http.MethodGet, "/system/workers/no-such-worker", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown worker status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = doJSON(t, s, http.MethodPut, "/system/workers/noop/interval", `{"intervalMs": 10}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("sub-second interval status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = doJSON(t, s, http.MethodPut, "/system/workers/noop/interval", `{"intervalMs": 60000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set interval status = %d, want %d. Body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var info map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if info["intervalMs"].(float64) != 60000 {
		t.Errorf("intervalMs = %v after update, want 60000", info["intervalMs"])
	}

	rec = doJSON(t, s, http.MethodPost, "/system/workers/noop/start?skipInitialRun=true", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("start with skipInitialRun status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	rec = doJSON(t, s, http.MethodPost, "/system/workers/noop/start?skipInitialRun=banana", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad skipInitialRun status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestBackupAPI_ExportAndSnapshots(t *testing.T) {
	s := setupTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/system/backup/preview", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("backup preview status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = doJSON(t, s, http.MethodGet, "/system/backup/snapshots", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list snapshots status = %d, want %d", rec.Code, http.StatusOK)
	}
	var listed struct {
		Snapshots []string `json:"snapshots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(listed.Snapshots) != 0 {
		t.Errorf("fresh server has %d snapshots, want 0", len(listed.Snapshots))
	}

	rec = doJSON(t, s, http.MethodPost, "/system/backup/snapshots", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("take snapshot status = %d, want %d. Body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(listed.Snapshots) != 1 {
		t.Errorf("after snapshot have %d entries, want 1", len(listed.Snapshots))
	}
}

func TestSettingsAPI_QualityAndNaming(t *testing.T) {
	s := setupTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/settings/quality/definitions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("definitions status = %d, want %d", rec.Code, http.StatusOK)
	}
	var defs []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &defs); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(defs) != 17 {
		t.Errorf("listed %d definitions, want 17", len(defs))
	}

	rec = doJSON(t, s, http.MethodGet, "/settings/naming", "")
	if rec.Code != http.StatusOK {
		t.Errorf("naming config status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = doJSON(t, s, http.MethodGet, "/settings/quality/profiles", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("profiles status = %d, want %d", rec.Code, http.StatusOK)
	}
	var profiles []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &profiles); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(profiles) != 3 {
		t.Errorf("listed %d profiles, want the 3 defaults", len(profiles))
	}
}

func TestRootFoldersAPI_RejectsMissingPath(t *testing.T) {
	s := setupTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/settings/rootfolders",
		`{"path": "/definitely/not/a/real/dir", "mediaType": "movie"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("nonexistent path status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = doJSON(t, s, http.MethodPost, "/settings/rootfolders", `{"path": "/tmp", "mediaType": "other"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad mediaType status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestIndexersAPI_CRUD(t *testing.T) {
	s := setupTestServer(t)

	body := `{"name": "Test Indexer", "url": "http://indexer.local/api", "apiKey": "key", "protocol": "torrent", "enabled": true, "rssEnabled": true}`
	rec := doJSON(t, s, http.MethodPost, "/automation/indexers", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create indexer status = %d, want %d. Body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/automation/indexers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list indexers status = %d, want %d", rec.Code, http.StatusOK)
	}
	var indexers []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &indexers); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(indexers) != 1 {
		t.Fatalf("listed %d indexers, want 1", len(indexers))
	}

	rec = doJSON(t, s, http.MethodPost, "/automation/indexers", `{"name": "Bad", "url": "not-a-url", "protocol": "torrent"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid url status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAutomationSearchValidation(t *testing.T) {
	s := setupTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/automation/search", `{"mediaType": "album", "id": "x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad mediaType status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestInvalidJSON(t *testing.T) {
	s := setupTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/library/movies", `{invalid json}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCORS(t *testing.T) {
	s := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/library/movies", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("missing Access-Control-Allow-Origin header")
	}
}
