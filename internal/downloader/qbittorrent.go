package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/levijay/mediastack/internal/database"
)

// QBittorrentClient speaks the qBittorrent WebUI v2 API.
type QBittorrentClient struct {
	cfg      *database.DownloadClientConfig
	baseURL  string
	username string
	password string
	http     *http.Client
}

// NewQBittorrentClient builds a client for one configured qBittorrent
// instance. Credentials ride in the config host as user:pass@host when set.
func NewQBittorrentClient(cfg *database.DownloadClientConfig) *QBittorrentClient {
	jar, _ := cookiejar.New(nil)
	host := cfg.Host
	username, password := "", ""
	if at := strings.LastIndex(host, "@"); at >= 0 {
		creds := host[:at]
		host = host[at+1:]
		if colon := strings.Index(creds, ":"); colon >= 0 {
			username, password = creds[:colon], creds[colon+1:]
		} else {
			username = creds
		}
	}
	return &QBittorrentClient{
		cfg:      cfg,
		baseURL:  fmt.Sprintf("http://%s:%d", host, cfg.Port),
		username: username,
		password: password,
		http:     &http.Client{Timeout: 30 * time.Second, Jar: jar},
	}
}

func (c *QBittorrentClient) ID() string         { return c.cfg.ID }
func (c *QBittorrentClient) Name() string       { return c.cfg.Name }
func (c *QBittorrentClient) Protocol() Protocol { return ProtocolTorrent }

// Test logs in and reads the application version.
func (c *QBittorrentClient) Test(ctx context.Context) error {
	if err := c.login(ctx); err != nil {
		return err
	}
	body, err := c.get(ctx, "/api/v2/app/version")
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return fmt.Errorf("empty version response")
	}
	return nil
}

func (c *QBittorrentClient) login(ctx context.Context) error {
	form := url.Values{"username": {c.username}, "password": {c.password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v2/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) == "Fails." {
		return ErrAuthFailed
	}
	return nil
}

// Add submits the torrent URL. qBittorrent silently deduplicates known
// torrents, so repeated adds of the same URL succeed.
func (c *QBittorrentClient) Add(ctx context.Context, torrentURL string, opts AddOptions) (AddResult, error) {
	if err := c.login(ctx); err != nil {
		return AddResult{}, err
	}
	form := url.Values{"urls": {torrentURL}}
	if opts.SavePath != "" {
		form.Set("savepath", opts.SavePath)
	}
	category := opts.Category
	if category == "" {
		category = c.cfg.Category
	}
	if category != "" {
		form.Set("category", category)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v2/torrents/add", strings.NewReader(form.Encode()))
	if err != nil {
		return AddResult{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return AddResult{}, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return AddResult{}, fmt.Errorf("add failed: status %d", resp.StatusCode)
	}

	// The add endpoint does not return the hash; resolve it from the list
	// by most recent addition in our category.
	jobID, err := c.findNewestJobID(ctx, category)
	if err != nil {
		return AddResult{OK: true, Message: "added, id pending"}, nil
	}
	return AddResult{OK: true, JobID: jobID}, nil
}

type qbTorrent struct {
	Hash        string  `json:"hash"`
	Name        string  `json:"name"`
	State       string  `json:"state"`
	Progress    float64 `json:"progress"` // 0..1
	Size        int64   `json:"size"`
	SavePath    string  `json:"save_path"`
	ContentPath string  `json:"content_path"`
	AddedOn     int64   `json:"added_on"`
}

func (c *QBittorrentClient) findNewestJobID(ctx context.Context, category string) (string, error) {
	torrents, err := c.listTorrents(ctx, category)
	if err != nil {
		return "", err
	}
	var newest *qbTorrent
	for i := range torrents {
		if newest == nil || torrents[i].AddedOn > newest.AddedOn {
			newest = &torrents[i]
		}
	}
	if newest == nil {
		return "", ErrJobNotFound
	}
	return newest.Hash, nil
}

// List returns jobs in the category.
func (c *QBittorrentClient) List(ctx context.Context, category string) ([]Job, error) {
	if err := c.login(ctx); err != nil {
		return nil, err
	}
	torrents, err := c.listTorrents(ctx, category)
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(torrents))
	for _, t := range torrents {
		jobs = append(jobs, Job{
			ID:          t.Hash,
			Name:        t.Name,
			Status:      mapQBState(t.State),
			Progress:    t.Progress * 100,
			Size:        t.Size,
			DownloadDir: t.SavePath,
			ContentPath: t.ContentPath,
		})
	}
	return jobs, nil
}

func (c *QBittorrentClient) listTorrents(ctx context.Context, category string) ([]qbTorrent, error) {
	path := "/api/v2/torrents/info"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var torrents []qbTorrent
	if err := json.Unmarshal(body, &torrents); err != nil {
		return nil, fmt.Errorf("parse torrents: %w", err)
	}
	return torrents, nil
}

func mapQBState(state string) Status {
	switch state {
	case "queuedDL", "allocating", "metaDL", "checkingDL", "stalledDL":
		return StatusQueued
	case "downloading", "forcedDL":
		return StatusDownloading
	case "uploading", "stalledUP", "pausedUP", "queuedUP", "checkingUP", "forcedUP":
		return StatusCompleted
	case "error", "missingFiles":
		return StatusError
	default:
		return StatusDownloading
	}
}

// Remove deletes a torrent, optionally with its files.
func (c *QBittorrentClient) Remove(ctx context.Context, jobID string, deleteFiles bool) error {
	if err := c.login(ctx); err != nil {
		return err
	}
	form := url.Values{
		"hashes":      {jobID},
		"deleteFiles": {fmt.Sprintf("%t", deleteFiles)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v2/torrents/delete", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remove failed: status %d", resp.StatusCode)
	}
	return nil
}

func (c *QBittorrentClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusForbidden {
		return nil, ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}
