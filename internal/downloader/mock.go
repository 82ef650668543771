package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MockClient simulates a download client in memory. Jobs advance a fixed
// amount of progress on every List call, and a placeholder file is written
// on completion so the import path has something real to move.
type MockClient struct {
	ClientID   string
	ClientName string

	// ProgressStep is the percentage added per List call (default 25).
	ProgressStep float64

	mu    sync.Mutex
	jobs  map[string]*Job
	byURL map[string]string // url -> job id, for idempotent adds
	seq   int
}

// NewMockClient creates a simulated download client.
func NewMockClient(id, name string) *MockClient {
	return &MockClient{
		ClientID:     id,
		ClientName:   name,
		ProgressStep: 25,
		jobs:         make(map[string]*Job),
		byURL:        make(map[string]string),
	}
}

func (c *MockClient) ID() string         { return c.ClientID }
func (c *MockClient) Name() string       { return c.ClientName }
func (c *MockClient) Protocol() Protocol { return ProtocolTorrent }

func (c *MockClient) Test(ctx context.Context) error { return nil }

// Add registers a simulated job. Repeated adds of the same URL return the
// existing job id.
func (c *MockClient) Add(ctx context.Context, url string, opts AddOptions) (AddResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.byURL[url]; ok {
		return AddResult{OK: true, JobID: existing, Message: "already added"}, nil
	}

	c.seq++
	id := fmt.Sprintf("mock-job-%d", c.seq)
	name := filepath.Base(url)
	c.jobs[id] = &Job{
		ID:          id,
		Name:        name,
		Status:      StatusQueued,
		Size:        1 << 30,
		DownloadDir: opts.SavePath,
	}
	c.byURL[url] = id
	return AddResult{OK: true, JobID: id}, nil
}

// List advances and returns all jobs.
func (c *MockClient) List(ctx context.Context, category string) ([]Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Job, 0, len(c.jobs))
	for _, job := range c.jobs {
		c.advance(job)
		out = append(out, *job)
	}
	return out, nil
}

func (c *MockClient) advance(job *Job) {
	if job.Status == StatusCompleted || job.Status == StatusError {
		return
	}
	job.Status = StatusDownloading
	step := c.ProgressStep
	if step <= 0 {
		step = 25
	}
	job.Progress += step
	if job.Progress < 100 {
		return
	}
	job.Progress = 100
	job.Status = StatusCompleted
	if job.DownloadDir != "" {
		path := filepath.Join(job.DownloadDir, job.Name+".mkv")
		if err := os.MkdirAll(job.DownloadDir, 0o755); err == nil {
			if err := os.WriteFile(path, []byte("mock video payload"), 0o644); err == nil {
				job.ContentPath = path
			}
		}
	}
}

// Remove deletes a job and optionally its simulated file.
func (c *MockClient) Remove(ctx context.Context, jobID string, deleteFiles bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	job, ok := c.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if deleteFiles && job.ContentPath != "" {
		os.Remove(job.ContentPath)
	}
	for url, id := range c.byURL {
		if id == jobID {
			delete(c.byURL, url)
		}
	}
	delete(c.jobs, jobID)
	return nil
}
