// Package downloader provides download client abstractions and the
// download lifecycle service.
package downloader

import (
	"context"
	"errors"
)

// Common errors for download clients.
var (
	ErrNotConnected = errors.New("client not connected")
	ErrAuthFailed   = errors.New("authentication failed")
	ErrJobNotFound  = errors.New("download job not found")
)

// Protocol is the transfer protocol a client speaks.
type Protocol string

const (
	ProtocolTorrent Protocol = "torrent"
	ProtocolUsenet  Protocol = "usenet"
)

// Status is the client-side state of one job.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
)

// AddOptions parameterize an add call.
type AddOptions struct {
	SavePath string
	Category string
	Protocol Protocol
}

// AddResult reports the outcome of an add. Re-adding an URL the client
// already knows reports OK with the existing job id.
type AddResult struct {
	OK      bool   `json:"ok"`
	JobID   string `json:"jobId"`
	Message string `json:"message,omitempty"`
}

// Job is one transfer tracked by a client.
type Job struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Status      Status  `json:"status"`
	Progress    float64 `json:"progress"` // 0..100
	Size        int64   `json:"size"`
	DownloadDir string  `json:"downloadDir"`
	ContentPath string  `json:"contentPath"` // final file or folder once known
	ErrorString string  `json:"errorString,omitempty"`
}

// Client is the capability surface of one download client.
type Client interface {
	ID() string
	Name() string
	Protocol() Protocol
	Add(ctx context.Context, url string, opts AddOptions) (AddResult, error)
	List(ctx context.Context, category string) ([]Job, error)
	Remove(ctx context.Context, jobID string, deleteFiles bool) error
	Test(ctx context.Context) error
}
