package scanner

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ScanError records a path that could not be read during a scan.
type ScanError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ScanResult is everything found under one root folder.
type ScanResult struct {
	RootPath   string          `json:"rootPath"`
	Movies     []ParsedRelease `json:"movies"`
	Episodes   []ParsedRelease `json:"episodes"`
	Errors     []ScanError     `json:"errors"`
	TotalFiles int             `json:"totalFiles"`
	Skipped    int             `json:"skipped"`
}

// Service walks root folders and parses the video files it finds.
type Service struct {
	logger zerolog.Logger
}

// NewService creates a new scanner service.
func NewService(logger zerolog.Logger) *Service {
	return &Service{
		logger: logger.With().Str("component", "scanner").Logger(),
	}
}

// ScanFolder walks a root folder for media files. mediaType is "movie" or
// "tv"; empty means classify by filename shape.
func (s *Service) ScanFolder(ctx context.Context, folderPath, mediaType string) (*ScanResult, error) {
	result := &ScanResult{
		RootPath: folderPath,
		Movies:   make([]ParsedRelease, 0),
		Episodes: make([]ParsedRelease, 0),
		Errors:   make([]ScanError, 0),
	}

	err := filepath.WalkDir(folderPath, func(path string, d os.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if walkErr != nil {
			result.Errors = append(result.Errors, ScanError{Path: path, Error: walkErr.Error()})
			return nil
		}
		if d.IsDir() || !IsVideoFile(d.Name()) {
			return nil
		}
		if IsSampleFile(d.Name()) {
			result.Skipped++
			return nil
		}
		result.TotalFiles++

		info, infoErr := d.Info()
		if infoErr != nil {
			result.Errors = append(result.Errors, ScanError{Path: path, Error: infoErr.Error()})
			return nil
		}

		parsed := ParsePath(path)
		parsed.FileSize = info.Size()
		switch {
		case mediaType == "movie", mediaType == "" && !parsed.IsTV:
			result.Movies = append(result.Movies, *parsed)
		default:
			result.Episodes = append(result.Episodes, *parsed)
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	s.logger.Info().
		Str("path", folderPath).
		Int("totalFiles", result.TotalFiles).
		Int("movies", len(result.Movies)).
		Int("episodes", len(result.Episodes)).
		Int("skipped", result.Skipped).
		Msg("Folder scan completed")

	return result, nil
}

// ScanFile parses a single on-disk file.
func (s *Service) ScanFile(filePath string) (*ParsedRelease, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, os.ErrInvalid
	}

	parsed := ParsePath(filePath)
	parsed.FileSize = info.Size()
	return parsed, nil
}
