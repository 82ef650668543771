package importer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go"

	"github.com/levijay/mediastack/internal/library/scanner"
)

// Stable error codes recorded on failed downloads.
const (
	CodeNoVideo    = "ERR_NO_VIDEO"
	CodeFilesystem = "ERR_FS"
)

var (
	ErrNoVideo    = errors.New("no video file found")
	ErrFilesystem = errors.New("destination not writable")
)

// ErrorCode maps an import error to its stable code. Unknown errors get
// the filesystem code since everything else here is file I/O.
func ErrorCode(err error) string {
	if errors.Is(err, ErrNoVideo) {
		return CodeNoVideo
	}
	return CodeFilesystem
}

// findLargestVideo returns the biggest non-sample video file under root.
// Root may itself be a file.
func findLargestVideo(root string) (string, int64, error) {
	info, err := os.Stat(root)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrNoVideo, err)
	}
	if !info.IsDir() {
		if scanner.IsVideoFile(root) && !scanner.IsSampleFile(root) {
			return root, info.Size(), nil
		}
		return "", 0, ErrNoVideo
	}

	var bestPath string
	var bestSize int64
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() || !scanner.IsVideoFile(path) || scanner.IsSampleFile(path) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if fi.Size() > bestSize {
			bestPath, bestSize = path, fi.Size()
		}
		return nil
	})
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrFilesystem, err)
	}
	if bestPath == "" {
		return "", 0, ErrNoVideo
	}
	return bestPath, bestSize, nil
}

// placeFile puts source at dest atomically: the data lands under a sibling
// temp name first and is renamed into place. Hardlink is attempted before a
// copy so torrents keep seeding without duplicated space. An existing
// destination of the same size is left alone and reported as idempotent.
func placeFile(source, dest string) (linkMode string, idempotent bool, err error) {
	sourceInfo, err := os.Stat(source)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrFilesystem, err)
	}

	if destInfo, statErr := os.Stat(dest); statErr == nil {
		if destInfo.Size() == sourceInfo.Size() {
			return "", true, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrFilesystem, err)
	}

	tmp := fmt.Sprintf("%s.partial~", dest)
	defer os.Remove(tmp)

	linkMode = "hardlink"
	if err := os.Link(source, tmp); err != nil {
		linkMode = "copy"
		if err := copyWithRetry(source, tmp); err != nil {
			return "", false, err
		}
	}

	// Rename replaces any stale destination in one step.
	if err := os.Rename(tmp, dest); err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrFilesystem, err)
	}
	return linkMode, false, nil
}

func copyWithRetry(source, dest string) error {
	return retry.Do(
		func() error { return copyFile(source, dest) },
		retry.Attempts(3),
		retry.Delay(250*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

func copyFile(source, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFilesystem, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFilesystem, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("%w: %v", ErrFilesystem, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("%w: %v", ErrFilesystem, err)
	}
	return nil
}

// cleanEmptyDirs removes empty directories from start upward, stopping at
// (and never touching) stopRoot or anything outside it.
func cleanEmptyDirs(start, stopRoot string) {
	stopRoot = filepath.Clean(stopRoot)
	dir := filepath.Clean(start)
	for {
		if dir == stopRoot || !strings.HasPrefix(dir+string(os.PathSeparator), stopRoot+string(os.PathSeparator)) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
