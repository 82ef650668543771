package scanner

import (
	"path/filepath"
	"strings"
)

// videoExtensions are the file extensions treated as importable video.
var videoExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".m4v":  true,
	".mov":  true,
	".wmv":  true,
	".mpg":  true,
	".mpeg": true,
	".ts":   true,
	".m2ts": true,
	".webm": true,
	".flv":  true,
	".ogm":  true,
	".divx": true,
}

// sampleMarkers flag files that are previews rather than the main feature.
var sampleMarkers = []string{"sample", "trailer", "rarbg.com", "etrg"}

func isVideoExtension(ext string) bool {
	return videoExtensions[strings.ToLower(ext)]
}

// IsVideoFile reports whether the path names a video file by extension.
func IsVideoFile(path string) bool {
	return isVideoExtension(filepath.Ext(path))
}

// IsSampleFile reports whether the filename looks like a sample or trailer.
func IsSampleFile(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, marker := range sampleMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}
