// Package mediainfo extracts technical metadata from video files.
package mediainfo

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/library/scanner"
)

// Info holds the probed properties of one video file.
type Info struct {
	VideoCodec   string        `json:"videoCodec"`
	AudioCodec   string        `json:"audioCodec"`
	DynamicRange string        `json:"dynamicRange"`
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	Duration     time.Duration `json:"duration"`
	FileSize     int64         `json:"fileSize"`
}

// Probe is the capability of extracting media info from a file.
type Probe interface {
	Probe(ctx context.Context, path string) (*Info, error)
}

// Service probes files with ffprobe when available and falls back to
// filename heuristics otherwise.
type Service struct {
	binary  string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewService locates ffprobe on the host. An empty binary disables CLI
// probing and every call uses the filename fallback.
func NewService(logger zerolog.Logger) *Service {
	binary, _ := exec.LookPath("ffprobe")
	return &Service{
		binary:  binary,
		timeout: 30 * time.Second,
		logger:  logger.With().Str("component", "mediainfo").Logger(),
	}
}

// Available reports whether a real probe binary was found.
func (s *Service) Available() bool { return s.binary != "" }

// Probe extracts media info, never failing outright: when ffprobe is
// missing or errors, the filename heuristic result is returned.
func (s *Service) Probe(ctx context.Context, path string) (*Info, error) {
	if s.binary == "" {
		return FromFilename(path), nil
	}
	info, err := s.probeFFProbe(ctx, path)
	if err != nil {
		s.logger.Debug().Err(err).Str("path", path).Msg("ffprobe failed, using filename heuristics")
		return FromFilename(path), nil
	}
	return info, nil
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		ColorTrc  string `json:"color_transfer"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
}

func (s *Service) probeFFProbe(ctx context.Context, path string) (*Info, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams", "-show_format",
		path)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &parsed); err != nil {
		return nil, err
	}

	info := &Info{}
	for _, stream := range parsed.Streams {
		switch stream.CodecType {
		case "video":
			if info.VideoCodec == "" {
				info.VideoCodec = normalizeVideoCodec(stream.CodecName)
				info.Width = stream.Width
				info.Height = stream.Height
				info.DynamicRange = dynamicRangeFromTransfer(stream.ColorTrc)
			}
		case "audio":
			if info.AudioCodec == "" {
				info.AudioCodec = normalizeAudioCodec(stream.CodecName)
			}
		}
	}
	if seconds, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(seconds * float64(time.Second))
	}
	if size, err := strconv.ParseInt(parsed.Format.Size, 10, 64); err == nil {
		info.FileSize = size
	}
	return info, nil
}

// FromFilename derives what it can from release naming conventions.
func FromFilename(path string) *Info {
	name := filepath.Base(path)
	parsed := scanner.ParseFilename(name)

	info := &Info{VideoCodec: parsed.Codec}
	for _, attr := range parsed.Attributes {
		switch attr {
		case "HDR", "HDR10", "HDR10+", "DV", "HLG":
			info.DynamicRange = attr
		case "Atmos", "DTS-X", "DTS-HD", "TrueHD", "DTS", "DD+", "DD", "AAC", "FLAC":
			info.AudioCodec = attr
		}
	}
	if stat, err := os.Stat(path); err == nil {
		info.FileSize = stat.Size()
	}
	return info
}

func normalizeVideoCodec(codec string) string {
	switch strings.ToLower(codec) {
	case "hevc", "h265":
		return "x265"
	case "h264", "avc":
		return "x264"
	case "av1":
		return "AV1"
	case "vp9":
		return "VP9"
	case "mpeg2video":
		return "MPEG2"
	default:
		return codec
	}
}

func normalizeAudioCodec(codec string) string {
	switch strings.ToLower(codec) {
	case "aac":
		return "AAC"
	case "ac3":
		return "AC3"
	case "eac3":
		return "EAC3"
	case "dts":
		return "DTS"
	case "truehd":
		return "TrueHD"
	case "flac":
		return "FLAC"
	case "opus":
		return "Opus"
	default:
		return codec
	}
}

func dynamicRangeFromTransfer(transfer string) string {
	switch transfer {
	case "smpte2084":
		return "HDR10"
	case "arib-std-b67":
		return "HLG"
	default:
		return ""
	}
}
