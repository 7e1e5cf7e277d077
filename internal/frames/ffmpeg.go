package frames

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"

	"subextract/internal/media/ffprobe"
)

var commandContext = exec.CommandContext

// FFmpeg inspects media with ffprobe and decodes single frames with ffmpeg.
type FFmpeg struct {
	FFmpegBinary  string
	FFprobeBinary string
}

// NewFFmpeg returns an FFmpeg with default binary names filled in.
func NewFFmpeg(ffmpegBinary, ffprobeBinary string) *FFmpeg {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	return &FFmpeg{FFmpegBinary: ffmpegBinary, FFprobeBinary: ffprobeBinary}
}

// Duration derives the video duration from frame count and rate, falling back
// to the container duration.
func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	result, err := ffprobe.Inspect(ctx, f.FFprobeBinary, path)
	if err != nil {
		return 0, err
	}
	if _, ok := result.PrimaryVideo(); !ok {
		return 0, errors.New("no video stream")
	}
	return result.VideoDuration(), nil
}

// DecodeAt seeks to timestamp and decodes exactly one frame as PNG.
func (f *FFmpeg) DecodeAt(ctx context.Context, path string, timestamp float64) (image.Image, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(timestamp, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-c:v", "png",
		"-",
	}
	cmd := commandContext(ctx, f.FFmpegBinary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode at %.3fs: %w: %s", timestamp, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, ErrNoFrame
	}
	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode png frame: %w", err)
	}
	return img, nil
}
