package frames

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"

	"subextract/internal/config"
	"subextract/internal/logging"
	"subextract/internal/services"
)

// DefaultInterval is the sampling step in seconds.
const DefaultInterval = 1.0

// Frame is one decoded still image and its position in the video.
type Frame struct {
	Image     image.Image
	Timestamp float64
}

// Inspector reports the playable duration of a video in seconds.
type Inspector interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Decoder extracts the frame shown at the given timestamp.
type Decoder interface {
	DecodeAt(ctx context.Context, path string, timestamp float64) (image.Image, error)
}

// Checkpoint is invoked before each frame is decoded; a non-nil error stops
// sampling and is returned to the caller.
type Checkpoint func(ctx context.Context, index int, timestamp float64) error

// Sampler produces a strictly increasing sequence of frames.
type Sampler struct {
	Interval   float64
	Inspector  Inspector
	Decoder    Decoder
	Checkpoint Checkpoint
	Logger     *slog.Logger
}

// NewSampler builds a sampler backed by the configured ffmpeg tools.
func NewSampler(cfg *config.Config, logger *slog.Logger) *Sampler {
	tools := NewFFmpeg(cfg.Media.FFmpegBinary, cfg.Media.FFprobeBinary)
	return &Sampler{
		Interval:  cfg.Pipeline.IntervalSeconds,
		Inspector: tools,
		Decoder:   tools,
		Logger:    logging.NewComponentLogger(logger, "frames"),
	}
}

// Sample decodes one frame every Interval seconds from 0 up to the video
// duration. A decode failure ends sampling early and returns the frames
// gathered so far; only an unopenable file or a non-positive duration is an
// error.
func (s *Sampler) Sample(ctx context.Context, path string) ([]Frame, error) {
	interval := s.Interval
	if interval <= 0 {
		return nil, services.Wrap(services.ErrValidation, "sampling", "interval", fmt.Sprintf("interval must be positive, got %v", interval), nil)
	}
	if s.Inspector == nil || s.Decoder == nil {
		return nil, services.Wrap(services.ErrConfiguration, "sampling", "init", "inspector and decoder are required", nil)
	}
	logger := s.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	if _, err := os.Stat(path); err != nil {
		return nil, services.Wrap(services.ErrUnreadableMedia, "sampling", "open", path, err)
	}
	duration, err := s.Inspector.Duration(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrUnreadableMedia, "sampling", "inspect", path, err)
	}
	if duration <= 0 {
		return nil, services.Wrap(services.ErrUnreadableMedia, "sampling", "inspect", fmt.Sprintf("non-positive duration %v", duration), nil)
	}

	expected := int(duration/interval) + 1
	frames := make([]Frame, 0, expected)
	for index := 0; ; index++ {
		// Multiplying avoids drift from repeated float addition.
		ts := float64(index) * interval
		if ts >= duration {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.Checkpoint != nil {
			if err := s.Checkpoint(ctx, index, ts); err != nil {
				return nil, err
			}
		}
		img, err := s.Decoder.DecodeAt(ctx, path, ts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Debug("frame decode ended sampling early",
				logging.Float64("timestamp", ts),
				logging.Int("frames", len(frames)),
				logging.Error(err),
			)
			break
		}
		if img == nil {
			break
		}
		frames = append(frames, Frame{Image: img, Timestamp: ts})
	}

	logger.Debug("sampled frames",
		logging.Int("frames", len(frames)),
		logging.Float64("duration_seconds", duration),
		logging.Float64("interval_seconds", interval),
	)
	return frames, nil
}

// ErrNoFrame is returned by decoders when the timestamp is past the last frame.
var ErrNoFrame = errors.New("no frame at timestamp")
