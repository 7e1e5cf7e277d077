package frames_test

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"subextract/internal/frames"
	"subextract/internal/services"
)

type fakeInspector struct {
	duration float64
	err      error
}

func (p fakeInspector) Duration(context.Context, string) (float64, error) {
	return p.duration, p.err
}

type fakeDecoder struct {
	failAfter float64
	calls     []float64
}

func (d *fakeDecoder) DecodeAt(_ context.Context, _ string, ts float64) (image.Image, error) {
	d.calls = append(d.calls, ts)
	if d.failAfter > 0 && ts >= d.failAfter {
		return nil, frames.ErrNoFrame
	}
	return image.NewGray(image.Rect(0, 0, 4, 4)), nil
}

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

func TestSampleProducesIncreasingTimestamps(t *testing.T) {
	decoder := &fakeDecoder{}
	sampler := &frames.Sampler{Interval: 1.0, Inspector: fakeInspector{duration: 3.5}, Decoder: decoder}

	got, err := sampler.Sample(context.Background(), writeVideo(t))
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	want := []float64{0, 1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(got))
	}
	for i, frame := range got {
		if frame.Timestamp != want[i] {
			t.Fatalf("frame %d timestamp = %v, want %v", i, frame.Timestamp, want[i])
		}
	}
}

func TestSampleSubSecondInterval(t *testing.T) {
	sampler := &frames.Sampler{Interval: 0.5, Inspector: fakeInspector{duration: 2.0}, Decoder: &fakeDecoder{}}
	got, err := sampler.Sample(context.Background(), writeVideo(t))
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(got))
	}
	if got[3].Timestamp != 1.5 {
		t.Fatalf("expected last timestamp 1.5, got %v", got[3].Timestamp)
	}
}

func TestSampleStopsEarlyOnDecodeFailure(t *testing.T) {
	decoder := &fakeDecoder{failAfter: 2}
	sampler := &frames.Sampler{Interval: 1.0, Inspector: fakeInspector{duration: 10}, Decoder: decoder}

	got, err := sampler.Sample(context.Background(), writeVideo(t))
	if err != nil {
		t.Fatalf("expected early stop without error, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 frames before failure, got %d", len(got))
	}
	if len(decoder.calls) != 3 {
		t.Fatalf("expected sampling to stop after the failed decode, got %d calls", len(decoder.calls))
	}
}

func TestSampleUnreadableMedia(t *testing.T) {
	sampler := &frames.Sampler{Interval: 1.0, Inspector: fakeInspector{duration: 5}, Decoder: &fakeDecoder{}}
	_, err := sampler.Sample(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	if !errors.Is(err, services.ErrUnreadableMedia) {
		t.Fatalf("expected unreadable media for missing file, got %v", err)
	}

	sampler.Inspector = fakeInspector{duration: 0}
	_, err = sampler.Sample(context.Background(), writeVideo(t))
	if !errors.Is(err, services.ErrUnreadableMedia) {
		t.Fatalf("expected unreadable media for zero duration, got %v", err)
	}

	sampler.Inspector = fakeInspector{err: errors.New("moov atom not found")}
	_, err = sampler.Sample(context.Background(), writeVideo(t))
	if !errors.Is(err, services.ErrUnreadableMedia) {
		t.Fatalf("expected unreadable media for inspection failure, got %v", err)
	}
}

func TestSampleRejectsNonPositiveInterval(t *testing.T) {
	sampler := &frames.Sampler{Interval: 0, Inspector: fakeInspector{duration: 5}, Decoder: &fakeDecoder{}}
	_, err := sampler.Sample(context.Background(), writeVideo(t))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSampleCheckpointAborts(t *testing.T) {
	stop := errors.New("stop requested")
	sampler := &frames.Sampler{
		Interval:  1.0,
		Inspector: fakeInspector{duration: 10},
		Decoder:   &fakeDecoder{},
		Checkpoint: func(_ context.Context, index int, _ float64) error {
			if index == 3 {
				return stop
			}
			return nil
		},
	}
	_, err := sampler.Sample(context.Background(), writeVideo(t))
	if !errors.Is(err, stop) {
		t.Fatalf("expected checkpoint error, got %v", err)
	}
}

func TestSampleHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sampler := &frames.Sampler{Interval: 1.0, Inspector: fakeInspector{duration: 10}, Decoder: &fakeDecoder{}}
	_, err := sampler.Sample(ctx, writeVideo(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
