package extract_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"subextract/internal/config"
	"subextract/internal/cues"
	"subextract/internal/extract"
	"subextract/internal/frames"
	"subextract/internal/langid"
	"subextract/internal/logging"
	"subextract/internal/regions"
	"subextract/internal/services"
	"subextract/internal/testsupport"
)

type fixedDuration float64

func (p fixedDuration) Duration(context.Context, string) (float64, error) { return float64(p), nil }

type blankDecoder struct{}

func (blankDecoder) DecodeAt(context.Context, string, float64) (image.Image, error) {
	img := image.NewGray(image.Rect(0, 0, 160, 90))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	return img, nil
}

// scriptedRecognizer returns text keyed by the region timestamp.
type scriptedRecognizer struct {
	mu     sync.Mutex
	script map[float64]string
	fail   map[float64]bool
	calls  int
}

func (r *scriptedRecognizer) Recognize(_ context.Context, region regions.Region) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.fail[region.Timestamp] {
		return "", errors.New("engine exploded")
	}
	return r.script[region.Timestamp], nil
}

// prefixClassifier labels text starting with "fr:" as French.
type prefixClassifier struct{}

func (prefixClassifier) Classify(text string) langid.Result {
	if strings.HasPrefix(text, "fr:") {
		return langid.Result{Language: "fr", Confidence: 0.9}
	}
	return langid.Result{Language: "en", Confidence: 0.95}
}

func newPipeline(rec extract.Recognizer, duration float64) *extract.Pipeline {
	return &extract.Pipeline{
		Sampler:    &frames.Sampler{Interval: 1, Inspector: fixedDuration(duration), Decoder: blankDecoder{}},
		Recognizer: rec,
		Classifier: prefixClassifier{},
		Policy:     langid.KeepOnly("en", 0.7),
		CueOptions: cues.DefaultOptions(),
	}
}

func videoPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

func TestRunProducesCues(t *testing.T) {
	rec := &scriptedRecognizer{script: map[float64]string{
		0: "Hello there",
		1: "Hello there",
		2: "fr:Bonjour",
		3: "General Kenobi",
		4: "|",
	}}
	pipeline := newPipeline(rec, 5)

	var stages []extract.Stage
	hooks := extract.Hooks{Checkpoint: func(_ context.Context, p extract.Progress) error {
		if p.StageStart {
			stages = append(stages, p.Stage)
		}
		return nil
	}}
	result, err := pipeline.Run(context.Background(), videoPath(t), hooks)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if fmt.Sprint(stages) != fmt.Sprint(extract.Stages) {
		t.Fatalf("unexpected stage order %v", stages)
	}
	if result.Stats.Frames != 5 || result.Stats.Regions != 5 {
		t.Fatalf("unexpected stats %+v", result.Stats)
	}
	if result.Stats.Kept != 3 {
		t.Fatalf("expected 3 kept lines, got %d", result.Stats.Kept)
	}
	doc := result.Document
	if doc.Len() != 2 {
		t.Fatalf("expected 2 cues, got %d: %+v", doc.Len(), doc.Cues)
	}
	if doc.Cues[0].Text != "Hello there" || doc.Cues[1].Text != "General Kenobi" {
		t.Fatalf("unexpected cue texts %+v", doc.Cues)
	}
	if doc.Cues[1].Start != 3 {
		t.Fatalf("expected second cue to start at 3s, got %v", doc.Cues[1].Start)
	}
}

func TestRunSkipsRecognitionFailures(t *testing.T) {
	rec := &scriptedRecognizer{
		script: map[float64]string{0: "Keep me", 1: "Lost"},
		fail:   map[float64]bool{1: true},
	}
	result, err := newPipeline(rec, 2).Run(context.Background(), videoPath(t), extract.Hooks{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Stats.RecognitionErrors != 1 || result.Document.Len() != 1 {
		t.Fatalf("unexpected result %+v", result.Stats)
	}
}

func TestRunAbortsOnCheckpointError(t *testing.T) {
	rec := &scriptedRecognizer{script: map[float64]string{0: "text"}}
	hooks := extract.Hooks{Checkpoint: func(_ context.Context, p extract.Progress) error {
		if p.Stage == extract.StageRecognizing {
			return services.ErrCancelled
		}
		return nil
	}}
	_, err := newPipeline(rec, 3).Run(context.Background(), videoPath(t), hooks)
	if !extract.IsCancellation(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if rec.calls != 0 {
		t.Fatalf("recognizer should not run after cancellation, got %d calls", rec.calls)
	}
}

func TestRunStopsSamplingBetweenFrames(t *testing.T) {
	rec := &scriptedRecognizer{}
	frameChecks := 0
	hooks := extract.Hooks{Checkpoint: func(_ context.Context, p extract.Progress) error {
		if p.Stage == extract.StageSampling && !p.StageStart {
			frameChecks++
			if frameChecks == 2 {
				return services.ErrCancelled
			}
		}
		return nil
	}}
	_, err := newPipeline(rec, 10).Run(context.Background(), videoPath(t), hooks)
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected cancellation during sampling, got %v", err)
	}
	if frameChecks != 2 {
		t.Fatalf("expected sampling to stop at the second frame, got %d checks", frameChecks)
	}
}

func TestRunUnreadableMedia(t *testing.T) {
	pipeline := newPipeline(&scriptedRecognizer{}, 5)
	_, err := pipeline.Run(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), extract.Hooks{})
	if !errors.Is(err, services.ErrUnreadableMedia) {
		t.Fatalf("expected unreadable media, got %v", err)
	}
}

func TestRunKeepAllPolicy(t *testing.T) {
	rec := &scriptedRecognizer{script: map[float64]string{0: "fr:Bonjour", 1: "Hello"}}
	pipeline := newPipeline(rec, 2)
	pipeline.Policy = langid.KeepAll()
	result, err := pipeline.Run(context.Background(), videoPath(t), extract.Hooks{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Document.Len() != 2 {
		t.Fatalf("expected both lines kept, got %d", result.Document.Len())
	}
	if result.Kept[0].Language != "fr" {
		t.Fatalf("expected language metadata recorded, got %+v", result.Kept[0])
	}
}

func TestStageLabels(t *testing.T) {
	if got := extract.StageRecognizing.Label(); got != "Recognizing text" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := extract.StageAssembling.Title(); got != "Assembling Subtitles" {
		t.Fatalf("unexpected title %q", got)
	}
	if extract.StageFiltering.StartPercent() <= extract.StageRecognizing.StartPercent() {
		t.Fatal("expected stage percentages to increase")
	}
}

func TestNewBuildsPolicyFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLanguagePolicy(config.PolicyKeepOnly, "French"))
	pipeline, err := extract.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if pipeline.Policy.Mode != config.PolicyKeepOnly || pipeline.Policy.Target != "fr" {
		t.Fatalf("unexpected policy %+v", pipeline.Policy)
	}
	if pipeline.Sampler == nil || pipeline.Recognizer == nil || pipeline.Classifier == nil {
		t.Fatal("expected every stage to be wired")
	}

	cfg = testsupport.NewConfig(t, testsupport.WithLanguagePolicy("bogus", "en"))
	if _, err := extract.New(cfg, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
