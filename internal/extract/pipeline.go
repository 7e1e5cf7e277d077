package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"subextract/internal/config"
	"subextract/internal/cues"
	"subextract/internal/frames"
	"subextract/internal/langid"
	"subextract/internal/logging"
	"subextract/internal/ocr"
	"subextract/internal/regions"
	"subextract/internal/services"
)

// Recognizer reads the text in a caption region.
type Recognizer interface {
	Recognize(ctx context.Context, region regions.Region) (string, error)
}

// Hooks lets the caller observe progress and stop the run.
type Hooks struct {
	Checkpoint func(ctx context.Context, progress Progress) error
}

func (h Hooks) checkpoint(ctx context.Context, progress Progress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.Checkpoint == nil {
		return nil
	}
	return h.Checkpoint(ctx, progress)
}

// Recognition is one recognized caption line.
type Recognition struct {
	Text       string
	Timestamp  float64
	Box        image.Rectangle
	Language   string
	Confidence float64
}

// Stats counts what each stage produced.
type Stats struct {
	Frames            int
	Regions           int
	Recognized        int
	RecognitionErrors int
	Kept              int
	Cues              int
	Elapsed           time.Duration
}

// Result is the outcome of a successful run.
type Result struct {
	Document *cues.Document
	Kept     []Recognition
	Stats    Stats
}

// Pipeline holds the stage implementations. It is safe for concurrent runs.
type Pipeline struct {
	Sampler       *frames.Sampler
	RegionOptions regions.Options
	Recognizer    Recognizer
	Classifier    langid.Classifier
	Policy        langid.Policy
	CueOptions    cues.Options
	Logger        *slog.Logger
}

// New assembles the production pipeline from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	policy := langid.PolicyFromConfig(cfg.Language)
	if err := policy.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "language policy", "", err)
	}
	classifier, err := langid.NewLinguaClassifier(cfg.Language.Candidates)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "language classifier", "", err)
	}
	return &Pipeline{
		Sampler: frames.NewSampler(cfg, logger),
		RegionOptions: regions.Options{
			MinWidth:      cfg.Pipeline.RegionMinWidth,
			MinHeight:     cfg.Pipeline.RegionMinHeight,
			LineTolerance: cfg.Pipeline.LineTolerance,
			Padding:       cfg.Pipeline.RegionPadding,
		},
		Recognizer: ocr.NewRecognizer(cfg, logger),
		Classifier: classifier,
		Policy:     policy,
		CueOptions: cues.Options{
			Gap:             cfg.Pipeline.CueGapSeconds,
			MinDuration:     cfg.Pipeline.MinCueSeconds,
			DefaultDuration: cfg.Pipeline.DefaultCueSeconds,
		},
		Logger: logging.NewComponentLogger(logger, "extract"),
	}, nil
}

// Run executes every stage against the video at path.
func (p *Pipeline) Run(ctx context.Context, path string, hooks Hooks) (*Result, error) {
	if p.Sampler == nil || p.Recognizer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "sampler and recognizer are required", nil)
	}
	logger := logging.WithContext(ctx, p.logger())
	started := time.Now()
	var stats Stats

	if err := hooks.checkpoint(ctx, Progress{Stage: StageSampling, Percent: StageSampling.StartPercent(), StageStart: true}); err != nil {
		return nil, err
	}
	sampler := *p.Sampler
	sampler.Checkpoint = func(ctx context.Context, index int, ts float64) error {
		return hooks.checkpoint(ctx, Progress{
			Stage:   StageSampling,
			Percent: StageSampling.StartPercent(),
			Detail:  fmt.Sprintf("frame %d at %.1fs", index+1, ts),
		})
	}
	sampled, err := sampler.Sample(ctx, path)
	if err != nil {
		return nil, err
	}
	stats.Frames = len(sampled)

	if err := hooks.checkpoint(ctx, Progress{Stage: StageDetecting, Percent: StageDetecting.StartPercent(), StageStart: true}); err != nil {
		return nil, err
	}
	var found []regions.Region
	for _, frame := range sampled {
		found = append(found, regions.Detect(frame.Image, frame.Timestamp, p.RegionOptions)...)
	}
	stats.Regions = len(found)

	if err := hooks.checkpoint(ctx, Progress{Stage: StageRecognizing, Percent: StageRecognizing.StartPercent(), StageStart: true}); err != nil {
		return nil, err
	}
	recognized, errCount, err := p.recognize(ctx, logger, found, hooks)
	if err != nil {
		return nil, err
	}
	stats.Recognized = len(recognized)
	stats.RecognitionErrors = errCount

	if err := hooks.checkpoint(ctx, Progress{Stage: StageFiltering, Percent: StageFiltering.StartPercent(), StageStart: true}); err != nil {
		return nil, err
	}
	kept := p.filter(recognized)
	stats.Kept = len(kept)

	if err := hooks.checkpoint(ctx, Progress{Stage: StageAssembling, Percent: StageAssembling.StartPercent(), StageStart: true}); err != nil {
		return nil, err
	}
	entries := make([]cues.Entry, 0, len(kept))
	for _, rec := range kept {
		entries = append(entries, cues.Entry{Text: rec.Text, Timestamp: rec.Timestamp, Top: rec.Box.Min.Y})
	}
	doc := cues.Assemble(entries, p.CueOptions)
	stats.Cues = doc.Len()
	stats.Elapsed = time.Since(started)

	logger.Info("extraction complete",
		logging.String(logging.FieldEventType, "extraction_complete"),
		logging.Int("frames", stats.Frames),
		logging.Int("regions", stats.Regions),
		logging.Int("recognized", stats.Recognized),
		logging.Int("recognition_errors", stats.RecognitionErrors),
		logging.Int("kept", stats.Kept),
		logging.Int("cues", stats.Cues),
		logging.Duration("elapsed", stats.Elapsed),
	)
	return &Result{Document: doc, Kept: kept, Stats: stats}, nil
}

func (p *Pipeline) recognize(ctx context.Context, logger *slog.Logger, found []regions.Region, hooks Hooks) ([]Recognition, int, error) {
	span := StageFiltering.StartPercent() - StageRecognizing.StartPercent()
	var (
		out      []Recognition
		failures int
	)
	for i, region := range found {
		if err := hooks.checkpoint(ctx, Progress{
			Stage:   StageRecognizing,
			Percent: StageRecognizing.StartPercent() + span*float64(i)/float64(len(found)),
			Detail:  fmt.Sprintf("region %d of %d", i+1, len(found)),
		}); err != nil {
			return nil, failures, err
		}
		text, err := p.Recognizer.Recognize(ctx, region)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, failures, ctxErr
			}
			failures++
			logger.Warn("region recognition failed; skipping region",
				logging.String(logging.FieldEventType, "recognition_failed"),
				logging.Float64("timestamp", region.Timestamp),
				logging.String("box", region.Box.String()),
				logging.Error(err),
			)
			continue
		}
		if text == "" {
			continue
		}
		out = append(out, Recognition{Text: text, Timestamp: region.Timestamp, Box: region.Box})
	}
	return out, failures, nil
}

func (p *Pipeline) filter(recognized []Recognition) []Recognition {
	kept := make([]Recognition, 0, len(recognized))
	for _, rec := range recognized {
		cleaned := langid.Clean(rec.Text)
		if cleaned == "" {
			continue
		}
		result := langid.Unknown()
		if p.Classifier != nil {
			result = p.Classifier.Classify(cleaned)
		}
		if !p.Policy.Accept(result) {
			continue
		}
		rec.Text = cleaned
		rec.Language = result.Language
		rec.Confidence = result.Confidence
		kept = append(kept, rec)
	}
	return kept
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return logging.NewNop()
}

// IsCancellation reports whether err stopped the run because of a cancel
// request rather than a failure.
func IsCancellation(err error) bool {
	return errors.Is(err, services.ErrCancelled) || errors.Is(err, context.Canceled)
}
