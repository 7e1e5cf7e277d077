package ocr

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"strings"

	"subextract/internal/config"
	"subextract/internal/logging"
	"subextract/internal/regions"
	"subextract/internal/services"
)

// Minimum crop footprint worth sending to the engine.
const (
	MinRegionHeight = 10
	MinRegionWidth  = 20
)

// Engine recognizes text in a preprocessed image.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Recognizer preprocesses regions and delegates to an Engine.
type Recognizer struct {
	Engine       Engine
	Threshold    string
	CloseStrokes bool
	Logger       *slog.Logger
}

// NewRecognizer wires a tesseract-backed recognizer from configuration.
func NewRecognizer(cfg *config.Config, logger *slog.Logger) *Recognizer {
	return &Recognizer{
		Engine:       NewTesseract(cfg.OCR.TesseractBinary, cfg.OCR.Languages, cfg.OCR.Whitelist),
		Threshold:    cfg.OCR.Threshold,
		CloseStrokes: cfg.OCR.CloseStrokes,
		Logger:       logging.NewComponentLogger(logger, "ocr"),
	}
}

// Recognize returns the trimmed text in region, or "" when the region is too
// small or the engine saw nothing. Engine failures are reported as
// recognition errors.
func (r *Recognizer) Recognize(ctx context.Context, region regions.Region) (string, error) {
	if r.Engine == nil {
		return "", services.Wrap(services.ErrConfiguration, "recognition", "init", "no OCR engine configured", nil)
	}
	if region.Image == nil {
		return "", nil
	}
	bounds := region.Image.Bounds()
	if bounds.Dy() < MinRegionHeight || bounds.Dx() < MinRegionWidth {
		return "", nil
	}

	cleaned := Preprocess(region.Image, r.Threshold, r.CloseStrokes)
	text, err := r.Engine.Recognize(ctx, cleaned)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", ctxErr
		}
		return "", services.Wrap(services.ErrRecognition, "recognition", "engine", "", err)
	}
	return strings.TrimSpace(text), nil
}
