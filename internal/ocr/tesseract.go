package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"

	"subextract/internal/language"
)

var commandContext = exec.CommandContext

// Tesseract runs the tesseract CLI as an Engine.
type Tesseract struct {
	Binary    string
	Languages []string
	Whitelist string
}

// NewTesseract builds an engine. Language entries may be ISO codes, names, or
// traineddata names; they are mapped to traineddata names.
func NewTesseract(binary string, languages []string, whitelist string) *Tesseract {
	if strings.TrimSpace(binary) == "" {
		binary = "tesseract"
	}
	mapped := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		code := language.TesseractCode(lang)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		mapped = append(mapped, code)
	}
	if len(mapped) == 0 {
		mapped = []string{"eng"}
	}
	return &Tesseract{Binary: binary, Languages: mapped, Whitelist: whitelist}
}

// Args returns the command-line arguments passed to tesseract.
func (t *Tesseract) Args() []string {
	args := []string{"stdin", "stdout", "--oem", "3", "--psm", "6", "-l", strings.Join(t.Languages, "+")}
	if t.Whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+t.Whitelist)
	}
	return args
}

// Recognize PNG-encodes img and reads recognized text from tesseract's stdout.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	var input bytes.Buffer
	if err := png.Encode(&input, img); err != nil {
		return "", fmt.Errorf("encode region: %w", err)
	}
	cmd := commandContext(ctx, t.Binary, t.Args()...) //nolint:gosec
	cmd.Stdin = &input
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
