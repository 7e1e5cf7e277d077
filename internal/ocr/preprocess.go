package ocr

import (
	"image"

	"subextract/internal/config"
	"subextract/internal/imageproc"
)

const (
	bilateralDiameter  = 11
	bilateralSigma     = 17
	thresholdBlockSize = 11
	thresholdC         = 2
	dilationKernel     = 2
)

// Preprocess returns the binarized crop the engine reads. mode is
// config.ThresholdAdaptive or config.ThresholdOtsu.
func Preprocess(img image.Image, mode string, closeStrokes bool) *image.Gray {
	gray := imageproc.ToGray(img)
	smooth := imageproc.Bilateral(gray, bilateralDiameter, bilateralSigma, bilateralSigma)

	var binary *image.Gray
	if mode == config.ThresholdOtsu {
		binary = imageproc.OtsuThreshold(smooth)
	} else {
		binary = imageproc.AdaptiveThreshold(smooth, thresholdBlockSize, thresholdC, false)
	}
	if imageproc.Mean(binary) > 127 {
		binary = imageproc.Invert(binary)
	}
	if closeStrokes {
		binary = imageproc.Dilate(binary, dilationKernel)
	}
	return binary
}
