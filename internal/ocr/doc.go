// Package ocr turns caption region crops into text.
//
// Recognizer cleans each crop (grayscale, bilateral smoothing, thresholding,
// polarity normalization, optional dilation) and hands the result to an
// Engine. Tesseract is the production Engine and runs the tesseract CLI with
// the image piped over stdin.
package ocr
