// Package imageproc holds the grayscale image operations shared by caption
// region detection and OCR preprocessing: luminance conversion, Gaussian
// adaptive and Otsu thresholding, bilateral smoothing, dilation, and cropping.
//
// Colour conversion, blurring, and cropping go through
// github.com/disintegration/imaging; the thresholding and morphology passes
// operate directly on *image.Gray pixel buffers.
package imageproc
