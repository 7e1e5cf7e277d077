// Package regions locates likely caption areas in a video frame.
//
// Detect binarizes the frame, extracts 8-connected foreground components,
// keeps glyph-sized boxes in the lower part of the frame, merges boxes on the
// same text line, and pads the result. When nothing survives it falls back to
// the bottom band of the frame so recognition always has something to read.
package regions
