// Package langid cleans OCR output and decides which recognized lines to keep
// based on their detected language.
//
// Clean strips recognizer noise, Classifier scores the cleaned text (the
// production implementation wraps lingua-go restricted to the configured
// candidate languages), and Policy accepts or rejects a classification.
package langid
