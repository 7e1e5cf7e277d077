// Package language provides unified language code normalization and mapping.
//
// Configuration, the language classifier, and the OCR engine all speak
// slightly different dialects (ISO 639-1 tags, ISO 639-2 codes, tesseract
// traineddata names); conversions between them live here.
package language
