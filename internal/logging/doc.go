// Package logging assembles structured slog loggers and formatting helpers used
// across subextract services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with job IDs, stages, lanes, and correlation IDs. The package also
// provides a no-op logger for tests and an io.Writer bridge for libraries that
// only know how to write lines.
package logging
