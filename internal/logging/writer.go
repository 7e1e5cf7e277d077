package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
)

// LineWriter adapts line-oriented library output (HTTP access logs, tool
// stderr) into slog records at a fixed level.
type LineWriter struct {
	mu     sync.Mutex
	logger *slog.Logger
	level  slog.Level
	buf    bytes.Buffer
}

// NewLineWriter returns a writer that emits one record per complete line.
func NewLineWriter(logger *slog.Logger, level slog.Level) *LineWriter {
	if logger == nil {
		logger = NewNop()
	}
	return &LineWriter{logger: logger, level: level}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// partial line stays buffered until the newline arrives
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			w.logger.Log(context.Background(), w.level, trimmed)
		}
	}
	return len(p), nil
}
