package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"subextract/internal/logging"
)

// CleanStaleResult lists what a sweep removed and what it failed to remove.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes job directories older than maxAge, skipping any that
// belong to a job in active.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, active map[string]struct{}, logger *slog.Logger) CleanStaleResult {
	cutoff := time.Now().Add(-maxAge)
	return sweep(ctx, stagingDir, "stale", true, logger, func(name string, modTime time.Time) bool {
		_, busy := active[name]
		return !busy && modTime.Before(cutoff)
	})
}

// CleanInbox removes uploaded videos older than maxAge from inboxDir unless
// their file name is in pending. Callers pass the upload tokens of jobs that
// are still queued or active.
func CleanInbox(ctx context.Context, inboxDir string, maxAge time.Duration, pending map[string]struct{}, logger *slog.Logger) CleanStaleResult {
	cutoff := time.Now().Add(-maxAge)
	return sweep(ctx, inboxDir, "abandoned", false, logger, func(name string, modTime time.Time) bool {
		_, waiting := pending[name]
		return !waiting && modTime.Before(cutoff)
	})
}

// CleanOrphaned removes job directories whose name is not in known. Callers
// pass the ids of every job that is still queued or active.
func CleanOrphaned(ctx context.Context, stagingDir string, known map[string]struct{}, logger *slog.Logger) CleanStaleResult {
	return sweep(ctx, stagingDir, "orphaned", true, logger, func(name string, _ time.Time) bool {
		_, ok := known[name]
		return !ok
	})
}

// sweep walks the direct entries of root and removes those doomed reports
// true for. dirs selects job directories; otherwise only regular files are
// considered. A missing root is not an error.
func sweep(ctx context.Context, root, reason string, dirs bool, logger *slog.Logger, doomed func(name string, modTime time.Time) bool) CleanStaleResult {
	var result CleanStaleResult
	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	what := "staging directory"
	if !dirs {
		what = "upload"
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		// Symlinks and sockets are left alone in both modes.
		if entry.IsDir() != dirs || (!dirs && !entry.Type().IsRegular()) {
			continue
		}
		entryPath := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: entryPath, Error: err})
			continue
		}
		if !doomed(entry.Name(), info.ModTime()) {
			continue
		}

		if err := os.RemoveAll(entryPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: entryPath, Error: err})
			logging.WarnWithContext(logger, "failed to remove "+reason+" "+what, "staging_cleanup_failed",
				logging.String("path", entryPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check staging_dir and inbox_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, entryPath)
		logger.Info("removed "+reason+" "+what,
			logging.String("path", entryPath),
			logging.Duration("age", time.Since(info.ModTime()).Round(time.Second)),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		)
	}
	return result
}
