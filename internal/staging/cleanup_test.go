package staging_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subextract/internal/logging"
	"subextract/internal/staging"
)

func mkdirAged(t *testing.T, root, name string, age time.Duration) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(dir, stamp, stamp); err != nil {
		t.Fatalf("chtimes %s: %v", dir, err)
	}
	return dir
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := staging.CleanStale(context.Background(), dir, time.Hour, nil, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldDirectoriesExceptActive(t *testing.T) {
	root := t.TempDir()
	old := mkdirAged(t, root, "old-job", 3*time.Hour)
	busy := mkdirAged(t, root, "busy-job", 3*time.Hour)
	recent := mkdirAged(t, root, "recent-job", time.Minute)

	active := map[string]struct{}{"busy-job": {}}
	result := staging.CleanStale(context.Background(), root, time.Hour, active, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != old {
		t.Fatalf("expected only %s removed, got %v", old, result.Removed)
	}
	for _, dir := range []string{busy, recent} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("expected %s to survive: %v", dir, err)
		}
	}
}

func TestCleanOrphanedKeepsKnownJobs(t *testing.T) {
	root := t.TempDir()
	known := mkdirAged(t, root, "job-a", 0)
	orphan := mkdirAged(t, root, "job-b", 0)
	if err := os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	result := staging.CleanOrphaned(context.Background(), root, map[string]struct{}{"job-a": {}}, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != orphan {
		t.Fatalf("expected orphan removed, got %v", result.Removed)
	}
	if _, err := os.Stat(known); err != nil {
		t.Fatalf("known job dir removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "stray.txt")); err != nil {
		t.Fatalf("regular files should be ignored: %v", err)
	}
}

func writeAged(t *testing.T, root, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
	return path
}

func TestCleanInboxKeepsPendingAndRecentUploads(t *testing.T) {
	root := t.TempDir()
	abandoned := writeAged(t, root, "a1.mp4", 3*time.Hour)
	pending := writeAged(t, root, "p1.mp4", 3*time.Hour)
	recent := writeAged(t, root, "r1.mp4", time.Minute)
	subdir := mkdirAged(t, root, "not-an-upload", 3*time.Hour)

	result := staging.CleanInbox(context.Background(), root, time.Hour, map[string]struct{}{"p1.mp4": {}}, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != abandoned {
		t.Fatalf("expected only %s removed, got %v", abandoned, result.Removed)
	}
	for _, path := range []string{pending, recent, subdir} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to survive: %v", path, err)
		}
	}
}
