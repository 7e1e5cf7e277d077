package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"subextract/internal/daemonctl"
	"subextract/internal/testsupport"
)

func TestStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewJob(t, store, "alice")
	testsupport.NewJob(t, store, "bob")

	snapshot, err := daemonctl.StatusSnapshot(context.Background(), cfg.Paths.SocketPath, cfg)
	if err != nil {
		t.Fatalf("StatusSnapshot: %v", err)
	}
	if snapshot.Running {
		t.Fatal("offline snapshot must not report running")
	}
	if snapshot.QueueStats["queued"] != 2 || snapshot.QueueStats["finished"] != 0 {
		t.Fatalf("unexpected queue stats %v", snapshot.QueueStats)
	}
	if len(snapshot.Dependencies) != 3 {
		t.Fatalf("expected dependency fallback, got %d entries", len(snapshot.Dependencies))
	}
}

func TestStatusSnapshotWithoutDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	snapshot, err := daemonctl.StatusSnapshot(context.Background(), cfg.Paths.SocketPath, cfg)
	if err != nil {
		t.Fatalf("StatusSnapshot: %v", err)
	}
	if len(snapshot.QueueStats) != 0 {
		t.Fatalf("expected empty stats, got %v", snapshot.QueueStats)
	}
	if _, err := os.Stat(cfg.DatabasePath()); !os.IsNotExist(err) {
		t.Fatalf("snapshot must not create the database, err=%v", err)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := daemonctl.StopAndTerminate(cfg.Paths.SocketPath, cfg, 0)
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestForceKillProcessRefusesSelf(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "subextractd.pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := daemonctl.ForceKillProcess(pidPath, "", 0); err == nil {
		t.Fatal("expected refusal to kill the current process")
	}
	if _, err := daemonctl.ForceKillProcess(filepath.Join(dir, "missing.pid"), "", 0); err == nil {
		t.Fatal("expected error without a pid")
	}
}
