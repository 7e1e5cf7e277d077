package daemon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"subextract/internal/config"
	"subextract/internal/daemon"
	"subextract/internal/extract"
	"subextract/internal/logging"
	"subextract/internal/queue"
	"subextract/internal/testsupport"
	"subextract/internal/workflow"
)

type fakeGateway struct {
	mu      sync.Mutex
	started int
	stopped int
}

func (g *fakeGateway) Start(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.started++
	return nil
}

func (g *fakeGateway) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped++
}

func (g *fakeGateway) Addr() string { return "127.0.0.1:7590" }

type failingRunner struct{}

func (failingRunner) Run(context.Context, string, extract.Hooks) (*extract.Result, error) {
	return nil, errors.New("no pipeline in daemon tests")
}

func newDaemon(t *testing.T, cfg *config.Config, opts ...daemon.Option) (*daemon.Daemon, *queue.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	coordinator := workflow.NewCoordinator(cfg, store, testsupport.NewFakeMessenger(), failingRunner{}, logging.NewNop())
	d, err := daemon.New(cfg, store, logging.NewNop(), coordinator, opts...)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, store
}

func readyConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return cfg
}

func TestDaemonStartStop(t *testing.T) {
	cfg := readyConfig(t)
	gateway := &fakeGateway{}
	d, _ := newDaemon(t, cfg, daemon.WithGateway(gateway))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running || !status.Workflow.Running {
		t.Fatalf("expected daemon and coordinator running, got %+v", status)
	}
	if status.GatewayAddr != "127.0.0.1:7590" || status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.PID != os.Getpid() {
		t.Fatalf("pid = %d", status.PID)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if gateway.started != 1 || gateway.stopped != 1 {
		t.Fatalf("gateway started=%d stopped=%d", gateway.started, gateway.stopped)
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := readyConfig(t)
	first, _ := newDaemon(t, cfg)

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second, err := daemon.New(cfg, testsupport.MustOpenStore(t, cfg), logging.NewNop(),
		workflow.NewCoordinator(cfg, testsupport.MustOpenStore(t, cfg), testsupport.NewFakeMessenger(), failingRunner{}, logging.NewNop()))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	err = second.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}
}

func TestDaemonStartFailsPreflight(t *testing.T) {
	cfg := readyConfig(t)
	d, _ := newDaemon(t, cfg)
	if err := os.RemoveAll(cfg.Paths.StagingDir); err != nil {
		t.Fatalf("remove staging: %v", err)
	}
	if err := os.WriteFile(cfg.Paths.StagingDir, []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	err := d.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "preflight failed") {
		t.Fatalf("expected preflight failure, got %v", err)
	}
	if d.Status(context.Background()).Running {
		t.Fatal("daemon should not be running")
	}
}

func TestShutdownClosesDone(t *testing.T) {
	cfg := readyConfig(t)
	d, _ := newDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	d.Shutdown()
	d.Shutdown()
	select {
	case <-d.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Shutdown")
	}
}

func TestSweepRemovesExpiredJobsAndStaleStaging(t *testing.T) {
	cfg := readyConfig(t)
	cfg.Retention.JobDays = 7
	cfg.Retention.StagingMaxAgeHours = 1
	d, store := newDaemon(t, cfg)
	ctx := context.Background()

	old := time.Now().Add(-30 * 24 * time.Hour)
	store.SetClock(func() time.Time { return old })
	expired := testsupport.NewJob(t, store, "alice")
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if ok, err := store.Finish(ctx, expired.ID, 2); err != nil || !ok {
		t.Fatalf("Finish: ok=%v err=%v", ok, err)
	}
	store.SetClock(time.Now)
	recent := testsupport.NewJob(t, store, "alice")

	staleDir := filepath.Join(cfg.Paths.StagingDir, "stale-job")
	if err := os.MkdirAll(staleDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	past := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(staleDir, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	freshDir := filepath.Join(cfg.Paths.StagingDir, "fresh-job")
	if err := os.MkdirAll(freshDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	result := d.Sweep(ctx)
	if result.RemovedJobs != 1 || result.RemovedStaging != 1 || result.Errors != 0 {
		t.Fatalf("unexpected sweep result %+v", result)
	}
	if job, _ := store.GetByID(ctx, expired.ID); job != nil {
		t.Fatal("expected expired job removed")
	}
	if job, _ := store.GetByID(ctx, recent.ID); job == nil {
		t.Fatal("expected recent job kept")
	}
	if _, err := os.Stat(staleDir); !os.IsNotExist(err) {
		t.Fatalf("expected stale dir removed, err=%v", err)
	}
	if _, err := os.Stat(freshDir); err != nil {
		t.Fatalf("expected fresh dir kept: %v", err)
	}
}

func TestSweepRemovesAbandonedUploads(t *testing.T) {
	cfg := readyConfig(t)
	cfg.Retention.JobDays = 0
	cfg.Retention.StagingMaxAgeHours = 1
	d, store := newDaemon(t, cfg)
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, queue.NewJob{OwnerID: "alice", TargetID: "alice", VideoRef: "upload:waiting.mp4"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	past := time.Now().Add(-3 * time.Hour)
	upload := func(name string, aged bool) string {
		path := filepath.Join(cfg.Paths.InboxDir, name)
		if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
			t.Fatalf("write upload: %v", err)
		}
		if aged {
			if err := os.Chtimes(path, past, past); err != nil {
				t.Fatalf("chtimes: %v", err)
			}
		}
		return path
	}
	waiting := upload("waiting.mp4", true)
	abandoned := upload("abandoned.mp4", true)
	fresh := upload("fresh.mp4", false)

	result := d.Sweep(ctx)
	if result.RemovedUploads != 1 || result.Errors != 0 {
		t.Fatalf("unexpected sweep result %+v", result)
	}
	if _, err := os.Stat(abandoned); !os.IsNotExist(err) {
		t.Fatalf("expected abandoned upload removed, err=%v", err)
	}
	for _, path := range []string{waiting, fresh} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
}

func TestStartRemovesOrphanedStaging(t *testing.T) {
	cfg := readyConfig(t)
	d, store := newDaemon(t, cfg)
	queued := testsupport.NewJob(t, store, "alice")

	keep := filepath.Join(cfg.Paths.StagingDir, queued.ID)
	orphan := filepath.Join(cfg.Paths.StagingDir, "gone-job")
	for _, dir := range []string{keep, orphan} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()

	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("expected orphan removed, err=%v", err)
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	cfg := readyConfig(t)
	cfg.Notifications.NtfyTopic = ""
	d, _ := newDaemon(t, cfg)

	sent, message, err := d.TestNotification(context.Background())
	if err != nil || sent || message != "ntfy topic not configured" {
		t.Fatalf("sent=%v message=%q err=%v", sent, message, err)
	}
}
