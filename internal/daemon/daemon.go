package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"subextract/internal/config"
	"subextract/internal/deps"
	"subextract/internal/logging"
	"subextract/internal/notifications"
	"subextract/internal/preflight"
	"subextract/internal/queue"
	"subextract/internal/workflow"
)

// Gateway is the network surface the daemon starts alongside the lanes.
type Gateway interface {
	Start(ctx context.Context) error
	Stop()
	Addr() string
}

// Daemon coordinates the background services and enforces single-instance execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *queue.Store
	coordinator *workflow.Coordinator
	gateway     Gateway
	notifier    notifications.Service

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	done     chan struct{}
	doneOnce sync.Once
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	GatewayAddr  string
	Dependencies []deps.Status
}

// Option configures optional daemon collaborators.
type Option func(*Daemon)

// WithGateway starts gw with the daemon.
func WithGateway(gw Gateway) Option {
	return func(d *Daemon) {
		d.gateway = gw
	}
}

// WithNotifier overrides the admin alert service.
func WithNotifier(notifier notifications.Service) Option {
	return func(d *Daemon) {
		if notifier != nil {
			d.notifier = notifier
		}
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, coordinator *workflow.Coordinator, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || coordinator == nil {
		return nil, errors.New("daemon requires config, store, and coordinator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		store:       store,
		coordinator: coordinator,
		notifier:    notifications.NewService(cfg),
		lockPath:    cfg.LockPath(),
		lock:        flock.New(cfg.LockPath()),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start runs preflight checks, acquires the daemon lock and launches the
// coordinator, the gateway and the housekeeping loop.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if failed := preflight.Failed(preflight.RunAll(ctx, d.cfg)); len(failed) > 0 {
		details := make([]string, 0, len(failed))
		for _, check := range failed {
			details = append(details, check.Name+": "+check.Detail)
		}
		return fmt.Errorf("preflight failed: %s", strings.Join(details, "; "))
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another subextract daemon instance is already running")
	}

	d.sweepOrphans(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.coordinator.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start coordinator: %w", err)
	}
	if d.gateway != nil {
		if err := d.gateway.Start(runCtx); err != nil {
			cancel()
			d.coordinator.Stop()
			_ = d.lock.Unlock()
			return fmt.Errorf("start gateway: %w", err)
		}
	}

	d.cancel = cancel
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sweepLoop(runCtx)
	}()

	d.running.Store(true)
	d.logger.Info("subextract daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.String("gateway", d.gatewayAddr()),
	)
	if err := d.notifier.NotifyDaemonStarted(ctx, d.cfg.Workflow.MaxWorkers); err != nil {
		logging.WarnWithContext(d.logger, "startup notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "admin not told about the restart"),
		)
	}
	return nil
}

// Stop stops background processing and releases the daemon lock. Jobs still
// running stay active in the store and are reclaimed on the next start.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.gateway != nil {
		d.gateway.Stop()
	}
	d.coordinator.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file if the next start fails"),
		)
	}
	d.running.Store(false)
	d.logger.Info("subextract daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Shutdown stops the daemon and signals Done so the hosting process exits.
func (d *Daemon) Shutdown() {
	d.Stop()
	d.doneOnce.Do(func() { close(d.done) })
}

// Done is closed once Shutdown has been requested.
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.coordinator.Summary(ctx),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		GatewayAddr:  d.gatewayAddr(),
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
	}
}

func (d *Daemon) gatewayAddr() string {
	if d.gateway == nil {
		return ""
	}
	return d.gateway.Addr()
}
