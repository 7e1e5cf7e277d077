package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"subextract/internal/config"
	"subextract/internal/extract"
	"subextract/internal/logging"
	"subextract/internal/messaging"
	"subextract/internal/notifications"
	"subextract/internal/queue"
)

// Runner executes the extraction pipeline for one staged video.
type Runner interface {
	Run(ctx context.Context, path string, hooks extract.Hooks) (*extract.Result, error)
}

// Coordinator owns job identity, status, cancellation and the worker lanes.
type Coordinator struct {
	cfg       *config.Config
	store     *queue.Store
	messenger messaging.Messenger
	runner    Runner
	notifier  notifications.Service
	logger    *slog.Logger

	workers      int
	pollInterval time.Duration
	jobTimeout   time.Duration
	heartbeat    *HeartbeatMonitor
	newID        func() string
	wakeCh       chan struct{}

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inflight map[string]context.CancelFunc
	lastErr  error
	lastJob  *queue.Job
}

// Option configures optional Coordinator behavior.
type Option func(*Coordinator)

// WithNotifier overrides the admin alert service.
func WithNotifier(notifier notifications.Service) Option {
	return func(c *Coordinator) {
		if notifier != nil {
			c.notifier = notifier
		}
	}
}

// WithIDGenerator overrides job id allocation.
func WithIDGenerator(fn func() string) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithJobTimeout overrides workflow.job_timeout.
func WithJobTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.jobTimeout = d
	}
}

// NewCoordinator constructs a coordinator. Lanes do not run until Start.
func NewCoordinator(cfg *config.Config, store *queue.Store, messenger messaging.Messenger, runner Runner, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "workflow")
	workers := cfg.Workflow.MaxWorkers
	if workers <= 0 {
		workers = 1
	}
	c := &Coordinator{
		cfg:          cfg,
		store:        store,
		messenger:    messenger,
		runner:       runner,
		notifier:     notifications.NewService(cfg),
		logger:       logger,
		workers:      workers,
		pollInterval: cfg.QueuePollInterval(),
		jobTimeout:   cfg.JobTimeout(),
		heartbeat:    NewHeartbeatMonitor(store, logger, cfg.HeartbeatInterval(), cfg.HeartbeatTimeout()),
		newID:        uuid.NewString,
		wakeCh:       make(chan struct{}, 1),
		inflight:     make(map[string]context.CancelFunc),
	}
	if c.pollInterval <= 0 {
		c.pollInterval = time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) wake() {
	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}

func (c *Coordinator) trackJob(id string, cancel context.CancelFunc) {
	c.mu.Lock()
	c.inflight[id] = cancel
	c.mu.Unlock()
}

func (c *Coordinator) untrackJob(id string) {
	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
}

// stopLocal cancels the job context of an in-flight job. It reports whether
// the job was running in this process.
func (c *Coordinator) stopLocal(id string) bool {
	c.mu.RLock()
	cancel, ok := c.inflight[id]
	c.mu.RUnlock()
	if ok {
		cancel()
	}
	return ok
}

// ActiveJobIDs returns the ids of jobs currently running in this process.
func (c *Coordinator) ActiveJobIDs() map[string]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make(map[string]struct{}, len(c.inflight))
	for id := range c.inflight {
		ids[id] = struct{}{}
	}
	return ids
}
