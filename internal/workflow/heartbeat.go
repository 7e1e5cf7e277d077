package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"subextract/internal/logging"
	"subextract/internal/queue"
)

// interruptedReason is stored on jobs failed by ReclaimInterrupted.
const interruptedReason = "interrupted: the service restarted while this job was running"

// HeartbeatMonitor manages job heartbeats and interrupted job reclamation.
type HeartbeatMonitor struct {
	store             *queue.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &HeartbeatMonitor{
		store:             store,
		logger:            logger,
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// ReclaimInterrupted fails active jobs whose heartbeat went stale. Jobs run by
// this process refresh their heartbeat every interval, so only jobs left
// behind by an earlier process qualify.
func (h *HeartbeatMonitor) ReclaimInterrupted(ctx context.Context) ([]*queue.Job, error) {
	if h.heartbeatTimeout <= 0 {
		return nil, nil
	}
	cutoff := time.Now().Add(-h.heartbeatTimeout)
	jobs, err := h.store.ReclaimInterrupted(ctx, cutoff, interruptedReason)
	if err != nil {
		return nil, err
	}
	if len(jobs) > 0 {
		h.logger.Info("reclaimed interrupted jobs",
			logging.Int("count", len(jobs)),
			logging.String(logging.FieldEventType, "jobs_reclaimed"),
		)
	}
	return jobs, nil
}

// StartLoop refreshes the job heartbeat until ctx ends. When the store
// reports the job is no longer active, onStop is called once and the loop
// exits.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, jobID string, onStop func()) {
	defer wg.Done()
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger.With(logging.String("component", "workflow-heartbeat")))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			active, err := h.store.UpdateHeartbeat(ctx, jobID)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Debug("heartbeat update cancelled")
					return
				}
				logger.Warn("heartbeat update failed", logging.Error(err))
				continue
			}
			if !active {
				logger.Info("job left active state; stopping run",
					logging.String(logging.FieldEventType, "job_stop_observed"),
				)
				if onStop != nil {
					onStop()
				}
				return
			}
		}
	}
}
