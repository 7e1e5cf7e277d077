package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"subextract/internal/logging"
	"subextract/internal/services"
)

const errorRetryInterval = 5 * time.Second

// Start reclaims jobs interrupted by a previous process and launches the
// worker lanes.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("workflow already running")
	}
	if c.runner == nil || c.messenger == nil {
		c.mu.Unlock()
		return errors.New("workflow runner and messenger are required")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.wg.Add(c.workers)
	c.mu.Unlock()

	c.reclaimInterrupted(runCtx)

	for i := 0; i < c.workers; i++ {
		lane := fmt.Sprintf("lane-%d", i+1)
		// Only the first lane sweeps stale heartbeats.
		go c.runLane(services.WithLane(runCtx, lane), c.logger.With(logging.String(logging.FieldLane, lane)), i == 0)
	}
	c.logger.Info("workflow started",
		logging.Int("workers", c.workers),
		logging.Duration("poll_interval", c.pollInterval),
		logging.Duration("job_timeout", c.jobTimeout),
		logging.String(logging.FieldEventType, "workflow_started"),
	)
	return nil
}

// Stop terminates background processing and waits for the lanes. Jobs that
// could not finish stay active until a later process sees their heartbeat go
// stale and fails them.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.running = false
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
	c.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stopped"))
}

// Running reports whether the lanes are active.
func (c *Coordinator) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

func (c *Coordinator) runLane(ctx context.Context, logger *slog.Logger, reclaimer bool) {
	defer c.wg.Done()

	// Start already swept once.
	lastReclaim := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// A graceful restart leaves the previous process's jobs with fresh
		// heartbeats, so Start alone cannot fail them.
		if reclaimer && time.Since(lastReclaim) >= c.heartbeat.heartbeatInterval {
			lastReclaim = time.Now()
			c.reclaimInterrupted(ctx)
		}

		job, err := c.store.ClaimNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.handleClaimError(ctx, logger, err)
			continue
		}
		if job == nil {
			c.waitForJobOrShutdown(ctx)
			continue
		}

		c.processJob(ctx, logger, job)
	}
}

func (c *Coordinator) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	c.setLastError(err)
	logging.ErrorWithContext(logger, "failed to claim next job", "queue_claim_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check job database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(errorRetryInterval):
	}
}

func (c *Coordinator) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-c.wakeCh:
	case <-time.After(c.pollInterval):
	}
}

func (c *Coordinator) reclaimInterrupted(ctx context.Context) {
	jobs, err := c.heartbeat.ReclaimInterrupted(ctx)
	if err != nil {
		logging.WarnWithContext(c.logger, "reclaiming interrupted jobs failed", "jobs_reclaim_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check job database access"),
			logging.String(logging.FieldImpact, "interrupted jobs stay active until the next restart"),
		)
		return
	}
	for _, job := range jobs {
		jobCtx := services.WithOwnerID(services.WithJobID(ctx, job.ID), job.OwnerID)
		c.discardUpload(logging.WithContext(jobCtx, c.logger), job)
		c.sendErrorNotice(jobCtx, logging.WithContext(jobCtx, c.logger), job,
			services.Wrap(services.ErrInterrupted, "workflow", "reclaim", "", nil))
	}
	if len(jobs) > 0 {
		if err := c.notifier.NotifyInterrupted(ctx, len(jobs)); err != nil {
			c.logger.Debug("interrupted job alert failed", logging.Error(err))
		}
	}
}
