package workflow

import (
	"context"

	"subextract/internal/logging"
	"subextract/internal/queue"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool
	Workers    int
	InFlight   int
	LastError  string
	LastJob    *queue.Job
	QueueStats map[queue.Status]int
}

// Summary returns the latest workflow information.
func (c *Coordinator) Summary(ctx context.Context) StatusSummary {
	c.mu.RLock()
	running := c.running
	inflight := len(c.inflight)
	lastErr := c.lastErr
	lastJob := c.lastJob
	c.mu.RUnlock()

	stats, err := c.store.Stats(ctx)
	if err != nil {
		c.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	summary := StatusSummary{
		Running:    running,
		Workers:    c.workers,
		InFlight:   inflight,
		QueueStats: stats,
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		copy := *lastJob
		summary.LastJob = &copy
	}
	return summary
}

func (c *Coordinator) setLastError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Coordinator) setLastJob(job *queue.Job) {
	c.mu.Lock()
	if job != nil {
		copy := *job
		c.lastJob = &copy
	} else {
		c.lastJob = nil
	}
	c.mu.Unlock()
}
