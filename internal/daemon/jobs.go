package daemon

import (
	"context"
	"errors"
	"strings"

	"subextract/internal/queue"
	"subextract/internal/workflow"
)

// Submit forwards a submission to the coordinator.
func (d *Daemon) Submit(ctx context.Context, sub workflow.Submission) (*queue.Job, error) {
	return d.coordinator.Submit(ctx, sub)
}

// JobStatus returns jobs owned by ownerID matching prefix.
func (d *Daemon) JobStatus(ctx context.Context, ownerID, prefix string) ([]workflow.JobStatus, error) {
	return d.coordinator.Status(ctx, ownerID, prefix)
}

// Cancel cancels jobs owned by ownerID matching prefix.
func (d *Daemon) Cancel(ctx context.Context, ownerID, prefix string) (workflow.CancelReport, error) {
	return d.coordinator.Cancel(ctx, ownerID, prefix)
}

// ListJobs returns jobs across owners, optionally filtered by status.
func (d *Daemon) ListJobs(ctx context.Context, statuses []queue.Status) ([]workflow.JobStatus, error) {
	jobs, err := d.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	out := make([]workflow.JobStatus, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, workflow.StatusFromJob(job))
	}
	return out, nil
}

// QueueHealth returns aggregate job counts.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
