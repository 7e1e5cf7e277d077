package daemon

import (
	"context"
	"time"

	"subextract/internal/logging"
	"subextract/internal/messaging"
	"subextract/internal/queue"
	"subextract/internal/staging"
)

// SweepResult summarizes one housekeeping pass.
type SweepResult struct {
	RemovedJobs    int64
	RemovedStaging int
	RemovedUploads int
	Errors         int
}

func (d *Daemon) sweepInterval() time.Duration {
	minutes := d.cfg.Retention.SweepIntervalMinutes
	if minutes <= 0 {
		minutes = 60
	}
	return time.Duration(minutes) * time.Minute
}

func (d *Daemon) sweepLoop(ctx context.Context) {
	d.Sweep(ctx)

	ticker := time.NewTicker(d.sweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Sweep(ctx)
		}
	}
}

// Sweep deletes terminal jobs past retention.job_days, staging directories
// older than retention.staging_max_age_hours that no running job owns, and
// inbox uploads of the same age that no pending job references.
func (d *Daemon) Sweep(ctx context.Context) SweepResult {
	var result SweepResult

	if days := d.cfg.Retention.JobDays; days > 0 {
		cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
		removed, err := d.store.RemoveTerminalBefore(ctx, cutoff)
		if err != nil {
			result.Errors++
			logging.WarnWithContext(d.logger, "job retention sweep failed", "retention_sweep_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "expired jobs remain in the store"),
			)
		}
		result.RemovedJobs = removed
	}

	if hours := d.cfg.Retention.StagingMaxAgeHours; hours > 0 {
		stale := staging.CleanStale(ctx, d.cfg.Paths.StagingDir, time.Duration(hours)*time.Hour, d.coordinator.ActiveJobIDs(), d.logger)
		result.RemovedStaging = len(stale.Removed)
		result.Errors += len(stale.Errors)

		pending, err := d.pendingUploads(ctx)
		if err != nil {
			result.Errors++
			logging.WarnWithContext(d.logger, "inbox sweep skipped", "staging_cleanup_failed",
				logging.Error(err),
			)
		} else {
			// Uploads normally leave the inbox when a lane stages them. What
			// remains here belongs to jobs that ended first.
			abandoned := staging.CleanInbox(ctx, d.cfg.Paths.InboxDir, time.Duration(hours)*time.Hour, pending, d.logger)
			result.RemovedUploads = len(abandoned.Removed)
			result.Errors += len(abandoned.Errors)
		}
	}

	if result.RemovedJobs > 0 || result.RemovedStaging > 0 || result.RemovedUploads > 0 || result.Errors > 0 {
		d.logger.Info("housekeeping sweep finished",
			logging.String(logging.FieldEventType, "housekeeping_sweep"),
			logging.Int64("removed_jobs", result.RemovedJobs),
			logging.Int("removed_staging", result.RemovedStaging),
			logging.Int("removed_uploads", result.RemovedUploads),
			logging.Int("errors", result.Errors),
		)
	}
	return result
}

func (d *Daemon) pendingUploads(ctx context.Context) (map[string]struct{}, error) {
	jobs, err := d.store.List(ctx, queue.StatusQueued, queue.StatusActive)
	if err != nil {
		return nil, err
	}
	pending := make(map[string]struct{})
	for _, job := range jobs {
		if token, ok := messaging.UploadToken(job.VideoRef); ok {
			pending[token] = struct{}{}
		}
	}
	return pending, nil
}

// sweepOrphans runs before the lanes start, so every live workspace belongs
// to a queued or active job.
func (d *Daemon) sweepOrphans(ctx context.Context) {
	jobs, err := d.store.List(ctx, queue.StatusQueued, queue.StatusActive)
	if err != nil {
		logging.WarnWithContext(d.logger, "orphan staging sweep skipped", "staging_cleanup_failed",
			logging.Error(err),
		)
		return
	}
	known := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		known[job.ID] = struct{}{}
	}
	staging.CleanOrphaned(ctx, d.cfg.Paths.StagingDir, known, d.logger)
}
