package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"subextract/internal/logging"
	"subextract/internal/messaging"
	"subextract/internal/queue"
	"subextract/internal/services"
)

// Submission is one conversion request.
type Submission struct {
	VideoRef string
	OwnerID  string
	// TargetID defaults to OwnerID.
	TargetID string
}

// JobStatus is the caller-facing view of a job.
type JobStatus struct {
	ID              string       `json:"id"`
	ShortID         string       `json:"short_id"`
	Status          queue.Status `json:"status"`
	Stage           string       `json:"stage,omitempty"`
	ProgressPercent float64      `json:"progress_percent"`
	Message         string       `json:"message,omitempty"`
	Error           string       `json:"error,omitempty"`
	CueCount        int          `json:"cue_count"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Line renders the status as one chat line.
func (s JobStatus) Line() string {
	switch s.Status {
	case queue.StatusActive:
		if s.Stage != "" {
			return fmt.Sprintf("%s: %s (%.0f%% %s)", s.ShortID, s.Status, s.ProgressPercent, s.Stage)
		}
	case queue.StatusFinished:
		return fmt.Sprintf("%s: %s (%d cues)", s.ShortID, s.Status, s.CueCount)
	case queue.StatusFailed:
		if s.Error != "" {
			return fmt.Sprintf("%s: %s (%s)", s.ShortID, s.Status, s.Error)
		}
	}
	return fmt.Sprintf("%s: %s", s.ShortID, s.Status)
}

// StatusFromJob converts a stored job.
func StatusFromJob(job *queue.Job) JobStatus {
	return JobStatus{
		ID:              job.ID,
		ShortID:         job.ShortID(),
		Status:          job.Status,
		Stage:           job.ProgressStage,
		ProgressPercent: job.ProgressPercent,
		Message:         job.ProgressMessage,
		Error:           job.ErrorMessage,
		CueCount:        job.CueCount,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	}
}

// CancelOutcome is the result of cancelling one job.
type CancelOutcome struct {
	JobID   string             `json:"job_id"`
	ShortID string             `json:"short_id"`
	Result  queue.CancelResult `json:"result"`
}

// CancelReport collects per-job outcomes. NotFound is set when the prefix
// matched nothing.
type CancelReport struct {
	Outcomes []CancelOutcome `json:"outcomes"`
	NotFound bool            `json:"not_found"`
}

// Submit validates and persists a submission and wakes an idle lane. It
// never waits for the pipeline.
func (c *Coordinator) Submit(ctx context.Context, sub Submission) (*queue.Job, error) {
	owner := strings.TrimSpace(sub.OwnerID)
	if owner == "" {
		return nil, services.Wrap(services.ErrValidation, "submit", "validate", "owner id is required", nil)
	}
	if _, err := messaging.ParseRef(sub.VideoRef); err != nil {
		return nil, services.Wrap(services.ErrValidation, "submit", "validate", "invalid video reference", err)
	}

	job, err := c.store.Enqueue(ctx, queue.NewJob{
		ID:       c.newID(),
		OwnerID:  owner,
		TargetID: sub.TargetID,
		VideoRef: sub.VideoRef,
	})
	if err != nil {
		return nil, fmt.Errorf("submit job: %w", err)
	}

	ctx = services.WithOwnerID(services.WithJobID(ctx, job.ID), owner)
	logging.WithContext(ctx, c.logger).Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.String("target_id", job.TargetID),
	)
	c.wake()
	return job, nil
}

// Status returns every job owned by ownerID whose id starts with prefix,
// newest first. No match yields an empty slice.
func (c *Coordinator) Status(ctx context.Context, ownerID, prefix string) ([]JobStatus, error) {
	jobs, err := c.store.FindByPrefix(ctx, strings.TrimSpace(ownerID), strings.TrimSpace(prefix))
	if err != nil {
		return nil, fmt.Errorf("job status: %w", err)
	}
	out := make([]JobStatus, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, StatusFromJob(job))
	}
	return out, nil
}

// Cancel requests cancellation of every job owned by ownerID whose id
// starts with prefix. A job this coordinator is running is stopped at its
// next checkpoint, and the owner receives one cancellation notice per job
// actually cancelled.
func (c *Coordinator) Cancel(ctx context.Context, ownerID, prefix string) (CancelReport, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return CancelReport{}, services.Wrap(services.ErrValidation, "cancel", "validate", "job id prefix is required", nil)
	}
	jobs, err := c.store.FindByPrefix(ctx, strings.TrimSpace(ownerID), prefix)
	if err != nil {
		return CancelReport{}, fmt.Errorf("cancel lookup: %w", err)
	}
	if len(jobs) == 0 {
		return CancelReport{NotFound: true}, nil
	}

	report := CancelReport{Outcomes: make([]CancelOutcome, 0, len(jobs))}
	for _, job := range jobs {
		result, err := c.store.RequestCancel(ctx, job.ID)
		if err != nil {
			return report, fmt.Errorf("cancel job %s: %w", job.ShortID(), err)
		}
		report.Outcomes = append(report.Outcomes, CancelOutcome{JobID: job.ID, ShortID: job.ShortID(), Result: result})
		if result != queue.CancelApplied {
			continue
		}

		jobCtx := services.WithOwnerID(services.WithJobID(ctx, job.ID), job.OwnerID)
		logger := logging.WithContext(jobCtx, c.logger)
		local := c.stopLocal(job.ID)
		logger.Info("job cancelled",
			logging.String(logging.FieldEventType, "job_cancelled"),
			logging.String("previous_status", string(job.Status)),
			logging.Bool("was_running_locally", local),
		)
		c.discardUpload(logger, job)
		if err := c.messenger.SendProgress(jobCtx, job.TargetID, CancelledNotice(job.ShortID())); err != nil {
			logging.WarnWithContext(logger, "cancellation notice delivery failed", "progress_delivery_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "owner was not told the job was cancelled"),
			)
		}
	}
	return report, nil
}

// CancelledNotice is the message sent when a job is cancelled.
func CancelledNotice(shortID string) string {
	return fmt.Sprintf("Job %s was cancelled.", shortID)
}

// discardUpload drops an uploaded video the job will never stage. When a
// lane is mid-download the file may already be gone, which is fine.
func (c *Coordinator) discardUpload(logger *slog.Logger, job *queue.Job) {
	discarder, ok := c.messenger.(messaging.UploadDiscarder)
	if !ok {
		return
	}
	if err := discarder.DiscardUpload(job.VideoRef); err != nil {
		logging.WarnWithContext(logger, "failed to discard uploaded video", "upload_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check inbox_dir permissions"),
			logging.String(logging.FieldImpact, "upload stays until the inbox sweep removes it"),
		)
	}
}
