package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"subextract/internal/extract"
	"subextract/internal/logging"
	"subextract/internal/messaging"
	"subextract/internal/queue"
	"subextract/internal/services"
	"subextract/internal/staging"
)

const (
	persistTimeout         = 30 * time.Second
	progressWriteThrottle  = time.Second
	stageStaging           = "staging"
	stageDelivery          = "delivery"
	failureNoticeHeadline  = "Sorry, something went wrong."
	progressStageLabelDone = "Done"
)

// processJob runs one claimed job to a terminal state. Staging is removed on
// every exit path.
func (c *Coordinator) processJob(laneCtx context.Context, laneLogger *slog.Logger, job *queue.Job) {
	var (
		jobCtx context.Context
		cancel context.CancelFunc
	)
	if c.jobTimeout > 0 {
		jobCtx, cancel = context.WithTimeout(laneCtx, c.jobTimeout)
	} else {
		jobCtx, cancel = context.WithCancel(laneCtx)
	}
	defer cancel()
	jobCtx = services.WithOwnerID(services.WithJobID(jobCtx, job.ID), job.OwnerID)
	logger := logging.WithContext(jobCtx, laneLogger)

	c.trackJob(job.ID, cancel)
	defer c.untrackJob(job.ID)
	c.setLastJob(job)

	started := time.Now()
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("video_ref", job.VideoRef),
	)

	ws, err := staging.NewWorkspace(c.cfg.Paths.StagingDir, job.ID)
	if err != nil {
		c.failJob(laneCtx, logger, job, services.Wrap(services.ErrCritical, stageStaging, "create workspace", "", err))
		return
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			logging.WarnWithContext(logger, "staging cleanup failed", "staging_cleanup_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
				logging.String(logging.FieldImpact, "the stale staging sweep will retry"),
			)
		}
	}()

	var hbWG sync.WaitGroup
	hbCtx, hbCancel := context.WithCancel(jobCtx)
	hbWG.Add(1)
	go c.heartbeat.StartLoop(hbCtx, &hbWG, job.ID, cancel)

	result, runErr := c.runGuarded(jobCtx, logger, job, ws)
	hbCancel()
	hbWG.Wait()

	switch {
	case runErr == nil:
		c.finishJob(laneCtx, logger, job, result, started)
	case laneCtx.Err() != nil:
		logger.Info("job interrupted by shutdown",
			logging.String(logging.FieldEventType, "job_interrupted"),
			logging.Error(runErr),
		)
	case errors.Is(jobCtx.Err(), context.DeadlineExceeded):
		c.failJob(laneCtx, logger, job, services.Wrap(services.ErrTimeout, "workflow", "run",
			fmt.Sprintf("job exceeded %s", c.jobTimeout), runErr))
	case extract.IsCancellation(runErr):
		logger.Info("job stopped after cancellation",
			logging.String(logging.FieldEventType, "job_cancel_observed"),
			logging.Duration("elapsed", time.Since(started)),
		)
	default:
		c.failJob(laneCtx, logger, job, runErr)
	}
}

// runGuarded stages the video and runs the pipeline, converting panics into
// critical failures.
func (c *Coordinator) runGuarded(ctx context.Context, logger *slog.Logger, job *queue.Job, ws *staging.Workspace) (result *extract.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldEventType, "job_panic"),
			)
			result = nil
			err = services.Wrap(services.ErrCritical, "workflow", "run", fmt.Sprintf("panic: %v", r), nil)
		}
	}()

	ref, err := messaging.ParseRef(job.VideoRef)
	if err != nil {
		return nil, services.Wrap(services.ErrUnreadableMedia, stageStaging, "parse reference", "", err)
	}
	if _, err := c.store.UpdateProgress(ctx, job.ID, "staging video", 0, "Downloading video"); err != nil {
		logger.Debug("progress write failed", logging.Error(err))
	}
	source := ws.SourcePath(ref.Extension())
	size, err := c.messenger.DownloadVideo(ctx, job.VideoRef, source)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, services.ErrUnreadableMedia) {
			err = services.Wrap(services.ErrUnreadableMedia, stageStaging, "download", "", err)
		}
		return nil, err
	}
	resource, err := ws.Resource(source)
	if err != nil {
		return nil, services.Wrap(services.ErrUnreadableMedia, stageStaging, "stat source", "", err)
	}
	logger.Info("video staged",
		logging.String(logging.FieldEventType, "video_staged"),
		logging.Int64("bytes", size),
		logging.String("path", resource.Path),
	)

	result, err = c.runner.Run(ctx, resource.Path, extract.Hooks{Checkpoint: c.checkpointFor(job, logger)})
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(ws.OutputPath(), result.Document.Bytes(), 0o644); err != nil {
		return nil, services.Wrap(services.ErrCritical, "assembling subtitles", "write output", "", err)
	}
	return result, nil
}

// checkpointFor persists progress, pushes a chat update at each stage start
// and turns a stopped job into a cancellation error.
func (c *Coordinator) checkpointFor(job *queue.Job, logger *slog.Logger) func(context.Context, extract.Progress) error {
	var lastWrite time.Time
	return func(ctx context.Context, progress extract.Progress) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !progress.StageStart && time.Since(lastWrite) < progressWriteThrottle {
			return nil
		}
		lastWrite = time.Now()

		message := progress.Stage.Label()
		if progress.Detail != "" {
			message = fmt.Sprintf("%s: %s", message, progress.Detail)
		}
		active, err := c.store.UpdateProgress(ctx, job.ID, string(progress.Stage), progress.Percent, message)
		if err != nil {
			logging.WarnWithContext(logger, "progress write failed", "progress_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "status queries may show stale progress"),
			)
		} else if !active {
			return services.Wrap(services.ErrCancelled, string(progress.Stage), "checkpoint", "job is no longer active", nil)
		}

		if progress.StageStart {
			stageCtx := services.WithStage(ctx, string(progress.Stage))
			text := ProgressText(progress)
			if err := c.messenger.SendProgress(stageCtx, job.TargetID, text); err != nil {
				logging.WarnWithContext(logger, "progress delivery failed", "progress_delivery_failed",
					logging.Error(err),
					logging.String(logging.FieldStage, string(progress.Stage)),
					logging.String(logging.FieldImpact, "owner misses one progress update"),
				)
			}
			logger.Info("stage started",
				logging.String(logging.FieldEventType, "stage_start"),
				logging.String(logging.FieldStage, string(progress.Stage)),
				logging.Float64("percent", progress.Percent),
			)
		}
		return nil
	}
}

// ProgressText renders a stage checkpoint, e.g. "[40%] Recognizing text".
func ProgressText(progress extract.Progress) string {
	return fmt.Sprintf("[%.0f%%] %s", progress.Percent, progress.Stage.Label())
}

func (c *Coordinator) finishJob(laneCtx context.Context, logger *slog.Logger, job *queue.Job, result *extract.Result, started time.Time) {
	ctx, cancel := persistContext(laneCtx)
	defer cancel()

	cueCount := result.Document.Len()
	finished, err := c.store.Finish(ctx, job.ID, cueCount)
	if err != nil {
		c.setLastError(err)
		logging.ErrorWithContext(logger, "failed to persist job completion", "job_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check job database access"),
		)
		return
	}
	if !finished {
		logger.Info("job completed after cancellation; result discarded",
			logging.String(logging.FieldEventType, "job_result_discarded"),
		)
		return
	}
	if _, err := c.store.UpdateProgress(ctx, job.ID, progressStageLabelDone, 100, ""); err != nil {
		logger.Debug("final progress write failed", logging.Error(err))
	}

	logger.Info("job finished",
		logging.String(logging.FieldEventType, "job_finished"),
		logging.Int("cues", cueCount),
		logging.Int("frames", result.Stats.Frames),
		logging.Int("regions", result.Stats.Regions),
		logging.Duration("elapsed", time.Since(started)),
	)

	if err := c.messenger.SendDocument(ctx, job.TargetID, result.Document.Bytes(), staging.OutputFilename); err != nil {
		logging.WarnWithContext(logger, "document delivery failed", "document_delivery_failed",
			logging.Error(services.Wrap(services.ErrDelivery, stageDelivery, "send document", "", err)),
			logging.String(logging.FieldErrorHint, "check the gateway target"),
			logging.String(logging.FieldImpact, "owner did not receive subtitles"),
		)
	}
}

func (c *Coordinator) failJob(laneCtx context.Context, logger *slog.Logger, job *queue.Job, jobErr error) {
	ctx, cancel := persistContext(laneCtx)
	defer cancel()
	c.setLastError(jobErr)

	failed, err := c.store.Fail(ctx, job.ID, jobErr.Error())
	if err != nil {
		logging.ErrorWithContext(logger, "failed to persist job failure", "job_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check job database access"),
		)
		return
	}
	if !failed {
		logger.Info("job failed after leaving active state; failure not recorded",
			logging.String(logging.FieldEventType, "job_failure_discarded"),
			logging.Error(jobErr),
		)
		return
	}

	logger.Error("job failed",
		logging.String(logging.FieldEventType, "job_failed"),
		logging.Error(jobErr),
		logging.Bool("critical", services.IsCritical(jobErr)),
		logging.Alert("job_failure"),
	)
	c.sendErrorNotice(ctx, logger, job, jobErr)

	if services.IsCritical(jobErr) {
		if err := c.notifier.NotifyCriticalError(ctx, job.ID, jobErr); err != nil {
			logging.WarnWithContext(logger, "critical alert delivery failed", "alert_delivery_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
				logging.String(logging.FieldImpact, "operators were not alerted"),
			)
		}
	}
}

func (c *Coordinator) sendErrorNotice(ctx context.Context, logger *slog.Logger, job *queue.Job, jobErr error) {
	if err := c.messenger.SendErrorNotice(ctx, job.TargetID, FailureNotice(job.ShortID(), jobErr)); err != nil {
		logging.WarnWithContext(logger, "error notice delivery failed", "error_notice_delivery_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "owner was not told the job failed"),
		)
	}
}

// FailureNotice renders the user-facing failure message.
func FailureNotice(shortID string, err error) string {
	summary := services.Summary(err)
	if summary == "" {
		return fmt.Sprintf("%s\nJob %s failed.", failureNoticeHeadline, shortID)
	}
	return fmt.Sprintf("%s\nJob %s failed: %s.", failureNoticeHeadline, shortID, summary)
}

// persistContext detaches terminal writes from lane shutdown so a result
// that is already computed still reaches the store.
func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}
