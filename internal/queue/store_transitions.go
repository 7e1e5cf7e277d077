package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ClaimNext atomically moves the oldest queued job to active and returns it.
// It returns (nil, nil) when nothing is waiting.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	stamp := formatTime(s.now())
	var job *Job
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`UPDATE jobs
             SET status = ?, started_at = ?, heartbeat_at = ?, updated_at = ?
             WHERE id = (
                 SELECT id FROM jobs WHERE status = ? ORDER BY created_at, rowid LIMIT 1
             ) AND status = ?
             RETURNING `+jobColumns,
			string(StatusActive), stamp, stamp, stamp,
			string(StatusQueued), string(StatusQueued),
		)
		claimed, scanErr := scanJob(row)
		if errors.Is(scanErr, sql.ErrNoRows) {
			job = nil
			return nil
		}
		if scanErr != nil {
			return scanErr
		}
		job = claimed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim next job: %w", err)
	}
	return job, nil
}

// CompareAndSetStatus moves a job to next only if its current status is one of
// from. It reports whether the transition happened. Entering a terminal status
// stamps finished_at.
func (s *Store) CompareAndSetStatus(ctx context.Context, id string, next Status, from ...Status) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("compare and set: at least one source status is required")
	}
	stamp := formatTime(s.now())
	var finished any
	if next.IsTerminal() {
		finished = stamp
	}
	args := []any{string(next), stamp, finished, id}
	args = append(args, statusArgs(from)...)
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, updated_at = ?, finished_at = COALESCE(?, finished_at)
         WHERE id = ? AND status IN (`+makePlaceholders(len(from))+`)`,
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("compare and set status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("compare and set rows: %w", err)
	}
	return affected == 1, nil
}

// Finish marks an active job finished with the number of delivered cues.
func (s *Store) Finish(ctx context.Context, id string, cueCount int) (bool, error) {
	stamp := formatTime(s.now())
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs
         SET status = ?, cue_count = ?, progress_percent = 100, updated_at = ?, finished_at = ?
         WHERE id = ? AND status = ?`,
		string(StatusFinished), cueCount, stamp, stamp, id, string(StatusActive),
	)
	if err != nil {
		return false, fmt.Errorf("finish job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("finish job rows: %w", err)
	}
	return affected == 1, nil
}

// Fail marks a queued or active job failed and records the reason.
func (s *Store) Fail(ctx context.Context, id, message string) (bool, error) {
	stamp := formatTime(s.now())
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs
         SET status = ?, error_message = ?, updated_at = ?, finished_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		string(StatusFailed), nullableString(message), stamp, stamp,
		id, string(StatusQueued), string(StatusActive),
	)
	if err != nil {
		return false, fmt.Errorf("fail job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("fail job rows: %w", err)
	}
	return affected == 1, nil
}

// RequestCancel marks a queued or active job cancelled. Jobs that already
// reached an outcome are left untouched and reported as such.
func (s *Store) RequestCancel(ctx context.Context, id string) (CancelResult, error) {
	stamp := formatTime(s.now())
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs
         SET status = ?, cancel_requested = 1, updated_at = ?, finished_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		string(StatusCancelled), stamp, stamp,
		id, string(StatusQueued), string(StatusActive),
	)
	if err != nil {
		return "", fmt.Errorf("request cancel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("request cancel rows: %w", err)
	}
	if affected == 1 {
		return CancelApplied, nil
	}

	job, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	switch {
	case job == nil:
		return CancelMissing, nil
	case job.Status == StatusCancelled:
		return CancelAlreadyCancelled, nil
	default:
		return CancelAlreadyComplete, nil
	}
}

// UpdateProgress records stage progress for an active job. It reports false
// when the job is no longer active, which callers treat as a stop signal.
func (s *Store) UpdateProgress(ctx context.Context, id, stage string, percent float64, message string) (bool, error) {
	percent = max(0, min(percent, 100))
	stamp := formatTime(s.now())
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs
         SET progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ?, heartbeat_at = ?
         WHERE id = ? AND status = ?`,
		nullableString(stage), percent, nullableString(message), stamp, stamp,
		id, string(StatusActive),
	)
	if err != nil {
		return false, fmt.Errorf("update progress: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update progress rows: %w", err)
	}
	return affected == 1, nil
}

// UpdateHeartbeat refreshes the liveness timestamp of an active job. It
// reports false once the job has left the active state.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) (bool, error) {
	stamp := formatTime(s.now())
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET heartbeat_at = ? WHERE id = ? AND status = ?`,
		stamp, id, string(StatusActive),
	)
	if err != nil {
		return false, fmt.Errorf("update heartbeat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update heartbeat rows: %w", err)
	}
	return affected == 1, nil
}

// ReclaimInterrupted fails active jobs whose heartbeat is older than cutoff
// (or missing) and returns them so owners can be told.
func (s *Store) ReclaimInterrupted(ctx context.Context, cutoff time.Time, reason string) ([]*Job, error) {
	ctx = ensureContext(ctx)
	cutoffStamp := formatTime(cutoff)
	stamp := formatTime(s.now())
	var jobs []*Job
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx,
			`UPDATE jobs
             SET status = ?, error_message = ?, updated_at = ?, finished_at = ?
             WHERE status = ? AND (heartbeat_at IS NULL OR heartbeat_at < ?)
             RETURNING `+jobColumns,
			string(StatusFailed), nullableString(reason), stamp, stamp,
			string(StatusActive), cutoffStamp,
		)
		if err != nil {
			return err
		}
		jobs, err = scanJobs(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reclaim interrupted jobs: %w", err)
	}
	return jobs, nil
}
