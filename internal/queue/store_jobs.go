package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewJob describes a submission to persist.
type NewJob struct {
	// ID is generated when empty.
	ID       string
	OwnerID  string
	TargetID string
	VideoRef string
}

// Enqueue inserts a job in the queued state.
func (s *Store) Enqueue(ctx context.Context, req NewJob) (*Job, error) {
	owner := strings.TrimSpace(req.OwnerID)
	if owner == "" {
		return nil, errors.New("enqueue: owner id is required")
	}
	ref := strings.TrimSpace(req.VideoRef)
	if ref == "" {
		return nil, errors.New("enqueue: video reference is required")
	}
	target := strings.TrimSpace(req.TargetID)
	if target == "" {
		target = owner
	}

	id := strings.ToLower(strings.TrimSpace(req.ID))
	if id == "" {
		id = uuid.NewString()
	}

	now := s.now()
	job := &Job{
		ID:        id,
		OwnerID:   owner,
		TargetID:  target,
		VideoRef:  ref,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	stamp := formatTime(now)
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (id, owner_id, target_id, video_ref, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.OwnerID, job.TargetID, job.VideoRef, string(job.Status), stamp, stamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetByID fetches a job by its full id. It returns (nil, nil) when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindByPrefix returns the owner's jobs whose id starts with prefix, newest
// first. An empty prefix matches every job the owner has. Jobs belonging to
// other owners are never returned.
func (s *Store) FindByPrefix(ctx context.Context, ownerID, prefix string) ([]*Job, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs
         WHERE owner_id = ? AND substr(id, 1, length(?)) = ?
         ORDER BY created_at DESC, rowid DESC`,
		ownerID, prefix, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("find jobs by prefix: %w", err)
	}
	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, fmt.Errorf("scan jobs: %w", err)
	}
	return jobs, nil
}

// List returns jobs filtered by status, oldest first. No statuses means all.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		args = statusArgs(statuses)
	}
	query += ` ORDER BY created_at, rowid`
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, fmt.Errorf("scan jobs: %w", err)
	}
	return jobs, nil
}

// ActiveCountForOwner reports how many of the owner's jobs are queued or active.
func (s *Store) ActiveCountForOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM jobs WHERE owner_id = ? AND status IN (?, ?)`,
		ownerID, string(StatusQueued), string(StatusActive),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count owner jobs: %w", err)
	}
	return count, nil
}
