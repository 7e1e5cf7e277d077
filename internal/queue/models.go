package queue

import (
	"strings"
	"time"
)

// Status represents a job lifecycle state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusActive    Status = "active"
	StatusFinished  Status = "finished"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{
	StatusQueued,
	StatusActive,
	StatusFinished,
	StatusFailed,
	StatusCancelled,
}

// ShortIDLength is the number of leading id characters shown to end users.
const ShortIDLength = 8

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a user-supplied string into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsComplete reports whether the job ran to an outcome (finished or failed).
// Cancelled jobs are terminal but not complete.
func (s Status) IsComplete() bool {
	return s == StatusFinished || s == StatusFailed
}

// Job is one submitted conversion request.
type Job struct {
	ID              string
	OwnerID         string
	TargetID        string
	VideoRef        string
	Status          Status
	CancelRequested bool
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	ErrorMessage    string
	CueCount        int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
	FinishedAt      *time.Time
	HeartbeatAt     *time.Time
}

// ShortID returns the id prefix shown to end users.
func (j *Job) ShortID() string {
	if j == nil {
		return ""
	}
	return ShortID(j.ID)
}

// ShortID truncates a job id to the user-facing prefix length.
func ShortID(id string) string {
	if len(id) <= ShortIDLength {
		return id
	}
	return id[:ShortIDLength]
}

// CancelResult describes what RequestCancel did for one job.
type CancelResult string

const (
	CancelApplied          CancelResult = "cancelled"
	CancelAlreadyComplete  CancelResult = "already_complete"
	CancelAlreadyCancelled CancelResult = "already_cancelled"
	CancelMissing          CancelResult = "not_found"
)

// HealthSummary aggregates job counts for diagnostics.
type HealthSummary struct {
	Total     int
	Queued    int
	Active    int
	Finished  int
	Failed    int
	Cancelled int
}
