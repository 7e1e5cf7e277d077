package ipc

import (
	"subextract/internal/deps"
	"subextract/internal/workflow"
)

// SubmitRequest enqueues a video for an owner.
type SubmitRequest struct {
	VideoRef string `json:"video_ref"`
	OwnerID  string `json:"owner_id"`
	TargetID string `json:"target_id"`
}

// SubmitResponse describes the accepted job.
type SubmitResponse struct {
	Job workflow.JobStatus `json:"job"`
}

// JobStatusRequest looks up an owner's jobs by id prefix.
type JobStatusRequest struct {
	OwnerID string `json:"owner_id"`
	Prefix  string `json:"prefix"`
}

// JobStatusResponse lists matching jobs, newest first.
type JobStatusResponse struct {
	Jobs []workflow.JobStatus `json:"jobs"`
}

// CancelRequest cancels an owner's jobs by id prefix.
type CancelRequest struct {
	OwnerID string `json:"owner_id"`
	Prefix  string `json:"prefix"`
}

// CancelResponse carries per-job outcomes.
type CancelResponse struct {
	Report workflow.CancelReport `json:"report"`
}

// ListRequest filters the job listing by status.
type ListRequest struct {
	Statuses []string `json:"statuses"`
}

// ListResponse contains jobs across owners, oldest first.
type ListResponse struct {
	Jobs []workflow.JobStatus `json:"jobs"`
}

// StatsRequest fetches daemon status.
type StatsRequest struct{}

// StatsResponse represents combined daemon and coordinator status.
type StatsResponse struct {
	Running      bool                `json:"running"`
	PID          int                 `json:"pid"`
	Workers      int                 `json:"workers"`
	InFlight     int                 `json:"in_flight"`
	QueueStats   map[string]int      `json:"queue_stats"`
	LastError    string              `json:"last_error"`
	LastJob      *workflow.JobStatus `json:"last_job"`
	LockPath     string              `json:"lock_path"`
	QueueDBPath  string              `json:"queue_db_path"`
	GatewayAddr  string              `json:"gateway_addr"`
	Dependencies []deps.Status       `json:"dependencies"`
}

// HealthRequest fetches database diagnostics.
type HealthRequest struct{}

// HealthResponse reports job database health.
type HealthResponse struct {
	DBPath         string `json:"db_path"`
	DatabaseExists bool   `json:"database_exists"`
	Readable       bool   `json:"readable"`
	IntegrityOK    bool   `json:"integrity_ok"`
	TotalJobs      int    `json:"total_jobs"`
	Error          string `json:"error,omitempty"`
}

// StopRequest asks the daemon to shut down.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// TestNotificationRequest triggers an ntfy test message.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the notification attempt.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
