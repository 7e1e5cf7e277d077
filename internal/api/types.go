package api

import (
	"subextract/internal/messaging"
	"subextract/internal/workflow"
)

// SubmitRequest is the JSON body for POST /api/jobs.
type SubmitRequest struct {
	VideoURL string `json:"video_url"`
}

// SubmitResponse acknowledges an accepted job.
type SubmitResponse struct {
	JobID   string `json:"job_id"`
	ShortID string `json:"short_id"`
	Status  string `json:"status"`
}

// JobListResponse answers GET /api/jobs.
type JobListResponse struct {
	Jobs []workflow.JobStatus `json:"jobs"`
}

// CommandRequest is the JSON body for POST /api/commands.
type CommandRequest struct {
	Text string `json:"text"`
}

// CommandResponse carries the bot reply.
type CommandResponse struct {
	Reply string `json:"reply"`
}

// EventsResponse answers GET /api/targets/:target/events. Next is the
// since value for the following poll.
type EventsResponse struct {
	Events []messaging.Event `json:"events"`
	Next   uint64            `json:"next"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
