package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"subextract/internal/queue"
)

var (
	ErrUnreadableMedia = errors.New("unreadable media")
	ErrRecognition     = errors.New("recognition failure")
	ErrDelivery        = errors.New("delivery failure")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyTerminal = errors.New("already complete")
	ErrCancelled       = errors.New("cancelled")
	ErrExternalTool    = errors.New("external tool error")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrTimeout         = errors.New("timeout")
	ErrCritical        = errors.New("critical")
	ErrTransient       = errors.New("transient failure")
	ErrInterrupted     = errors.New("interrupted")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Critical tags err so the coordinator raises an operator alert in addition
// to failing the job.
func Critical(err error) error {
	if err == nil || errors.Is(err, ErrCritical) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCritical, err)
}

// IsCritical reports whether err should page an operator.
func IsCritical(err error) bool {
	return err != nil && errors.Is(err, ErrCritical)
}

// FailureStatus maps a pipeline error to the terminal status the coordinator
// should persist. Cancellation is not a failure.
func FailureStatus(err error) queue.Status {
	switch {
	case err == nil:
		return queue.StatusFailed
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return queue.StatusCancelled
	default:
		return queue.StatusFailed
	}
}

// Summary renders a short, user-facing description of err.
func Summary(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnreadableMedia):
		return "the video could not be read"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "processing took too long"
	case errors.Is(err, ErrExternalTool):
		return "a processing tool failed"
	case errors.Is(err, ErrValidation):
		return "the request was invalid"
	case errors.Is(err, ErrInterrupted):
		return "the service restarted while it was running"
	default:
		return "an unexpected error occurred"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
