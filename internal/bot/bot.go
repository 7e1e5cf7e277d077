// Package bot answers chat commands sent through the gateway.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"subextract/internal/logging"
	"subextract/internal/queue"
	"subextract/internal/workflow"
)

const (
	StartText = "Hi! Send me a short video and I will extract its on-screen subtitles as an .srt file."
	HelpText  = "Send a video to start a job. Commands:\n" +
		"/start - show the greeting\n" +
		"/help - show this help\n" +
		"/status [job id] - show your jobs, optionally filtered by id prefix\n" +
		"/cancel <job id> - cancel a queued or running job"
	statusListLimit = 10
)

// Jobs is the coordinator surface the bot needs.
type Jobs interface {
	Status(ctx context.Context, ownerID, prefix string) ([]workflow.JobStatus, error)
	Cancel(ctx context.Context, ownerID, prefix string) (workflow.CancelReport, error)
}

// Bot turns command text into reply text.
type Bot struct {
	jobs   Jobs
	logger *slog.Logger
}

// New builds a bot backed by jobs.
func New(jobs Jobs, logger *slog.Logger) *Bot {
	return &Bot{jobs: jobs, logger: logging.NewComponentLogger(logger, "bot")}
}

// Handle runs one command for ownerID and returns the reply. Unknown
// commands and plain text get the help text.
func (b *Bot) Handle(ctx context.Context, ownerID, text string) string {
	command, arg := parseCommand(text)
	switch command {
	case "/start":
		return StartText
	case "/status":
		return b.status(ctx, ownerID, arg)
	case "/cancel":
		return b.cancel(ctx, ownerID, arg)
	default:
		return HelpText
	}
}

func (b *Bot) status(ctx context.Context, ownerID, prefix string) string {
	statuses, err := b.jobs.Status(ctx, ownerID, prefix)
	if err != nil {
		b.logger.Warn("status command failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "bot_status_failed"),
		)
		return "Sorry, something went wrong while looking up your jobs."
	}
	if len(statuses) == 0 {
		if prefix == "" {
			return "You have no jobs."
		}
		return fmt.Sprintf("No jobs found matching %s.", prefix)
	}

	lines := make([]string, 0, len(statuses)+1)
	for i, status := range statuses {
		if prefix == "" && i == statusListLimit {
			lines = append(lines, fmt.Sprintf("...and %d older jobs", len(statuses)-statusListLimit))
			break
		}
		lines = append(lines, status.Line())
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) cancel(ctx context.Context, ownerID, prefix string) string {
	if prefix == "" {
		return "Usage: /cancel <job id>"
	}
	report, err := b.jobs.Cancel(ctx, ownerID, prefix)
	if err != nil {
		b.logger.Warn("cancel command failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "bot_cancel_failed"),
		)
		return "Sorry, something went wrong while cancelling."
	}
	if report.NotFound {
		return fmt.Sprintf("No active job matches %s.", prefix)
	}

	lines := make([]string, 0, len(report.Outcomes))
	for _, outcome := range report.Outcomes {
		lines = append(lines, outcomeLine(outcome))
	}
	return strings.Join(lines, "\n")
}

func outcomeLine(outcome workflow.CancelOutcome) string {
	switch outcome.Result {
	case queue.CancelApplied:
		return fmt.Sprintf("Cancelling job %s.", outcome.ShortID)
	case queue.CancelAlreadyComplete:
		return fmt.Sprintf("Job %s is already complete.", outcome.ShortID)
	case queue.CancelAlreadyCancelled:
		return fmt.Sprintf("Job %s was already cancelled.", outcome.ShortID)
	default:
		return fmt.Sprintf("Job %s was not found.", outcome.ShortID)
	}
}

// parseCommand splits "/cmd@botname arg ..." into a lowercased command and
// its first argument.
func parseCommand(text string) (string, string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", ""
	}
	command, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	var arg string
	if len(fields) > 1 {
		arg = strings.ToLower(fields[1])
	}
	return command, arg
}
