package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subextract/internal/config"
	"subextract/internal/ipc"
	"subextract/internal/queue"
	"subextract/internal/workflow"
)

func newJobCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newSubmitCommand(ctx),
		newStatusCommand(ctx),
		newCancelCommand(ctx),
		newListCommand(ctx),
	}
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "submit <video>",
		Short: "Queue a video file or URL for extraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ctx.owner()
			if err != nil {
				return err
			}
			ref, err := resolveVideoRef(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(ipc.SubmitRequest{
					VideoRef: ref,
					OwnerID:  owner,
					TargetID: strings.TrimSpace(target),
				})
				if err != nil {
					return err
				}
				if ok, err := ctx.writeStructured(cmd, resp.Job); ok {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued job %s (%s)\n", resp.Job.ShortID, resp.Job.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "Chat target for progress messages (defaults to the owner)")
	return cmd
}

// resolveVideoRef turns a local path into an absolute file:// reference and
// passes URLs and upload tokens through unchanged.
func resolveVideoRef(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", errors.New("video path or url is required")
	}
	if strings.Contains(arg, "://") || strings.HasPrefix(arg, "upload:") {
		return arg, nil
	}
	path, err := config.ExpandPath(arg)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", arg, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("inspect video %q: %w", abs, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", abs)
	}
	return (&url.URL{Scheme: "file", Path: abs}).String(), nil
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [job-id-prefix]",
		Short: "Show your jobs, optionally filtered by id prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ctx.owner()
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status(owner, prefix)
				if err != nil {
					return err
				}
				return ctx.printJobs(cmd, resp.Jobs)
			})
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id-prefix>",
		Short: "Cancel your queued or running jobs matching a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ctx.owner()
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Cancel(owner, args[0])
				if err != nil {
					return err
				}
				if ok, err := ctx.writeStructured(cmd, resp.Report); ok {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.Report.NotFound {
					fmt.Fprintf(out, "No jobs match %q\n", args[0])
					return nil
				}
				rows := make([][]string, 0, len(resp.Report.Outcomes))
				for _, outcome := range resp.Report.Outcomes {
					rows = append(rows, []string{outcome.ShortID, string(outcome.Result)})
				}
				fmt.Fprintln(out, renderTable([]string{"Job", "Result"}, rows, nil))
				return nil
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs for every owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, raw := range statuses {
				if _, ok := queue.ParseStatus(raw); !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.List(statuses)
				if err != nil {
					return err
				}
				return ctx.printJobs(cmd, resp.Jobs)
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Only show jobs with these statuses")
	return cmd
}

func (c *commandContext) printJobs(cmd *cobra.Command, jobs []workflow.JobStatus) error {
	if jobs == nil {
		jobs = []workflow.JobStatus{}
	}
	if ok, err := c.writeStructured(cmd, jobs); ok {
		return err
	}
	out := cmd.OutOrStdout()
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs")
		return nil
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Job", "Status", "Progress", "Cues", "Updated", "Detail"},
		jobRows(jobs, shouldColorize(out)),
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	))
	return nil
}

func jobRows(jobs []workflow.JobStatus, colorize bool) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		progress := "-"
		if job.Status == queue.StatusActive || job.Status == queue.StatusFinished {
			progress = fmt.Sprintf("%.0f%%", job.ProgressPercent)
		}
		cues := "-"
		if job.Status == queue.StatusFinished {
			cues = fmt.Sprintf("%d", job.CueCount)
		}
		rows = append(rows, []string{
			job.ShortID,
			colorStatus(job.Status, colorize),
			progress,
			cues,
			formatAge(job.UpdatedAt, time.Now()),
			jobDetail(job),
		})
	}
	return rows
}

func jobDetail(job workflow.JobStatus) string {
	switch {
	case job.Error != "":
		return truncate(job.Error, 60)
	case job.Stage != "":
		return job.Stage
	default:
		return truncate(job.Message, 60)
	}
}

func formatAge(ts, now time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	age := now.Sub(ts)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return ts.Local().Format("2006-01-02")
	}
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func printLines(out io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}
