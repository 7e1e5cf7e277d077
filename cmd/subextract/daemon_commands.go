package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subextract/internal/daemonctl"
	"subextract/internal/deps"
	"subextract/internal/ipc"
	"subextract/internal/queue"
)

const daemonBinary = "subextractd"

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var logLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the subextract daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath(), LogLevel: logLevel},
				10*time.Second,
			)
			if err != nil {
				return err
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&logLevel, "log-level", "", "Override the daemon log level")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the subextract daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show daemon, queue and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := daemonctl.StatusSnapshot(cmd.Context(), ctx.socketPath(), ctx.configValue())
			if err != nil {
				return err
			}
			if ok, err := ctx.writeStructured(cmd, snapshot); ok {
				return err
			}
			renderStats(cmd, snapshot)
			return nil
		},
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check the job database through the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Health()
				if err != nil {
					return err
				}
				if ok, err := ctx.writeStructured(cmd, resp); ok {
					return err
				}
				out := cmd.OutOrStdout()
				rows := [][]string{
					{"Database", resp.DBPath},
					{"Exists", yesNo(resp.DatabaseExists)},
					{"Readable", yesNo(resp.Readable)},
					{"Integrity", yesNo(resp.IntegrityOK)},
					{"Jobs", fmt.Sprintf("%d", resp.TotalJobs)},
				}
				if resp.Error != "" {
					rows = append(rows, []string{"Error", resp.Error})
				}
				fmt.Fprintln(out, renderTable([]string{"Check", "Value"}, rows, nil))
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statsCmd, healthCmd}
}

func renderStats(cmd *cobra.Command, snapshot *ipc.StatsResponse) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	state := "stopped"
	if snapshot.Running {
		state = fmt.Sprintf("running (pid %d)", snapshot.PID)
	}
	daemonRows := [][]string{
		{"Daemon", state},
		{"Workers", fmt.Sprintf("%d", snapshot.Workers)},
		{"In flight", fmt.Sprintf("%d", snapshot.InFlight)},
		{"Gateway", valueOrDash(snapshot.GatewayAddr)},
		{"Job database", snapshot.QueueDBPath},
		{"Lock file", snapshot.LockPath},
	}
	if snapshot.LastError != "" {
		daemonRows = append(daemonRows, []string{"Last error", truncate(snapshot.LastError, 80)})
	}
	if snapshot.LastJob != nil {
		daemonRows = append(daemonRows, []string{"Last job", snapshot.LastJob.Line()})
	}
	fmt.Fprintln(out, renderTable([]string{"Daemon", ""}, daemonRows, nil))

	fmt.Fprintln(out, renderTable([]string{"Status", "Jobs"}, queueStatRows(snapshot.QueueStats, colorize), []columnAlignment{alignLeft, alignRight}))

	if len(snapshot.Dependencies) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Dependency", "State", "Detail"}, dependencyRows(snapshot.Dependencies, colorize), nil))
		if missing := deps.Missing(snapshot.Dependencies); len(missing) > 0 {
			fmt.Fprintf(out, "Missing dependencies: %s\n", strings.Join(missing, ", "))
		}
	}
}

func queueStatRows(stats map[string]int, colorize bool) [][]string {
	rows := make([][]string, 0, len(stats))
	seen := make(map[string]bool, len(stats))
	for _, status := range queue.AllStatuses() {
		seen[string(status)] = true
		rows = append(rows, []string{colorStatus(status, colorize), fmt.Sprintf("%d", stats[string(status)])})
	}
	var extra []string
	for key := range stats {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		rows = append(rows, []string{key, fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func dependencyRows(statuses []deps.Status, colorize bool) [][]string {
	rows := make([][]string, 0, len(statuses))
	for _, dep := range statuses {
		detail := dep.Version
		if !dep.Available {
			detail = dep.Detail
			if dep.Optional {
				detail = strings.TrimSpace(detail + " (optional)")
			}
		}
		rows = append(rows, []string{dep.Name, passFail(dep.Available, colorize), truncate(detail, 60)})
	}
	return rows
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

// daemonExecutable prefers a subextractd installed next to this binary and
// falls back to PATH.
func daemonExecutable() (string, error) {
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), daemonBinary)
		if info, statErr := os.Stat(sibling); statErr == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath(daemonBinary)
	if err != nil {
		return "", fmt.Errorf("resolve %s executable: %w", daemonBinary, err)
	}
	return path, nil
}
