// Package daemon coordinates the long-running subextract process.
//
// It wires configuration, the job store, the job coordinator and the HTTP
// gateway into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon runs preflight checks before starting,
// sweeps expired jobs and stale staging directories on a ticker, and exposes
// the job operations the control socket forwards from the CLI.
//
// Keep orchestration logic here: pipeline and job lifecycle behavior live in
// their own packages while the daemon focuses on startup, shutdown, and
// housekeeping.
package daemon
