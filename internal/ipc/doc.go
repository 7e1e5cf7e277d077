// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. Job
// views travel as workflow.JobStatus so the CLI renders exactly what the
// gateway and the bot see.
package ipc
