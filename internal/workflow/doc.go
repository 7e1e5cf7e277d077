// Package workflow coordinates subtitle extraction jobs.
//
// The Coordinator accepts submissions, persists them as queued jobs and runs
// them on a fixed pool of lanes. Each lane claims the oldest queued job,
// stages the video through the messaging collaborator, runs the extraction
// pipeline with progress checkpoints and delivers exactly one outcome message
// to the job's delivery target. Status and cancel queries run against the
// job store concurrently with in-flight work; cancellation is a store
// compare-and-set that the running lane observes at its next checkpoint.
//
// Heartbeats keep active jobs fresh in the store so a restarted daemon can
// tell interrupted work apart from work still in progress.
package workflow
