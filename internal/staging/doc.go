// Package staging owns the per-job scratch directories under staging_dir.
//
// A Workspace holds the downloaded source video and the rendered subtitle
// file for one job and is removed exactly once when the job reaches a
// terminal state. CleanStale and CleanOrphaned sweep directories left behind
// by crashed processes.
package staging
