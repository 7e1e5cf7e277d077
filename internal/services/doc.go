// Package services defines shared utilities consumed by the pipeline stages,
// the job coordinator, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, owners, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (unreadable media, recognition, delivery, critical) into terminal job
//     statuses and user-facing summaries.
package services
