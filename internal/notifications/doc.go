// Package notifications delivers operator alerts via ntfy.
//
// The coordinator raises an alert when a job fails with a critical error and
// when the daemon reclaims jobs interrupted by a previous process. The
// service degrades to a no-op when no ntfy topic is configured, so callers
// never need to check whether alerts are enabled.
package notifications
