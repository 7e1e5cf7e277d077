// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and returns a Result; helper methods on Result pick the
// primary video stream, parse rational frame rates, and derive a playable
// duration from the frame count when the container does not report one.
package ffprobe
