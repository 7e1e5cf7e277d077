// Package extract runs the subtitle extraction stages for one staged video.
//
// Pipeline.Run samples frames, detects caption regions, recognizes text,
// filters it by language, and assembles cues, strictly in that order with
// each stage consuming the previous stage's complete output. Hooks.Checkpoint
// is called before each stage and between units of work inside the sampling
// and recognition stages; returning an error from it aborts the run, which is
// how the coordinator delivers cancellation and progress.
//
// Errors about a single unit (one frame decode, one recognition call) are
// logged and skipped. Errors about the whole video abort the run.
package extract
