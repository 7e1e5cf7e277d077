// Package frames samples still images from a video at a fixed interval.
//
// Sampler asks an Inspector for the playable duration and a Decoder for one frame
// per sampling instant. The FFmpeg type implements both by shelling out to
// ffprobe and ffmpeg; tests substitute in-memory fakes.
package frames
