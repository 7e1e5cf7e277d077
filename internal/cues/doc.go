// Package cues assembles recognized caption lines into timed subtitle cues
// and reads and writes the SubRip (.srt) format.
package cues
