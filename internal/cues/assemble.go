package cues

import (
	"sort"
	"strings"
)

// Entry is one recognized caption line at a sampling instant. Top is the
// line's vertical position in the frame and orders lines sharing a timestamp.
type Entry struct {
	Text      string
	Timestamp float64
	Top       int
}

// Cue is one numbered subtitle block.
type Cue struct {
	Index int
	Text  string
	Start float64
	End   float64
}

// Options controls end-time inference.
type Options struct {
	Gap             float64
	MinDuration     float64
	DefaultDuration float64
}

// DefaultOptions returns the stock timing parameters.
func DefaultOptions() Options {
	return Options{Gap: 0.05, MinDuration: 0.25, DefaultDuration: 2.0}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Gap < 0 {
		o.Gap = def.Gap
	}
	if o.MinDuration <= 0 {
		o.MinDuration = def.MinDuration
	}
	if o.DefaultDuration <= 0 {
		o.DefaultDuration = def.DefaultDuration
	}
	return o
}

// Assemble orders entries by time, merges lines sampled at the same instant,
// collapses consecutive repeats of the same text, and infers end times so
// cues never overlap.
func Assemble(entries []Entry, opts Options) *Document {
	opts = opts.withDefaults()

	sorted := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		entry.Text = strings.TrimSpace(entry.Text)
		if entry.Text == "" {
			continue
		}
		sorted = append(sorted, entry)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp != sorted[j].Timestamp {
			return sorted[i].Timestamp < sorted[j].Timestamp
		}
		return sorted[i].Top < sorted[j].Top
	})

	merged := make([]Entry, 0, len(sorted))
	for _, entry := range sorted {
		if n := len(merged); n > 0 && merged[n-1].Timestamp == entry.Timestamp {
			merged[n-1].Text += "\n" + entry.Text
			continue
		}
		merged = append(merged, entry)
	}

	kept := make([]Entry, 0, len(merged))
	for _, entry := range merged {
		if n := len(kept); n > 0 && kept[n-1].Text == entry.Text {
			continue
		}
		kept = append(kept, entry)
	}

	doc := &Document{Cues: make([]Cue, 0, len(kept))}
	for i, entry := range kept {
		cue := Cue{Index: i + 1, Text: entry.Text, Start: entry.Timestamp}
		if i+1 < len(kept) {
			next := kept[i+1].Timestamp
			end := next - opts.Gap
			if end-cue.Start >= opts.MinDuration {
				cue.End = end
			} else {
				cue.End = min(cue.Start+opts.DefaultDuration, next)
			}
		} else {
			cue.End = cue.Start + opts.DefaultDuration
		}
		cue.End = max(cue.End, cue.Start)
		doc.Cues = append(doc.Cues, cue)
	}
	return doc
}
