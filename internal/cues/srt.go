package cues

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// FormatSRT is the only document format produced.
const FormatSRT = "srt"

// Document is an ordered list of cues.
type Document struct {
	Cues []Cue
}

// Len returns the number of cues.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Cues)
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	ms := total % 1000
	totalSeconds := total / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", totalSeconds/3600, (totalSeconds%3600)/60, totalSeconds%60, ms)
}

// ParseTimestamp reads HH:MM:SS,mmm (a period separator is also accepted).
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	clock, fraction, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(fraction)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// WriteSRT serializes the document. Cues are numbered from 1 in order and
// each block is followed by a blank line.
func (d *Document) WriteSRT(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, cue := range d.Cues {
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			i+1, FormatTimestamp(cue.Start), FormatTimestamp(cue.End), cue.Text); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Bytes returns the SRT serialization.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	_ = d.WriteSRT(&buf)
	return buf.Bytes()
}

// ParseSRT reads SubRip content. Blocks without a valid timing line are
// rejected.
func ParseSRT(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.TrimSpace(content)
	doc := &Document{}
	if content == "" {
		return doc, nil
	}

	for n, block := range strings.Split(content, "\n\n") {
		lines := strings.Split(strings.Trim(block, "\n"), "\n")
		if len(lines) < 2 {
			return nil, fmt.Errorf("block %d: too few lines", n+1)
		}
		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			return nil, fmt.Errorf("block %d: invalid index %q", n+1, lines[0])
		}
		startText, endText, ok := strings.Cut(lines[1], "-->")
		if !ok {
			return nil, fmt.Errorf("block %d: missing timing line", n+1)
		}
		start, err := ParseTimestamp(startText)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", n+1, err)
		}
		end, err := ParseTimestamp(endText)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", n+1, err)
		}
		doc.Cues = append(doc.Cues, Cue{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.Join(lines[2:], "\n"),
		})
	}
	return doc, nil
}

// Validate lists ordering and timing problems; an empty result means the
// document is well formed.
func Validate(doc *Document) []string {
	if doc.Len() == 0 {
		return []string{"empty_subtitle_file"}
	}
	var issues []string
	for i, cue := range doc.Cues {
		if cue.Index != i+1 {
			issues = append(issues, fmt.Sprintf("cue %d: index %d out of sequence", i+1, cue.Index))
		}
		if cue.End < cue.Start {
			issues = append(issues, fmt.Sprintf("cue %d: ends before it starts", i+1))
		}
		if strings.TrimSpace(cue.Text) == "" {
			issues = append(issues, fmt.Sprintf("cue %d: empty text", i+1))
		}
		if i == 0 {
			continue
		}
		prev := doc.Cues[i-1]
		if cue.Start < prev.Start {
			issues = append(issues, fmt.Sprintf("cue %d: starts before cue %d", i+1, i))
		}
		if prev.End > cue.Start {
			issues = append(issues, fmt.Sprintf("cue %d: overlaps cue %d", i, i+1))
		}
	}
	return issues
}
