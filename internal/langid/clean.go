package langid

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	noiseChars     = strings.NewReplacer("|", "", "\\", "", "/", "", "{", "", "}", "", "<", "", ">", "", "*", "", "_", "", "~", "")
	timestampShape = regexp.MustCompile(`^[\d:,. \-]+$`)
)

// Clean removes recognizer artifacts from text: noise punctuation and control
// characters are stripped, runs of horizontal whitespace collapse to one
// space, and lines that are a single character or look like a timestamp are
// dropped. Surviving lines keep their order and are joined by "\n".
func Clean(text string) string {
	text = noiseChars.Replace(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Map(func(r rune) rune {
			if unicode.IsControl(r) && r != '\t' {
				return -1
			}
			return r
		}, line)
		line = strings.Join(strings.Fields(line), " ")
		if len([]rune(line)) <= 1 || timestampShape.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
