package langid

import (
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"

	"subextract/internal/language"
)

// Result is a language decision for one piece of text.
type Result struct {
	Language   string
	Confidence float64
	Scores     map[string]float64
}

// Unknown is the result reported when no language can be determined.
func Unknown() Result {
	return Result{Language: language.Unknown}
}

// Classifier scores text by language.
type Classifier interface {
	Classify(text string) Result
}

// LinguaClassifier detects languages with a lingua-go model limited to a
// candidate set.
type LinguaClassifier struct {
	detector lingua.LanguageDetector
}

// NewLinguaClassifier builds a detector for the given ISO 639-1 candidates.
// At least two recognizable candidates are required; English is added when
// only one is configured.
func NewLinguaClassifier(candidates []string) (*LinguaClassifier, error) {
	languages := make([]lingua.Language, 0, len(candidates)+1)
	seen := make(map[lingua.Language]struct{}, len(candidates)+1)
	add := func(code string) bool {
		iso := lingua.GetIsoCode639_1FromValue(language.ToISO2(code))
		lang := lingua.GetLanguageFromIsoCode639_1(iso)
		if lang == lingua.Unknown {
			return false
		}
		if _, ok := seen[lang]; !ok {
			seen[lang] = struct{}{}
			languages = append(languages, lang)
		}
		return true
	}
	for _, code := range candidates {
		if !add(code) {
			return nil, fmt.Errorf("unsupported candidate language %q", code)
		}
	}
	if len(languages) == 0 {
		return nil, fmt.Errorf("no candidate languages configured")
	}
	if len(languages) == 1 {
		for _, fallback := range []string{"en", "es"} {
			add(fallback)
			if len(languages) > 1 {
				break
			}
		}
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		Build()
	return &LinguaClassifier{detector: detector}, nil
}

// Classify returns the most likely language and the full distribution. Empty
// or undecidable text yields Unknown.
func (c *LinguaClassifier) Classify(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Unknown()
	}
	values := c.detector.ComputeLanguageConfidenceValues(text)
	if len(values) == 0 || values[0].Value() <= 0 {
		return Unknown()
	}

	scores := make(map[string]float64, len(values))
	for _, value := range values {
		if value.Value() <= 0 {
			continue
		}
		scores[isoCode(value.Language())] = value.Value()
	}
	return Result{
		Language:   isoCode(values[0].Language()),
		Confidence: values[0].Value(),
		Scores:     scores,
	}
}

func isoCode(lang lingua.Language) string {
	return strings.ToLower(lang.IsoCode639_1().String())
}
