package language

import "strings"

// Unknown is the tag reported when no language could be determined.
const Unknown = "unknown"

type entry struct {
	code2     string   // ISO 639-1 (2-letter)
	code3     string   // ISO 639-2 primary (3-letter)
	alt3      string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	tesseract string   // tesseract traineddata name
	display   string   // Human-readable name
	words     []string // Full word forms (e.g. "english")
}

var languages = []entry{
	{"en", "eng", "", "eng", "English", []string{"english"}},
	{"es", "spa", "", "spa", "Spanish", []string{"spanish"}},
	{"fr", "fra", "fre", "fra", "French", []string{"french"}},
	{"de", "deu", "ger", "deu", "German", []string{"german"}},
	{"it", "ita", "", "ita", "Italian", []string{"italian"}},
	{"pt", "por", "", "por", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", "", "jpn", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "kor", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "chi_sim", "Chinese", []string{"chinese"}},
	{"ru", "rus", "", "rus", "Russian", []string{"russian"}},
	{"ar", "ara", "", "ara", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "hin", "Hindi", []string{"hindi"}},
	{"nl", "nld", "dut", "nld", "Dutch", []string{"dutch"}},
	{"pl", "pol", "", "pol", "Polish", []string{"polish"}},
	{"sv", "swe", "", "swe", "Swedish", []string{"swedish"}},
	{"da", "dan", "", "dan", "Danish", []string{"danish"}},
	{"no", "nor", "", "nor", "Norwegian", []string{"norwegian"}},
	{"fi", "fin", "", "fin", "Finnish", []string{"finnish"}},
	{"tr", "tur", "", "tur", "Turkish", []string{"turkish"}},
	{"uk", "ukr", "", "ukr", "Ukrainian", []string{"ukrainian"}},
	{"vi", "vie", "", "vie", "Vietnamese", []string{"vietnamese"}},
}

// Index maps built at init time.
var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// ToISO2 converts any recognized language code or word to ISO 639-1 (2-letter).
// Returns empty string for unrecognized input.
// If the input is already a 2-letter code (even if unknown), it passes through.
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// ToISO3 converts any recognized language code to ISO 639-2 (3-letter).
// Returns "und" for unrecognized 2-letter codes, passes through 3-letter codes.
func ToISO3(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "und"
	}
	if e := lookup(code); e != nil {
		return e.code3
	}
	if len(code) == 3 {
		return code
	}
	return "und"
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty or unknown input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if IsUnknown(code) {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// TesseractCode maps a language code or word to the tesseract traineddata
// name. Unrecognized input is returned trimmed so custom models still work.
func TesseractCode(code string) string {
	trimmed := strings.TrimSpace(code)
	if e := lookup(trimmed); e != nil {
		return e.tesseract
	}
	return trimmed
}

// IsUnknown reports whether the tag carries no usable language.
func IsUnknown(code string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	return code == "" || code == Unknown || code == "und"
}

// NormalizeList deduplicates and normalizes a list of language codes to ISO 639-1.
func NormalizeList(languages []string) []string {
	if len(languages) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		trimmed := strings.ToLower(strings.TrimSpace(lang))
		if trimmed == "" {
			continue
		}
		if len(trimmed) > 2 {
			if mapped := ToISO2(trimmed); mapped != "" {
				trimmed = mapped
			}
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
