package language_test

import (
	"slices"
	"testing"

	"subextract/internal/language"
)

func TestAliasesResolveToOneLanguage(t *testing.T) {
	rows := []struct {
		aliases   []string
		iso2      string
		iso3      string
		display   string
		tesseract string
	}{
		{[]string{"en", "EN", "eng", "english"}, "en", "eng", "English", "eng"},
		{[]string{"es", "spa", "Spanish"}, "es", "spa", "Spanish", "spa"},
		{[]string{"fr", "fra", "fre", "French"}, "fr", "fra", "French", "fra"},
		{[]string{"de", "deu", "ger", "GERMAN"}, "de", "deu", "German", "deu"},
		{[]string{"zh", "zho", "chi", "chinese"}, "zh", "zho", "Chinese", "chi_sim"},
		{[]string{"nl", "nld", "dut"}, "nl", "nld", "Dutch", "nld"},
		{[]string{"ja", "jpn"}, "ja", "jpn", "Japanese", "jpn"},
		{[]string{"uk", "ukr"}, "uk", "ukr", "Ukrainian", "ukr"},
	}
	for _, row := range rows {
		for _, alias := range row.aliases {
			if got := language.ToISO2(alias); got != row.iso2 {
				t.Errorf("ToISO2(%q) = %q, want %q", alias, got, row.iso2)
			}
			if got := language.ToISO3(alias); got != row.iso3 {
				t.Errorf("ToISO3(%q) = %q, want %q", alias, got, row.iso3)
			}
			if got := language.DisplayName(alias); got != row.display {
				t.Errorf("DisplayName(%q) = %q, want %q", alias, got, row.display)
			}
			if got := language.TesseractCode(alias); got != row.tesseract {
				t.Errorf("TesseractCode(%q) = %q, want %q", alias, got, row.tesseract)
			}
		}
	}
}

func TestUnrecognizedCodes(t *testing.T) {
	if got := language.ToISO2("xy"); got != "xy" {
		t.Fatalf("unknown two-letter code should pass through, got %q", got)
	}
	if got := language.ToISO2("xyz"); got != "" {
		t.Fatalf("unknown three-letter code should map to empty, got %q", got)
	}
	if got := language.ToISO3("xyz"); got != "xyz" {
		t.Fatalf("unknown three-letter code should pass through, got %q", got)
	}
	if got := language.ToISO3("xy"); got != "und" {
		t.Fatalf("unknown two-letter code should be undetermined, got %q", got)
	}
	if got := language.DisplayName("xyz"); got != "XYZ" {
		t.Fatalf("DisplayName(xyz) = %q", got)
	}
	if got := language.TesseractCode(" chi_tra "); got != "chi_tra" {
		t.Fatalf("custom tesseract models should pass through trimmed, got %q", got)
	}
}

func TestIsUnknown(t *testing.T) {
	for _, tag := range []string{"", " ", language.Unknown, "UND"} {
		if !language.IsUnknown(tag) {
			t.Errorf("IsUnknown(%q) = false", tag)
		}
		if got := language.DisplayName(tag); got != "Unknown" {
			t.Errorf("DisplayName(%q) = %q", tag, got)
		}
	}
	if language.IsUnknown("en") {
		t.Error("IsUnknown(en) = true")
	}
}

func TestNormalizeList(t *testing.T) {
	cases := map[string]struct {
		in   []string
		want []string
	}{
		"nil":           {nil, nil},
		"dedup aliases": {[]string{"en", "eng", "English", "fr", "fra"}, []string{"en", "fr"}},
		"keeps unknown": {[]string{"en", "xx"}, []string{"en", "xx"}},
		"drops blanks":  {[]string{" en ", " "}, []string{"en"}},
	}
	for name, tc := range cases {
		if got := language.NormalizeList(tc.in); !slices.Equal(got, tc.want) {
			t.Errorf("%s: NormalizeList(%v) = %v, want %v", name, tc.in, got, tc.want)
		}
	}
}
