// Package langs holds the language tables shared by the OCR engine and
// the translators.
package langs

import (
	"sort"
	"strings"
)

// Auto asks the translator to detect the source language.
const Auto = "auto"

type Language struct {
	Code      string // DeepL code
	Name      string
	Tesseract string // tesseract traineddata name, empty when unsupported
}

var sources = []Language{
	{Auto, "Detect language", ""},
	{"AR", "Arabic", "ara"},
	{"BG", "Bulgarian", "bul"},
	{"CS", "Czech", "ces"},
	{"DA", "Danish", "dan"},
	{"DE", "German", "deu"},
	{"EL", "Greek", "ell"},
	{"EN", "English", "eng"},
	{"ES", "Spanish", "spa"},
	{"ET", "Estonian", "est"},
	{"FI", "Finnish", "fin"},
	{"FR", "French", "fra"},
	{"HU", "Hungarian", "hun"},
	{"ID", "Indonesian", "ind"},
	{"IT", "Italian", "ita"},
	{"JA", "Japanese", "jpn"},
	{"KO", "Korean", "kor"},
	{"LT", "Lithuanian", "lit"},
	{"LV", "Latvian", "lav"},
	{"NB", "Norwegian", "nor"},
	{"NL", "Dutch", "nld"},
	{"PL", "Polish", "pol"},
	{"PT", "Portuguese", "por"},
	{"RO", "Romanian", "ron"},
	{"RU", "Russian", "rus"},
	{"SK", "Slovak", "slk"},
	{"SL", "Slovenian", "slv"},
	{"SV", "Swedish", "swe"},
	{"TR", "Turkish", "tur"},
	{"UK", "Ukrainian", "ukr"},
	{"ZH", "Chinese", "chi_sim"},
}

var targets = []Language{
	{"AR", "Arabic", ""},
	{"BG", "Bulgarian", ""},
	{"CS", "Czech", ""},
	{"DA", "Danish", ""},
	{"DE", "German", ""},
	{"EL", "Greek", ""},
	{"EN-GB", "English (British)", ""},
	{"EN-US", "English (American)", ""},
	{"ES", "Spanish", ""},
	{"ET", "Estonian", ""},
	{"FI", "Finnish", ""},
	{"FR", "French", ""},
	{"HU", "Hungarian", ""},
	{"ID", "Indonesian", ""},
	{"IT", "Italian", ""},
	{"JA", "Japanese", ""},
	{"KO", "Korean", ""},
	{"LT", "Lithuanian", ""},
	{"LV", "Latvian", ""},
	{"NB", "Norwegian", ""},
	{"NL", "Dutch", ""},
	{"PL", "Polish", ""},
	{"PT-BR", "Portuguese (Brazilian)", ""},
	{"PT-PT", "Portuguese (European)", ""},
	{"RO", "Romanian", ""},
	{"RU", "Russian", ""},
	{"SK", "Slovak", ""},
	{"SL", "Slovenian", ""},
	{"SV", "Swedish", ""},
	{"TR", "Turkish", ""},
	{"UK", "Ukrainian", ""},
	{"ZH", "Chinese (simplified)", ""},
}

func lookup(table []Language, code string) (Language, bool) {
	code = strings.TrimSpace(code)
	for _, l := range table {
		if strings.EqualFold(l.Code, code) {
			return l, true
		}
	}
	return Language{}, false
}

// Source looks up a source language by code, case-insensitively.
func Source(code string) (Language, bool) { return lookup(sources, code) }

// Target looks up a target language by code, case-insensitively.
func Target(code string) (Language, bool) { return lookup(targets, code) }

// Sources returns a copy of the source table, "auto" first.
func Sources() []Language { return append([]Language(nil), sources...) }

// Targets returns a copy of the target table.
func Targets() []Language { return append([]Language(nil), targets...) }

// TesseractFor returns the tesseract language for a source code, or
// fallback for auto-detection and codes tesseract has no model for.
func TesseractFor(sourceCode, fallback string) string {
	if l, ok := Source(sourceCode); ok && l.Tesseract != "" {
		return l.Tesseract
	}
	return fallback
}

// Label renders a language for select widgets: "German (DE)".
func Label(l Language) string {
	return l.Name + " (" + l.Code + ")"
}

// Labels returns the select labels of a table, sorted by name with "auto" kept first.
func Labels(table []Language) []string {
	out := make([]string, 0, len(table))
	var head []string
	for _, l := range table {
		if l.Code == Auto {
			head = append(head, Label(l))
			continue
		}
		out = append(out, Label(l))
	}
	sort.Strings(out)
	return append(head, out...)
}

// CodeFromLabel extracts the code from a Label string.
func CodeFromLabel(label string) string {
	open := strings.LastIndex(label, "(")
	end := strings.LastIndex(label, ")")
	if open < 0 || end < open {
		return strings.TrimSpace(label)
	}
	return label[open+1 : end]
}
