package language

import (
	"fmt"
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto is the hint value that asks the engine to detect the language.
const Auto = "auto"

// Word forms accepted in addition to BCP 47 tags and ISO 639 codes.
var words = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
}

// NormalizeHint converts a user supplied language hint into the ISO 639-1
// code recognition backends expect (ISO 639-3 when no two-letter code
// exists). Empty input and "auto" return "" meaning detect.
func NormalizeHint(hint string) (string, error) {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" || hint == Auto {
		return "", nil
	}
	if code, ok := words[hint]; ok {
		return code, nil
	}
	tag, err := xlang.Parse(hint)
	if err != nil {
		return "", fmt.Errorf("language hint %q: %w", hint, err)
	}
	base, conf := tag.Base()
	if conf == xlang.No || base.String() == "und" {
		return "", fmt.Errorf("language hint %q: unknown language", hint)
	}
	return base.String(), nil
}

// ToISO2 converts any recognized code or word to ISO 639-1. Unrecognized
// input returns "".
func ToISO2(code string) string {
	normalized, err := NormalizeHint(code)
	if err != nil || len(normalized) != 2 {
		return ""
	}
	return normalized
}

// ToISO3 converts any recognized code to ISO 639-2/T. Unrecognized input
// returns "und".
func ToISO3(code string) string {
	normalized, err := NormalizeHint(code)
	if err != nil || normalized == "" {
		return "und"
	}
	base, err := xlang.ParseBase(normalized)
	if err != nil {
		return "und"
	}
	return base.ISO3()
}

// DisplayName returns the English name for a code, "Auto-detect" for an
// empty or auto hint, and the uppercased input when it is unrecognized.
func DisplayName(code string) string {
	normalized, err := NormalizeHint(code)
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	if normalized == "" {
		return "Auto-detect"
	}
	name := display.English.Languages().Name(xlang.Make(normalized))
	if name == "" {
		return strings.ToUpper(normalized)
	}
	return name
}
