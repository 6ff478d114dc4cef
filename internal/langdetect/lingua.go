// Package langdetect tags listing text with an ISO 639-1 language code.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// minLetters below which detection is skipped; short titles guess badly.
const minLetters = 12

// Languages the regional listings are published in.
var regionalLanguages = []lingua.Language{
	lingua.English,
	lingua.Arabic,
	lingua.French,
	lingua.Turkish,
	lingua.Russian,
	lingua.Hindi,
	lingua.Urdu,
	lingua.Tagalog,
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectISO6391 returns a lowercase two-letter code, or "" when unsure.
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letters := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < minLetters {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}
	return strings.ToLower(language.IsoCode639_1().String())
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(regionalLanguages...).
			WithMinimumRelativeDistance(0.1).
			Build()
	})
	return detector
}
