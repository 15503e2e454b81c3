package session

import (
	"fmt"
	"strings"
)

// TargetLanguage is the translation destination chosen at send time.
// Wire values are the display names the backend accepts in target_lang.
type TargetLanguage string

const (
	English TargetLanguage = "English"
	Turkish TargetLanguage = "Turkish"
	Persian TargetLanguage = "Persian"
	Arabic  TargetLanguage = "Arabic"
)

// SupportedLanguages lists target languages in menu order.
func SupportedLanguages() []TargetLanguage {
	return []TargetLanguage{English, Turkish, Persian, Arabic}
}

// ParseTargetLanguage accepts a display name case-insensitively.
func ParseTargetLanguage(raw string) (TargetLanguage, error) {
	value := strings.TrimSpace(raw)
	for _, lang := range SupportedLanguages() {
		if strings.EqualFold(string(lang), value) {
			return lang, nil
		}
	}
	return "", fmt.Errorf("unsupported target language %q", raw)
}

// Code returns the BCP-47 style code for the language.
func (l TargetLanguage) Code() string {
	switch l {
	case English:
		return "en"
	case Turkish:
		return "tr"
	case Persian:
		return "fa"
	case Arabic:
		return "ar"
	default:
		return ""
	}
}

// LanguageForCode maps a detected language code back to a supported language.
func LanguageForCode(code string) (TargetLanguage, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, lang := range SupportedLanguages() {
		if lang.Code() == code {
			return lang, true
		}
	}
	return "", false
}
