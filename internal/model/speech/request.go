package speech

import (
	"io"
)

// ASRRequest is one audio upload to be transcribed.
type ASRRequest struct {
	SessionID string    `json:"sessionId"`
	AudioData io.Reader `json:"-"`
	Format    string    `json:"format"`   // wav, mp3, ogg, m4a
	Language  string    `json:"language"` // empty for auto-detection
}

// TranslateRequest asks the translator for a target-language rendering of a transcript.
type TranslateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
	SourceHint     string `json:"sourceHint,omitempty"`
}
