package speech

import "time"

// ASRResponse is the recognized text for one upload.
type ASRResponse struct {
	SessionID  string    `json:"sessionId"`
	Text       string    `json:"text"`
	Language   string    `json:"language,omitempty"`
	Confidence float64   `json:"confidence"`
	Duration   int64     `json:"duration"` // milliseconds
	RequestID  string    `json:"requestId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TranslateResponse is the translator output including the detected source language code.
type TranslateResponse struct {
	SourceLanguage string `json:"source_lang"`
	Translation    string `json:"translation"`
}

// TranscribeTranslateResponse is the success body of POST /v1/transcribe_translate.
type TranscribeTranslateResponse struct {
	Transcript  string `json:"transcript"`
	Translation string `json:"translation"`
	Lang        string `json:"lang"`
}

// ErrorResponse is the failure body of the backend.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
