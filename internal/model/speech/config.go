package speech

// SpeechConfig holds the Volcengine streaming ASR credentials used by the backend.
type SpeechConfig struct {
	AppID          string `json:"appId"`
	AccessToken    string `json:"accessToken"`
	APIKey         string `json:"apiKey,omitempty"` // legacy alias for AccessToken
	Region         string `json:"region"`
	BaseURL        string `json:"baseUrl"`
	ConcurrentMode bool   `json:"concurrentMode"` // concurrent resource instead of the duration plan

	ASRModel    string `json:"asrModel"`
	ASRLanguage string `json:"asrLanguage"` // empty lets the model auto-detect

	Timeout int `json:"timeout"` // seconds
}
