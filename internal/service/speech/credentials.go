package speech

import (
	"errors"
	"strings"

	speechmodel "github.com/zhouzirui/voxlate/internal/model/speech"
)

var ErrMissingCredentials = errors.New("speech: SPEECH_APP_ID and SPEECH_ACCESS_TOKEN are required")

// resolveCredentials returns the trimmed app id and token. APIKey is accepted as
// a legacy alias for AccessToken.
func resolveCredentials(cfg *speechmodel.SpeechConfig) (string, string, error) {
	if cfg == nil {
		return "", "", ErrMissingCredentials
	}
	appID := strings.TrimSpace(cfg.AppID)
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		token = strings.TrimSpace(cfg.APIKey)
	}
	if appID == "" || token == "" {
		return "", "", ErrMissingCredentials
	}
	return appID, token, nil
}
