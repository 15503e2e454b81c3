package speech

import (
	"bytes"
	"context"

	speechmodel "github.com/zhouzirui/voxlate/internal/model/speech"
)

// Service is the speech-to-text entry point used by the transcribe/translate pipeline.
type Service struct {
	asr *ASRClient
}

func NewService(cfg *speechmodel.SpeechConfig, opts ASROptions) *Service {
	return &Service{asr: NewASRClient(cfg, opts)}
}

// Transcribe recognizes one in-memory recording. format is the container
// extension (wav, mp3, ogg, m4a); language may be empty for auto-detection.
func (s *Service) Transcribe(ctx context.Context, sessionID string, audio []byte, format, language string) (*speechmodel.ASRResponse, error) {
	return s.asr.Transcribe(ctx, &speechmodel.ASRRequest{
		SessionID: sessionID,
		AudioData: bytes.NewReader(audio),
		Format:    format,
		Language:  language,
	})
}
