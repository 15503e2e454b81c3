// Package translate chains speech recognition and translation for one upload.
package translate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/voxlate/internal/model/session"
	speechmodel "github.com/zhouzirui/voxlate/internal/model/speech"
)

var (
	ErrUnsupportedTarget = errors.New("unsupported target_lang")
	ErrTranscription     = errors.New("transcription failed")
	ErrTranslation       = errors.New("translation error")
)

// Transcriber turns audio bytes into text.
type Transcriber interface {
	Transcribe(ctx context.Context, sessionID string, audio []byte, format, language string) (*speechmodel.ASRResponse, error)
}

// Translator renders text into a target language and reports the source language.
type Translator interface {
	Translate(ctx context.Context, req *speechmodel.TranslateRequest) (*speechmodel.TranslateResponse, error)
}

// Pipeline runs ASR then translation.
type Pipeline struct {
	asr        Transcriber
	translator Translator
}

func NewPipeline(asr Transcriber, translator Translator) *Pipeline {
	return &Pipeline{asr: asr, translator: translator}
}

// ParseTarget resolves a target_lang form value. "Farsi" is accepted as Persian.
func ParseTarget(raw string) (session.TargetLanguage, error) {
	value := strings.TrimSpace(raw)
	if strings.EqualFold(value, "Farsi") {
		return session.Persian, nil
	}
	lang, err := session.ParseTargetLanguage(value)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedTarget, raw)
	}
	return lang, nil
}

// Run transcribes and translates one upload. An empty transcript short-circuits
// with empty transcript and translation.
func (p *Pipeline) Run(ctx context.Context, audio []byte, filename string, target session.TargetLanguage) (*speechmodel.TranscribeTranslateResponse, error) {
	requestID := uuid.NewString()
	started := time.Now()
	logger := log.With().Str("component", "translate").Str("request_id", requestID).Logger()

	asr, err := p.asr.Transcribe(ctx, requestID, audio, formatOf(filename), "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	text := strings.TrimSpace(asr.Text)
	lang := normalizeCode(asr.Language)
	if text == "" {
		logger.Info().Dur("elapsed", time.Since(started)).Msg("empty transcript")
		return &speechmodel.TranscribeTranslateResponse{Lang: orUnknown(lang)}, nil
	}

	out, err := p.translator.Translate(ctx, &speechmodel.TranslateRequest{
		Text:           text,
		TargetLanguage: string(target),
		SourceHint:     lang,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranslation, err)
	}
	if detected := normalizeCode(out.SourceLanguage); detected != "" {
		lang = detected
	}

	logger.Info().
		Str("target_lang", string(target)).
		Str("source_lang", lang).
		Int("chars", len([]rune(text))).
		Dur("elapsed", time.Since(started)).
		Msg("transcribed and translated")

	return &speechmodel.TranscribeTranslateResponse{
		Transcript:  text,
		Translation: out.Translation,
		Lang:        DisplayLanguage(orUnknown(lang)),
	}, nil
}

// DisplayLanguage maps supported codes to their display name; other codes pass through.
func DisplayLanguage(code string) string {
	if lang, ok := session.LanguageForCode(code); ok {
		return string(lang)
	}
	return code
}

// normalizeCode lowercases and strips a region suffix ("fa-IR" → "fa").
func normalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

func orUnknown(code string) string {
	if code == "" {
		return "unknown"
	}
	return code
}

func formatOf(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "mp4", "m4a":
		return "m4a"
	case "":
		return "wav"
	}
	return ext
}
