package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	speechmodel "github.com/zhouzirui/voxlate/internal/model/speech"
)

var (
	ErrEmptyTranslation = errors.New("model returned no translation")
	ErrMalformedOutput  = errors.New("model output is not a translation object")
)

// Translator renders a transcript into a target language and identifies the
// source language with one chat-model call.
type Translator struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewTranslator compiles the prompt + model chain.
func NewTranslator(ctx context.Context, chatModel model.BaseChatModel) (*Translator, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	tpl := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(translatorSystemPrompt),
		schema.UserMessage(translatorUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(tpl)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile translator chain: %w", err)
	}
	return &Translator{chain: runnable}, nil
}

// Translate returns the translation and the detected source language code.
func (t *Translator) Translate(ctx context.Context, req *speechmodel.TranslateRequest) (*speechmodel.TranslateResponse, error) {
	hint := strings.TrimSpace(req.SourceHint)
	if hint == "" {
		hint = "unknown"
	}

	msg, err := t.chain.Invoke(ctx, map[string]any{
		"target":      req.TargetLanguage,
		"source_hint": hint,
		"text":        strings.TrimSpace(req.Text),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run translator chain: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return nil, ErrEmptyTranslation
	}

	out, err := parseTranslation(msg.Content)
	if err != nil {
		log.Warn().Str("component", "translator").Err(err).Str("content", msg.Content).Msg("unparseable model output")
		return nil, err
	}
	if out.Translation == "" {
		return nil, ErrEmptyTranslation
	}
	return out, nil
}

// parseTranslation extracts the first JSON object from the model reply, tolerating
// code fences or surrounding prose.
func parseTranslation(content string) (*speechmodel.TranslateResponse, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end <= start {
		return nil, ErrMalformedOutput
	}

	var out speechmodel.TranslateResponse
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	out.SourceLanguage = strings.ToLower(strings.TrimSpace(out.SourceLanguage))
	out.Translation = strings.TrimSpace(out.Translation)
	return &out, nil
}

const translatorSystemPrompt = "You are a translation engine. Identify the language of the user's text and translate it into the requested target language.\n" +
	"Return only one JSON object with two string fields: source_lang (the ISO 639-1 code of the input language, lowercase, for example en, tr, fa, ar) and translation (the translated text). " +
	"If the text is already in the target language, return it unchanged as the translation. Do not add notes, quotes or any other text."

const translatorUserPrompt = "Target language: {target}\nSpeech recognizer language guess: {source_hint}\n\nText:\n{text}"
