package translate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/voxlate/internal/model/session"
	speechmodel "github.com/zhouzirui/voxlate/internal/model/speech"
)

type stubASR struct {
	resp   *speechmodel.ASRResponse
	err    error
	format string
}

func (s *stubASR) Transcribe(_ context.Context, _ string, _ []byte, format, _ string) (*speechmodel.ASRResponse, error) {
	s.format = format
	return s.resp, s.err
}

type stubTranslator struct {
	resp *speechmodel.TranslateResponse
	err  error
	req  *speechmodel.TranslateRequest
}

func (s *stubTranslator) Translate(_ context.Context, req *speechmodel.TranslateRequest) (*speechmodel.TranslateResponse, error) {
	s.req = req
	return s.resp, s.err
}

func TestPipelineRun(t *testing.T) {
	asr := &stubASR{resp: &speechmodel.ASRResponse{Text: " hello "}}
	tr := &stubTranslator{resp: &speechmodel.TranslateResponse{SourceLanguage: "en", Translation: "merhaba"}}
	p := NewPipeline(asr, tr)

	out, err := p.Run(context.Background(), []byte("audio"), "recording-1.m4a", session.Turkish)
	require.NoError(t, err)
	assert.Equal(t, "hello", out.Transcript)
	assert.Equal(t, "merhaba", out.Translation)
	assert.Equal(t, "English", out.Lang)
	assert.Equal(t, "m4a", asr.format)
	assert.Equal(t, "Turkish", tr.req.TargetLanguage)
	assert.Equal(t, "hello", tr.req.Text)
}

func TestPipelineLanguageFallbacks(t *testing.T) {
	asr := &stubASR{resp: &speechmodel.ASRResponse{Text: "salam", Language: "fa-IR"}}
	tr := &stubTranslator{resp: &speechmodel.TranslateResponse{Translation: "hello"}}

	out, err := NewPipeline(asr, tr).Run(context.Background(), []byte("a"), "x.wav", session.English)
	require.NoError(t, err)
	assert.Equal(t, "Persian", out.Lang)
	assert.Equal(t, "fa", tr.req.SourceHint)

	tr.resp = &speechmodel.TranslateResponse{SourceLanguage: "de", Translation: "hello"}
	out, err = NewPipeline(asr, tr).Run(context.Background(), []byte("a"), "x.wav", session.English)
	require.NoError(t, err)
	assert.Equal(t, "de", out.Lang)
}

func TestPipelineEmptyTranscript(t *testing.T) {
	tr := &stubTranslator{}
	out, err := NewPipeline(&stubASR{resp: &speechmodel.ASRResponse{Text: "   "}}, tr).
		Run(context.Background(), []byte("a"), "x.wav", session.English)
	require.NoError(t, err)
	assert.Empty(t, out.Transcript)
	assert.Empty(t, out.Translation)
	assert.Equal(t, "unknown", out.Lang)
	assert.Nil(t, tr.req, "translator must not run")
}

func TestPipelineErrors(t *testing.T) {
	_, err := NewPipeline(&stubASR{err: errors.New("socket closed")}, &stubTranslator{}).
		Run(context.Background(), []byte("a"), "x.wav", session.English)
	require.ErrorIs(t, err, ErrTranscription)

	_, err = NewPipeline(&stubASR{resp: &speechmodel.ASRResponse{Text: "hi"}}, &stubTranslator{err: errors.New("quota")}).
		Run(context.Background(), []byte("a"), "x.wav", session.English)
	require.ErrorIs(t, err, ErrTranslation)
	assert.Equal(t, "translation error: quota", err.Error())
}

func TestParseTarget(t *testing.T) {
	lang, err := ParseTarget("Farsi")
	require.NoError(t, err)
	assert.Equal(t, session.Persian, lang)

	lang, err = ParseTarget("arabic")
	require.NoError(t, err)
	assert.Equal(t, session.Arabic, lang)

	_, err = ParseTarget("Klingon")
	require.ErrorIs(t, err, ErrUnsupportedTarget)
	assert.Equal(t, "unsupported target_lang: Klingon", err.Error())
}
