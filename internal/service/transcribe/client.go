// Package transcribe uploads recordings to the transcribe-and-translate service.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zhouzirui/voxlate/internal/model/session"
)

const (
	TranscribePath = "/v1/transcribe_translate"
	HealthPath     = "/health"

	fileScheme = "file://"
)

var (
	ErrInvalidAudio = errors.New("no audio recording available")
	ErrDecode       = errors.New("malformed transcription response")
)

// ServerError is a non-2xx answer from the service.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// Result is a successful transcription and translation.
type Result struct {
	Transcript       string `json:"transcript"`
	Translation      string `json:"translation"`
	DetectedLanguage string `json:"detectedLanguage"`
}

// Options configures the client.
type Options struct {
	BaseURL       string
	UploadTimeout time.Duration
	HealthTimeout time.Duration
}

// Client talks to the remote service over HTTP.
type Client struct {
	http          *resty.Client
	baseURL       string
	uploadTimeout time.Duration
	healthTimeout time.Duration
	now           func() time.Time
}

// NewClient creates a client for the given base URL. A trailing slash is dropped.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 2 * time.Minute
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = 5 * time.Second
	}
	return &Client{
		http:          resty.New().SetBaseURL(base),
		baseURL:       base,
		uploadTimeout: opts.UploadTimeout,
		healthTimeout: opts.HealthTimeout,
		now:           time.Now,
	}
}

// BaseURL returns the service address, for user-facing messages.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// NormalizeAudioURI prefixes the local file scheme only when it is absent.
func NormalizeAudioURI(uri string) string {
	if strings.HasPrefix(uri, fileScheme) {
		return uri
	}
	return fileScheme + uri
}

// Send uploads one recording with the chosen target language.
func (c *Client) Send(ctx context.Context, audioURI string, target session.TargetLanguage) (*Result, error) {
	if strings.TrimSpace(audioURI) == "" {
		return nil, ErrInvalidAudio
	}

	uri := NormalizeAudioURI(audioURI)
	audio, err := os.ReadFile(strings.TrimPrefix(uri, fileScheme))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	if len(audio) == 0 {
		return nil, ErrInvalidAudio
	}

	ctx, span := otel.Tracer("voxlate/transcribe").Start(ctx, "transcribe.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("target_lang", string(target)),
		attribute.Int("audio.bytes", len(audio)),
	)

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	ext, contentType := audioType(uri)
	filename := fmt.Sprintf("recording-%d%s", c.now().UnixMilli(), ext)

	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{"target_lang": string(target)}).
		SetMultipartField("file", filename, contentType, bytes.NewReader(audio)).
		Post(TranscribePath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return nil, fmt.Errorf("upload audio: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))
	if !resp.IsSuccess() {
		serr := &ServerError{Status: resp.StatusCode(), Message: errorMessage(resp.StatusCode(), resp.Body())}
		span.SetStatus(codes.Error, serr.Message)
		return nil, serr
	}

	result, err := decodeResult(resp.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, err
	}
	return result, nil
}

// HealthCheck probes the service. Any failure reads as offline.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	resp, err := c.http.R().SetContext(ctx).Get(HealthPath)
	if err != nil {
		return false
	}
	return resp.IsSuccess()
}

// errorMessage applies the detail -> raw body -> status fallback chain.
func errorMessage(status int, body []byte) string {
	generic := fmt.Sprintf("Server responded with status %d", status)
	text := string(body)
	if strings.TrimSpace(text) == "" {
		return generic
	}

	var parsed struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if detail, ok := parsed.Detail.(string); ok {
			if detail == "" {
				return generic
			}
			return detail
		}
	}
	return text
}

func decodeResult(body []byte) (*Result, error) {
	var raw struct {
		Transcript  *string `json:"transcript"`
		Translation *string `json:"translation"`
		Lang        string  `json:"lang"`
		SourceLang  string  `json:"source_lang"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if raw.Transcript == nil || raw.Translation == nil {
		return nil, fmt.Errorf("%w: transcript and translation are required", ErrDecode)
	}

	detected := raw.SourceLang
	if detected == "" {
		detected = raw.Lang
	}
	if detected == "" {
		detected = "unknown"
	}

	return &Result{
		Transcript:       *raw.Transcript,
		Translation:      *raw.Translation,
		DetectedLanguage: detected,
	}, nil
}

func audioType(uri string) (string, string) {
	ext := strings.ToLower(filepath.Ext(uri))
	switch ext {
	case ".wav":
		return ext, "audio/wav"
	case ".mp3":
		return ext, "audio/mpeg"
	case ".ogg":
		return ext, "audio/ogg"
	case ".webm":
		return ext, "audio/webm"
	case ".m4a", ".mp4", ".aac":
		return ".mp4", "audio/mp4"
	default:
		return ".wav", "audio/wav"
	}
}
