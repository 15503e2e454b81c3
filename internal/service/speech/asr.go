package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	speechmodel "github.com/zhouzirui/voxlate/internal/model/speech"
)

const (
	// DefaultASREndpoint is the non-streaming-output big model endpoint; it returns
	// one full result after the last audio packet.
	DefaultASREndpoint = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream"

	resourceDuration   = "volc.bigasr.sauc.duration"
	resourceConcurrent = "volc.bigasr.sauc.concurrent"

	// 16 kHz, 16 bit, mono: 200 ms per packet
	chunkSize = 6400

	successCode = 20000000
)

var (
	ErrNoAudio = errors.New("no audio data to transcribe")
	ErrASR     = errors.New("asr request failed")
)

// ASROptions tunes the ASR client. Zero values take defaults.
type ASROptions struct {
	Endpoint      string
	ChunkInterval time.Duration
	Dialer        *websocket.Dialer
}

// ASRClient transcribes one upload over the Volcengine binary WebSocket protocol.
type ASRClient struct {
	config        *speechmodel.SpeechConfig
	endpoint      string
	chunkInterval time.Duration
	dialer        *websocket.Dialer
}

type asrRequest struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn,omitempty"`
		EnablePunc     bool   `json:"enable_punc,omitempty"`
		ShowUtterances bool   `json:"show_utterances,omitempty"`
		ResultType     string `json:"result_type,omitempty"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

type utterance struct {
	Text      string `json:"text"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Definite  bool   `json:"definite"`
}

type asrServerMessage struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Result   struct {
		Text       string      `json:"text"`
		Language   string      `json:"language,omitempty"`
		Utterances []utterance `json:"utterances,omitempty"`
	} `json:"result"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info"`
}

// NewASRClient builds a client. cfg.BaseURL, when set, overrides the endpoint.
func NewASRClient(cfg *speechmodel.SpeechConfig, opts ASROptions) *ASRClient {
	endpoint := opts.Endpoint
	if endpoint == "" && cfg != nil {
		endpoint = strings.TrimSpace(cfg.BaseURL)
	}
	if endpoint == "" {
		endpoint = DefaultASREndpoint
	}
	if opts.ChunkInterval < 0 {
		opts.ChunkInterval = 0
	} else if opts.ChunkInterval == 0 {
		opts.ChunkInterval = 200 * time.Millisecond
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	}
	return &ASRClient{
		config:        cfg,
		endpoint:      endpoint,
		chunkInterval: opts.ChunkInterval,
		dialer:        dialer,
	}
}

// Transcribe streams the audio and returns the final transcript.
func (c *ASRClient) Transcribe(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	appID, token, err := resolveCredentials(c.config)
	if err != nil {
		return nil, err
	}
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.config.Timeout)*time.Second)
		defer cancel()
	}
	if req.AudioData == nil {
		return nil, ErrNoAudio
	}
	audio, err := io.ReadAll(req.AudioData)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrNoAudio
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	resource := resourceDuration
	if c.config.ConcurrentMode {
		resource = resourceConcurrent
	}
	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", token)
	header.Set("X-Api-Resource-Id", resource)
	header.Set("X-Api-Connect-Id", req.SessionID)

	conn, resp, err := c.dialer.DialContext(ctx, c.endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrASR, err)
	}
	defer conn.Close()
	if logID := resp.Header.Get("X-Tt-Logid"); logID != "" {
		log.Debug().Str("component", "asr").Str("logid", logID).Str("session_id", req.SessionID).Msg("connected")
	}

	params, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("encode asr request: %w", err)
	}
	params, err = compress(params, GzipCompression)
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, newFullClientRequest(params, GzipCompression).Encode()); err != nil {
		return nil, fmt.Errorf("%w: send request: %v", ErrASR, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// unblock ReadMessage when the caller gives up
	go func() {
		<-ctx.Done()
		conn.SetReadDeadline(time.Now())
	}()

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- c.sendAudio(ctx, conn, audio)
	}()

	type outcome struct {
		resp *speechmodel.ASRResponse
		err  error
	}
	recv := make(chan outcome, 1)
	go func() {
		r, err := c.receive(conn, req.SessionID)
		recv <- outcome{r, err}
	}()

	for {
		select {
		case err := <-sendErr:
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, fmt.Errorf("%w: send audio: %v", ErrASR, err)
			}
			sendErr = nil
		case out := <-recv:
			if out.err != nil && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return out.resp, out.err
		}
	}
}

func (c *ASRClient) buildRequest(req *speechmodel.ASRRequest) *asrRequest {
	r := &asrRequest{}
	r.User.UID = req.SessionID

	format := strings.ToLower(strings.TrimPrefix(req.Format, "."))
	switch format {
	case "", "wav", "pcm":
		r.Audio.Format = "wav"
		if format == "pcm" {
			r.Audio.Format = "pcm"
		}
		r.Audio.Codec = "raw"
		r.Audio.Rate = 16000
		r.Audio.Bits = 16
		r.Audio.Channel = 1
	case "ogg", "opus", "webm":
		r.Audio.Format = "ogg"
		r.Audio.Codec = "opus"
	default:
		r.Audio.Format = format
	}

	r.Audio.Language = req.Language
	if r.Audio.Language == "" && c.config != nil {
		r.Audio.Language = c.config.ASRLanguage
	}

	r.Request.ModelName = "bigmodel"
	if c.config != nil && c.config.ASRModel != "" {
		r.Request.ModelName = c.config.ASRModel
	}
	r.Request.EnableITN = true
	r.Request.EnablePunc = true
	r.Request.ShowUtterances = true
	r.Request.ResultType = "full"
	r.Request.EndWindowSize = 800
	return r
}

func (c *ASRClient) sendAudio(ctx context.Context, conn *websocket.Conn, audio []byte) error {
	// the full client request took sequence 1
	seq := int32(2)
	for start := 0; start < len(audio); start += chunkSize {
		end := min(start+chunkSize, len(audio))
		last := end == len(audio)

		chunk, err := compress(audio[start:end], GzipCompression)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, newAudioRequest(chunk, seq, last, GzipCompression).Encode()); err != nil {
			return err
		}
		seq++
		if last || c.chunkInterval == 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.chunkInterval):
		}
	}
	return nil
}

func (c *ASRClient) receive(conn *websocket.Conn, sessionID string) (*speechmodel.ASRResponse, error) {
	var (
		text     string
		language string
		duration int64
	)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("%w: read: %v", ErrASR, err)
		}
		msg, err := DecodeMessage(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decode: %v", ErrASR, err)
		}

		switch msg.Header.Type {
		case ErrorMessage:
			payload, _ := decompress(msg.Payload, msg.Header.Compression)
			return nil, fmt.Errorf("%w: code %d: %s", ErrASR, msg.ErrorCode, strings.TrimSpace(string(payload)))

		case FullServerResponse:
			payload, err := decompress(msg.Payload, msg.Header.Compression)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrASR, err)
			}
			var body asrServerMessage
			if err := json.Unmarshal(payload, &body); err != nil {
				log.Warn().Str("component", "asr").Err(err).Msg("skip undecodable result")
				continue
			}
			if body.Code != 0 && body.Code != successCode {
				return nil, fmt.Errorf("%w: code %d: %s", ErrASR, body.Code, body.Message)
			}

			candidate := body.Result.Text
			if candidate == "" {
				candidate = joinUtterances(body.Result.Utterances)
			}
			if candidate != "" {
				text = candidate
			}
			if body.Result.Language != "" {
				language = body.Result.Language
			}
			if body.AudioInfo.Duration > 0 {
				duration = body.AudioInfo.Duration
			}

			if msg.IsLast() || body.Sequence < 0 {
				if text == "" {
					log.Info().Str("component", "asr").Str("session_id", sessionID).Msg("empty transcript")
				}
				return &speechmodel.ASRResponse{
					SessionID:  sessionID,
					Text:       strings.TrimSpace(text),
					Language:   language,
					Confidence: confidence(text),
					Duration:   duration,
					RequestID:  sessionID,
					CreatedAt:  time.Now(),
				}, nil
			}
		}
	}
}

func joinUtterances(items []utterance) string {
	parts := make([]string, 0, len(items))
	for _, u := range items {
		if t := strings.TrimSpace(u.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func confidence(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return 0.95
}
