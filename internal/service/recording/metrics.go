package recording

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/zhouzirui/voxlate/internal/capture"
	"github.com/zhouzirui/voxlate/internal/service/transcribe"
)

type instruments struct {
	started   metric.Int64Counter
	completed metric.Int64Counter
	failed    metric.Int64Counter
	latency   metric.Float64Histogram
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	started, err := meter.Int64Counter("recording.started",
		metric.WithDescription("Recordings started"))
	if err != nil {
		return nil, err
	}
	completed, err := meter.Int64Counter("recording.completed",
		metric.WithDescription("Recordings transcribed and translated"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("recording.failed",
		metric.WithDescription("Recordings that resolved to a failed message"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("transcription.duration",
		metric.WithDescription("Upload round trip to the transcription backend"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &instruments{started: started, completed: completed, failed: failed, latency: latency}, nil
}

func reasonAttr(err error) metric.AddOption {
	reason := "other"
	var serverErr *transcribe.ServerError
	switch {
	case errors.As(err, &serverErr):
		reason = "server"
	case errors.Is(err, ErrNoSpeech):
		reason = "no_speech"
	case errors.Is(err, capture.ErrEmptyRecording):
		reason = "empty_recording"
	case errors.Is(err, transcribe.ErrInvalidAudio):
		reason = "invalid_audio"
	case errors.Is(err, transcribe.ErrDecode):
		reason = "decode"
	case errors.Is(err, context.Canceled):
		reason = "cancelled"
	}
	return metric.WithAttributes(attribute.String("reason", reason))
}
