package recording

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/voxlate/internal/capture"
	"github.com/zhouzirui/voxlate/internal/model/session"
	"github.com/zhouzirui/voxlate/internal/service/transcribe"
)

// StartRecording moves Idle → Recording. It is refused with ErrBackendOffline
// when the last health check failed and with ErrBusy when not idle; neither
// refusal changes state.
func (m *Manager) StartRecording(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return ErrClosed
	case m.state != session.Idle:
		m.mu.Unlock()
		return ErrBusy
	case !m.online:
		m.mu.Unlock()
		return ErrBackendOffline
	}
	// reserve the slot so a concurrent start sees ErrBusy and a stop sees no capture yet
	m.state = session.Recording
	m.starting = true
	m.wg.Add(1)
	m.mu.Unlock()
	defer m.wg.Done()

	_, err := m.capture.Start(ctx)

	m.mu.Lock()
	m.starting = false
	if err != nil {
		m.state = session.Idle
		m.mu.Unlock()
		log.Warn().Str("component", "recording").Err(err).Msg("capture start failed")
		return err
	}
	if m.closed {
		m.state = session.Idle
		m.mu.Unlock()
		m.releaseCapture()
		return ErrClosed
	}
	m.mu.Unlock()

	m.metrics.started.Add(ctx, 1)
	m.publishState(EventState)
	log.Info().Str("component", "recording").Msg("recording started")
	return nil
}

// StopRecording moves Recording → Processing and returns the message appended to
// the active session. On capture success that is the pending message and the
// upload continues in the background; on capture failure it is the failed message
// and the manager is already back to Idle.
func (m *Manager) StopRecording(ctx context.Context) (session.Message, error) {
	m.mu.Lock()
	if m.state != session.Recording || m.starting {
		m.mu.Unlock()
		return session.Message{}, capture.ErrNoActiveCapture
	}
	m.state = session.Processing
	target := m.target
	uploadCtx, cancel := context.WithCancel(m.base)
	m.cancel = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	m.publishState(EventState)

	handle, err := m.capture.Stop(ctx)
	if errors.Is(err, capture.ErrNoActiveCapture) {
		// the recorder is gone, so there is nothing to turn into a message
		m.mu.Lock()
		m.finishLocked()
		m.mu.Unlock()
		m.wg.Done()
		m.publishState(EventState)
		return session.Message{}, err
	}
	if err != nil {
		defer m.wg.Done()
		log.Warn().Str("component", "recording").Err(err).Msg("capture stop failed")
		msg, persistErr := m.fail(ctx, target, err)
		return msg, persistErr
	}

	pending := session.NewPending(m.newID(), handle.URI, target, m.now())

	m.mu.Lock()
	m.active.Append(pending, pending.Timestamp)
	sessionID := m.active.ID
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(EventMessage, snap, nil)
	log.Info().
		Str("component", "recording").
		Str("session_id", sessionID).
		Str("message_id", pending.ID).
		Str("target_lang", string(target)).
		Msg("recording captured, uploading")

	go m.process(uploadCtx, pending)
	return pending, nil
}

// CancelProcessing aborts the in-flight upload. The pending message resolves as a
// failed "Transcription cancelled" message.
func (m *Manager) CancelProcessing() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != session.Processing || m.cancel == nil {
		return ErrNotProcessing
	}
	m.cancel()
	log.Info().Str("component", "recording").Msg("transcription cancel requested")
	return nil
}

func (m *Manager) process(ctx context.Context, pending session.Message) {
	defer m.wg.Done()

	started := time.Now()
	result, err := m.client.Send(ctx, pending.AudioURI, pending.TargetLanguage)
	if err == nil && strings.TrimSpace(result.Transcript) == "" {
		err = ErrNoSpeech
	}
	m.metrics.latency.Record(context.WithoutCancel(ctx), float64(time.Since(started).Milliseconds()))

	// persistence must not be aborted by a cancelled upload
	persistCtx := context.WithoutCancel(ctx)
	if err != nil {
		log.Warn().Str("component", "recording").Str("message_id", pending.ID).Err(err).Msg("transcription failed")
		m.fail(persistCtx, pending.TargetLanguage, err)
		return
	}
	m.complete(persistCtx, pending, result)
}

func (m *Manager) complete(ctx context.Context, pending session.Message, result *transcribe.Result) {
	now := m.now()
	completed := pending.Complete(result.Transcript, result.Translation, result.DetectedLanguage)

	m.mu.Lock()
	if m.active.CompletedCount() == 0 {
		m.active.Title = session.DeriveTitle(result.Transcript)
	}
	if !m.active.Replace(completed, now) {
		// pending message vanished; keep the result rather than drop it
		m.active.Append(completed, now)
	}
	persistErr := m.persistLocked(ctx)
	m.finishLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.metrics.completed.Add(ctx, 1)
	m.publish(EventMessage, snap, persistErr)
	log.Info().
		Str("component", "recording").
		Str("session_id", snap.Session.ID).
		Str("message_id", completed.ID).
		Str("detected_lang", completed.DetectedLanguage).
		Msg("transcription completed")
}

// fail drops any pending message, appends a failed one and persists. It always
// returns the manager to Idle.
func (m *Manager) fail(ctx context.Context, target session.TargetLanguage, cause error) (session.Message, error) {
	now := m.now()
	failed := session.NewFailed(m.newID(), target, failureReason(cause), now)

	m.mu.Lock()
	m.active.DropPending(now)
	m.active.Append(failed, now)
	persistErr := m.persistLocked(ctx)
	m.finishLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.metrics.failed.Add(ctx, 1, reasonAttr(cause))
	m.publish(EventMessage, snap, persistErr)
	return failed, persistErr
}

func (m *Manager) persistLocked(ctx context.Context) error {
	err := m.store.SaveSession(ctx, m.active)
	m.lastErr = err
	if err != nil {
		log.Error().Str("component", "recording").Str("session_id", m.active.ID).Err(err).Msg("persist session failed")
	}
	return err
}

func (m *Manager) finishLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.state = session.Idle
}

func failureReason(err error) string {
	var serverErr *transcribe.ServerError
	switch {
	case errors.As(err, &serverErr):
		return serverErr.Message
	case errors.Is(err, context.Canceled):
		return cancelledReason
	case errors.Is(err, ErrNoSpeech):
		return noSpeechReason
	case errors.Is(err, capture.ErrEmptyRecording):
		return emptyReason
	case err == nil || err.Error() == "":
		return defaultReason
	default:
		return err.Error()
	}
}
