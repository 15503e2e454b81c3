// Package recording drives the Idle → Recording → Processing → Idle state machine
// that turns microphone captures into transcribed, translated session messages.
package recording

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/zhouzirui/voxlate/internal/capture"
	"github.com/zhouzirui/voxlate/internal/model/session"
	sessionstore "github.com/zhouzirui/voxlate/internal/service/session"
	"github.com/zhouzirui/voxlate/internal/service/transcribe"
)

var (
	ErrBackendOffline = errors.New("backend is offline")
	ErrBusy           = errors.New("a recording is already in progress")
	ErrNotProcessing  = errors.New("no transcription in flight")
	ErrNoSpeech       = errors.New("no speech detected")
	ErrClosed         = errors.New("recording manager is closed")
)

const (
	cancelledReason = "Transcription cancelled"
	noSpeechReason  = "No speech detected"
	emptyReason     = "Recording is empty"
	defaultReason   = "Failed to process audio"
)

// Capturer is the part of the capture controller the manager drives.
type Capturer interface {
	Start(ctx context.Context) (capture.Handle, error)
	Stop(ctx context.Context) (capture.Handle, error)
}

// Transcriber uploads recordings and probes backend liveness.
type Transcriber interface {
	Send(ctx context.Context, audioURI string, target session.TargetLanguage) (*transcribe.Result, error)
	HealthCheck(ctx context.Context) bool
}

// Options wires the manager's collaborators. Capture, Client and Store are required.
type Options struct {
	Capture       Capturer
	Client        Transcriber
	Store         sessionstore.Store
	Notifier      Notifier
	Meter         metric.Meter
	Clock         func() time.Time
	NewID         func() string
	DefaultTarget session.TargetLanguage
}

// Snapshot is a consistent read of everything presentation needs.
type Snapshot struct {
	State          session.RecordingState `json:"state"`
	BackendOnline  bool                   `json:"backendOnline"`
	HealthChecked  bool                   `json:"healthChecked"`
	TargetLanguage session.TargetLanguage `json:"targetLanguage"`
	Session        session.Session        `json:"session"`
	LastError      string                 `json:"lastError,omitempty"`
}

// Manager owns the active session and the recording state. One instance per running app.
type Manager struct {
	capture  Capturer
	client   Transcriber
	store    sessionstore.Store
	notifier Notifier
	metrics  *instruments
	now      func() time.Time
	newID    func() string

	base   context.Context
	health singleflight.Group
	wg     sync.WaitGroup

	mu            sync.Mutex
	state         session.RecordingState
	starting      bool
	online        bool
	healthChecked bool
	target        session.TargetLanguage
	active        session.Session
	cancel        context.CancelFunc
	lastErr       error
	closed        bool
}

// NewManager validates options and builds an idle manager. Call Bootstrap before use.
// ctx bounds every background upload the manager starts.
func NewManager(ctx context.Context, opts Options) (*Manager, error) {
	if opts.Capture == nil {
		return nil, errors.New("capture controller is required")
	}
	if opts.Client == nil {
		return nil, errors.New("transcription client is required")
	}
	if opts.Store == nil {
		return nil, errors.New("session store is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter("github.com/zhouzirui/voxlate/recording")
	}
	if opts.Clock == nil {
		opts.Clock = sessionstore.Clock
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.DefaultTarget == "" {
		opts.DefaultTarget = session.English
	}

	metrics, err := newInstruments(opts.Meter)
	if err != nil {
		return nil, fmt.Errorf("create instruments: %w", err)
	}

	return &Manager{
		capture:  opts.Capture,
		client:   opts.Client,
		store:    opts.Store,
		notifier: opts.Notifier,
		metrics:  metrics,
		now:      opts.Clock,
		newID:    opts.NewID,
		base:     ctx,
		state:    session.Idle,
		target:   opts.DefaultTarget,
	}, nil
}

// Bootstrap restores the persisted active session, creating a fresh one when the
// pointer is unset or dangling, then probes the backend once.
func (m *Manager) Bootstrap(ctx context.Context) error {
	id, err := m.store.GetActiveSessionID(ctx)
	if err != nil {
		return err
	}

	var active session.Session
	if id != "" {
		active, err = m.store.GetSession(ctx, id)
		if err != nil && !errors.Is(err, sessionstore.ErrSessionNotFound) {
			return err
		}
		if errors.Is(err, sessionstore.ErrSessionNotFound) {
			log.Warn().Str("component", "recording").Str("session_id", id).Msg("active session missing, starting a new one")
			id = ""
		}
	}
	if id == "" {
		active, err = m.createAndActivate(ctx)
		if err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.active = active
	m.mu.Unlock()

	log.Info().Str("component", "recording").Str("session_id", active.ID).Int("messages", len(active.Messages)).Msg("session manager ready")
	m.RefreshHealth(ctx)
	return nil
}

// Snapshot returns the current state, health and a copy of the active session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// ActiveSession returns a copy of the session currently receiving messages.
func (m *Manager) ActiveSession() session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active.Clone()
}

// State reports the recording state.
func (m *Manager) State() session.RecordingState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// TargetLanguage reports the language the next recording will be translated into.
func (m *Manager) TargetLanguage() session.TargetLanguage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target
}

// SetTargetLanguage changes the target for subsequent recordings. An in-flight
// upload keeps the language it was sent with.
func (m *Manager) SetTargetLanguage(lang session.TargetLanguage) error {
	parsed, err := session.ParseTargetLanguage(string(lang))
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.target = parsed
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(EventTarget, snap, nil)
	return nil
}

// LastError returns the most recent persistence failure, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Wait blocks until every in-flight start and background upload has resolved.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close cancels any in-flight upload, releases an active capture and waits for
// background work. The store is left open for its owner to close.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	// an in-flight start releases its own capture once it sees closed
	recording := m.state == session.Recording && !m.starting
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	var err error
	if recording {
		err = m.releaseCapture()
		m.mu.Lock()
		m.state = session.Idle
		m.mu.Unlock()
	}

	m.wg.Wait()
	return err
}

// releaseCapture stops a capture whose recording is discarded.
func (m *Manager) releaseCapture() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := m.capture.Stop(ctx)
	if errors.Is(err, capture.ErrEmptyRecording) {
		return nil
	}
	if err != nil {
		log.Warn().Str("component", "recording").Err(err).Msg("release capture failed")
	}
	return err
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:          m.state,
		BackendOnline:  m.online,
		HealthChecked:  m.healthChecked,
		TargetLanguage: m.target,
		Session:        m.active.Clone(),
	}
	if m.lastErr != nil {
		snap.LastError = m.lastErr.Error()
	}
	return snap
}

func (m *Manager) createAndActivate(ctx context.Context) (session.Session, error) {
	created := m.store.CreateSession()
	if err := m.store.SaveSession(ctx, created); err != nil {
		return session.Session{}, err
	}
	if err := m.store.SetActiveSessionID(ctx, created.ID); err != nil {
		return session.Session{}, err
	}
	return created, nil
}
