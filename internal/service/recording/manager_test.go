package recording

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/voxlate/internal/capture"
	"github.com/zhouzirui/voxlate/internal/model/session"
	sessionstore "github.com/zhouzirui/voxlate/internal/service/session"
	"github.com/zhouzirui/voxlate/internal/service/transcribe"
)

type fakeCapture struct {
	mu       sync.Mutex
	active   bool
	uri      string
	startErr error
	stopErr  error
	starts   int
}

func (f *fakeCapture) Start(context.Context) (capture.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return capture.Handle{}, f.startErr
	}
	if f.active {
		return capture.Handle{}, capture.ErrDeviceBusy
	}
	f.active = true
	f.starts++
	return capture.Handle{URI: f.uri}, nil
}

func (f *fakeCapture) Stop(context.Context) (capture.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return capture.Handle{}, capture.ErrNoActiveCapture
	}
	f.active = false
	if f.stopErr != nil {
		return capture.Handle{}, f.stopErr
	}
	return capture.Handle{URI: f.uri}, nil
}

// gatedCapture holds Start open until gate is closed.
type gatedCapture struct {
	*fakeCapture
	entered chan struct{}
	gate    chan struct{}
}

func newGatedCapture(inner *fakeCapture) *gatedCapture {
	return &gatedCapture{fakeCapture: inner, entered: make(chan struct{}), gate: make(chan struct{})}
}

func (g *gatedCapture) Start(ctx context.Context) (capture.Handle, error) {
	close(g.entered)
	<-g.gate
	return g.fakeCapture.Start(ctx)
}

type sendCall struct {
	uri    string
	target session.TargetLanguage
}

type fakeClient struct {
	mu       sync.Mutex
	online   bool
	ctxAware bool
	block   chan struct{}
	result  *transcribe.Result
	err     error
	calls   []sendCall
	healths atomic.Int32
}

func (f *fakeClient) Send(ctx context.Context, uri string, target session.TargetLanguage) (*transcribe.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sendCall{uri: uri, target: target})
	block, result, err := f.block, f.result, f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return result, err
}

func (f *fakeClient) HealthCheck(ctx context.Context) bool {
	f.healths.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ctxAware && ctx.Err() != nil {
		return false
	}
	return f.online
}

// failingStore wraps a MemoryStore and fails saves on demand.
type failingStore struct {
	*sessionstore.MemoryStore
	failSaves atomic.Bool
}

func (s *failingStore) SaveSession(ctx context.Context, item session.Session) error {
	if s.failSaves.Load() {
		return errors.Join(sessionstore.ErrStorage, errors.New("disk full"))
	}
	return s.MemoryStore.SaveSession(ctx, item)
}

type harness struct {
	manager *Manager
	capture *fakeCapture
	client  *fakeClient
	store   sessionstore.Store
	events  *EventLog
}

func newHarness(t *testing.T, store sessionstore.Store, client Transcriber) *harness {
	t.Helper()
	if store == nil {
		store = sessionstore.NewMemoryStore()
	}
	fc, _ := client.(*fakeClient)
	if client == nil {
		fc = &fakeClient{online: true, result: &transcribe.Result{Transcript: "hello", Translation: "merhaba", DetectedLanguage: "en"}}
		client = fc
	}

	var ids atomic.Int64
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var ticks atomic.Int64

	h := &harness{
		capture: &fakeCapture{uri: "file:///tmp/recording-1.wav"},
		client:  fc,
		store:   store,
		events:  &EventLog{},
	}
	m, err := NewManager(context.Background(), Options{
		Capture:  h.capture,
		Client:   client,
		Store:    store,
		Notifier: h.events,
		Clock: func() time.Time {
			return base.Add(time.Duration(ticks.Add(1)) * time.Millisecond)
		},
		NewID: func() string {
			return fmt.Sprintf("msg-%d", ids.Add(1))
		},
	})
	require.NoError(t, err)
	require.NoError(t, m.Bootstrap(context.Background()))
	t.Cleanup(func() { _ = m.Close() })
	h.manager = m
	return h
}

func (h *harness) record(t *testing.T) session.Message {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.manager.StartRecording(ctx))
	msg, err := h.manager.StopRecording(ctx)
	require.NoError(t, err)
	return msg
}

func assertOneState(t *testing.T, s session.Session) {
	t.Helper()
	for _, msg := range s.Messages {
		state := msg.State()
		assert.NotEqual(t, session.StateInvalid, state, "message %s mixes markers", msg.ID)
		if msg.IsLoading {
			assert.Empty(t, msg.Transcript)
			assert.Empty(t, msg.Error)
		}
	}
}

func TestBootstrapCreatesActiveSession(t *testing.T) {
	h := newHarness(t, nil, nil)

	active := h.manager.ActiveSession()
	require.NotEmpty(t, active.ID)
	assert.Equal(t, session.PlaceholderTitle, active.Title)
	assert.Empty(t, active.Messages)

	id, err := h.store.GetActiveSessionID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, active.ID, id)

	snap := h.manager.Snapshot()
	assert.Equal(t, session.Idle, snap.State)
	assert.True(t, snap.BackendOnline)
	assert.True(t, snap.HealthChecked)
	assert.Equal(t, session.English, snap.TargetLanguage)
}

func TestBootstrapRestoresAndRepairsPointer(t *testing.T) {
	ctx := context.Background()
	store := sessionstore.NewMemoryStore()
	existing := store.CreateSession()
	existing.Title = "kept"
	require.NoError(t, store.SaveSession(ctx, existing))
	require.NoError(t, store.SetActiveSessionID(ctx, existing.ID))

	h := newHarness(t, store, nil)
	assert.Equal(t, existing.ID, h.manager.ActiveSession().ID)
	assert.Equal(t, "kept", h.manager.ActiveSession().Title)

	require.NoError(t, store.SetActiveSessionID(ctx, "dangling"))
	again := newHarness(t, store, nil)
	fresh := again.manager.ActiveSession()
	assert.NotEqual(t, "dangling", fresh.ID)
	assert.NotEqual(t, existing.ID, fresh.ID)
	id, err := store.GetActiveSessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, id)
}

func TestSuccessfulRecordingCompletesInPlace(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.client.block = make(chan struct{})
	require.NoError(t, h.manager.SetTargetLanguage(session.Turkish))

	pending := h.record(t)
	assert.True(t, pending.IsLoading)
	assert.Equal(t, session.StatePending, pending.State())
	assert.Equal(t, session.Processing, h.manager.State())

	inFlight := h.manager.ActiveSession()
	require.Len(t, inFlight.Messages, 1)
	assert.True(t, inFlight.Messages[0].IsLoading)

	// pending messages never reach the store
	stored, err := h.store.GetSession(context.Background(), inFlight.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Messages)

	close(h.client.block)
	h.manager.Wait()

	active := h.manager.ActiveSession()
	require.Len(t, active.Messages, 1)
	msg := active.Messages[0]
	assert.Equal(t, pending.ID, msg.ID)
	assert.False(t, msg.IsLoading)
	assert.Equal(t, "hello", msg.Transcript)
	assert.Equal(t, "merhaba", msg.Translation)
	assert.Equal(t, "en", msg.DetectedLanguage)
	assert.Equal(t, session.Turkish, msg.TargetLanguage)
	assert.Equal(t, pending.Timestamp, msg.Timestamp)
	assert.Equal(t, "hello", active.Title)
	assert.Equal(t, session.Idle, h.manager.State())

	require.Len(t, h.client.calls, 1)
	assert.Equal(t, "file:///tmp/recording-1.wav", h.client.calls[0].uri)
	assert.Equal(t, session.Turkish, h.client.calls[0].target)

	stored, err = h.store.GetSession(context.Background(), active.ID)
	require.NoError(t, err)
	assert.Equal(t, active.Messages, stored.Messages)
	assert.Equal(t, "hello", stored.Title)
}

func TestTitleSetOnlyByFirstCompletedMessage(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.client.result = &transcribe.Result{Transcript: "this first transcript is long enough to be truncated", Translation: "x", DetectedLanguage: "en"}
	h.record(t)
	h.manager.Wait()

	h.client.result = &transcribe.Result{Transcript: "second", Translation: "y", DetectedLanguage: "en"}
	h.record(t)
	h.manager.Wait()

	active := h.manager.ActiveSession()
	assert.Equal(t, "this first transcript is long...", active.Title)
	require.Len(t, active.Messages, 2)
	assert.Equal(t, "second", active.Messages[1].Transcript)
}

func TestServerErrorReplacesPendingWithFailure(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.client.result = nil
	h.client.err = &transcribe.ServerError{Status: 500, Message: "model overloaded"}

	pending := h.record(t)
	h.manager.Wait()

	active := h.manager.ActiveSession()
	require.Len(t, active.Messages, 1)
	failed := active.Messages[0]
	assert.NotEqual(t, pending.ID, failed.ID)
	assert.Equal(t, "model overloaded", failed.Error)
	assert.False(t, failed.IsLoading)
	assert.Equal(t, session.StateFailed, failed.State())
	assert.Equal(t, session.PlaceholderTitle, active.Title)
	assert.Equal(t, -1, active.Index(pending.ID))

	stored, err := h.store.GetSession(context.Background(), active.ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 1)
	assert.Equal(t, "model overloaded", stored.Messages[0].Error)
	assert.Equal(t, session.Idle, h.manager.State())
}

func TestEmptyBodyErrorAgainstBackend(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == transcribe.HealthPath {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()

	audio := filepath.Join(t.TempDir(), "recording-1.wav")
	require.NoError(t, os.WriteFile(audio, []byte("RIFF....WAVE"), 0o600))

	client := transcribe.NewClient(transcribe.Options{BaseURL: backend.URL})
	h := newHarness(t, nil, client)
	h.capture.uri = audio

	h.record(t)
	h.manager.Wait()

	active := h.manager.ActiveSession()
	require.Len(t, active.Messages, 1)
	assert.Equal(t, "Server responded with status 500", active.Messages[0].Error)
}

func TestEmptyTranscriptFails(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.client.result = &transcribe.Result{Transcript: "  ", Translation: "", DetectedLanguage: "unknown"}

	h.record(t)
	h.manager.Wait()

	active := h.manager.ActiveSession()
	require.Len(t, active.Messages, 1)
	assert.Equal(t, "No speech detected", active.Messages[0].Error)
}

func TestCaptureStopFailurePersistsFailedMessage(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.capture.stopErr = capture.ErrEmptyRecording

	require.NoError(t, h.manager.StartRecording(context.Background()))
	msg, err := h.manager.StopRecording(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Recording is empty", msg.Error)
	assert.Equal(t, session.Idle, h.manager.State())
	assert.Empty(t, h.client.calls)

	stored, err := h.store.GetSession(context.Background(), h.manager.ActiveSession().ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 1)
	assert.Equal(t, msg.ID, stored.Messages[0].ID)
}

func TestStopWithoutStartChangesNothing(t *testing.T) {
	h := newHarness(t, nil, nil)
	before := h.manager.ActiveSession()
	eventsBefore := len(h.events.Events())

	_, err := h.manager.StopRecording(context.Background())
	require.ErrorIs(t, err, capture.ErrNoActiveCapture)

	assert.Equal(t, before, h.manager.ActiveSession())
	assert.Equal(t, session.Idle, h.manager.State())
	assert.Len(t, h.events.Events(), eventsBefore)
}

func TestStartRefusals(t *testing.T) {
	t.Run("offline", func(t *testing.T) {
		h := newHarness(t, nil, &fakeClient{online: false})
		err := h.manager.StartRecording(context.Background())
		require.ErrorIs(t, err, ErrBackendOffline)
		assert.Equal(t, session.Idle, h.manager.State())
		assert.Zero(t, h.capture.starts)
	})

	t.Run("recording", func(t *testing.T) {
		h := newHarness(t, nil, nil)
		require.NoError(t, h.manager.StartRecording(context.Background()))
		require.ErrorIs(t, h.manager.StartRecording(context.Background()), ErrBusy)
		assert.Equal(t, session.Recording, h.manager.State())
	})

	t.Run("processing", func(t *testing.T) {
		h := newHarness(t, nil, nil)
		h.client.block = make(chan struct{})
		h.record(t)
		require.ErrorIs(t, h.manager.StartRecording(context.Background()), ErrBusy)
		close(h.client.block)
		h.manager.Wait()
		require.NoError(t, h.manager.StartRecording(context.Background()))
	})

	t.Run("permission", func(t *testing.T) {
		h := newHarness(t, nil, nil)
		h.capture.startErr = capture.ErrPermissionDenied
		require.ErrorIs(t, h.manager.StartRecording(context.Background()), capture.ErrPermissionDenied)
		assert.Equal(t, session.Idle, h.manager.State())
	})
}

func TestConcurrentStartsAdmitOne(t *testing.T) {
	h := newHarness(t, nil, nil)

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h.manager.StartRecording(context.Background()) == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok.Load())
	assert.Equal(t, 1, h.capture.starts)
}

func TestStartStopSequencesStayConsistent(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	ops := []string{"stop", "start", "start", "stop", "stop", "start", "stop", "start", "start", "stop"}
	for _, op := range ops {
		switch op {
		case "start":
			_ = h.manager.StartRecording(ctx)
		case "stop":
			_, _ = h.manager.StopRecording(ctx)
		}
		h.manager.Wait()
		state := h.manager.State()
		assert.Contains(t, []session.RecordingState{session.Idle, session.Recording}, state)
		assertOneState(t, h.manager.ActiveSession())
	}

	assert.Len(t, h.manager.ActiveSession().Messages, 3)
}

func TestCancelProcessing(t *testing.T) {
	h := newHarness(t, nil, nil)
	require.ErrorIs(t, h.manager.CancelProcessing(), ErrNotProcessing)

	h.client.block = make(chan struct{})
	pending := h.record(t)
	require.NoError(t, h.manager.CancelProcessing())
	h.manager.Wait()

	active := h.manager.ActiveSession()
	require.Len(t, active.Messages, 1)
	assert.NotEqual(t, pending.ID, active.Messages[0].ID)
	assert.Equal(t, "Transcription cancelled", active.Messages[0].Error)
	assert.Equal(t, session.Idle, h.manager.State())
}

func TestCloseCancelsInFlightUpload(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.client.block = make(chan struct{})
	h.record(t)

	require.NoError(t, h.manager.Close())

	stored, err := h.store.GetSession(context.Background(), h.manager.ActiveSession().ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 1)
	assert.Equal(t, "Transcription cancelled", stored.Messages[0].Error)
	require.ErrorIs(t, h.manager.StartRecording(context.Background()), ErrClosed)
}

func TestSessionSwitchingRequiresIdle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, nil)
	first := h.manager.ActiveSession()

	second, err := h.manager.NewSession(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	list, err := h.manager.Sessions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	h.client.block = make(chan struct{})
	h.record(t)
	_, err = h.manager.SelectSession(ctx, first.ID)
	require.ErrorIs(t, err, ErrBusy)
	_, err = h.manager.NewSession(ctx)
	require.ErrorIs(t, err, ErrBusy)
	_, err = h.manager.DeleteSession(ctx, first.ID)
	require.ErrorIs(t, err, ErrBusy)

	// the in-flight pending message shows up in listings
	list, err = h.manager.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, item := range list {
		if item.ID == second.ID {
			require.Len(t, item.Messages, 1)
			assert.True(t, item.Messages[0].IsLoading)
		}
	}

	close(h.client.block)
	h.manager.Wait()

	selected, err := h.manager.SelectSession(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, selected.ID)
	id, err := h.store.GetActiveSessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, id)

	_, err = h.manager.SelectSession(ctx, "missing")
	require.ErrorIs(t, err, sessionstore.ErrSessionNotFound)
}

func TestDeleteActiveSessionCreatesFreshOne(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, nil)
	h.record(t)
	h.manager.Wait()
	old := h.manager.ActiveSession()
	require.Len(t, old.Messages, 1)

	fresh, err := h.manager.DeleteSession(ctx, old.ID)
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, fresh.ID)
	assert.NotEmpty(t, fresh.ID)
	assert.Empty(t, fresh.Messages)
	assert.Equal(t, fresh.ID, h.manager.ActiveSession().ID)

	id, err := h.store.GetActiveSessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, id)

	_, err = h.store.GetSession(ctx, old.ID)
	require.ErrorIs(t, err, sessionstore.ErrSessionNotFound)

	// deleting another session keeps the active one
	other, err := h.manager.NewSession(ctx)
	require.NoError(t, err)
	kept, err := h.manager.DeleteSession(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, kept.ID)
}

func TestStorageFailureIsSurfaced(t *testing.T) {
	store := &failingStore{MemoryStore: sessionstore.NewMemoryStore()}
	h := newHarness(t, store, nil)
	store.failSaves.Store(true)

	h.record(t)
	h.manager.Wait()

	require.ErrorIs(t, h.manager.LastError(), sessionstore.ErrStorage)
	assert.Equal(t, session.Idle, h.manager.State())

	var surfaced bool
	for _, ev := range h.events.Events() {
		if ev.Type == EventMessage && ev.Error != "" {
			surfaced = true
		}
	}
	assert.True(t, surfaced, "persist failure must be published")

	_, err := h.manager.NewSession(context.Background())
	require.ErrorIs(t, err, sessionstore.ErrStorage)
}

func TestRefreshHealthPublishesChanges(t *testing.T) {
	h := newHarness(t, nil, nil)
	before := len(h.events.Events())

	assert.True(t, h.manager.RefreshHealth(context.Background()))
	assert.Len(t, h.events.Events(), before, "unchanged health publishes nothing")

	h.client.mu.Lock()
	h.client.online = false
	h.client.mu.Unlock()

	assert.False(t, h.manager.RefreshHealth(context.Background()))
	events := h.events.Events()
	require.Len(t, events, before+1)
	assert.Equal(t, EventHealth, events[len(events)-1].Type)
	assert.False(t, events[len(events)-1].BackendOnline)
	require.ErrorIs(t, h.manager.StartRecording(context.Background()), ErrBackendOffline)
}

func TestMonitorHealthStopsWithContext(t *testing.T) {
	h := newHarness(t, nil, nil)
	initial := h.client.healths.Load()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.manager.MonitorHealth(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return h.client.healths.Load() > initial+1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestSetTargetLanguage(t *testing.T) {
	h := newHarness(t, nil, nil)
	require.NoError(t, h.manager.SetTargetLanguage("persian"))
	assert.Equal(t, session.Persian, h.manager.TargetLanguage())
	require.Error(t, h.manager.SetTargetLanguage("Klingon"))
	assert.Equal(t, session.Persian, h.manager.TargetLanguage())
}

func TestNewManagerValidatesOptions(t *testing.T) {
	_, err := NewManager(context.Background(), Options{})
	require.Error(t, err)
}

func TestStopDuringStartIsRefused(t *testing.T) {
	h := newHarness(t, nil, nil)
	gated := newGatedCapture(h.capture)
	h.manager.capture = gated
	before := h.manager.ActiveSession()

	started := make(chan error, 1)
	go func() { started <- h.manager.StartRecording(context.Background()) }()
	<-gated.entered

	msg, err := h.manager.StopRecording(context.Background())
	require.ErrorIs(t, err, capture.ErrNoActiveCapture)
	assert.Empty(t, msg.ID)
	assert.Equal(t, before, h.manager.ActiveSession())

	close(gated.gate)
	require.NoError(t, <-started)
	assert.Equal(t, session.Recording, h.manager.State())

	pending, err := h.manager.StopRecording(context.Background())
	require.NoError(t, err)
	assert.True(t, pending.IsLoading)
	h.manager.Wait()

	require.NoError(t, h.manager.StartRecording(context.Background()))
	assert.Equal(t, 2, h.capture.starts)
}

func TestCloseDuringStartReleasesCapture(t *testing.T) {
	h := newHarness(t, nil, nil)
	gated := newGatedCapture(h.capture)
	h.manager.capture = gated

	started := make(chan error, 1)
	go func() { started <- h.manager.StartRecording(context.Background()) }()
	<-gated.entered

	closed := make(chan error, 1)
	go func() { closed <- h.manager.Close() }()
	require.Eventually(t, func() bool {
		h.manager.mu.Lock()
		defer h.manager.mu.Unlock()
		return h.manager.closed
	}, time.Second, time.Millisecond)

	close(gated.gate)
	require.ErrorIs(t, <-started, ErrClosed)
	require.NoError(t, <-closed)

	h.capture.mu.Lock()
	defer h.capture.mu.Unlock()
	assert.False(t, h.capture.active)
	assert.Equal(t, session.Idle, h.manager.State())
}

func TestStopWithVanishedCaptureRestoresIdle(t *testing.T) {
	h := newHarness(t, nil, nil)
	require.NoError(t, h.manager.StartRecording(context.Background()))
	before := h.manager.ActiveSession()

	h.capture.mu.Lock()
	h.capture.active = false
	h.capture.mu.Unlock()

	msg, err := h.manager.StopRecording(context.Background())
	require.ErrorIs(t, err, capture.ErrNoActiveCapture)
	assert.Empty(t, msg.ID)
	assert.Equal(t, session.Idle, h.manager.State())
	assert.Empty(t, h.manager.ActiveSession().Messages)

	stored, err := h.store.GetSession(context.Background(), before.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Messages)

	require.NoError(t, h.manager.StartRecording(context.Background()))
}

func TestRefreshHealthIgnoresCallerCancellation(t *testing.T) {
	client := &fakeClient{online: true, ctxAware: true}
	h := newHarness(t, nil, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, h.manager.RefreshHealth(ctx))
	require.NoError(t, h.manager.StartRecording(context.Background()))
}
