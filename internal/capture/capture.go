// Package capture wraps platform microphone access into a two-state recorder.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrDeviceBusy       = errors.New("a capture is already active")
	ErrNoActiveCapture  = errors.New("no active capture")
	ErrEmptyRecording   = errors.New("recording did not produce a readable file")
	ErrAudioUnavailable = errors.New("recording audio unavailable")
)

// Handle references a captured audio file.
type Handle struct {
	URI string
}

// Path returns the local filesystem path of the handle.
func (h Handle) Path() string {
	return strings.TrimPrefix(h.URI, "file://")
}

// Recorder is one platform capture instance. Instances are single-use.
type Recorder interface {
	Start(ctx context.Context) (string, error)
	Stop(ctx context.Context) (string, error)
}

// RecorderFactory allocates a fresh Recorder for every capture.
type RecorderFactory func() Recorder

// Router switches the platform audio routing mode.
type Router interface {
	EnterRecording(ctx context.Context) error
	ResetPlayback(ctx context.Context) error
}

// Permissions reports whether microphone access is granted.
type Permissions interface {
	Microphone(ctx context.Context) (bool, error)
}

// Controller owns at most one active Recorder.
type Controller struct {
	mu          sync.Mutex
	newRecorder RecorderFactory
	router      Router
	permissions Permissions
	active      Recorder
	startedURI  string
}

// NewController wires a controller. Nil router or permissions fall back to
// NoopRouter and GrantedPermissions.
func NewController(factory RecorderFactory, router Router, permissions Permissions) *Controller {
	if router == nil {
		router = NoopRouter{}
	}
	if permissions == nil {
		permissions = GrantedPermissions{}
	}
	return &Controller{
		newRecorder: factory,
		router:      router,
		permissions: permissions,
	}
}

// Active reports whether a capture is in progress.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Start begins a capture on a freshly allocated recorder.
func (c *Controller) Start(ctx context.Context) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return Handle{}, ErrDeviceBusy
	}

	granted, err := c.permissions.Microphone(ctx)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if !granted {
		return Handle{}, ErrPermissionDenied
	}

	if err := c.router.EnterRecording(ctx); err != nil {
		return Handle{}, fmt.Errorf("enter recording mode: %w", err)
	}

	recorder := c.newRecorder()
	uri, err := recorder.Start(ctx)
	if err != nil {
		c.resetRouting(ctx)
		if errors.Is(err, os.ErrPermission) {
			return Handle{}, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return Handle{}, fmt.Errorf("start recorder: %w", err)
	}

	c.active = recorder
	c.startedURI = uri
	log.Debug().Str("component", "capture").Str("uri", uri).Msg("capture started")
	return Handle{URI: uri}, nil
}

// Stop ends the active capture and returns the recorded file. Routing is reset
// on every path that had an active capture.
func (c *Controller) Stop(ctx context.Context) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return Handle{}, ErrNoActiveCapture
	}

	recorder := c.active
	fallback := c.startedURI
	c.active = nil
	c.startedURI = ""
	defer c.resetRouting(ctx)

	uri, err := recorder.Stop(ctx)
	if err != nil {
		return Handle{}, fmt.Errorf("stop recorder: %w", err)
	}
	if uri == "" {
		uri = fallback
	}

	handle := Handle{URI: uri}
	if err := checkReadable(handle); err != nil {
		return Handle{}, err
	}

	log.Debug().Str("component", "capture").Str("uri", uri).Msg("capture stopped")
	return handle, nil
}

func (c *Controller) resetRouting(ctx context.Context) {
	if err := c.router.ResetPlayback(ctx); err != nil {
		log.Warn().Err(err).Str("component", "capture").Msg("failed to reset audio routing")
	}
}

func checkReadable(h Handle) error {
	if strings.TrimSpace(h.URI) == "" {
		return ErrEmptyRecording
	}
	info, err := os.Stat(h.Path())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmptyRecording, err)
	}
	if info.IsDir() || info.Size() == 0 {
		return ErrEmptyRecording
	}
	return nil
}

// NoopRouter is used on platforms without a routing session.
type NoopRouter struct{}

func (NoopRouter) EnterRecording(context.Context) error { return nil }
func (NoopRouter) ResetPlayback(context.Context) error  { return nil }

// GrantedPermissions always grants access. Desktop platforms surface denial at
// device open time instead, which the recorder maps to ErrPermissionDenied.
type GrantedPermissions struct{}

func (GrantedPermissions) Microphone(context.Context) (bool, error) { return true, nil }
