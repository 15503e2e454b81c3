package recording

import (
	"sync"

	"github.com/zhouzirui/voxlate/internal/model/session"
)

// EventType names what changed.
type EventType string

const (
	EventState    EventType = "state"
	EventMessage  EventType = "message"
	EventSession  EventType = "session"
	EventHealth   EventType = "health"
	EventTarget   EventType = "target_language"
	EventSessions EventType = "sessions"
)

// Event is published after every transition.
type Event struct {
	Type           EventType              `json:"type"`
	State          session.RecordingState `json:"state"`
	BackendOnline  bool                   `json:"backendOnline"`
	TargetLanguage session.TargetLanguage `json:"targetLanguage"`
	Session        *session.Session       `json:"session,omitempty"`
	Error          string                 `json:"error,omitempty"`
}

// Notifier receives manager events. Publish must not block and must not call
// back into the manager synchronously.
type Notifier interface {
	Publish(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Publish(ev Event) { f(ev) }

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Publish(Event) {}

// EventLog collects events in memory.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

func (r *EventLog) Publish(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of everything published so far.
func (r *EventLog) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (m *Manager) publish(kind EventType, snap Snapshot, err error) {
	ev := Event{
		Type:           kind,
		State:          snap.State,
		BackendOnline:  snap.BackendOnline,
		TargetLanguage: snap.TargetLanguage,
	}
	if kind != EventState && kind != EventHealth && kind != EventTarget {
		sess := snap.Session
		ev.Session = &sess
	}
	if err != nil {
		ev.Error = err.Error()
	}
	m.notifier.Publish(ev)
}

func (m *Manager) publishState(kind EventType) {
	m.mu.Lock()
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.publish(kind, snap, nil)
}
