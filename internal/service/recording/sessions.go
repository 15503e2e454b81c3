package recording

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/voxlate/internal/model/session"
)

// Sessions lists stored sessions most-recent-first. The active session is taken
// from memory so an in-flight pending message is visible.
func (m *Manager) Sessions(ctx context.Context) ([]session.Session, error) {
	list, err := m.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	active := m.ActiveSession()
	for i := range list {
		if list[i].ID == active.ID {
			list[i] = active
			return list, nil
		}
	}
	return append([]session.Session{active}, list...), nil
}

// Session loads one session by id.
func (m *Manager) Session(ctx context.Context, id string) (session.Session, error) {
	active := m.ActiveSession()
	if id == active.ID {
		return active, nil
	}
	return m.store.GetSession(ctx, id)
}

// NewSession creates, persists and activates an empty session. Only allowed when idle.
func (m *Manager) NewSession(ctx context.Context) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.idleLocked(); err != nil {
		return session.Session{}, err
	}

	created, err := m.createAndActivate(ctx)
	if err != nil {
		return session.Session{}, err
	}
	m.active = created
	m.afterSwitchLocked(EventSession)
	log.Info().Str("component", "recording").Str("session_id", created.ID).Msg("session created")
	return created.Clone(), nil
}

// SelectSession makes an existing session active. Only allowed when idle.
func (m *Manager) SelectSession(ctx context.Context, id string) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.idleLocked(); err != nil {
		return session.Session{}, err
	}
	if id == m.active.ID {
		return m.active.Clone(), nil
	}

	loaded, err := m.store.GetSession(ctx, id)
	if err != nil {
		return session.Session{}, err
	}
	if err := m.store.SetActiveSessionID(ctx, loaded.ID); err != nil {
		return session.Session{}, err
	}
	m.active = loaded
	m.afterSwitchLocked(EventSession)
	return loaded.Clone(), nil
}

// DeleteSession removes a session. Deleting the active one immediately creates and
// activates a new empty session, which is returned; otherwise the unchanged active
// session is returned.
func (m *Manager) DeleteSession(ctx context.Context, id string) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.idleLocked(); err != nil {
		return session.Session{}, err
	}

	if err := m.store.DeleteSession(ctx, id); err != nil {
		return session.Session{}, err
	}
	log.Info().Str("component", "recording").Str("session_id", id).Msg("session deleted")

	if id != m.active.ID {
		m.afterSwitchLocked(EventSessions)
		return m.active.Clone(), nil
	}

	created, err := m.createAndActivate(ctx)
	if err != nil {
		return session.Session{}, err
	}
	m.active = created
	m.afterSwitchLocked(EventSession)
	return created.Clone(), nil
}

func (m *Manager) idleLocked() error {
	if m.closed {
		return ErrClosed
	}
	if m.state != session.Idle {
		return ErrBusy
	}
	return nil
}

// afterSwitchLocked publishes while holding the lock; session switches are rare
// and Notifier implementations must not re-enter the manager.
func (m *Manager) afterSwitchLocked(kind EventType) {
	m.publish(kind, m.snapshotLocked(), nil)
}
