package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zhouzirui/voxlate/internal/model/session"
)

// MemoryStore keeps sessions in process memory. Suitable for tests and ephemeral runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]session.Session
	activeID string
	now      func() time.Time
}

// NewMemoryStore bootstraps an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]session.Session),
		now:      Clock,
	}
}

// CreateSession provisions a session with a fresh id.
func (s *MemoryStore) CreateSession() session.Session {
	return newSession(s.now)
}

// ListSessions returns copies ordered most-recent-first.
func (s *MemoryStore) ListSessions(_ context.Context) ([]session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]session.Session, 0, len(s.sessions))
	for _, item := range s.sessions {
		out = append(out, item.Clone())
	}
	sortRecentFirst(out)
	return out, nil
}

// GetSession retrieves a session by identifier.
func (s *MemoryStore) GetSession(_ context.Context, id string) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.sessions[id]
	if !ok {
		return session.Session{}, ErrSessionNotFound
	}
	return item.Clone(), nil
}

// SaveSession upserts by id, replacing the stored record completely.
func (s *MemoryStore) SaveSession(_ context.Context, item session.Session) error {
	if err := validateForSave(item); err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions[item.ID] = item.Clone()
	s.mu.Unlock()
	return nil
}

// DeleteSession removes a session. Unknown ids are ignored.
func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetActiveSessionID(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID, nil
}

func (s *MemoryStore) SetActiveSessionID(_ context.Context, id string) error {
	s.mu.Lock()
	s.activeID = id
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func sortRecentFirst(items []session.Session) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].UpdatedAt.After(items[j].UpdatedAt)
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
