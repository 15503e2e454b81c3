// Package session persists conversation threads and the active-session pointer.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/voxlate/internal/model/session"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrStorage         = errors.New("session storage failure")
	ErrPendingMessage  = errors.New("sessions with pending messages cannot be persisted")
)

// Store is the durable mapping of session id to Session.
type Store interface {
	// CreateSession returns a new empty session. It is not persisted.
	CreateSession() session.Session
	ListSessions(ctx context.Context) ([]session.Session, error)
	GetSession(ctx context.Context, id string) (session.Session, error)
	SaveSession(ctx context.Context, s session.Session) error
	DeleteSession(ctx context.Context, id string) error
	GetActiveSessionID(ctx context.Context) (string, error)
	SetActiveSessionID(ctx context.Context, id string) error
	Close() error
}

// Clock returns the current time, truncated to the precision stores keep.
func Clock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func newSession(now func() time.Time) session.Session {
	return session.New(uuid.NewString(), now())
}

func validateForSave(s session.Session) error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	for _, msg := range s.Messages {
		if msg.IsLoading {
			return fmt.Errorf("%w: message %s", ErrPendingMessage, msg.ID)
		}
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("message %s: %w", msg.ID, err)
		}
	}
	return nil
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
