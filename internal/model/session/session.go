package session

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// PlaceholderTitle labels a session until its first message completes.
	PlaceholderTitle = "New Chat"
	// TitleLimit is the number of code points of the transcript kept in a derived title.
	TitleLimit = 30
)

// Session is one persisted conversation thread.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New returns an empty session with a placeholder title.
func New(id string, now time.Time) Session {
	return Session{
		ID:        id,
		Title:     PlaceholderTitle,
		Messages:  make([]Message, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers cannot mutate manager-owned state.
func (s Session) Clone() Session {
	out := s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	return out
}

// Touch refreshes UpdatedAt.
func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now
}

// Append adds a message to the end of the thread.
func (s *Session) Append(msg Message, now time.Time) {
	s.Messages = append(s.Messages, msg)
	s.Touch(now)
}

// Index returns the position of the message with the given id, or -1.
func (s Session) Index(id string) int {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// Replace swaps the message with the same id in place, keeping order.
// It reports false when no message carries that id.
func (s *Session) Replace(msg Message, now time.Time) bool {
	idx := s.Index(msg.ID)
	if idx < 0 {
		return false
	}
	s.Messages[idx] = msg
	s.Touch(now)
	return true
}

// DropPending removes every message still waiting on a backend result.
func (s *Session) DropPending(now time.Time) int {
	kept := s.Messages[:0]
	dropped := 0
	for _, msg := range s.Messages {
		if msg.IsLoading {
			dropped++
			continue
		}
		kept = append(kept, msg)
	}
	s.Messages = kept
	if dropped > 0 {
		s.Touch(now)
	}
	return dropped
}

// HasPending reports whether any message is still loading.
func (s Session) HasPending() bool {
	for _, msg := range s.Messages {
		if msg.IsLoading {
			return true
		}
	}
	return false
}

// CompletedCount counts messages holding a transcript and translation.
func (s Session) CompletedCount() int {
	n := 0
	for _, msg := range s.Messages {
		if msg.State() == StateCompleted {
			n++
		}
	}
	return n
}

// DeriveTitle truncates a transcript to TitleLimit code points. An ellipsis is
// appended only when something was cut.
func DeriveTitle(transcript string) string {
	text := strings.Join(strings.Fields(transcript), " ")
	if text == "" {
		return PlaceholderTitle
	}
	if utf8.RuneCountInString(text) <= TitleLimit {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:TitleLimit])) + "..."
}
