package session

import (
	"errors"
	"time"
)

// MessageType identifies who produced a message. Only user messages are produced today.
type MessageType string

const (
	MessageTypeUser      MessageType = "user"
	MessageTypeAssistant MessageType = "assistant"
)

// MessageState is derived from a message's markers, never stored.
type MessageState string

const (
	StatePending   MessageState = "pending"
	StateCompleted MessageState = "completed"
	StateFailed    MessageState = "failed"
	StateInvalid   MessageState = "invalid"
)

var ErrInvalidMessage = errors.New("message holds conflicting state markers")

// Message is one recording-to-result unit within a session.
type Message struct {
	ID               string         `json:"id"`
	Type             MessageType    `json:"type"`
	AudioURI         string         `json:"audioUri,omitempty"`
	TargetLanguage   TargetLanguage `json:"targetLanguage"`
	Transcript       string         `json:"transcript,omitempty"`
	Translation      string         `json:"translation,omitempty"`
	DetectedLanguage string         `json:"detectedLanguage,omitempty"`
	IsLoading        bool           `json:"isLoading,omitempty"`
	Error            string         `json:"error,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
}

// NewPending builds the optimistic message shown while a recording is being processed.
func NewPending(id, audioURI string, target TargetLanguage, now time.Time) Message {
	return Message{
		ID:             id,
		Type:           MessageTypeUser,
		AudioURI:       audioURI,
		TargetLanguage: target,
		IsLoading:      true,
		Timestamp:      now,
	}
}

// NewFailed builds a message carrying a pipeline failure.
func NewFailed(id string, target TargetLanguage, reason string, now time.Time) Message {
	if reason == "" {
		reason = "Failed to process audio"
	}
	return Message{
		ID:             id,
		Type:           MessageTypeUser,
		TargetLanguage: target,
		Error:          reason,
		Timestamp:      now,
	}
}

// Complete returns a copy of a pending message resolved with a backend result.
// ID, audio reference, target language and timestamp are preserved.
func (m Message) Complete(transcript, translation, detected string) Message {
	m.Transcript = transcript
	m.Translation = translation
	m.DetectedLanguage = detected
	m.IsLoading = false
	m.Error = ""
	return m
}

// State reports which of the three lifecycle states the message is in.
func (m Message) State() MessageState {
	hasResult := m.Transcript != "" || m.Translation != "" || m.DetectedLanguage != ""
	switch {
	case m.IsLoading && !hasResult && m.Error == "":
		return StatePending
	case !m.IsLoading && m.Error != "" && !hasResult:
		return StateFailed
	case !m.IsLoading && m.Error == "" && m.Transcript != "":
		return StateCompleted
	default:
		return StateInvalid
	}
}

// Validate rejects messages that mix pending, completed and failed markers.
func (m Message) Validate() error {
	if m.ID == "" {
		return errors.New("message id is required")
	}
	if m.State() == StateInvalid {
		return ErrInvalidMessage
	}
	return nil
}
