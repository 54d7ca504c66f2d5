// Package assistant answers patient questions about the hospital: bookings,
// fees, opening hours and basic symptom triage.
package assistant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyMessage    = errors.New("assistant: message cannot be empty")
	ErrSessionNotFound = errors.New("assistant: chat session not found")
)

type Session struct {
	ID              uuid.UUID `json:"session_id"`
	UserID          uuid.UUID `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	LastInteraction time.Time `json:"last_interaction"`
	Messages        []Message `json:"messages"`
}

type Message struct {
	ID        int64     `json:"id"`
	IsUser    bool      `json:"is_user"`
	Text      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Reply is returned from Chat.
type Reply struct {
	Response  string    `json:"response"`
	SessionID uuid.UUID `json:"session_id"`
}

// Store persists chat transcripts.
type Store interface {
	CreateSession(ctx context.Context, userID uuid.UUID) (*Session, error)
	// GetSession returns ErrSessionNotFound for unknown ids and sessions owned by
	// someone else. Messages are not loaded.
	GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*Session, error)
	// ListSessions returns the user's sessions, most recent interaction first,
	// with messages loaded.
	ListSessions(ctx context.Context, userID uuid.UUID) ([]*Session, error)
	// AppendMessage stores a message and bumps the session's last_interaction.
	AppendMessage(ctx context.Context, sessionID uuid.UUID, isUser bool, text string) (*Message, error)
	// Messages returns a session's messages oldest first.
	Messages(ctx context.Context, sessionID uuid.UUID) ([]Message, error)
}
