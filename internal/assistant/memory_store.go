package assistant

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps transcripts in process. Used when no database is configured.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	nextID   int64
	now      func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[uuid.UUID]*Session), now: time.Now}
}

func (s *InMemoryStore) CreateSession(ctx context.Context, userID uuid.UUID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	sess := &Session{ID: uuid.New(), UserID: userID, CreatedAt: now, LastInteraction: now}
	s.sessions[sess.ID] = sess
	return copySession(sess, false), nil
}

func (s *InMemoryStore) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return copySession(sess, false), nil
}

func (s *InMemoryStore) ListSessions(ctx context.Context, userID uuid.UUID) ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0)
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, copySession(sess, true))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastInteraction.After(out[j].LastInteraction)
	})
	return out, nil
}

func (s *InMemoryStore) AppendMessage(ctx context.Context, sessionID uuid.UUID, isUser bool, text string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.nextID++
	now := s.now().UTC()
	msg := Message{ID: s.nextID, IsUser: isUser, Text: text, Timestamp: now}
	sess.Messages = append(sess.Messages, msg)
	sess.LastInteraction = now
	return &msg, nil
}

func (s *InMemoryStore) Messages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return append([]Message(nil), sess.Messages...), nil
}

func copySession(sess *Session, withMessages bool) *Session {
	cp := *sess
	cp.Messages = nil
	if withMessages {
		cp.Messages = append([]Message{}, sess.Messages...)
	}
	return &cp
}
