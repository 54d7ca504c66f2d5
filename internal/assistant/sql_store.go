package assistant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SQLStore persists transcripts in the chat_sessions and chat_messages tables.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) CreateSession(ctx context.Context, userID uuid.UUID) (*Session, error) {
	sess := &Session{ID: uuid.New(), UserID: userID}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO chat_sessions (session_id, user_id, created_at, last_interaction)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING created_at, last_interaction`, sess.ID, userID).
		Scan(&sess.CreatedAt, &sess.LastInteraction)
	if err != nil {
		return nil, fmt.Errorf("assistant: create session: %w", err)
	}
	return sess, nil
}

func (s *SQLStore) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*Session, error) {
	sess := &Session{ID: sessionID, UserID: userID}
	err := s.db.QueryRowContext(ctx, `
		SELECT created_at, last_interaction FROM chat_sessions
		WHERE session_id = $1 AND user_id = $2`, sessionID, userID).
		Scan(&sess.CreatedAt, &sess.LastInteraction)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("assistant: get session: %w", err)
	}
	return sess, nil
}

func (s *SQLStore) ListSessions(ctx context.Context, userID uuid.UUID) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, created_at, last_interaction FROM chat_sessions
		WHERE user_id = $1
		ORDER BY last_interaction DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("assistant: list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]*Session, 0)
	byID := make(map[uuid.UUID]*Session)
	ids := make([]string, 0)
	for rows.Next() {
		sess := &Session{UserID: userID, Messages: []Message{}}
		if err := rows.Scan(&sess.ID, &sess.CreatedAt, &sess.LastInteraction); err != nil {
			return nil, fmt.Errorf("assistant: scan session: %w", err)
		}
		out = append(out, sess)
		byID[sess.ID] = sess
		ids = append(ids, sess.ID.String())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("assistant: list sessions: %w", err)
	}
	if len(ids) == 0 {
		return out, nil
	}

	msgRows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, is_user, message, created_at FROM chat_messages
		WHERE session_id = ANY($1::uuid[])
		ORDER BY created_at, id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("assistant: list messages: %w", err)
	}
	defer msgRows.Close()
	for msgRows.Next() {
		var msg Message
		var sessionID uuid.UUID
		if err := msgRows.Scan(&msg.ID, &sessionID, &msg.IsUser, &msg.Text, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("assistant: scan message: %w", err)
		}
		if sess, ok := byID[sessionID]; ok {
			sess.Messages = append(sess.Messages, msg)
		}
	}
	if err := msgRows.Err(); err != nil {
		return nil, fmt.Errorf("assistant: list messages: %w", err)
	}
	return out, nil
}

func (s *SQLStore) AppendMessage(ctx context.Context, sessionID uuid.UUID, isUser bool, text string) (*Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("assistant: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	msg := &Message{IsUser: isUser, Text: text}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO chat_messages (session_id, is_user, message, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at`, sessionID, isUser, text).
		Scan(&msg.ID, &msg.Timestamp)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("assistant: insert message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE chat_sessions SET last_interaction = $2 WHERE session_id = $1`, sessionID, msg.Timestamp); err != nil {
		return nil, fmt.Errorf("assistant: touch session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("assistant: commit: %w", err)
	}
	return msg, nil
}

func (s *SQLStore) Messages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, is_user, message, created_at FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("assistant: messages: %w", err)
	}
	defer rows.Close()
	out := make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.IsUser, &msg.Text, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("assistant: scan message: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}
