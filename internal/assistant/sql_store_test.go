package assistant

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db), mock
}

func TestSQLStoreCreateSession(t *testing.T) {
	store, mock := newMockStore(t)
	user := uuid.New()
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO chat_sessions").
		WithArgs(sqlmock.AnyArg(), user).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "last_interaction"}).AddRow(now, now))

	sess, err := store.CreateSession(context.Background(), user)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sess.ID)
	assert.Equal(t, now, sess.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreGetSessionNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	user, id := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT created_at, last_interaction FROM chat_sessions").
		WithArgs(id, user).
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetSession(context.Background(), user, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreAppendMessage(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	now := time.Date(2026, 10, 19, 8, 5, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO chat_messages").
		WithArgs(id, true, "hello").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), now))
	mock.ExpectExec("UPDATE chat_sessions SET last_interaction").
		WithArgs(id, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	msg, err := store.AppendMessage(context.Background(), id, true, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(42), msg.ID)
	assert.Equal(t, now, msg.Timestamp)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreAppendMessageUnknownSession(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO chat_messages").
		WithArgs(id, false, "hi").
		WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	_, err := store.AppendMessage(context.Background(), id, false, "hi")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreListSessions(t *testing.T) {
	store, mock := newMockStore(t)
	user := uuid.New()
	s1, s2 := uuid.New(), uuid.New()
	t1 := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT session_id, created_at, last_interaction FROM chat_sessions").
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "created_at", "last_interaction"}).
			AddRow(s2.String(), t2, t2).
			AddRow(s1.String(), t1, t1))
	mock.ExpectQuery("FROM chat_messages").
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "is_user", "message", "created_at"}).
			AddRow(int64(1), s1.String(), true, "old question", t1).
			AddRow(int64(2), s2.String(), true, "new question", t2).
			AddRow(int64(3), s2.String(), false, "new answer", t2))

	sessions, err := store.ListSessions(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, s2, sessions[0].ID)
	assert.Len(t, sessions[0].Messages, 2)
	assert.Equal(t, "old question", sessions[1].Messages[0].Text)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreListSessionsEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	user := uuid.New()

	mock.ExpectQuery("FROM chat_sessions").
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "created_at", "last_interaction"}))

	sessions, err := store.ListSessions(context.Background(), user)
	require.NoError(t, err)
	assert.Empty(t, sessions)
	require.NoError(t, mock.ExpectationsWereMet())
}
