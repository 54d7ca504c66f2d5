package assistant

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

type stubResponder struct {
	prompts []Prompt
	reply   string
	err     error
}

func (s *stubResponder) Respond(_ context.Context, p Prompt) (string, error) {
	s.prompts = append(s.prompts, p)
	return s.reply, s.err
}

func newTestService(responder Responder) (*Service, *InMemoryStore) {
	store := NewInMemoryStore()
	svc := NewService(store, NewKnowledgeBase(""), responder, Facts{}, logging.NewWithWriter(io.Discard, "error"))
	return svc, store
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	svc, _ := newTestService(nil)
	_, err := svc.Chat(context.Background(), uuid.New(), "   ", uuid.Nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestChatStoresBothSides(t *testing.T) {
	responder := &stubResponder{reply: "The fee is ₹500."}
	svc, store := newTestService(responder)
	user := uuid.New()

	reply, err := svc.Chat(context.Background(), user, "How much is the consultation fee?", uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, "The fee is ₹500.", reply.Response)
	require.NotEqual(t, uuid.Nil, reply.SessionID)

	msgs, err := store.Messages(context.Background(), reply.SessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].IsUser)
	assert.Equal(t, "How much is the consultation fee?", msgs[0].Text)
	assert.False(t, msgs[1].IsUser)

	require.Len(t, responder.prompts, 1)
	p := responder.prompts[0]
	assert.Contains(t, p.System, "Consultation fee: ₹500")
	assert.Contains(t, p.System, "Holistic Hospitals")
	assert.Contains(t, p.System, "Rs. 500")
	assert.Empty(t, p.History)
}

func TestChatContinuesSessionWithRecentHistory(t *testing.T) {
	responder := &stubResponder{reply: "ok"}
	svc, _ := newTestService(responder)
	user := uuid.New()
	ctx := context.Background()

	first, err := svc.Chat(ctx, user, "hello", uuid.Nil)
	require.NoError(t, err)
	for _, q := range []string{"second", "third", "fourth"} {
		next, err := svc.Chat(ctx, user, q, first.SessionID)
		require.NoError(t, err)
		assert.Equal(t, first.SessionID, next.SessionID)
	}

	last := responder.prompts[len(responder.prompts)-1]
	assert.Equal(t, "fourth", last.Query)
	require.Len(t, last.History, historyTurns)
	assert.Equal(t, Turn{User: true, Text: "second"}, last.History[0])
	assert.Equal(t, Turn{User: false, Text: "ok"}, last.History[1])
	assert.Equal(t, Turn{User: true, Text: "third"}, last.History[2])
}

func TestChatForeignSessionStartsNewOne(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()

	first, err := svc.Chat(ctx, owner, "hello", uuid.Nil)
	require.NoError(t, err)

	reply, err := svc.Chat(ctx, other, "hello", first.SessionID)
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, reply.SessionID)
}

func TestChatFallsBackWithoutResponder(t *testing.T) {
	svc, _ := newTestService(nil)
	reply, err := svc.Chat(context.Background(), uuid.New(), "I have chest pain", uuid.Nil)
	require.NoError(t, err)
	assert.Contains(t, reply.Response, "SEEK IMMEDIATE MEDICAL ATTENTION")
	assert.Contains(t, reply.Response, medicalDisclaimer)

	reply, err = svc.Chat(context.Background(), uuid.New(), "xyzzy", uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, noInfoAnswer, reply.Response)
}

func TestChatFallsBackOnResponderError(t *testing.T) {
	svc, _ := newTestService(&stubResponder{err: errors.New("quota exceeded")})
	reply, err := svc.Chat(context.Background(), uuid.New(), "When is dermatology open on monday?", uuid.Nil)
	require.NoError(t, err)
	assert.Contains(t, reply.Response, "Dermatology hours on Monday: 10:00 AM - 5:00 PM")
}

func TestHistory(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	user := uuid.New()

	a, err := svc.Chat(ctx, user, "first session", uuid.Nil)
	require.NoError(t, err)
	b, err := svc.Chat(ctx, user, "second session", uuid.Nil)
	require.NoError(t, err)

	all, err := svc.History(ctx, user, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.SessionID, all[0].ID)
	assert.Len(t, all[1].Messages, 2)

	one, err := svc.History(ctx, user, a.SessionID)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "first session", one[0].Messages[0].Text)

	_, err = svc.History(ctx, uuid.New(), a.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

type recordingAuditor struct {
	symptoms [][]string
	urgent   []bool
}

func (a *recordingAuditor) TriageGiven(_ context.Context, _, _ uuid.UUID, symptoms []string, urgent bool) error {
	a.symptoms = append(a.symptoms, symptoms)
	a.urgent = append(a.urgent, urgent)
	return nil
}

func TestChatAuditsSymptomGuidance(t *testing.T) {
	svc, _ := newTestService(nil)
	auditor := &recordingAuditor{}
	svc.SetAuditor(auditor)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Chat(ctx, user, "Chest pain and a fever since last night", uuid.Nil)
	require.NoError(t, err)
	_, err = svc.Chat(ctx, user, "I have a cough", uuid.Nil)
	require.NoError(t, err)
	_, err = svc.Chat(ctx, user, "What are your opening hours?", uuid.Nil)
	require.NoError(t, err)

	require.Len(t, auditor.symptoms, 2)
	assert.Equal(t, []string{"chest pain", "fever"}, auditor.symptoms[0])
	assert.Equal(t, []bool{true, false}, auditor.urgent)
}
