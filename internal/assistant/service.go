package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

const historyTurns = 4

const noInfoAnswer = "I don't have specific information about that in my knowledge base. " +
	"I can help with booking appointments, fees, payments, opening hours and general symptom guidance."

// Facts are the fixed details every answer may rely on.
type Facts struct {
	HospitalName    string
	ConsultationFee int64
	PaymentMethods  []string
}

// Auditor records symptom guidance. Its failures are only logged.
type Auditor interface {
	TriageGiven(ctx context.Context, userID, sessionID uuid.UUID, symptoms []string, urgent bool) error
}

type Service struct {
	store     Store
	auditor   Auditor
	kb        *KnowledgeBase
	responder Responder
	facts     Facts
	logger    *logging.Logger
}

// NewService builds the assistant. responder may be nil, in which case
// answers are assembled from the knowledge base alone.
func NewService(store Store, kb *KnowledgeBase, responder Responder, facts Facts, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if kb == nil {
		kb = NewKnowledgeBase("")
	}
	if facts.HospitalName == "" {
		facts.HospitalName = "Holistic Hospitals"
	}
	if facts.ConsultationFee <= 0 {
		facts.ConsultationFee = 500
	}
	if len(facts.PaymentMethods) == 0 {
		facts.PaymentMethods = []string{"Pay Now (Razorpay UPI)", "Pay Later"}
	}
	return &Service{store: store, kb: kb, responder: responder, facts: facts, logger: logger}
}

// SetAuditor installs an auditor for symptom guidance.
func (s *Service) SetAuditor(a Auditor) {
	s.auditor = a
}

// Chat stores the user's message and the reply in a session. An unknown or
// foreign sessionID starts a new session.
func (s *Service) Chat(ctx context.Context, userID uuid.UUID, message string, sessionID uuid.UUID) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	session, err := s.session(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	prior, err := s.store.Messages(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.AppendMessage(ctx, session.ID, true, message); err != nil {
		return nil, err
	}

	answer := s.answer(ctx, message, prior)
	if _, err := s.store.AppendMessage(ctx, session.ID, false, answer); err != nil {
		return nil, err
	}
	s.audit(ctx, userID, session.ID, message)
	return &Reply{Response: answer, SessionID: session.ID}, nil
}

func (s *Service) session(ctx context.Context, userID, sessionID uuid.UUID) (*Session, error) {
	if sessionID != uuid.Nil {
		sess, err := s.store.GetSession(ctx, userID, sessionID)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		s.logger.Debug("assistant: unknown session, starting a new one", "session_id", sessionID)
	}
	return s.store.CreateSession(ctx, userID)
}

func (s *Service) audit(ctx context.Context, userID, sessionID uuid.UUID, message string) {
	if s.auditor == nil {
		return
	}
	symptoms, urgent := matchedSymptoms(message)
	if len(symptoms) == 0 {
		return
	}
	if err := s.auditor.TriageGiven(ctx, userID, sessionID, symptoms, urgent); err != nil {
		s.logger.Error("assistant: failed to audit triage", "error", err, "session_id", sessionID)
	}
}

// History returns one session with its messages, or every session of the
// user when sessionID is uuid.Nil.
func (s *Service) History(ctx context.Context, userID, sessionID uuid.UUID) ([]*Session, error) {
	if sessionID == uuid.Nil {
		return s.store.ListSessions(ctx, userID)
	}
	sess, err := s.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.Messages(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	sess.Messages = msgs
	return []*Session{sess}, nil
}

// contextFor gathers triage, schedule and knowledge base material for query.
func (s *Service) contextFor(query string) string {
	lower := strings.ToLower(query)
	var parts []string
	if containsAny(lower, symptomKeywords) {
		parts = append(parts, triage(query))
	}
	if containsAny(lower, scheduleKeywords) {
		parts = append(parts, scheduleInfo(query))
	}
	parts = append(parts, s.kb.Retrieve(query)...)
	return strings.Join(parts, "\n\n")
}

func (s *Service) answer(ctx context.Context, query string, prior []Message) string {
	info := s.contextFor(query)
	if s.responder == nil {
		return fallback(info)
	}

	if len(prior) > historyTurns {
		prior = prior[len(prior)-historyTurns:]
	}
	history := make([]Turn, 0, len(prior))
	for _, m := range prior {
		history = append(history, Turn{User: m.IsUser, Text: m.Text})
	}

	reply, err := s.responder.Respond(ctx, Prompt{System: s.systemPrompt(info), History: history, Query: query})
	if err != nil {
		s.logger.Warn("assistant: responder failed, using knowledge base answer", "error", err)
		return fallback(info)
	}
	return reply
}

func fallback(info string) string {
	if strings.TrimSpace(info) == "" {
		return noInfoAnswer
	}
	return info
}

func (s *Service) systemPrompt(info string) string {
	if info == "" {
		info = "No specific information was found for this question."
	}
	var b strings.Builder
	b.WriteString("You are a helpful hospital appointment assistant. ")
	b.WriteString("You help patients with booking appointments, payment options, symptom assessment and other hospital questions.\n")
	b.WriteString("Answer ONLY from the context below. If the answer is not there, say so politely and offer help with related topics you do know about.\n\n")
	b.WriteString("CONTEXT INFORMATION:\n")
	b.WriteString(info)
	b.WriteString("\n\nAdditional information:\n")
	fmt.Fprintf(&b, "- Consultation fee: ₹%d\n", s.facts.ConsultationFee)
	fmt.Fprintf(&b, "- Payment methods: %s\n", strings.Join(s.facts.PaymentMethods, ", "))
	fmt.Fprintf(&b, "- Hospital name: %s\n\n", s.facts.HospitalName)
	b.WriteString("Be concise and friendly. For medical questions, always recommend consulting a healthcare professional.")
	return b.String()
}
