// Package compliance keeps an append-only audit trail of patient-safety and
// payment-security events.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventType names what happened.
type AuditEventType string

const (
	// EventTriageGuidance is logged when the assistant hands out symptom guidance.
	EventTriageGuidance AuditEventType = "compliance.triage_guidance"
	// EventUrgentSymptom is logged when that guidance tells the patient to seek immediate care.
	EventUrgentSymptom AuditEventType = "compliance.urgent_symptom"
	// EventPaymentSignatureMismatch is logged when a checkout callback fails verification.
	EventPaymentSignatureMismatch AuditEventType = "security.payment_signature_mismatch"
)

// AuditEvent is an immutable audit record. Free text from patients is never stored.
type AuditEvent struct {
	ID        uuid.UUID       `json:"id"`
	EventType AuditEventType  `json:"event_type"`
	UserID    uuid.UUID       `json:"user_id"`
	SubjectID string          `json:"subject_id,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type AuditDetails struct {
	Symptoms []string `json:"symptoms,omitempty"`
	OrderID  string   `json:"order_id,omitempty"`
}

type AuditService struct {
	db  *sql.DB
	now func() time.Time
}

func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db, now: time.Now}
}

// LogEvent records an audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}
	if len(event.Details) == 0 {
		event.Details = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO audit_events (id, event_type, user_id, subject_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(event.EventType),
		event.UserID,
		nullString(event.SubjectID),
		[]byte(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}
	return nil
}

// TriageGiven records symptom guidance shown in a chat session. urgent marks
// guidance that told the patient to seek immediate care.
func (s *AuditService) TriageGiven(ctx context.Context, userID, sessionID uuid.UUID, symptoms []string, urgent bool) error {
	detailsJSON, _ := json.Marshal(AuditDetails{Symptoms: symptoms})
	eventType := EventTriageGuidance
	if urgent {
		eventType = EventUrgentSymptom
	}
	return s.LogEvent(ctx, AuditEvent{
		EventType: eventType,
		UserID:    userID,
		SubjectID: sessionID.String(),
		Details:   detailsJSON,
	})
}

// PaymentSignatureMismatch records a failed checkout verification.
func (s *AuditService) PaymentSignatureMismatch(ctx context.Context, userID uuid.UUID, orderID string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{OrderID: orderID})
	return s.LogEvent(ctx, AuditEvent{
		EventType: EventPaymentSignatureMismatch,
		UserID:    userID,
		SubjectID: orderID,
		Details:   detailsJSON,
	})
}

// AuditFilter narrows QueryEvents. Zero fields are ignored.
type AuditFilter struct {
	UserID    uuid.UUID
	EventType AuditEventType
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// QueryEvents lists audit events, newest first.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT id, event_type, user_id, subject_id, details, created_at
		FROM audit_events
		WHERE TRUE
	`
	var args []any
	argIdx := 1

	if filter.UserID != uuid.Nil {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, string(filter.EventType))
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %d", limit)
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]AuditEvent, 0)
	for rows.Next() {
		var e AuditEvent
		var eventType string
		var subject sql.NullString
		var details []byte
		if err := rows.Scan(&e.ID, &eventType, &e.UserID, &subject, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		e.EventType = AuditEventType(eventType)
		e.SubjectID = subject.String
		e.Details = json.RawMessage(details)
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
