package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/hospital-booking-platform/internal/appointments"
	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

// Service emails the hospital front desk about booking events.
type Service struct {
	email     EmailSender
	frontDesk string
	logger    *logging.Logger
}

// NewService builds the notifier. With no front desk address every
// notification is skipped.
func NewService(email EmailSender, frontDesk string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, frontDesk: strings.TrimSpace(frontDesk), logger: logger}
}

// PaymentConfirmed tells the front desk a consultation fee has been paid.
func (s *Service) PaymentConfirmed(ctx context.Context, appt *appointments.Appointment, paymentID string) error {
	if s == nil || s.email == nil || s.frontDesk == "" {
		return nil
	}
	if appt == nil {
		return fmt.Errorf("notify: appointment required")
	}

	subject := fmt.Sprintf("Paid: token #%d on %s (%s)", appt.TokenNumber, appt.Date, appt.Department)
	body := paymentBody(appt, paymentID)
	msg := EmailMessage{
		To:       s.frontDesk,
		ToName:   "Front Desk",
		Subject:  subject,
		Text:     body,
		HTML:     "<pre>" + html.EscapeString(body) + "</pre>",
		Category: "payment_confirmation",
		Args:     map[string]string{"appointment_id": appt.ID.String()},
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: payment email: %w", err)
	}
	s.logger.Info("notify: payment email sent", "appointment_id", appt.ID, "token", appt.TokenNumber)
	return nil
}

func paymentBody(appt *appointments.Appointment, paymentID string) string {
	var b strings.Builder
	b.WriteString("A consultation fee has been paid.\n\n")
	fmt.Fprintf(&b, "Patient: %s (%d, %s)\n", appt.Name, appt.Age, appt.Sex)
	fmt.Fprintf(&b, "Date: %s at %s\n", appt.Date, appt.Time)
	fmt.Fprintf(&b, "Department: %s\n", appt.Department)
	fmt.Fprintf(&b, "Doctor: %s\n", appt.Doctor)
	fmt.Fprintf(&b, "Token: %d\n", appt.TokenNumber)
	if paymentID != "" {
		fmt.Fprintf(&b, "Payment ID: %s\n", paymentID)
	}
	return b.String()
}
