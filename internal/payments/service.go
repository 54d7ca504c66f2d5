package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/wolfman30/hospital-booking-platform/internal/appointments"
	"github.com/wolfman30/hospital-booking-platform/internal/observability/metrics"
	"github.com/wolfman30/hospital-booking-platform/internal/scheduling"
	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

var tracer = otel.Tracer("hospital.internal.payments")

var (
	ErrInvalidAmount         = errors.New("payments: amount must be positive")
	ErrMissingPaymentDetails = errors.New("payments: order_id, payment_id and signature are required")
	ErrSignatureMismatch     = errors.New("payments: payment verification failed")
	ErrGatewayRejected       = errors.New("payments: gateway rejected the request")
	ErrGatewayUnavailable    = errors.New("payments: gateway unavailable")
)

// Gateway is the payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// Lifecycle is the slice of the appointment service payments drive.
type Lifecycle interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*appointments.Appointment, error)
	AttachPaymentRef(ctx context.Context, userID, id uuid.UUID, ref string) (*appointments.Appointment, error)
	ConfirmPayment(ctx context.Context, userID uuid.UUID, ref string, verified bool) (*appointments.Appointment, error)
	ConfirmCapture(ctx context.Context, ref string) (*appointments.Appointment, error)
}

// Notifier is told about confirmed payments. Its failures are only logged.
type Notifier interface {
	PaymentConfirmed(ctx context.Context, appt *appointments.Appointment, paymentID string) error
}

// Auditor records failed verifications. Its failures are only logged.
type Auditor interface {
	PaymentSignatureMismatch(ctx context.Context, userID uuid.UUID, orderID string) error
}

// OrderResult is returned to the checkout page.
type OrderResult struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	KeyID    string `json:"key_id,omitempty"`
}

// Confirmation is the booking summary shown after payment.
type Confirmation struct {
	Name        string         `json:"name"`
	Age         int            `json:"age"`
	Date        scheduling.Day `json:"date"`
	Department  string         `json:"department"`
	Doctor      string         `json:"doctor"`
	TokenNumber int            `json:"token_number"`
}

type Service struct {
	gateway   Gateway
	lifecycle Lifecycle
	notifier  Notifier
	auditor   Auditor
	keyID     string
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
}

func NewService(gateway Gateway, lifecycle Lifecycle, notifier Notifier, keyID string, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if gateway == nil || lifecycle == nil {
		panic("payments: gateway and lifecycle required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{gateway: gateway, lifecycle: lifecycle, notifier: notifier, keyID: keyID, metrics: m, logger: logger}
}

// SetAuditor installs an auditor for failed verifications.
func (s *Service) SetAuditor(a Auditor) {
	s.auditor = a
}

// CreateOrder opens a gateway order for an unpaid appointment and records the
// order id as the appointment's payment reference.
func (s *Service) CreateOrder(ctx context.Context, userID, appointmentID uuid.UUID, amountRupees int64) (*OrderResult, error) {
	ctx, span := tracer.Start(ctx, "payments.create_order")
	defer span.End()

	if amountRupees <= 0 {
		return nil, ErrInvalidAmount
	}
	appt, err := s.lifecycle.Get(ctx, userID, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.PaymentStatus == appointments.PaymentPaid {
		return nil, appointments.ErrAlreadyPaid
	}

	order, err := s.gateway.CreateOrder(ctx, OrderRequest{
		AmountPaise: amountRupees * 100,
		Currency:    "INR",
		Receipt:     appt.ID.String(),
	})
	if err != nil {
		s.metrics.ObservePayment("order", "failed")
		span.RecordError(err)
		return nil, err
	}
	if _, err := s.lifecycle.AttachPaymentRef(ctx, userID, appointmentID, order.ID); err != nil {
		return nil, fmt.Errorf("payments: attach order: %w", err)
	}
	s.metrics.ObservePayment("order", "created")
	s.logger.Info("payment order created", "appointment_id", appt.ID, "order_id", order.ID, "amount_paise", order.Amount)

	return &OrderResult{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Status:   order.Status,
		KeyID:    s.keyID,
	}, nil
}

// Verify checks the checkout signature and, when it matches, marks the
// appointment carrying orderID as Paid.
func (s *Service) Verify(ctx context.Context, userID uuid.UUID, orderID, paymentID, signature string) (*Confirmation, error) {
	ctx, span := tracer.Start(ctx, "payments.verify")
	defer span.End()

	orderID, paymentID, signature = strings.TrimSpace(orderID), strings.TrimSpace(paymentID), strings.TrimSpace(signature)
	if orderID == "" || paymentID == "" || signature == "" {
		return nil, ErrMissingPaymentDetails
	}
	if !s.gateway.VerifySignature(orderID, paymentID, signature) {
		s.metrics.ObservePayment("verify", "mismatch")
		s.logger.Warn("payment signature mismatch", "order_id", orderID, "user_id", userID)
		if s.auditor != nil {
			if err := s.auditor.PaymentSignatureMismatch(ctx, userID, orderID); err != nil {
				s.logger.Error("failed to audit signature mismatch", "error", err, "order_id", orderID)
			}
		}
		return nil, ErrSignatureMismatch
	}

	appt, err := s.lifecycle.ConfirmPayment(ctx, userID, orderID, true)
	if err != nil {
		return nil, err
	}
	s.metrics.ObservePayment("verify", "paid")
	return s.confirmed(ctx, appt, paymentID), nil
}

// Captured applies a gateway capture notification for orderID. A capture
// the checkout callback already applied reports appointments.ErrAlreadyPaid.
func (s *Service) Captured(ctx context.Context, orderID, paymentID string) (*Confirmation, error) {
	ctx, span := tracer.Start(ctx, "payments.captured")
	defer span.End()

	appt, err := s.lifecycle.ConfirmCapture(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return nil, err
	}
	s.metrics.ObservePayment("webhook", "paid")
	return s.confirmed(ctx, appt, paymentID), nil
}

func (s *Service) confirmed(ctx context.Context, appt *appointments.Appointment, paymentID string) *Confirmation {
	if s.notifier != nil {
		if err := s.notifier.PaymentConfirmed(ctx, appt, paymentID); err != nil {
			s.logger.Warn("payment notification failed", "appointment_id", appt.ID, "error", err)
		}
	}
	return &Confirmation{
		Name:        appt.Name,
		Age:         appt.Age,
		Date:        appt.Date,
		Department:  appt.Department,
		Doctor:      appt.Doctor,
		TokenNumber: appt.TokenNumber,
	}
}
