package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/hospital-booking-platform/internal/observability/metrics"
	"github.com/wolfman30/hospital-booking-platform/internal/scheduling"
	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

var tracer = otel.Tracer("hospital.internal.appointments")

const defaultMaxAttempts = 3

// LimitsSource supplies the current capacity limits.
type LimitsSource interface {
	Get(ctx context.Context) (scheduling.Limits, error)
}

// PatientLookup resolves a saved patient profile by name.
type PatientLookup interface {
	PrefillFor(ctx context.Context, userID uuid.UUID, profileName string) (Patient, error)
}

// EventPublisher is notified after token assignments change.
type EventPublisher interface {
	Publish(evt Event)
}

// Service owns the appointment lifecycle: create, reschedule, cancel and
// payment confirmation. Every mutation that affects capacity or tokens runs
// inside Store.WithDateLock for the target date.
type Service struct {
	store       Store
	limits      LimitsSource
	validator   *scheduling.Validator
	profiles    PatientLookup
	events      EventPublisher
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger
	maxAttempts int
	backoff     time.Duration
}

// Option customises a Service.
type Option func(*Service)

func WithProfiles(lookup PatientLookup) Option {
	return func(s *Service) { s.profiles = lookup }
}

func WithEvents(pub EventPublisher) Option {
	return func(s *Service) { s.events = pub }
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMaxAttempts bounds how many times a conflicting write is retried.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithBackoff(d time.Duration) Option {
	return func(s *Service) { s.backoff = d }
}

func NewService(store Store, limits LimitsSource, validator *scheduling.Validator, logger *logging.Logger, opts ...Option) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if limits == nil {
		panic("appointments: limits source required")
	}
	if validator == nil {
		panic("appointments: validator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		store:       store,
		limits:      limits,
		validator:   validator,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		backoff:     20 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the request against the booking rules and capacity
// limits, allocates the next token for the date and stores the appointment
// with payment status Pending.
func (s *Service) Create(ctx context.Context, req CreateRequest) (appt *Appointment, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "appointments.create")
	defer span.End()
	defer func() { s.observe("create", start, err) }()

	if err := s.prefill(ctx, &req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sex, _ := ParseSex(req.Sex)
	department := strings.TrimSpace(req.Department)
	if department == "" {
		department = DefaultDepartment
	}
	slot := req.Slot()
	span.SetAttributes(attribute.String("hospital.date", slot.Day.String()))

	limits, err := s.limits.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: load limits: %w", err)
	}

	err = s.withRetry(ctx, func() error {
		return s.store.WithDateLock(ctx, slot.Day, func(ctx context.Context, tx DayTx) error {
			policy := scheduling.Policy{Limits: limits, Counter: tx}
			if err := s.validator.Validate(ctx, policy, scheduling.Intent{Slot: slot}); err != nil {
				return err
			}
			token, err := scheduling.NextToken(ctx, tx, slot.Day)
			if err != nil {
				return err
			}
			appt = &Appointment{
				ID:            uuid.New(),
				UserID:        req.UserID,
				Name:          strings.TrimSpace(req.Name),
				Age:           req.Age,
				Sex:           sex,
				Date:          slot.Day,
				Time:          slot.Time,
				Department:    department,
				Doctor:        strings.TrimSpace(req.Doctor),
				TokenNumber:   token,
				PaymentStatus: PaymentPending,
			}
			return tx.Insert(ctx, appt)
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"date", appt.Date.String(),
		"time", appt.Time.String(),
		"token", appt.TokenNumber,
	)
	s.publish(Event{Type: EventTokenAssigned, Date: appt.Date, Token: appt.TokenNumber, Department: appt.Department})
	return appt, nil
}

// Update reschedules an appointment. Submitting the current date and time is
// a no-op. Moving to another date allocates a new token on that date; a time
// change within the same date keeps the token.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (appt *Appointment, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "appointments.update")
	defer span.End()
	unchanged := false
	defer func() {
		if unchanged && err == nil {
			s.metrics.ObserveOperation("update", "unchanged", time.Since(start))
			return
		}
		s.observe("update", start, err)
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	next := req.Slot()
	span.SetAttributes(
		attribute.String("hospital.appointment_id", req.ID.String()),
		attribute.String("hospital.date", next.Day.String()),
	)

	current, err := s.store.GetForUser(ctx, req.UserID, req.ID)
	if err != nil {
		return nil, err
	}
	if scheduling.NoChange(current.Slot(), next) {
		unchanged = true
		return current, nil
	}

	limits, err := s.limits.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: load limits: %w", err)
	}

	var (
		released *Event
		assigned *Event
	)
	err = s.withRetry(ctx, func() error {
		released, assigned = nil, nil
		return s.store.WithDateLock(ctx, next.Day, func(ctx context.Context, tx DayTx) error {
			locked, err := tx.LockAppointment(ctx, req.UserID, req.ID)
			if err != nil {
				return err
			}
			if scheduling.NoChange(locked.Slot(), next) {
				unchanged = true
				appt = locked
				return nil
			}
			policy := scheduling.Policy{Limits: limits, Counter: tx}
			intent := scheduling.Intent{Slot: next, ExcludeID: locked.ID}
			if err := s.validator.Validate(ctx, policy, intent); err != nil {
				return err
			}
			if locked.Date != next.Day {
				token, err := scheduling.NextToken(ctx, tx, next.Day)
				if err != nil {
					return err
				}
				released = &Event{Type: EventTokenReleased, Date: locked.Date, Token: locked.TokenNumber, Department: locked.Department}
				assigned = &Event{Type: EventTokenAssigned, Date: next.Day, Token: token, Department: locked.Department}
				locked.TokenNumber = token
			}
			locked.Date = next.Day
			locked.Time = next.Time
			if err := tx.Reschedule(ctx, locked); err != nil {
				return err
			}
			appt = locked
			return nil
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if unchanged {
		return appt, nil
	}

	s.logger.Info("appointment rescheduled",
		"appointment_id", appt.ID,
		"date", appt.Date.String(),
		"time", appt.Time.String(),
		"token", appt.TokenNumber,
	)
	if released != nil {
		s.publish(*released)
	}
	if assigned != nil {
		s.publish(*assigned)
	}
	return appt, nil
}

// Cancel deletes an appointment dated today or later. Its token is released
// and other tokens on the date keep their numbers.
func (s *Service) Cancel(ctx context.Context, userID, id uuid.UUID) (err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "appointments.cancel")
	defer span.End()
	defer func() { s.observe("cancel", start, err) }()
	span.SetAttributes(attribute.String("hospital.appointment_id", id.String()))

	appt, err := s.store.GetForUser(ctx, userID, id)
	if err != nil {
		return err
	}
	if appt.Date.Before(s.validator.Today()) {
		return ErrCannotCancelPast
	}
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info("appointment cancelled", "appointment_id", id, "date", appt.Date.String(), "token", appt.TokenNumber)
	s.publish(Event{Type: EventTokenReleased, Date: appt.Date, Token: appt.TokenNumber, Department: appt.Department})
	return nil
}

// AttachPaymentRef records the gateway order id an upcoming payment will carry.
func (s *Service) AttachPaymentRef(ctx context.Context, userID, id uuid.UUID, ref string) (*Appointment, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("%w: payment reference is required", ErrInvalidRequest)
	}
	appt, err := s.store.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if appt.PaymentStatus == PaymentPaid {
		return nil, ErrAlreadyPaid
	}
	if err := s.store.SetPaymentRef(ctx, userID, id, ref); err != nil {
		return nil, err
	}
	appt.PaymentRef = &ref
	return appt, nil
}

// ConfirmPayment marks the appointment carrying ref as Paid once the payment
// gateway signature has been verified. Paid is terminal.
func (s *Service) ConfirmPayment(ctx context.Context, userID uuid.UUID, ref string, verified bool) (appt *Appointment, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "appointments.confirm_payment")
	defer span.End()
	defer func() { s.observe("confirm_payment", start, err) }()

	if !verified {
		return nil, ErrPaymentNotVerified
	}
	appt, err = s.store.MarkPaid(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment paid", "appointment_id", appt.ID, "payment_ref", ref)
	return appt, nil
}

// ConfirmCapture marks the appointment carrying ref as paid on the gateway's
// word alone. It serves server-to-server notifications that carry no user.
func (s *Service) ConfirmCapture(ctx context.Context, ref string) (*Appointment, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, ErrNotFound
	}
	return s.ConfirmPayment(ctx, uuid.Nil, ref, true)
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Appointment, error) {
	return s.store.GetForUser(ctx, userID, id)
}

// ListForUser returns the user's appointments ordered by date and time.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Appointment, error) {
	return s.store.ListForUser(ctx, userID)
}

func (s *Service) prefill(ctx context.Context, req *CreateRequest) error {
	name := strings.TrimSpace(req.ProfileName)
	if name == "" || s.profiles == nil {
		return nil
	}
	patient, err := s.profiles.PrefillFor(ctx, req.UserID, name)
	if err != nil {
		return err
	}
	if strings.TrimSpace(req.Name) == "" {
		req.Name = patient.Name
	}
	if req.Age <= 0 {
		req.Age = patient.Age
	}
	if strings.TrimSpace(req.Sex) == "" {
		req.Sex = string(patient.Sex)
	}
	return nil
}

// withRetry re-runs fn while it fails with ErrStoreConflict, up to
// maxAttempts, then reports ErrTransient.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil || !errors.Is(lastErr, ErrStoreConflict) {
			return lastErr
		}
		s.metrics.ObserveConflictRetry()
		s.logger.Warn("booking conflict, retrying", "attempt", attempt, "error", lastErr)
		if attempt == s.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("%w: %v", ErrTransient, lastErr)
}

func (s *Service) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if rej, ok := scheduling.AsRejection(err); ok {
			outcome = "rejected"
			for _, r := range rej.Rejections {
				s.metrics.ObserveRejection(string(r.Code))
			}
		}
	}
	s.metrics.ObserveOperation(op, outcome, time.Since(start))
}

func (s *Service) publish(evt Event) {
	if s.events == nil {
		return
	}
	s.events.Publish(evt)
}
