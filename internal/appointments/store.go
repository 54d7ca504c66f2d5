package appointments

import (
	"context"

	"github.com/google/uuid"

	"github.com/wolfman30/hospital-booking-platform/internal/scheduling"
)

// DayTx is the view of one day's appointments held exclusively by a booking.
// Counts and the max token are read and the write is made under the same lock.
type DayTx interface {
	scheduling.Counter
	scheduling.TokenSource

	// LockAppointment re-reads an appointment owned by userID inside the transaction.
	LockAppointment(ctx context.Context, userID, id uuid.UUID) (*Appointment, error)
	Insert(ctx context.Context, appt *Appointment) error
	// Reschedule persists appt's date, time and token.
	Reschedule(ctx context.Context, appt *Appointment) error
}

// Store persists appointments.
type Store interface {
	// WithDateLock runs fn with exclusive access to day's appointment set.
	// Nothing fn wrote survives if it returns an error. Locks for different
	// days are independent.
	WithDateLock(ctx context.Context, day scheduling.Day, fn func(ctx context.Context, tx DayTx) error) error

	GetForUser(ctx context.Context, userID, id uuid.UUID) (*Appointment, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Appointment, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SetPaymentRef(ctx context.Context, userID, id uuid.UUID, ref string) error
	// MarkPaid moves the appointment carrying ref from Pending to Paid. A nil
	// userID matches any owner.
	MarkPaid(ctx context.Context, userID uuid.UUID, ref string) (*Appointment, error)
}
