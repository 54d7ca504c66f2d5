package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const (
	DefaultMaxDailyAppointments = 30
	DefaultMaxPerHour           = 3
)

// ErrInvalidLimits is returned when a limit is not a positive number.
var ErrInvalidLimits = errors.New("scheduling: limits must be positive")

// Limits are the booking caps an administrator can tune.
type Limits struct {
	MaxDailyAppointments int `json:"max_daily_appointments"`
	MaxPerHour           int `json:"max_per_hour"`
}

// DefaultLimits returns 30 per day and 3 per hour.
func DefaultLimits() Limits {
	return Limits{MaxDailyAppointments: DefaultMaxDailyAppointments, MaxPerHour: DefaultMaxPerHour}
}

func (l Limits) Validate() error {
	if l.MaxDailyAppointments <= 0 || l.MaxPerHour <= 0 {
		return ErrInvalidLimits
	}
	return nil
}

// Scope names which limit was hit.
type Scope string

const (
	ScopeDaily  Scope = "daily"
	ScopeHourly Scope = "hourly"
)

// CapacityExceeded reports the limit a booking would break.
type CapacityExceeded struct {
	Scope Scope
	Limit int
}

func (e *CapacityExceeded) Error() string {
	return fmt.Sprintf("scheduling: %s capacity of %d reached", e.Scope, e.Limit)
}

// Counter counts live appointments. excludeID (uuid.Nil for none) is left
// out so a reschedule does not compete with itself.
type Counter interface {
	CountOnDate(ctx context.Context, day Day, excludeID uuid.UUID) (int, error)
	CountInHour(ctx context.Context, day Day, hour int, excludeID uuid.UUID) (int, error)
}

// Policy evaluates Limits against live counts. It never writes.
type Policy struct {
	Limits  Limits
	Counter Counter
}

// CheckDaily returns nil while the day is under its cap, a *CapacityExceeded
// when it is full, or the counter's error.
func (p Policy) CheckDaily(ctx context.Context, day Day, excludeID uuid.UUID) error {
	count, err := p.Counter.CountOnDate(ctx, day, excludeID)
	if err != nil {
		return fmt.Errorf("scheduling: count day: %w", err)
	}
	if count >= p.Limits.MaxDailyAppointments {
		return &CapacityExceeded{Scope: ScopeDaily, Limit: p.Limits.MaxDailyAppointments}
	}
	return nil
}

// CheckHourly covers [hour:00:00, hour:59:59] on day.
func (p Policy) CheckHourly(ctx context.Context, day Day, hour int, excludeID uuid.UUID) error {
	count, err := p.Counter.CountInHour(ctx, day, hour, excludeID)
	if err != nil {
		return fmt.Errorf("scheduling: count hour: %w", err)
	}
	if count >= p.Limits.MaxPerHour {
		return &CapacityExceeded{Scope: ScopeHourly, Limit: p.Limits.MaxPerHour}
	}
	return nil
}
