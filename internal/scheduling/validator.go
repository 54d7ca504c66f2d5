package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const lunchHour = 13

// Intent is a booking request waiting for acceptance. ExcludeID is set when an
// existing appointment is being moved.
type Intent struct {
	Slot      Slot
	ExcludeID uuid.UUID
}

// Validator applies the desk rules. Every violated rule is reported.
type Validator struct {
	loc *time.Location
	now func() time.Time
}

// NewValidator evaluates "today" in loc. A nil now uses time.Now.
func NewValidator(loc *time.Location, now func() time.Time) *Validator {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Validator{loc: loc, now: now}
}

// Today is the business date.
func (v *Validator) Today() Day {
	return DayOf(v.now().In(v.loc))
}

// CheckStatic runs the calendar rules that need no store access.
func (v *Validator) CheckStatic(slot Slot) []Rejection {
	var rejections []Rejection
	if slot.Day.Before(v.Today()) {
		rejections = append(rejections, pastDateRejection())
	}
	if slot.Day.Weekday() == time.Sunday {
		rejections = append(rejections, closedDayRejection())
	}
	if slot.Time.Hour == lunchHour {
		rejections = append(rejections, lunchBreakRejection())
	}
	return rejections
}

// Validate runs the calendar rules then both capacity checks. It returns nil,
// a *RejectionError, or a store error from the policy's counter.
func (v *Validator) Validate(ctx context.Context, policy Policy, intent Intent) error {
	rejections := v.CheckStatic(intent.Slot)

	checks := []func() error{
		func() error { return policy.CheckDaily(ctx, intent.Slot.Day, intent.ExcludeID) },
		func() error { return policy.CheckHourly(ctx, intent.Slot.Day, intent.Slot.Time.Hour, intent.ExcludeID) },
	}
	for _, check := range checks {
		err := check()
		if err == nil {
			continue
		}
		var exceeded *CapacityExceeded
		if !errors.As(err, &exceeded) {
			return err
		}
		rejections = append(rejections, capacityRejection(exceeded))
	}

	if len(rejections) > 0 {
		return &RejectionError{Rejections: rejections}
	}
	return nil
}

// NoChange reports whether a reschedule targets the slot it already holds.
func NoChange(current, next Slot) bool {
	return current == next
}
