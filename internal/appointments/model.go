package appointments

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/hospital-booking-platform/internal/scheduling"
)

const (
	DefaultDepartment = "General Medicine"
)

// DefaultTime is used when a booking omits the time.
var DefaultTime = scheduling.Clock{Hour: 9}

// PaymentStatus tracks whether the consultation fee was collected.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
)

// Sex follows the hospital's M/F/O convention.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
	SexOther  Sex = "O"
)

// ParseSex normalises input, defaulting blank values to O.
func ParseSex(s string) (Sex, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return SexOther, nil
	case "M", "MALE":
		return SexMale, nil
	case "F", "FEMALE":
		return SexFemale, nil
	case "O", "OTHER":
		return SexOther, nil
	default:
		return "", fmt.Errorf("%w: sex must be one of M, F, O", ErrInvalidRequest)
	}
}

// Patient is the demographic block copied onto an appointment.
type Patient struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
	Sex  Sex    `json:"sex"`
}

// Appointment is a booked visit. TokenNumber is 0 until allocated.
type Appointment struct {
	ID            uuid.UUID        `json:"id"`
	UserID        uuid.UUID        `json:"-"`
	Name          string           `json:"name"`
	Age           int              `json:"age"`
	Sex           Sex              `json:"sex"`
	Date          scheduling.Day   `json:"date"`
	Time          scheduling.Clock `json:"time"`
	Department    string           `json:"department"`
	Doctor        string           `json:"doctor"`
	TokenNumber   int              `json:"token_number"`
	PaymentStatus PaymentStatus    `json:"payment_status"`
	PaymentRef    *string          `json:"payment_id"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Slot returns the appointment's date and time.
func (a *Appointment) Slot() scheduling.Slot {
	return scheduling.Slot{Day: a.Date, Time: a.Time}
}

// CreateRequest is a booking intent. ProfileName pre-fills blank patient
// fields from a saved patient profile.
type CreateRequest struct {
	UserID      uuid.UUID         `json:"-"`
	ProfileName string            `json:"profile_name,omitempty"`
	Name        string            `json:"name"`
	Age         int               `json:"age"`
	Sex         string            `json:"sex"`
	Date        scheduling.Day    `json:"date"`
	Time        *scheduling.Clock `json:"time,omitempty"`
	Department  string            `json:"department"`
	Doctor      string            `json:"doctor"`
}

// Slot returns the requested slot, applying the default time.
func (r *CreateRequest) Slot() scheduling.Slot {
	clock := DefaultTime
	if r.Time != nil {
		clock = *r.Time
	}
	return scheduling.Slot{Day: r.Date, Time: clock}
}

// Validate checks the fields a booking needs before any rule is evaluated.
func (r *CreateRequest) Validate() error {
	if r.UserID == uuid.Nil {
		return fmt.Errorf("%w: user is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if r.Age <= 0 {
		return fmt.Errorf("%w: age must be positive", ErrInvalidRequest)
	}
	if _, err := ParseSex(r.Sex); err != nil {
		return err
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Doctor) == "" {
		return fmt.Errorf("%w: doctor is required", ErrInvalidRequest)
	}
	return nil
}

// UpdateRequest moves an appointment to a new date and time.
type UpdateRequest struct {
	UserID uuid.UUID         `json:"-"`
	ID     uuid.UUID         `json:"id"`
	Date   scheduling.Day    `json:"date"`
	Time   *scheduling.Clock `json:"time"`
}

func (r *UpdateRequest) Validate() error {
	if r.UserID == uuid.Nil {
		return fmt.Errorf("%w: user is required", ErrInvalidRequest)
	}
	if r.ID == uuid.Nil || r.Date.IsZero() || r.Time == nil {
		return fmt.Errorf("%w: appointment id, new date, and new time are required", ErrInvalidRequest)
	}
	return nil
}

// Slot returns the target slot. Validate must have passed.
func (r *UpdateRequest) Slot() scheduling.Slot {
	return scheduling.Slot{Day: r.Date, Time: *r.Time}
}

// EventType names a queue board change.
type EventType string

const (
	EventTokenAssigned EventType = "token_assigned"
	EventTokenReleased EventType = "token_released"
)

// Event describes a token change without any patient details.
type Event struct {
	Type       EventType      `json:"type"`
	Date       scheduling.Day `json:"date"`
	Token      int            `json:"token"`
	Department string         `json:"department"`
}
