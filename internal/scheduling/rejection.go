package scheduling

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies why a booking intent was rejected.
type Code string

const (
	CodePastDate               Code = "past_date"
	CodeClosedDay              Code = "closed_day"
	CodeLunchBreak             Code = "lunch_break"
	CodeDailyCapacityExceeded  Code = "daily_capacity_exceeded"
	CodeHourlyCapacityExceeded Code = "hourly_capacity_exceeded"
)

// Rejection is one user-correctable reason a booking was not accepted.
type Rejection struct {
	Code    Code   `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Limit   int    `json:"limit,omitempty"`
}

// RejectionError carries every rule a booking intent violated.
type RejectionError struct {
	Rejections []Rejection
}

func (e *RejectionError) Error() string {
	msgs := make([]string, 0, len(e.Rejections))
	for _, r := range e.Rejections {
		msgs = append(msgs, r.Message)
	}
	return "scheduling: booking rejected: " + strings.Join(msgs, "; ")
}

// Has reports whether the rejection list contains code.
func (e *RejectionError) Has(code Code) bool {
	for _, r := range e.Rejections {
		if r.Code == code {
			return true
		}
	}
	return false
}

// AsRejection unwraps a *RejectionError from err.
func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

func pastDateRejection() Rejection {
	return Rejection{Code: CodePastDate, Field: "date", Message: "Cannot book appointments for past dates."}
}

func closedDayRejection() Rejection {
	return Rejection{Code: CodeClosedDay, Field: "date", Message: "Appointments are not available on Sundays."}
}

func lunchBreakRejection() Rejection {
	return Rejection{Code: CodeLunchBreak, Field: "time", Message: "Appointments are not available during lunch break (1 PM to 2 PM)."}
}

func capacityRejection(exceeded *CapacityExceeded) Rejection {
	if exceeded.Scope == ScopeHourly {
		return Rejection{
			Code:    CodeHourlyCapacityExceeded,
			Field:   "time",
			Message: fmt.Sprintf("Maximum appointments (%d) for this hour have been reached. Please select a different time.", exceeded.Limit),
			Limit:   exceeded.Limit,
		}
	}
	return Rejection{
		Code:    CodeDailyCapacityExceeded,
		Field:   "date",
		Message: fmt.Sprintf("Maximum appointments (%d) for this day have been reached.", exceeded.Limit),
		Limit:   exceeded.Limit,
	}
}
