// Package scheduling holds the booking rules for the appointment desk: the
// calendar types, the day/hour capacity policy, token numbering and the
// validator that turns a booking intent into an accepted slot or a list of
// rejections.
package scheduling

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	dayLayout        = "2006-01-02"
	clockLayout      = "15:04"
	clockLayoutLong  = "15:04:05"
	secondsPerMinute = 60
	secondsPerHour   = 3600
)

// Day is a calendar date with no time zone attached.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDay builds a Day, normalising out-of-range values the way time.Date does.
func NewDay(year int, month time.Month, day int) Day {
	return DayOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DayOf returns the calendar date of t in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses YYYY-MM-DD.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}, fmt.Errorf("scheduling: invalid date %q, use YYYY-MM-DD", s)
	}
	return DayOf(t), nil
}

// Time returns midnight UTC of the day.
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Day) Weekday() time.Weekday { return d.Time().Weekday() }

func (d Day) Before(other Day) bool { return d.Time().Before(other.Time()) }

func (d Day) After(other Day) bool { return d.Time().After(other.Time()) }

func (d Day) AddDays(n int) Day { return DayOf(d.Time().AddDate(0, 0, n)) }

func (d Day) IsZero() bool { return d == Day{} }

func (d Day) String() string { return d.Time().Format(dayLayout) }

func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Day) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("scheduling: date must be a string: %w", err)
	}
	parsed, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Clock is a wall-clock time of day at second precision.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

// ParseClock accepts HH:MM or HH:MM:SS.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	layout := clockLayout
	if strings.Count(s, ":") == 2 {
		layout = clockLayoutLong
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Clock{}, fmt.Errorf("scheduling: invalid time %q, use HH:MM", s)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

// ClockFromSeconds converts seconds since midnight into a Clock.
func ClockFromSeconds(secs int64) Clock {
	secs %= 24 * secondsPerHour
	return Clock{
		Hour:   int(secs / secondsPerHour),
		Minute: int(secs % secondsPerHour / secondsPerMinute),
		Second: int(secs % secondsPerMinute),
	}
}

// Seconds returns the number of seconds since midnight.
func (c Clock) Seconds() int64 {
	return int64(c.Hour)*secondsPerHour + int64(c.Minute)*secondsPerMinute + int64(c.Second)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("scheduling: time must be a string: %w", err)
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Slot is the date and time a booking asks for.
type Slot struct {
	Day  Day   `json:"date"`
	Time Clock `json:"time"`
}
