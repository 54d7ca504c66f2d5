package scheduling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2026-10-26")
	require.NoError(t, err)
	assert.Equal(t, Day{Year: 2026, Month: time.October, Day: 26}, d)
	assert.Equal(t, time.Monday, d.Weekday())
	assert.Equal(t, "2026-10-26", d.String())

	_, err = ParseDay("26/10/2026")
	assert.Error(t, err)
}

func TestDayOrdering(t *testing.T) {
	d := NewDay(2026, time.December, 31)
	next := d.AddDays(1)
	assert.Equal(t, NewDay(2027, time.January, 1), next)
	assert.True(t, d.Before(next))
	assert.True(t, next.After(d))
	assert.False(t, d.Before(d))
	assert.True(t, Day{}.IsZero())
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want Clock
	}{
		{"10:15", Clock{Hour: 10, Minute: 15}},
		{"09:00:30", Clock{Hour: 9, Second: 30}},
		{" 13:59 ", Clock{Hour: 13, Minute: 59}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseClock("25:00")
	assert.Error(t, err)
	_, err = ParseClock("10am")
	assert.Error(t, err)
}

func TestClockSecondsRoundTrip(t *testing.T) {
	c := Clock{Hour: 17, Minute: 45, Second: 12}
	assert.Equal(t, c, ClockFromSeconds(c.Seconds()))
	assert.Equal(t, "17:45:12", c.String())
}

func TestSlotJSON(t *testing.T) {
	var slot Slot
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2026-10-26","time":"10:15"}`), &slot))
	assert.Equal(t, NewDay(2026, time.October, 26), slot.Day)
	assert.Equal(t, Clock{Hour: 10, Minute: 15}, slot.Time)

	out, err := json.Marshal(slot)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2026-10-26","time":"10:15:00"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"date":"tomorrow"}`), &slot))
}
