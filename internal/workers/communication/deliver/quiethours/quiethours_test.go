// internal/workers/communication/deliver/quiethours/quiethours_test.go
package quiethours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_SameDayWindow(t *testing.T) {
	// 13:00-17:00 in UTC for easy reasoning.
	tests := []struct {
		name   string
		now    time.Time
		active bool
	}{
		{"before window", time.Date(2026, 3, 10, 12, 59, 0, 0, time.UTC), false},
		{"at start (inclusive)", time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC), true},
		{"inside window", time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC), true},
		{"last active minute", time.Date(2026, 3, 10, 16, 59, 59, 0, time.UTC), true},
		{"at end (exclusive)", time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC), false},
		{"after window", time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Evaluate("13:00", "17:00", "UTC", tt.now)
			assert.NoError(t, err)
			assert.Equal(t, tt.active, w.Active)
		})
	}
}

func TestEvaluate_OvernightWindow(t *testing.T) {
	tests := []struct {
		name   string
		now    time.Time
		active bool
	}{
		{"evening before start", time.Date(2026, 3, 10, 21, 59, 0, 0, time.UTC), false},
		{"at start", time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC), true},
		{"before midnight", time.Date(2026, 3, 10, 23, 45, 0, 0, time.UTC), true},
		{"after midnight", time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC), true},
		{"at end next day", time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC), false},
		{"mid-day", time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Evaluate("22:00", "07:00", "UTC", tt.now)
			assert.NoError(t, err)
			assert.Equal(t, tt.active, w.Active)
		})
	}
}

func TestEvaluate_ZeroWidthWindowNeverActive(t *testing.T) {
	for _, hour := range []int{0, 8, 12, 23} {
		now := time.Date(2026, 3, 10, hour, 0, 0, 0, time.UTC)
		w, err := Evaluate("08:00", "08:00", "UTC", now)
		assert.NoError(t, err)
		assert.False(t, w.Active)
		assert.Nil(t, w.EndUTC)
	}
}

func TestEvaluate_MidnightEnd(t *testing.T) {
	// end 00:00 only works via the overnight branch
	w, err := Evaluate("23:00", "00:00", "UTC", time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC))
	assert.NoError(t, err)
	assert.True(t, w.Active)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), *w.EndUTC)

	w, err = Evaluate("23:00", "00:00", "UTC", time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
	assert.False(t, w.Active)
}

func TestEvaluate_TimezoneConversion(t *testing.T) {
	// 22:00-07:00 in New York. 03:00 UTC in March (EST offset -5 outside
	// DST start, -4 after) is late evening local.
	now := time.Date(2026, 1, 15, 3, 0, 0, 0, time.UTC) // 22:00 EST Jan 14
	w, err := Evaluate("22:00", "07:00", "America/New_York", now)
	assert.NoError(t, err)
	assert.True(t, w.Active)

	// End is 07:00 local on Jan 15 = 12:00 UTC.
	assert.Equal(t, time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC), *w.EndUTC)

	// 18:00 UTC = 13:00 EST, outside the window.
	now = time.Date(2026, 1, 15, 18, 0, 0, 0, time.UTC)
	w, err = Evaluate("22:00", "07:00", "America/New_York", now)
	assert.NoError(t, err)
	assert.False(t, w.Active)
}

func TestEvaluate_EndIsStrictlyInFuture(t *testing.T) {
	// At 06:00 inside a 22:00-07:00 window, the end is 07:00 the same day,
	// one hour ahead, not 07:00 tomorrow.
	now := time.Date(2026, 3, 11, 6, 0, 0, 0, time.UTC)
	w, err := Evaluate("22:00", "07:00", "UTC", now)
	assert.NoError(t, err)
	assert.True(t, w.Active)
	assert.Equal(t, time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC), *w.EndUTC)
	assert.True(t, w.EndUTC.After(now))
}

func TestEvaluate_InvalidInputs(t *testing.T) {
	now := time.Now()

	_, err := Evaluate("25:00", "07:00", "UTC", now)
	assert.Error(t, err)

	_, err = Evaluate("22:00", "07:60", "UTC", now)
	assert.Error(t, err)

	_, err = Evaluate("2:00", "07:00", "UTC", now)
	assert.Error(t, err)

	_, err = Evaluate("22:00", "07:00", "Mars/Olympus", now)
	assert.Error(t, err)
}
