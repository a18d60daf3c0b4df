package models

import (
	"errors"
	"testing"
	"time"

	"github.com/benjamonnguyen/clockin-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligible_Quota(t *testing.T) {
	t.Parallel()

	p := clockin.DefaultShiftPolicy(time.UTC)
	tests := []struct {
		name  string
		bt    clockin.BreakType
		taken int
		now   time.Time
	}{
		{"7th toilet", clockin.BreakToilet, 6, at(13, 0, 0)},
		{"2nd eat", clockin.BreakEat, 1, at(22, 10, 0)},
		{"2nd rest", clockin.BreakRest, 1, at(16, 30, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var counts clockin.BreakCounts
			counts[tt.bt] = tt.taken - 1
			require.NoError(t, Eligible(p, tt.bt, counts, tt.now))

			counts[tt.bt] = tt.taken
			err := Eligible(p, tt.bt, counts, tt.now)
			require.ErrorIs(t, err, clockin.ErrPolicyDenied)
			var denial *clockin.PolicyDenial
			require.True(t, errors.As(err, &denial))
			assert.Equal(t, clockin.QuotaExhausted, denial.Reason)
			assert.Equal(t, tt.bt, denial.Break)
		})
	}
}

func TestEligible_Windows(t *testing.T) {
	t.Parallel()

	p := clockin.DefaultShiftPolicy(time.UTC)
	tests := []struct {
		bt      clockin.BreakType
		now     time.Time
		allowed bool
	}{
		{clockin.BreakEat, at(21, 59, 59), false},
		{clockin.BreakEat, at(22, 0, 0), true},
		{clockin.BreakEat, at(22, 30, 0), true},
		{clockin.BreakEat, at(22, 30, 0).Add(999 * time.Millisecond), true},
		{clockin.BreakEat, at(22, 30, 1), false},
		{clockin.BreakRest, at(16, 14, 59), false},
		{clockin.BreakRest, at(16, 15, 0), true},
		{clockin.BreakRest, at(17, 45, 0), true},
		{clockin.BreakRest, at(17, 45, 1), false},
		{clockin.BreakToilet, at(3, 0, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.bt.String()+"@"+tt.now.Format(time.TimeOnly), func(t *testing.T) {
			t.Parallel()
			err := Eligible(p, tt.bt, clockin.BreakCounts{}, tt.now)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			var denial *clockin.PolicyDenial
			require.True(t, errors.As(err, &denial))
			assert.Equal(t, clockin.OutsideWindow, denial.Reason)
		})
	}
}

func TestEligible_PolicyTimezone(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("ICT", 7*60*60)
	p := clockin.DefaultShiftPolicy(loc)

	// 15:05 UTC is 22:05 in the policy zone
	assert.NoError(t, Eligible(p, clockin.BreakEat, clockin.BreakCounts{}, at(15, 5, 0)))
	assert.Error(t, Eligible(p, clockin.BreakEat, clockin.BreakCounts{}, at(22, 5, 0)))
}

func TestEligible_UnknownBreak(t *testing.T) {
	t.Parallel()

	p := clockin.DefaultShiftPolicy(time.UTC)
	err := Eligible(p, clockin.BreakNone, clockin.BreakCounts{}, at(12, 0, 0))
	assert.ErrorIs(t, err, clockin.ErrPolicyDenied)
}

func TestWarningDelay(t *testing.T) {
	t.Parallel()

	p := clockin.DefaultShiftPolicy(time.UTC)

	t.Run("toilet warns a minute before allotment", func(t *testing.T) {
		t.Parallel()
		d, ok := WarningDelay(p, clockin.BreakToilet, at(12, 0, 0))
		assert.True(t, ok)
		assert.Equal(t, 9*time.Minute, d)
	})

	t.Run("eat warns a minute before window end", func(t *testing.T) {
		t.Parallel()
		d, ok := WarningDelay(p, clockin.BreakEat, at(22, 10, 0))
		assert.True(t, ok)
		assert.Equal(t, 19*time.Minute, d)
	})

	t.Run("rest near window end", func(t *testing.T) {
		t.Parallel()
		_, ok := WarningDelay(p, clockin.BreakRest, at(17, 43, 0))
		assert.False(t, ok, "delay equal to the lead is not armed")

		d, ok := WarningDelay(p, clockin.BreakRest, at(17, 42, 59))
		assert.True(t, ok)
		assert.Equal(t, time.Minute+time.Second, d)
	})
}

func TestOverrun(t *testing.T) {
	t.Parallel()

	p := clockin.DefaultShiftPolicy(time.UTC)

	assert.Equal(t, time.Minute, Overrun(p, clockin.BreakToilet, at(12, 0, 0), at(12, 11, 0)))
	assert.Zero(t, Overrun(p, clockin.BreakToilet, at(12, 0, 0), at(12, 10, 0)))
	assert.Equal(t, 5*time.Minute, Overrun(p, clockin.BreakEat, at(22, 10, 0), at(22, 35, 0)))
	assert.Zero(t, Overrun(p, clockin.BreakRest, at(16, 20, 0), at(17, 0, 0)))
}
