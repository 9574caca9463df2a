package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/roomly-api/pkg/errors"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		raw    string
		minute int
	}{
		{"00:00", 0},
		{"9:05", 545},
		{"09:30", 570},
		{"23:59", 1439},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.minute, got, tc.raw)
	}
}

func TestParseClockRejectsMalformedInput(t *testing.T) {
	for _, raw := range []string{"", "10", "10:5", "24:00", "10:60", "-1:00", "ab:cd", "10:00:00", "100:00"} {
		_, err := ParseClock(raw)
		require.Error(t, err, raw)
		assert.Equal(t, appErrors.ErrInvalidTimeFormat.Code, appErrors.FromError(err).Code, raw)
	}
}

func TestNewTimeSlotRejectsInvertedAndEmpty(t *testing.T) {
	_, err := NewTimeSlot(600, 600)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTimeSlot)

	_, err = NewTimeSlot(660, 600)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTimeSlot)

	_, err = NewTimeSlot(1380, 1500)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTimeSlot)
}

func TestParseTimeSlotRoundTrip(t *testing.T) {
	slot, err := ParseTimeSlot("09:00", "10:30")
	require.NoError(t, err)
	assert.Equal(t, 540, slot.StartMinute)
	assert.Equal(t, 630, slot.EndMinute)
	assert.Equal(t, 90, slot.DurationMinutes())
	assert.InDelta(t, 1.5, slot.DurationHours(), 1e-9)
	assert.Equal(t, "09:00", slot.StartClock())
	assert.Equal(t, "10:30", slot.EndClock())
	assert.Equal(t, "09:00-10:30", slot.String())
}

func TestOverlapsHalfOpen(t *testing.T) {
	booked, err := ParseTimeSlot("10:00", "11:00")
	require.NoError(t, err)

	adjacent, err := ParseTimeSlot("11:00", "12:00")
	require.NoError(t, err)
	assert.False(t, booked.Overlaps(adjacent, 0))
	assert.False(t, adjacent.Overlaps(booked, 0))

	inside, err := ParseTimeSlot("10:15", "10:45")
	require.NoError(t, err)
	assert.True(t, booked.Overlaps(inside, 0))
	assert.True(t, inside.Overlaps(booked, 0))
}

func TestOverlapsBufferExtendsBothEnds(t *testing.T) {
	booked, err := ParseTimeSlot("10:00", "11:00")
	require.NoError(t, err)

	// 11:10 starts inside the 15-minute tail buffer.
	tooClose, err := ParseTimeSlot("11:10", "11:30")
	require.NoError(t, err)
	assert.True(t, booked.Overlaps(tooClose, 15))

	// 11:20 clears the buffer that ends at 11:15.
	farEnough, err := ParseTimeSlot("11:20", "11:40")
	require.NoError(t, err)
	assert.False(t, booked.Overlaps(farEnough, 15))

	before, err := ParseTimeSlot("09:00", "09:50")
	require.NoError(t, err)
	assert.True(t, booked.Overlaps(before, 15))
}

func TestDayOfAndMinuteOfDay(t *testing.T) {
	instant := time.Date(2025, 6, 15, 14, 45, 30, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), DayOf(instant))
	assert.Equal(t, 14*60+45, MinuteOfDay(instant))
}

func TestPriorityWeightAndOverride(t *testing.T) {
	assert.Equal(t, 20, PriorityLow.Weight())
	assert.Equal(t, 40, PriorityNormal.Weight())
	assert.Equal(t, 60, PriorityHigh.Weight())
	assert.Equal(t, 80, PriorityUrgent.Weight())
	assert.Equal(t, 100, PriorityCEO.Weight())
	assert.Equal(t, 40, Priority("unknown").Weight())

	assert.True(t, PriorityCEO.CanOverride(PriorityUrgent))
	assert.True(t, PriorityHigh.CanOverride(PriorityNormal))
	assert.False(t, PriorityNormal.CanOverride(PriorityNormal))
	assert.False(t, PriorityLow.CanOverride(PriorityCEO))
}

func TestBookingStatusLifecycle(t *testing.T) {
	assert.True(t, BookingStatusPending.IsActive())
	assert.True(t, BookingStatusApproved.IsActive())
	assert.False(t, BookingStatusCancelled.IsActive())

	assert.True(t, BookingStatusRejected.IsTerminal())
	assert.True(t, BookingStatusCompleted.IsTerminal())
	assert.False(t, BookingStatusPending.IsTerminal())
}
