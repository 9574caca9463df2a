package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/noah-isme/roomly-api/pkg/errors"
)

const minutesPerDay = 24 * 60

// TimeSlot is a half-open interval of minutes within a single calendar day.
// StartMinute < EndMinute always holds for slots built through ParseTimeSlot
// or NewTimeSlot; it is not re-validated elsewhere.
type TimeSlot struct {
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

// NewTimeSlot builds a slot from minute offsets, rejecting empty, inverted
// and midnight-crossing intervals.
func NewTimeSlot(startMinute, endMinute int) (TimeSlot, error) {
	if startMinute < 0 || endMinute > minutesPerDay || startMinute >= endMinute {
		return TimeSlot{}, appErrors.ErrInvalidTimeSlot
	}
	return TimeSlot{StartMinute: startMinute, EndMinute: endMinute}, nil
}

// ParseTimeSlot builds a slot from 24-hour "HH:mm" boundary strings.
func ParseTimeSlot(startTime, endTime string) (TimeSlot, error) {
	start, err := ParseClock(startTime)
	if err != nil {
		return TimeSlot{}, err
	}
	end, err := ParseClock(endTime)
	if err != nil {
		return TimeSlot{}, err
	}
	return NewTimeSlot(start, end)
}

// ParseClock converts a 24-hour "HH:mm" string into a minute-of-day offset.
func ParseClock(raw string) (int, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 || len(parts[1]) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 {
		return 0, appErrors.ErrInvalidTimeFormat
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, appErrors.ErrInvalidTimeFormat
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, appErrors.ErrInvalidTimeFormat
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, appErrors.ErrInvalidTimeFormat
	}
	return hour*60 + minute, nil
}

// Overlaps reports whether the slot, padded by bufferMinutes on both ends,
// intersects other. Touching endpoints do not overlap when the buffer is
// zero (half-open semantics).
func (s TimeSlot) Overlaps(other TimeSlot, bufferMinutes int) bool {
	paddedStart := s.StartMinute - bufferMinutes
	paddedEnd := s.EndMinute + bufferMinutes
	return paddedStart < other.EndMinute && other.StartMinute < paddedEnd
}

// DurationMinutes returns the slot length in minutes.
func (s TimeSlot) DurationMinutes() int {
	return s.EndMinute - s.StartMinute
}

// DurationHours returns the slot length in fractional hours for cost math.
func (s TimeSlot) DurationHours() float64 {
	return float64(s.DurationMinutes()) / 60
}

// StartClock renders the start boundary as "HH:mm".
func (s TimeSlot) StartClock() string {
	return formatClock(s.StartMinute)
}

// EndClock renders the end boundary as "HH:mm".
func (s TimeSlot) EndClock() string {
	return formatClock(s.EndMinute)
}

func (s TimeSlot) String() string {
	return s.StartClock() + "-" + s.EndClock()
}

func formatClock(minuteOfDay int) string {
	return fmt.Sprintf("%02d:%02d", minuteOfDay/60, minuteOfDay%60)
}

// DayOf truncates an instant to midnight UTC; bookings compare dates at day
// granularity.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MinuteOfDay returns the minute offset of an instant within its UTC day.
func MinuteOfDay(t time.Time) int {
	t = t.UTC()
	return t.Hour()*60 + t.Minute()
}
