package models

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusApproved  BookingStatus = "approved"
	BookingStatusRejected  BookingStatus = "rejected"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// IsActive reports whether the booking still occupies its slot for conflict
// purposes.
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusApproved
}

// IsTerminal reports whether no further transitions are allowed.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusRejected || s == BookingStatusCancelled || s == BookingStatusCompleted
}

// Booking is one reservation of a room for a dated time slot.
type Booking struct {
	ID              string        `db:"id" json:"id"`
	RoomID          string        `db:"room_id" json:"room_id"`
	UserID          string        `db:"user_id" json:"user_id"`
	Date            time.Time     `db:"date" json:"date"`
	StartMinute     int           `db:"start_minute" json:"-"`
	EndMinute       int           `db:"end_minute" json:"-"`
	Purpose         string        `db:"purpose" json:"purpose"`
	Attendees       int           `db:"attendees" json:"attendees"`
	Status          BookingStatus `db:"status" json:"status"`
	ApprovedBy      *string       `db:"approved_by" json:"approved_by,omitempty"`
	RejectionReason *string       `db:"rejection_reason" json:"rejection_reason,omitempty"`
	TotalCost       float64       `db:"total_cost" json:"total_cost"`
	IsDeleted       bool          `db:"is_deleted" json:"-"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Slot returns the booking's time window.
func (b *Booking) Slot() TimeSlot {
	return TimeSlot{StartMinute: b.StartMinute, EndMinute: b.EndMinute}
}

// StartInstant resolves the booking's absolute start time from its date and
// minute offset.
func (b *Booking) StartInstant() time.Time {
	return DayOf(b.Date).Add(time.Duration(b.StartMinute) * time.Minute)
}

// BookingFilter describes query params for listing bookings.
type BookingFilter struct {
	Status BookingStatus
	Date   *time.Time
	RoomID string
	UserID string
}
