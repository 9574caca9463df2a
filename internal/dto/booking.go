package dto

import "github.com/noah-isme/roomly-api/internal/models"

// CreateBookingRequest defines payload for creating a booking.
type CreateBookingRequest struct {
	RoomID    string `json:"roomId" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	Purpose   string `json:"purpose" validate:"required"`
	Attendees int    `json:"attendees" validate:"required,min=1,max=100"`
}

// UpdateBookingRequest carries optional reschedule fields. Only pending
// bookings owned by the caller accept updates.
type UpdateBookingRequest struct {
	Date      *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
	Purpose   *string `json:"purpose"`
	Attendees *int    `json:"attendees" validate:"omitempty,min=1,max=100"`
}

// ReviewBookingRequest approves or rejects a pending booking.
type ReviewBookingRequest struct {
	Status          models.BookingStatus `json:"status" validate:"required,oneof=approved rejected"`
	RejectionReason string               `json:"rejectionReason"`
}

// BookingResponse is a booking joined with its room snapshot.
type BookingResponse struct {
	Booking   models.Booking `json:"booking"`
	StartTime string         `json:"startTime"`
	EndTime   string         `json:"endTime"`
	Room      *RoomSnapshot  `json:"room,omitempty"`
}

// NewBookingResponse renders the minute offsets back to clock strings.
func NewBookingResponse(b models.Booking, room *models.Room) BookingResponse {
	resp := BookingResponse{
		Booking:   b,
		StartTime: b.Slot().StartClock(),
		EndTime:   b.Slot().EndClock(),
	}
	if room != nil {
		snapshot := SnapshotRoom(room)
		resp.Room = &snapshot
	}
	return resp
}
