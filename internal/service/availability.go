package service

import (
	"context"
	"time"

	"github.com/noah-isme/roomly-api/internal/models"
)

type activeBookingLister interface {
	ListActiveByRoomDate(ctx context.Context, roomID string, date time.Time, excludeID string) ([]models.Booking, error)
}

// slotFree checks a candidate slot, padded by bufferMinutes on both ends,
// against a snapshot of active bookings. It only reads the ledger; the
// authoritative re-validation happens again inside the booking commit
// transaction. The allocation search reuses it to test many candidates
// against one read.
func slotFree(slot models.TimeSlot, bufferMinutes int, existing []models.Booking) bool {
	for i := range existing {
		if slot.Overlaps(existing[i].Slot(), bufferMinutes) {
			return false
		}
	}
	return true
}
