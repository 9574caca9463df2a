package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionBookingCreate  = "BOOKING_CREATE"
	AuditActionBookingUpdate  = "BOOKING_UPDATE"
	AuditActionBookingApprove = "BOOKING_APPROVE"
	AuditActionBookingReject  = "BOOKING_REJECT"
	AuditActionBookingCancel  = "BOOKING_CANCEL"
	AuditActionBookingRelease = "BOOKING_AUTO_RELEASE"
	AuditActionBookingDelete  = "BOOKING_DELETE"
	AuditActionRoomCreate     = "ROOM_CREATE"
	AuditActionRoomUpdate     = "ROOM_UPDATE"
	AuditActionRoomDelete     = "ROOM_DELETE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Detail     []byte    `db:"detail" json:"detail,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
