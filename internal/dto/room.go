package dto

import "github.com/noah-isme/roomly-api/internal/models"

// CreateRoomRequest defines payload for registering a room.
type CreateRoomRequest struct {
	Name         string   `json:"name" validate:"required"`
	RoomNumber   string   `json:"roomNumber" validate:"required"`
	Capacity     int      `json:"capacity" validate:"required,min=1"`
	PricePerHour float64  `json:"pricePerHour" validate:"min=0"`
	Equipment    []string `json:"equipment"`
	Amenities    []string `json:"amenities"`
	Location     string   `json:"location" validate:"required"`
	Description  *string  `json:"description"`
}

// UpdateRoomRequest carries optional room mutations.
type UpdateRoomRequest struct {
	Name         *string  `json:"name"`
	Capacity     *int     `json:"capacity" validate:"omitempty,min=1"`
	PricePerHour *float64 `json:"pricePerHour" validate:"omitempty,min=0"`
	Equipment    []string `json:"equipment"`
	Amenities    []string `json:"amenities"`
	Location     *string  `json:"location"`
	Description  *string  `json:"description"`
	IsAvailable  *bool    `json:"isAvailable"`
}

// SnapshotRoom copies the fields a recommendation or booking response
// exposes.
func SnapshotRoom(room *models.Room) RoomSnapshot {
	return RoomSnapshot{
		ID:           room.ID,
		Name:         room.Name,
		RoomNumber:   room.RoomNumber,
		Capacity:     room.Capacity,
		Equipment:    append([]string(nil), room.Equipment...),
		PricePerHour: room.PricePerHour,
		Location:     room.Location,
	}
}
