package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// Room is a bookable meeting room.
type Room struct {
	ID           string         `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	RoomNumber   string         `db:"room_number" json:"room_number"`
	Capacity     int            `db:"capacity" json:"capacity"`
	PricePerHour float64        `db:"price_per_hour" json:"price_per_hour"`
	Equipment    pq.StringArray `db:"equipment" json:"equipment"`
	Amenities    pq.StringArray `db:"amenities" json:"amenities"`
	Location     string         `db:"location" json:"location"`
	Description  *string        `db:"description" json:"description,omitempty"`
	IsAvailable  bool           `db:"is_available" json:"is_available"`
	IsDeleted    bool           `db:"is_deleted" json:"-"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// HasAllEquipment reports whether the room's equipment set covers every
// required tag.
func (r *Room) HasAllEquipment(required []string) bool {
	for _, tag := range required {
		if !r.HasEquipment(tag) {
			return false
		}
	}
	return true
}

// HasEquipment reports whether a single tag is present.
func (r *Room) HasEquipment(tag string) bool {
	for _, owned := range r.Equipment {
		if owned == tag {
			return true
		}
	}
	return false
}

// MatchesLocation does a case-insensitive substring match against the room's
// location label.
func (r *Room) MatchesLocation(preferred string) bool {
	return strings.Contains(strings.ToLower(r.Location), strings.ToLower(preferred))
}

// RoomFilter describes query params for listing rooms.
type RoomFilter struct {
	MinCapacity   int
	OnlyAvailable bool
	Location      string
}
