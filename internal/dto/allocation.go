package dto

import (
	"time"

	"github.com/noah-isme/roomly-api/internal/models"
)

// MeetingRequest describes one allocation search. It is ephemeral and never
// persisted.
type MeetingRequest struct {
	OrganizerID        string          `json:"organizerId" validate:"required"`
	Attendees          []string        `json:"attendees" validate:"required,min=1,max=100"`
	DurationMinutes    int             `json:"duration" validate:"required,min=15,max=480"`
	RequiredEquipment  []string        `json:"requiredEquipment"`
	PreferredStartTime time.Time       `json:"preferredStartTime" validate:"required"`
	FlexibilityMinutes int             `json:"flexibility" validate:"min=0,max=240"`
	Priority           models.Priority `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	PreferredLocation  string          `json:"preferredLocation"`
}

// AllocationScore breaks a candidate's total score into its five weighted
// components, each within [0,100].
type AllocationScore struct {
	Capacity  float64 `json:"capacityScore"`
	Equipment float64 `json:"equipmentScore"`
	Cost      float64 `json:"costScore"`
	Location  float64 `json:"locationScore"`
	Time      float64 `json:"timeScore"`
	Total     float64 `json:"totalScore"`
}

// RoomSnapshot carries the room attributes a recommendation is based on.
type RoomSnapshot struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	RoomNumber   string   `json:"roomNumber"`
	Capacity     int      `json:"capacity"`
	Equipment    []string `json:"equipment"`
	PricePerHour float64  `json:"pricePerHour"`
	Location     string   `json:"location"`
}

// RoomRecommendation pairs a room with a concrete suggested slot.
type RoomRecommendation struct {
	Room             RoomSnapshot    `json:"room"`
	SuggestedTime    time.Time       `json:"suggestedTime"`
	EndTime          time.Time       `json:"endTime"`
	Score            float64         `json:"score"`
	ScoreBreakdown   AllocationScore `json:"scoreBreakdown"`
	Reasons          []string        `json:"reasons"`
	CostOptimization float64         `json:"costOptimization"`
}

// OptimalAllocationResult is the outcome of an allocation search. Empty
// recommendations with HasConflict set is a valid non-error outcome.
type OptimalAllocationResult struct {
	RecommendedRoom    *RoomRecommendation  `json:"recommendedRoom"`
	AlternativeOptions []RoomRecommendation `json:"alternativeOptions"`
	HasConflict        bool                 `json:"hasConflict"`
	Suggestions        []string             `json:"suggestions"`
}

// ConflictCheckRequest asks whether a slot is free on a room and date.
type ConflictCheckRequest struct {
	RoomID           string `json:"roomId" validate:"required"`
	Date             string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime        string `json:"startTime" validate:"required"`
	EndTime          string `json:"endTime" validate:"required"`
	BufferMinutes    *int   `json:"bufferMinutes" validate:"omitempty,min=0,max=120"`
	ExcludeBookingID string `json:"excludeBookingId"`
}

// ConflictCheckResponse reports the availability decision.
type ConflictCheckResponse struct {
	Available bool `json:"available"`
}

// OverrideCheckRequest asks whether a priority class may displace an
// existing booking's holder.
type OverrideCheckRequest struct {
	BookingID string          `json:"bookingId" validate:"required"`
	Priority  models.Priority `json:"priority" validate:"required,oneof=low normal high urgent"`
}

// OverrideCheckResponse reports the arbitration decision.
type OverrideCheckResponse struct {
	CanOverride       bool            `json:"canOverride"`
	ExistingPriority  models.Priority `json:"existingPriority"`
	EffectivePriority models.Priority `json:"effectivePriority"`
}
