package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roomly-api/internal/dto"
	"github.com/noah-isme/roomly-api/internal/models"
	appErrors "github.com/noah-isme/roomly-api/pkg/errors"
)

type userReaderStub struct {
	users map[string]*models.User
	err   error
}

func (s *userReaderStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type roomListerStub struct {
	rooms []models.Room
	err   error
}

func (s *roomListerStub) ListFeasible(ctx context.Context, minCapacity int) ([]models.Room, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Room
	for _, r := range s.rooms {
		if r.Capacity >= minCapacity && r.IsAvailable {
			out = append(out, r)
		}
	}
	return out, nil
}

type ledgerStub struct {
	bookings map[string][]models.Booking
	err      error
}

func (s *ledgerStub) ListActiveByRoomDate(ctx context.Context, roomID string, date time.Time, excludeID string) ([]models.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Booking
	for _, b := range s.bookings[roomID] {
		if b.ID != excludeID {
			out = append(out, b)
		}
	}
	return out, nil
}

type bookingReaderStub struct {
	bookings map[string]*models.Booking
}

func (s *bookingReaderStub) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	if b, ok := s.bookings[id]; ok {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

type observerStub struct {
	outcomes []string
	sweeps   []int
}

func (s *observerStub) ObserveAllocation(outcome string) { s.outcomes = append(s.outcomes, outcome) }
func (s *observerStub) ObserveSweep(released int)        { s.sweeps = append(s.sweeps, released) }

func attendees(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "user-" + string(rune('a'+i%26))
	}
	return out
}

func newAllocationFixture(rooms []models.Room, bookings map[string][]models.Booking) (*AllocationService, *observerStub) {
	obs := &observerStub{}
	users := &userReaderStub{users: map[string]*models.User{
		"organizer": {ID: "organizer", Role: models.RoleEmployee},
		"boss":      {ID: "boss", Role: models.RoleCEO},
	}}
	svc := NewAllocationService(users, &roomListerStub{rooms: rooms}, &ledgerStub{bookings: bookings}, &bookingReaderStub{}, obs, nil, nil, AllocationConfig{})
	return svc, obs
}

func meetingAt(start time.Time, count int) dto.MeetingRequest {
	return dto.MeetingRequest{
		OrganizerID:        "organizer",
		Attendees:          attendees(count),
		DurationMinutes:    60,
		PreferredStartTime: start,
		FlexibilityMinutes: 60,
	}
}

func TestScoreRoomCapacitySteps(t *testing.T) {
	room := models.Room{Capacity: 10}
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		attendeeCount int
		want          float64
	}{
		{7, 100},
		{5, 80},
		{3, 60},
		{2, 40},
		{12, 0},
	}
	for _, tc := range cases {
		req := meetingAt(start, tc.attendeeCount)
		score := ScoreRoom(&room, req, start, 0)
		assert.Equal(t, tc.want, score.Capacity, "attendees=%d", tc.attendeeCount)
	}
}

func TestScoreRoomRelativeCost(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	req := meetingAt(start, 4)

	cases := []struct {
		price float64
		want  float64
	}{
		{30, 70},
		{60, 40},
		{100, 0},
	}
	for _, tc := range cases {
		room := models.Room{Capacity: 10, PricePerHour: tc.price}
		score := ScoreRoom(&room, req, start, 100)
		assert.InDelta(t, tc.want, score.Cost, 1e-9, "price=%v", tc.price)
	}

	// No price spread at all falls back to the neutral midpoint.
	score := ScoreRoom(&models.Room{Capacity: 10}, req, start, 0)
	assert.Equal(t, 50.0, score.Cost)
}

func TestScoreRoomLocation(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	room := models.Room{Capacity: 10, Location: "Building A, Floor 3"}

	req := meetingAt(start, 4)
	assert.Equal(t, 50.0, ScoreRoom(&room, req, start, 0).Location)

	req.PreferredLocation = "floor 3"
	assert.Equal(t, 100.0, ScoreRoom(&room, req, start, 0).Location)

	req.PreferredLocation = "Building B"
	assert.Equal(t, 50.0, ScoreRoom(&room, req, start, 0).Location)
}

func TestScoreRoomTimeDecay(t *testing.T) {
	preferred := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	room := models.Room{Capacity: 10}
	req := meetingAt(preferred, 4)

	assert.Equal(t, 100.0, ScoreRoom(&room, req, preferred, 0).Time)
	assert.Equal(t, 50.0, ScoreRoom(&room, req, preferred.Add(30*time.Minute), 0).Time)
	assert.Equal(t, 50.0, ScoreRoom(&room, req, preferred.Add(-30*time.Minute), 0).Time)
	assert.Equal(t, 0.0, ScoreRoom(&room, req, preferred.Add(60*time.Minute), 0).Time)

	req.FlexibilityMinutes = 0
	assert.Equal(t, 0.0, ScoreRoom(&room, req, preferred.Add(30*time.Minute), 0).Time)
}

func TestTimeCandidatesInterleaved(t *testing.T) {
	preferred := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	got := TimeCandidates(preferred, 60, 30)
	want := []time.Time{
		preferred,
		preferred.Add(-30 * time.Minute),
		preferred.Add(30 * time.Minute),
		preferred.Add(-60 * time.Minute),
		preferred.Add(60 * time.Minute),
	}
	assert.Equal(t, want, got)

	assert.Equal(t, []time.Time{preferred}, TimeCandidates(preferred, 0, 30))
}

func TestFindOptimalAllocationPrefersTightestFit(t *testing.T) {
	rooms := []models.Room{
		{ID: "large", Name: "Large", Capacity: 20, PricePerHour: 150, IsAvailable: true},
		{ID: "small", Name: "Small", Capacity: 5, PricePerHour: 50, IsAvailable: true},
		{ID: "medium", Name: "Medium", Capacity: 10, PricePerHour: 100, IsAvailable: true},
	}
	svc, obs := newAllocationFixture(rooms, nil)

	result, err := svc.FindOptimalAllocation(context.Background(), meetingAt(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), 4))
	require.NoError(t, err)
	require.NotNil(t, result.RecommendedRoom)

	assert.Equal(t, "small", result.RecommendedRoom.Room.ID)
	assert.False(t, result.HasConflict)
	assert.Equal(t, time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), result.RecommendedRoom.SuggestedTime)
	assert.Equal(t, 100.0, result.RecommendedRoom.ScoreBreakdown.Capacity)
	assert.Contains(t, result.RecommendedRoom.Reasons, "Optimal room size for your group")
	// Cheapest feasible room at preferred time saves against the priciest.
	assert.Equal(t, 100.0, result.RecommendedRoom.CostOptimization)
	assert.NotEmpty(t, result.AlternativeOptions)
	assert.Equal(t, []string{"recommended"}, obs.outcomes)
}

func TestFindOptimalAllocationCapsAlternatives(t *testing.T) {
	var rooms []models.Room
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		rooms = append(rooms, models.Room{ID: id, Capacity: 10, PricePerHour: 50, IsAvailable: true})
	}
	svc, _ := newAllocationFixture(rooms, nil)

	req := meetingAt(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), 4)
	req.FlexibilityMinutes = 0
	result, err := svc.FindOptimalAllocation(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result.RecommendedRoom)
	assert.Len(t, result.AlternativeOptions, 5)
}

func TestFindOptimalAllocationNoCapacity(t *testing.T) {
	rooms := []models.Room{{ID: "small", Capacity: 5, IsAvailable: true}}
	svc, obs := newAllocationFixture(rooms, nil)

	result, err := svc.FindOptimalAllocation(context.Background(), meetingAt(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), 50))
	require.NoError(t, err)
	assert.Nil(t, result.RecommendedRoom)
	assert.True(t, result.HasConflict)
	require.NotEmpty(t, result.Suggestions)
	assert.Contains(t, result.Suggestions[0], "50")
	assert.Equal(t, []string{"no_capacity"}, obs.outcomes)
}

func TestFindOptimalAllocationEquipmentIsHardConstraint(t *testing.T) {
	rooms := []models.Room{
		{ID: "bare", Capacity: 10, IsAvailable: true, Equipment: []string{"whiteboard"}},
	}
	svc, obs := newAllocationFixture(rooms, nil)

	req := meetingAt(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), 4)
	req.RequiredEquipment = []string{"projector", "video conference"}
	result, err := svc.FindOptimalAllocation(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, result.RecommendedRoom)
	assert.True(t, result.HasConflict)
	assert.Contains(t, result.Suggestions[1], "projector")
	assert.Equal(t, []string{"no_equipment"}, obs.outcomes)
}

func TestFindOptimalAllocationShiftsAroundConflicts(t *testing.T) {
	preferred := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	rooms := []models.Room{{ID: "only", Capacity: 10, PricePerHour: 50, IsAvailable: true}}
	// 10:00-11:00 is taken; the 15-minute buffer also rules out every start
	// within an hour of it, so the search has to reach the 90-minute offsets.
	bookings := map[string][]models.Booking{
		"only": {{ID: "b1", RoomID: "only", StartMinute: 600, EndMinute: 660, Status: models.BookingStatusApproved}},
	}
	svc, _ := newAllocationFixture(rooms, bookings)

	req := meetingAt(preferred, 4)
	req.FlexibilityMinutes = 120
	result, err := svc.FindOptimalAllocation(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result.RecommendedRoom)
	assert.Equal(t, preferred.Add(-90*time.Minute), result.RecommendedRoom.SuggestedTime)
	assert.Equal(t, 25.0, result.RecommendedRoom.ScoreBreakdown.Time)
}

func TestFindOptimalAllocationAllSlotsTaken(t *testing.T) {
	preferred := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	rooms := []models.Room{{ID: "only", Capacity: 10, IsAvailable: true}}
	bookings := map[string][]models.Booking{
		"only": {{ID: "b1", RoomID: "only", StartMinute: 480, EndMinute: 780, Status: models.BookingStatusApproved}},
	}
	svc, obs := newAllocationFixture(rooms, bookings)

	result, err := svc.FindOptimalAllocation(context.Background(), meetingAt(preferred, 4))
	require.NoError(t, err)
	assert.Nil(t, result.RecommendedRoom)
	assert.True(t, result.HasConflict)
	assert.Contains(t, result.Suggestions[1], "60")
	assert.Equal(t, []string{"no_slot"}, obs.outcomes)
}

func TestFindOptimalAllocationUnknownOrganizer(t *testing.T) {
	svc, _ := newAllocationFixture([]models.Room{{ID: "r", Capacity: 10, IsAvailable: true}}, nil)

	req := meetingAt(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), 4)
	req.OrganizerID = "ghost"
	_, err := svc.FindOptimalAllocation(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCheckConflictRespectsBufferOverride(t *testing.T) {
	bookings := map[string][]models.Booking{
		"room": {{ID: "b1", RoomID: "room", StartMinute: 600, EndMinute: 660, Status: models.BookingStatusPending}},
	}
	svc, _ := newAllocationFixture(nil, bookings)

	req := dto.ConflictCheckRequest{RoomID: "room", Date: "2025-06-15", StartTime: "11:10", EndTime: "11:40"}
	res, err := svc.CheckConflict(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Available, "default 15-minute buffer still covers 11:10")

	zero := 0
	req.BufferMinutes = &zero
	res, err = svc.CheckConflict(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Available)
}

func TestCanOverridePriorityArbitration(t *testing.T) {
	users := &userReaderStub{users: map[string]*models.User{
		"holder": {ID: "holder", Role: models.RoleEmployee},
		"chief":  {ID: "chief", Role: models.RoleCEO},
	}}
	bookings := &bookingReaderStub{bookings: map[string]*models.Booking{
		"bk": {ID: "bk", UserID: "holder"},
	}}
	svc := NewAllocationService(users, &roomListerStub{}, &ledgerStub{}, bookings, nil, nil, nil, AllocationConfig{})

	caller := &models.User{ID: "caller", Role: models.RoleEmployee}
	res, err := svc.CanOverride(context.Background(), dto.OverrideCheckRequest{BookingID: "bk", Priority: models.PriorityUrgent}, caller)
	require.NoError(t, err)
	assert.True(t, res.CanOverride)
	assert.Equal(t, models.PriorityNormal, res.ExistingPriority)

	// Equal classes never override.
	res, err = svc.CanOverride(context.Background(), dto.OverrideCheckRequest{BookingID: "bk", Priority: models.PriorityNormal}, caller)
	require.NoError(t, err)
	assert.False(t, res.CanOverride)
}

func TestCanOverrideCEOUpgrade(t *testing.T) {
	users := &userReaderStub{users: map[string]*models.User{
		"holder": {ID: "holder", Role: models.RoleCEO},
	}}
	bookings := &bookingReaderStub{bookings: map[string]*models.Booking{
		"bk": {ID: "bk", UserID: "holder"},
	}}
	svc := NewAllocationService(users, &roomListerStub{}, &ledgerStub{}, bookings, nil, nil, nil, AllocationConfig{})

	// A CEO holder is arbitrated at the top class regardless of what the
	// challenger sends.
	challenger := &models.User{ID: "challenger", Role: models.RoleEmployee}
	res, err := svc.CanOverride(context.Background(), dto.OverrideCheckRequest{BookingID: "bk", Priority: models.PriorityUrgent}, challenger)
	require.NoError(t, err)
	assert.False(t, res.CanOverride)
	assert.Equal(t, models.PriorityCEO, res.ExistingPriority)

	// A CEO challenger is upgraded, but equal classes still do not override.
	chief := &models.User{ID: "chief", Role: models.RoleCEO}
	res, err = svc.CanOverride(context.Background(), dto.OverrideCheckRequest{BookingID: "bk", Priority: models.PriorityNormal}, chief)
	require.NoError(t, err)
	assert.False(t, res.CanOverride)
	assert.Equal(t, models.PriorityCEO, res.EffectivePriority)
}
