package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/roomly-api/internal/dto"
	"github.com/noah-isme/roomly-api/internal/models"
	appErrors "github.com/noah-isme/roomly-api/pkg/errors"
)

// Fixed scoring weights; changing them is a policy decision, not a
// per-request parameter. They sum to 1.00.
const (
	weightCapacity  = 0.30
	weightEquipment = 0.25
	weightCost      = 0.20
	weightLocation  = 0.15
	weightTime      = 0.10
)

type allocationUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type feasibleRoomLister interface {
	ListFeasible(ctx context.Context, minCapacity int) ([]models.Room, error)
}

type bookingReader interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
}

type allocationObserver interface {
	ObserveAllocation(outcome string)
}

// AllocationConfig tunes the candidate search.
type AllocationConfig struct {
	BufferMinutes    int
	TimeStepMinutes  int
	AlternativeLimit int
}

// AllocationService ranks (room, time) candidates for a meeting request and
// arbitrates priority overrides.
type AllocationService struct {
	users    allocationUserReader
	rooms    feasibleRoomLister
	ledger   activeBookingLister
	bookings bookingReader
	metrics  allocationObserver
	validate *validator.Validate
	logger   *zap.Logger
	cfg      AllocationConfig
}

// NewAllocationService wires the allocation engine.
func NewAllocationService(
	users allocationUserReader,
	rooms feasibleRoomLister,
	ledger activeBookingLister,
	bookings bookingReader,
	metrics allocationObserver,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AllocationConfig,
) *AllocationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BufferMinutes <= 0 {
		cfg.BufferMinutes = 15
	}
	if cfg.TimeStepMinutes <= 0 {
		cfg.TimeStepMinutes = 30
	}
	if cfg.AlternativeLimit <= 0 {
		cfg.AlternativeLimit = 5
	}
	return &AllocationService{
		users:    users,
		rooms:    rooms,
		ledger:   ledger,
		bookings: bookings,
		metrics:  metrics,
		validate: validate,
		logger:   logger,
		cfg:      cfg,
	}
}

// FindOptimalAllocation searches feasible (room, start) pairs for the
// request and returns the best-scoring candidate plus ranked alternatives.
// An empty result with HasConflict set is a normal outcome; errors are
// reserved for malformed or unresolvable input.
func (s *AllocationService) FindOptimalAllocation(ctx context.Context, req dto.MeetingRequest) (*dto.OptimalAllocationResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meeting request")
	}

	organizer, err := s.users.FindByID(ctx, req.OrganizerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "organizer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load organizer")
	}
	priority := s.effectivePriority(req.Priority, organizer)

	attendeeCount := len(req.Attendees)
	feasible, err := s.rooms.ListFeasible(ctx, attendeeCount)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	if len(feasible) == 0 {
		s.observe("no_capacity")
		return &dto.OptimalAllocationResult{
			AlternativeOptions: []dto.RoomRecommendation{},
			HasConflict:        true,
			Suggestions: []string{
				fmt.Sprintf("No room can accommodate a group of %d", attendeeCount),
				"Consider splitting into smaller meetings",
			},
		}, nil
	}

	// Equipment is a hard constraint: rooms missing any required tag are cut
	// before any time search.
	suitable := feasible[:0:0]
	for i := range feasible {
		if feasible[i].HasAllEquipment(req.RequiredEquipment) {
			suitable = append(suitable, feasible[i])
		}
	}
	if len(suitable) == 0 {
		s.observe("no_equipment")
		return &dto.OptimalAllocationResult{
			AlternativeOptions: []dto.RoomRecommendation{},
			HasConflict:        true,
			Suggestions: []string{
				"No rooms have all required equipment",
				fmt.Sprintf("Required equipment: %s", strings.Join(req.RequiredEquipment, ", ")),
				"Consider reducing equipment requirements or booking multiple rooms",
			},
		}, nil
	}

	maxPrice := 0.0
	for i := range suitable {
		if suitable[i].PricePerHour > maxPrice {
			maxPrice = suitable[i].PricePerHour
		}
	}

	date := models.DayOf(req.PreferredStartTime)
	duration := time.Duration(req.DurationMinutes) * time.Minute
	candidates := TimeCandidates(req.PreferredStartTime, req.FlexibilityMinutes, s.cfg.TimeStepMinutes)

	var recommendations []dto.RoomRecommendation
	for i := range suitable {
		room := &suitable[i]

		// One snapshot read per room; every time candidate is tested against
		// it. Conflict domains are per room, and a stale read here is caught
		// again at the booking commit.
		existing, err := s.ledger.ListActiveByRoomDate(ctx, room.ID, date, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read bookings")
		}

		for _, start := range candidates {
			slot, ok := candidateSlot(start, date, duration)
			if !ok {
				continue
			}
			if !slotFree(slot, s.cfg.BufferMinutes, existing) {
				continue
			}

			score := ScoreRoom(room, req, start, maxPrice)
			// Equipment re-check mirrors the pre-filter; a partial match must
			// never be recommended.
			if len(req.RequiredEquipment) > 0 && score.Equipment < 100 {
				continue
			}

			recommendations = append(recommendations, dto.RoomRecommendation{
				Room:           dto.SnapshotRoom(room),
				SuggestedTime:  start,
				EndTime:        start.Add(duration),
				Score:          score.Total,
				ScoreBreakdown: score,
				Reasons:        scoreReasons(score),
			})
		}
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Score > recommendations[j].Score
	})

	result := &dto.OptimalAllocationResult{AlternativeOptions: []dto.RoomRecommendation{}}
	if len(recommendations) == 0 {
		s.observe("no_slot")
		result.HasConflict = true
		result.Suggestions = []string{
			"All suitable rooms are booked during your requested time window",
			fmt.Sprintf("Try extending flexibility beyond %d minutes", req.FlexibilityMinutes),
			"Consider splitting into smaller meetings",
		}
		return result, nil
	}

	recommended := recommendations[0]
	recommended.CostOptimization = round2((maxPrice - recommended.Room.PricePerHour) * float64(req.DurationMinutes) / 60)
	result.RecommendedRoom = &recommended
	limit := s.cfg.AlternativeLimit
	if len(recommendations)-1 < limit {
		limit = len(recommendations) - 1
	}
	result.AlternativeOptions = recommendations[1 : 1+limit]

	if recommended.CostOptimization > 0 {
		result.Suggestions = append(result.Suggestions,
			fmt.Sprintf("You'll save $%.2f with this room", recommended.CostOptimization))
	}
	if len(result.AlternativeOptions) > 0 {
		result.Suggestions = append(result.Suggestions,
			fmt.Sprintf("%d alternative options available", len(result.AlternativeOptions)))
	}

	s.observe("recommended")
	s.logger.Sugar().Infow("allocation recommended",
		"organizer", organizer.ID,
		"priority", priority,
		"room", recommended.Room.ID,
		"start", recommended.SuggestedTime,
		"score", recommended.Score,
		"candidates", len(recommendations),
	)
	return result, nil
}

// CheckConflict answers the raw availability question for a room, date and
// slot, with a caller-chosen buffer.
func (s *AllocationService) CheckConflict(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	slot, err := models.ParseTimeSlot(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	buffer := s.cfg.BufferMinutes
	if req.BufferMinutes != nil {
		buffer = *req.BufferMinutes
	}
	existing, err := s.ledger.ListActiveByRoomDate(ctx, req.RoomID, date, req.ExcludeBookingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read bookings")
	}
	return &dto.ConflictCheckResponse{Available: slotFree(slot, buffer, existing)}, nil
}

// CanOverride compares the caller's effective priority against the existing
// booking holder's. It only answers the question; displacing the booking is
// a separate, explicitly authorized action.
func (s *AllocationService) CanOverride(ctx context.Context, req dto.OverrideCheckRequest, caller *models.User) (*dto.OverrideCheckResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override check")
	}

	booking, err := s.bookings.FindByID(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	holder, err := s.users.FindByID(ctx, booking.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking holder not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking holder")
	}

	existing := models.PriorityNormal
	if holder.Role == models.RoleCEO {
		existing = models.PriorityCEO
	}
	effective := s.effectivePriority(req.Priority, caller)

	return &dto.OverrideCheckResponse{
		CanOverride:       effective.CanOverride(existing),
		ExistingPriority:  existing,
		EffectivePriority: effective,
	}, nil
}

// effectivePriority applies the CEO upgrade policy: a CEO requester is
// always arbitrated at the ceo class, whatever the client sent. The upgrade
// is logged, never written back into the request.
func (s *AllocationService) effectivePriority(requested models.Priority, requester *models.User) models.Priority {
	if requested == "" {
		requested = models.PriorityNormal
	}
	if requester != nil && requester.Role == models.RoleCEO && requested != models.PriorityCEO {
		s.logger.Sugar().Infow("priority upgraded by role policy",
			"user", requester.ID, "requested", requested, "effective", models.PriorityCEO)
		return models.PriorityCEO
	}
	return requested
}

func (s *AllocationService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveAllocation(outcome)
	}
}

// TimeCandidates walks outward from the preferred instant in fixed steps up
// to the flexibility window, interleaving earlier and later offsets:
// [preferred, -step, +step, -2*step, +2*step, ...]. Pure and deterministic.
func TimeCandidates(preferred time.Time, flexibilityMinutes, stepMinutes int) []time.Time {
	candidates := []time.Time{preferred}
	if stepMinutes <= 0 {
		return candidates
	}
	for offset := stepMinutes; offset <= flexibilityMinutes; offset += stepMinutes {
		d := time.Duration(offset) * time.Minute
		candidates = append(candidates, preferred.Add(-d), preferred.Add(d))
	}
	return candidates
}

// candidateSlot anchors a candidate start to the request's date. Candidates
// that drift onto another day or past midnight are discarded; bookings never
// span a day boundary.
func candidateSlot(start time.Time, date time.Time, duration time.Duration) (models.TimeSlot, bool) {
	if !models.DayOf(start).Equal(date) {
		return models.TimeSlot{}, false
	}
	startMinute := models.MinuteOfDay(start)
	endMinute := startMinute + int(duration.Minutes())
	slot, err := models.NewTimeSlot(startMinute, endMinute)
	if err != nil {
		return models.TimeSlot{}, false
	}
	return slot, true
}

// ScoreRoom computes the five weighted sub-scores for a (room, start)
// candidate. maxPrice is the highest hourly price among the request's
// feasible rooms, making cost scoring relative per request.
func ScoreRoom(room *models.Room, req dto.MeetingRequest, suggested time.Time, maxPrice float64) dto.AllocationScore {
	attendeeCount := len(req.Attendees)

	// Capacity: step function of the utilization ratio. Oversized rooms are
	// penalized without a continuous curve so scores stay explainable.
	capacityScore := 0.0
	if attendeeCount <= room.Capacity && room.Capacity > 0 {
		switch ratio := float64(attendeeCount) / float64(room.Capacity); {
		case ratio >= 0.7:
			capacityScore = 100
		case ratio >= 0.5:
			capacityScore = 80
		case ratio >= 0.3:
			capacityScore = 60
		default:
			capacityScore = 40
		}
	}

	equipmentScore := 100.0
	if len(req.RequiredEquipment) > 0 {
		matched := 0
		for _, tag := range req.RequiredEquipment {
			if room.HasEquipment(tag) {
				matched++
			}
		}
		equipmentScore = float64(matched) / float64(len(req.RequiredEquipment)) * 100
	}

	costScore := 50.0
	if maxPrice > 0 {
		costScore = clampScore((maxPrice - room.PricePerHour) / maxPrice * 100)
	}

	// 50 is both "no preference given" and "preference given but unmatched".
	locationScore := 50.0
	if req.PreferredLocation != "" && room.MatchesLocation(req.PreferredLocation) {
		locationScore = 100
	}

	timeScore := 100.0
	if offset := math.Abs(suggested.Sub(req.PreferredStartTime).Minutes()); offset > 0 {
		if req.FlexibilityMinutes <= 0 {
			timeScore = 0
		} else {
			timeScore = clampScore(100 - offset/float64(req.FlexibilityMinutes)*100)
		}
	}

	total := capacityScore*weightCapacity +
		equipmentScore*weightEquipment +
		costScore*weightCost +
		locationScore*weightLocation +
		timeScore*weightTime

	return dto.AllocationScore{
		Capacity:  capacityScore,
		Equipment: equipmentScore,
		Cost:      costScore,
		Location:  locationScore,
		Time:      timeScore,
		Total:     total,
	}
}

// scoreReasons derives the human-readable justifications from sub-score
// thresholds; several can co-occur.
func scoreReasons(score dto.AllocationScore) []string {
	var reasons []string
	if score.Capacity >= 80 {
		reasons = append(reasons, "Optimal room size for your group")
	}
	if score.Equipment == 100 {
		reasons = append(reasons, "Has all required equipment")
	}
	if score.Cost >= 70 {
		reasons = append(reasons, "Cost-effective choice")
	}
	if score.Location >= 80 {
		reasons = append(reasons, "Matches preferred location")
	}
	if score.Time == 100 {
		reasons = append(reasons, "Available at your preferred time")
	}
	return reasons
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
