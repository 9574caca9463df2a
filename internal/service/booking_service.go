package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/roomly-api/internal/dto"
	"github.com/noah-isme/roomly-api/internal/models"
	"github.com/noah-isme/roomly-api/internal/repository"
	appErrors "github.com/noah-isme/roomly-api/pkg/errors"
)

type bookingLedger interface {
	Create(ctx context.Context, exec sqlx.ExtContext, b *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	ListActiveByRoomDate(ctx context.Context, roomID string, date time.Time, excludeID string) ([]models.Booking, error)
	ListActiveByRoomDateTx(ctx context.Context, tx *sqlx.Tx, roomID string, date time.Time, excludeID string) ([]models.Booking, error)
	LockRoom(ctx context.Context, tx *sqlx.Tx, roomID string) error
	Update(ctx context.Context, exec sqlx.ExtContext, b *models.Booking) error
	Review(ctx context.Context, id string, status models.BookingStatus, approverID string, rejectionReason *string) (int64, error)
	Cancel(ctx context.Context, id string) (int64, error)
	SoftDelete(ctx context.Context, id string) (int64, error)
}

type roomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type auditTrail interface {
	Record(action string, userID, resourceID string, detail interface{})
}

// BookingService owns the booking lifecycle. Every write that (re)places a
// booking on the calendar re-validates conflicts inside a transaction that
// holds the room's write lock; the database exclusion constraint backstops
// the check.
type BookingService struct {
	ledger   bookingLedger
	rooms    roomReader
	tx       txProvider
	audit    auditTrail
	validate *validator.Validate
	logger   *zap.Logger
}

// NewBookingService wires the booking lifecycle dependencies.
func NewBookingService(
	ledger bookingLedger,
	rooms roomReader,
	tx txProvider,
	audit auditTrail,
	validate *validator.Validate,
	logger *zap.Logger,
) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{ledger: ledger, rooms: rooms, tx: tx, audit: audit, validate: validate, logger: logger}
}

// Create books a room. The booking starts pending with its total cost
// computed from the room's hourly price and the slot duration.
func (s *BookingService) Create(ctx context.Context, userID string, req dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	slot, err := models.ParseTimeSlot(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	room, err := s.rooms.FindByID(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	if !room.IsAvailable {
		return nil, appErrors.Clone(appErrors.ErrValidation, "room is not available")
	}
	if req.Attendees > room.Capacity {
		return nil, appErrors.Clone(appErrors.ErrUnsatisfiable,
			fmt.Sprintf("room capacity is %d, cannot accommodate %d attendees", room.Capacity, req.Attendees))
	}

	booking := &models.Booking{
		RoomID:      room.ID,
		UserID:      userID,
		Date:        models.DayOf(date),
		StartMinute: slot.StartMinute,
		EndMinute:   slot.EndMinute,
		Purpose:     req.Purpose,
		Attendees:   req.Attendees,
		Status:      models.BookingStatusPending,
		TotalCost:   room.PricePerHour * slot.DurationHours(),
	}

	if err := s.commitPlacement(ctx, booking, ""); err != nil {
		return nil, err
	}

	s.record(models.AuditActionBookingCreate, userID, booking.ID, booking)
	resp := dto.NewBookingResponse(*booking, room)
	return &resp, nil
}

// commitPlacement inserts or rewrites a booking inside a transaction that
// serialises writes per room and re-validates the conflict check against
// fresh data. Any earlier read-path check is advisory only.
func (s *BookingService) commitPlacement(ctx context.Context, booking *models.Booking, excludeID string) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.ledger.LockRoom(ctx, tx, booking.RoomID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock room")
	}

	existing, err := s.ledger.ListActiveByRoomDateTx(ctx, tx, booking.RoomID, booking.Date, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to re-validate conflicts")
	}
	if !slotFree(booking.Slot(), 0, existing) {
		return appErrors.Clone(appErrors.ErrConflict, "room is already booked for this time slot")
	}

	if excludeID == "" {
		err = s.ledger.Create(ctx, tx, booking)
	} else {
		err = s.ledger.Update(ctx, tx, booking)
	}
	if err != nil {
		if repository.IsOverlapViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "room is already booked for this time slot")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write booking")
	}

	if err := tx.Commit(); err != nil {
		if repository.IsOverlapViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "room is already booked for this time slot")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit booking")
	}
	return nil
}

// GetByID returns a booking visible to the caller.
func (s *BookingService) GetByID(ctx context.Context, id string, caller *models.JWTClaims) (*dto.BookingResponse, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role != models.RoleAdmin && booking.UserID != caller.UserID {
		return nil, appErrors.ErrForbidden
	}
	return s.respond(ctx, booking), nil
}

// List returns bookings matching the filter. Admin surface.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]dto.BookingResponse, error) {
	bookings, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	out := make([]dto.BookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, *s.respond(ctx, &bookings[i]))
	}
	return out, nil
}

// ListMine returns the caller's bookings.
func (s *BookingService) ListMine(ctx context.Context, userID string) ([]dto.BookingResponse, error) {
	return s.List(ctx, models.BookingFilter{UserID: userID})
}

// Update reschedules or edits a pending booking owned by the caller. The
// slot is re-validated excluding the booking itself and the cost recomputed.
func (s *BookingService) Update(ctx context.Context, id, userID string, req dto.UpdateBookingRequest) (*dto.BookingResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only update your own bookings")
	}
	if booking.Status != models.BookingStatusPending {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot update %s booking", booking.Status))
	}

	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
		}
		booking.Date = models.DayOf(date)
	}
	if req.StartTime != nil || req.EndTime != nil {
		start := booking.Slot().StartClock()
		end := booking.Slot().EndClock()
		if req.StartTime != nil {
			start = *req.StartTime
		}
		if req.EndTime != nil {
			end = *req.EndTime
		}
		slot, err := models.ParseTimeSlot(start, end)
		if err != nil {
			return nil, err
		}
		booking.StartMinute = slot.StartMinute
		booking.EndMinute = slot.EndMinute
	}
	if req.Purpose != nil {
		booking.Purpose = *req.Purpose
	}

	room, err := s.rooms.FindByID(ctx, booking.RoomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	if req.Attendees != nil {
		if *req.Attendees > room.Capacity {
			return nil, appErrors.Clone(appErrors.ErrUnsatisfiable,
				fmt.Sprintf("room capacity is %d, cannot accommodate %d attendees", room.Capacity, *req.Attendees))
		}
		booking.Attendees = *req.Attendees
	}
	booking.TotalCost = room.PricePerHour * booking.Slot().DurationHours()

	if err := s.commitPlacement(ctx, booking, booking.ID); err != nil {
		return nil, err
	}

	s.record(models.AuditActionBookingUpdate, userID, booking.ID, booking)
	resp := dto.NewBookingResponse(*booking, room)
	return &resp, nil
}

// Review approves or rejects a pending booking. Rejection requires a
// reason. The transition is a compare-and-set: losing the race to another
// transition surfaces as a conflict.
func (s *BookingService) Review(ctx context.Context, id, approverID string, req dto.ReviewBookingRequest) (*dto.BookingResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if req.Status == models.BookingStatusRejected && req.RejectionReason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection requires a reason")
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusPending {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot %s %s booking", req.Status, booking.Status))
	}

	var reason *string
	if req.Status == models.BookingStatusRejected {
		reason = &req.RejectionReason
	}
	affected, err := s.ledger.Review(ctx, id, req.Status, approverID, reason)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review booking")
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "booking already left the pending state")
	}

	action := models.AuditActionBookingApprove
	if req.Status == models.BookingStatusRejected {
		action = models.AuditActionBookingReject
	}
	s.record(action, approverID, id, req)

	booking, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, booking), nil
}

// Cancel transitions an active booking to cancelled on behalf of its owner
// (or an admin).
func (s *BookingService) Cancel(ctx context.Context, id string, caller *models.JWTClaims) (*dto.BookingResponse, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role != models.RoleAdmin && booking.UserID != caller.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only cancel your own bookings")
	}
	if !booking.Status.IsActive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot cancel %s booking", booking.Status))
	}

	affected, err := s.ledger.Cancel(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking")
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "booking already left the active state")
	}

	s.record(models.AuditActionBookingCancel, caller.UserID, id, nil)

	booking, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, booking), nil
}

// Delete soft-deletes a booking. Admin surface.
func (s *BookingService) Delete(ctx context.Context, id, adminID string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	affected, err := s.ledger.SoftDelete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete booking")
	}
	if affected == 0 {
		return appErrors.ErrNotFound
	}
	s.record(models.AuditActionBookingDelete, adminID, id, nil)
	return nil
}

func (s *BookingService) load(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

func (s *BookingService) respond(ctx context.Context, booking *models.Booking) *dto.BookingResponse {
	room, err := s.rooms.FindByID(ctx, booking.RoomID)
	if err != nil {
		room = nil
	}
	resp := dto.NewBookingResponse(*booking, room)
	return &resp
}

func (s *BookingService) record(action, userID, resourceID string, detail interface{}) {
	if s.audit != nil {
		s.audit.Record(action, userID, resourceID, detail)
	}
}
