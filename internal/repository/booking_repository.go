package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/roomly-api/internal/models"
)

const bookingColumns = "id, room_id, user_id, date, start_minute, end_minute, purpose, attendees, status, approved_by, rejection_reason, total_cost, is_deleted, created_at, updated_at"

// BookingRepository provides persistence for the booking ledger.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a booking. It accepts an ExtContext so callers can run it
// inside the commit transaction that re-validates conflicts.
func (r *BookingRepository) Create(ctx context.Context, exec sqlx.ExtContext, b *models.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	const query = `INSERT INTO bookings (id, room_id, user_id, date, start_minute, end_minute, purpose, attendees, status, total_cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := exec.ExecContext(ctx, query,
		b.ID, b.RoomID, b.UserID, models.DayOf(b.Date), b.StartMinute, b.EndMinute,
		b.Purpose, b.Attendees, b.Status, b.TotalCost, b.CreatedAt, b.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// FindByID loads a booking by id, soft-deleted rows excluded.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE id = $1 AND is_deleted = FALSE", bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListActiveByRoomDate returns the pending/approved bookings for a room on a
// date, optionally excluding one booking (update-in-place must not conflict
// with itself).
func (r *BookingRepository) ListActiveByRoomDate(ctx context.Context, roomID string, date time.Time, excludeID string) ([]models.Booking, error) {
	return listActiveByRoomDate(ctx, r.db, roomID, date, excludeID)
}

// ListActiveByRoomDateTx is the transaction-scoped variant used for the
// commit-time re-validation.
func (r *BookingRepository) ListActiveByRoomDateTx(ctx context.Context, tx *sqlx.Tx, roomID string, date time.Time, excludeID string) ([]models.Booking, error) {
	return listActiveByRoomDate(ctx, tx, roomID, date, excludeID)
}

func listActiveByRoomDate(ctx context.Context, q sqlx.QueryerContext, roomID string, date time.Time, excludeID string) ([]models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings
		WHERE room_id = $1 AND date = $2 AND status IN ('pending', 'approved') AND is_deleted = FALSE`, bookingColumns)
	args := []interface{}{roomID, models.DayOf(date)}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var bookings []models.Booking
	if err := sqlx.SelectContext(ctx, q, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}
	return bookings, nil
}

// List returns bookings matching the filter, newest date first then start
// ascending.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE is_deleted = FALSE", bookingColumns)
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, models.DayOf(*filter.Date))
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date DESC, start_minute ASC"

	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// Update rewrites the mutable fields of a pending booking inside the commit
// transaction.
func (r *BookingRepository) Update(ctx context.Context, exec sqlx.ExtContext, b *models.Booking) error {
	b.UpdatedAt = time.Now().UTC()
	const query = `UPDATE bookings
		SET date = $2, start_minute = $3, end_minute = $4, purpose = $5, attendees = $6, total_cost = $7, updated_at = $8
		WHERE id = $1 AND is_deleted = FALSE`
	if _, err := exec.ExecContext(ctx, query,
		b.ID, models.DayOf(b.Date), b.StartMinute, b.EndMinute, b.Purpose, b.Attendees, b.TotalCost, b.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	return nil
}

// Review transitions a pending booking to approved or rejected. The WHERE
// clause is the compare-and-set guard; zero rows means the booking left the
// pending state first.
func (r *BookingRepository) Review(ctx context.Context, id string, status models.BookingStatus, approverID string, rejectionReason *string) (int64, error) {
	const query = `UPDATE bookings
		SET status = $2, approved_by = $3, rejection_reason = $4, updated_at = $5
		WHERE id = $1 AND status = 'pending' AND is_deleted = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, status, approverID, rejectionReason, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("review booking: %w", err)
	}
	return res.RowsAffected()
}

// Cancel transitions an active booking to cancelled.
func (r *BookingRepository) Cancel(ctx context.Context, id string) (int64, error) {
	const query = `UPDATE bookings
		SET status = 'cancelled', updated_at = $2
		WHERE id = $1 AND status IN ('pending', 'approved') AND is_deleted = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cancel booking: %w", err)
	}
	return res.RowsAffected()
}

// ReleaseIfApproved is the sweeper's compare-and-set: it cancels the booking
// only if it is still approved, so a concurrent explicit cancellation or
// completion is never resurrected.
func (r *BookingRepository) ReleaseIfApproved(ctx context.Context, id string) (int64, error) {
	const query = `UPDATE bookings
		SET status = 'cancelled', updated_at = $2
		WHERE id = $1 AND status = 'approved' AND is_deleted = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("release booking: %w", err)
	}
	return res.RowsAffected()
}

// ListApprovedOnOrBefore returns approved bookings dated on or before the
// given day, the sweeper's scan set.
func (r *BookingRepository) ListApprovedOnOrBefore(ctx context.Context, day time.Time) ([]models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings
		WHERE status = 'approved' AND is_deleted = FALSE AND date <= $1
		ORDER BY date ASC, start_minute ASC`, bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, models.DayOf(day)); err != nil {
		return nil, fmt.Errorf("list approved bookings: %w", err)
	}
	return bookings, nil
}

// SoftDelete hides a booking from every query path.
func (r *BookingRepository) SoftDelete(ctx context.Context, id string) (int64, error) {
	const query = `UPDATE bookings SET is_deleted = TRUE, updated_at = $2 WHERE id = $1 AND is_deleted = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete booking: %w", err)
	}
	return res.RowsAffected()
}

// LockRoom takes the per-room write lock for the duration of the commit
// transaction, serialising booking writes per room.
func (r *BookingRepository) LockRoom(ctx context.Context, tx *sqlx.Tx, roomID string) error {
	var id string
	if err := tx.GetContext(ctx, &id, "SELECT id FROM rooms WHERE id = $1 FOR UPDATE", roomID); err != nil {
		return fmt.Errorf("lock room: %w", err)
	}
	return nil
}

// IsOverlapViolation reports whether err is the database rejecting a write
// that would violate the no-overlap exclusion constraint (or a duplicate
// key), the backstop behind the application-level conflict check.
func IsOverlapViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23P01" || pqErr.Code == "23505"
}
