package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roomly-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func bookingRows(bookings ...models.Booking) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "room_id", "user_id", "date", "start_minute", "end_minute", "purpose",
		"attendees", "status", "approved_by", "rejection_reason", "total_cost",
		"is_deleted", "created_at", "updated_at",
	})
	for _, b := range bookings {
		rows.AddRow(b.ID, b.RoomID, b.UserID, b.Date, b.StartMinute, b.EndMinute, b.Purpose,
			b.Attendees, string(b.Status), b.ApprovedBy, b.RejectionReason, b.TotalCost,
			b.IsDeleted, b.CreatedAt, b.UpdatedAt)
	}
	return rows
}

func TestBookingCreateGeneratesID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(1, 1))

	b := &models.Booking{
		RoomID:      "room-1",
		UserID:      "user-1",
		Date:        time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		StartMinute: 540,
		EndMinute:   600,
		Status:      models.BookingStatusPending,
	}
	err := repo.Create(context.Background(), db, b)
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.False(t, b.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingListActiveByRoomDate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	date := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM bookings\s+WHERE room_id = \$1 AND date = \$2 AND status IN \('pending', 'approved'\) AND is_deleted = FALSE`).
		WithArgs("room-1", date).
		WillReturnRows(bookingRows(models.Booking{
			ID: "b1", RoomID: "room-1", UserID: "u1", Date: date,
			StartMinute: 540, EndMinute: 600, Status: models.BookingStatusApproved,
		}))

	bookings, err := repo.ListActiveByRoomDate(context.Background(), "room-1", date, "")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "b1", bookings[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingListActiveExcludesSelf(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	date := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM bookings\s+WHERE room_id = \$1 AND date = \$2 AND status IN \('pending', 'approved'\) AND is_deleted = FALSE AND id <> \$3`).
		WithArgs("room-1", date, "me").
		WillReturnRows(bookingRows())

	bookings, err := repo.ListActiveByRoomDate(context.Background(), "room-1", date, "me")
	require.NoError(t, err)
	assert.Empty(t, bookings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingListBuildsDynamicFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	date := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE is_deleted = FALSE AND status = \$1 AND date = \$2 AND room_id = \$3 ORDER BY date DESC, start_minute ASC`).
		WithArgs(string(models.BookingStatusApproved), date, "room-1").
		WillReturnRows(bookingRows())

	_, err := repo.List(context.Background(), models.BookingFilter{
		Status: models.BookingStatusApproved,
		Date:   &date,
		RoomID: "room-1",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingReviewIsCompareAndSet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec(`UPDATE bookings\s+SET status = \$2, approved_by = \$3, rejection_reason = \$4, updated_at = \$5\s+WHERE id = \$1 AND status = 'pending' AND is_deleted = FALSE`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.Review(context.Background(), "b1", models.BookingStatusApproved, "admin", nil)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingReleaseIfApprovedOnlyTouchesApproved(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec(`UPDATE bookings\s+SET status = 'cancelled', updated_at = \$2\s+WHERE id = \$1 AND status = 'approved' AND is_deleted = FALSE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.ReleaseIfApproved(context.Background(), "b1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingLockRoom(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM rooms WHERE id = \$1 FOR UPDATE`).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("room-1"))
	mock.ExpectRollback()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	defer tx.Rollback() //nolint:errcheck

	require.NoError(t, repo.LockRoom(context.Background(), tx, "room-1"))
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsOverlapViolation(t *testing.T) {
	assert.True(t, IsOverlapViolation(&pq.Error{Code: "23P01"}))
	assert.True(t, IsOverlapViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsOverlapViolation(&pq.Error{Code: "42601"}))
	assert.False(t, IsOverlapViolation(context.DeadlineExceeded))
	assert.False(t, IsOverlapViolation(nil))
}
