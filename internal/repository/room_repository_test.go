package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roomly-api/internal/models"
)

func roomRows(rooms ...models.Room) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "name", "room_number", "capacity", "price_per_hour", "equipment", "amenities",
		"location", "description", "is_available", "is_deleted", "created_at", "updated_at",
	})
	for _, r := range rooms {
		rows.AddRow(r.ID, r.Name, r.RoomNumber, r.Capacity, r.PricePerHour,
			"{projector}", "{}", r.Location, r.Description, r.IsAvailable,
			r.IsDeleted, r.CreatedAt, r.UpdatedAt)
	}
	return rows
}

func TestRoomFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, room_number, capacity, price_per_hour, equipment, amenities, location, description, is_available, is_deleted, created_at, updated_at FROM rooms WHERE id = $1 AND is_deleted = FALSE")).
		WithArgs("room-1").
		WillReturnRows(roomRows(models.Room{ID: "room-1", Name: "Boardroom", Capacity: 12, IsAvailable: true, CreatedAt: now, UpdatedAt: now}))

	room, err := repo.FindByID(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, "Boardroom", room.Name)
	assert.Equal(t, []string{"projector"}, []string(room.Equipment))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomListFeasible(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM rooms WHERE is_deleted = FALSE AND capacity >= \$1 AND is_available = TRUE ORDER BY name ASC`).
		WithArgs(8).
		WillReturnRows(roomRows(models.Room{ID: "room-1", Name: "Boardroom", Capacity: 12, IsAvailable: true}))

	rooms, err := repo.ListFeasible(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomListLocationFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM rooms WHERE is_deleted = FALSE AND location ILIKE \$1 ORDER BY name ASC`).
		WithArgs("%floor 3%").
		WillReturnRows(roomRows())

	rooms, err := repo.List(context.Background(), models.RoomFilter{Location: "floor 3"})
	require.NoError(t, err)
	assert.Empty(t, rooms)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomSoftDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET is_deleted = TRUE, updated_at = $2 WHERE id = $1 AND is_deleted = FALSE")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.SoftDelete(context.Background(), "room-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
