package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/roomly-api/internal/models"
)

const roomColumns = "id, name, room_number, capacity, price_per_hour, equipment, amenities, location, description, is_available, is_deleted, created_at, updated_at"

// RoomRepository provides persistence for rooms.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create inserts a room.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	room.CreatedAt = now
	room.UpdatedAt = now

	const query = `INSERT INTO rooms (id, name, room_number, capacity, price_per_hour, equipment, amenities, location, description, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := r.db.ExecContext(ctx, query,
		room.ID, room.Name, room.RoomNumber, room.Capacity, room.PricePerHour,
		pq.Array([]string(room.Equipment)), pq.Array([]string(room.Amenities)),
		room.Location, room.Description, room.IsAvailable, room.CreatedAt, room.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

// FindByID loads a room by id, soft-deleted rows excluded.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	query := fmt.Sprintf("SELECT %s FROM rooms WHERE id = $1 AND is_deleted = FALSE", roomColumns)
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// List returns rooms matching the filter.
func (r *RoomRepository) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, error) {
	query := fmt.Sprintf("SELECT %s FROM rooms WHERE is_deleted = FALSE", roomColumns)
	var conditions []string
	var args []interface{}

	if filter.MinCapacity > 0 {
		conditions = append(conditions, fmt.Sprintf("capacity >= $%d", len(args)+1))
		args = append(args, filter.MinCapacity)
	}
	if filter.OnlyAvailable {
		conditions = append(conditions, "is_available = TRUE")
	}
	if filter.Location != "" {
		conditions = append(conditions, fmt.Sprintf("location ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Location+"%")
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name ASC"

	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// ListFeasible returns the available rooms that can seat at least
// minCapacity attendees, the allocation search's starting set.
func (r *RoomRepository) ListFeasible(ctx context.Context, minCapacity int) ([]models.Room, error) {
	return r.List(ctx, models.RoomFilter{MinCapacity: minCapacity, OnlyAvailable: true})
}

// Update rewrites the mutable room fields.
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) error {
	room.UpdatedAt = time.Now().UTC()
	const query = `UPDATE rooms
		SET name = $2, capacity = $3, price_per_hour = $4, equipment = $5, amenities = $6, location = $7, description = $8, is_available = $9, updated_at = $10
		WHERE id = $1 AND is_deleted = FALSE`
	if _, err := r.db.ExecContext(ctx, query,
		room.ID, room.Name, room.Capacity, room.PricePerHour,
		pq.Array([]string(room.Equipment)), pq.Array([]string(room.Amenities)),
		room.Location, room.Description, room.IsAvailable, room.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	return nil
}

// SoftDelete hides a room from every query path.
func (r *RoomRepository) SoftDelete(ctx context.Context, id string) (int64, error) {
	const query = `UPDATE rooms SET is_deleted = TRUE, updated_at = $2 WHERE id = $1 AND is_deleted = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete room: %w", err)
	}
	return res.RowsAffected()
}
