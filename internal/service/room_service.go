package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/roomly-api/internal/dto"
	"github.com/noah-isme/roomly-api/internal/models"
	appErrors "github.com/noah-isme/roomly-api/pkg/errors"
)

const roomListCacheKey = "rooms:list"

type roomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	FindByID(ctx context.Context, id string) (*models.Room, error)
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, error)
	Update(ctx context.Context, room *models.Room) error
	SoftDelete(ctx context.Context, id string) (int64, error)
}

type roomCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string)
}

// RoomService manages the room inventory. Reads of the unfiltered list go
// through the cache; every mutation invalidates it.
type RoomService struct {
	rooms    roomRepository
	cache    roomCache
	audit    auditTrail
	validate *validator.Validate
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewRoomService wires the room inventory dependencies.
func NewRoomService(rooms roomRepository, cache roomCache, audit auditTrail, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &RoomService{rooms: rooms, cache: cache, audit: audit, validate: validate, logger: logger, cacheTTL: cacheTTL}
}

// Create registers a room.
func (s *RoomService) Create(ctx context.Context, adminID string, req dto.CreateRoomRequest) (*models.Room, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	room := &models.Room{
		Name:         req.Name,
		RoomNumber:   req.RoomNumber,
		Capacity:     req.Capacity,
		PricePerHour: req.PricePerHour,
		Equipment:    req.Equipment,
		Amenities:    req.Amenities,
		Location:     req.Location,
		Description:  req.Description,
		IsAvailable:  true,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}

	s.invalidateCache(ctx)
	if s.audit != nil {
		s.audit.Record(models.AuditActionRoomCreate, adminID, room.ID, room)
	}
	return room, nil
}

// GetByID loads one room.
func (s *RoomService) GetByID(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room, nil
}

// List returns rooms matching the filter. The unfiltered list is cached.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, error) {
	cacheable := s.cache != nil && filter == (models.RoomFilter{})
	if cacheable {
		var cached []models.Room
		if err := s.cache.Get(ctx, roomListCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	rooms, err := s.rooms.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}

	if cacheable {
		if err := s.cache.Set(ctx, roomListCacheKey, rooms, s.cacheTTL); err != nil {
			s.logger.Sugar().Warnw("room list cache write failed", "error", err)
		}
	}
	return rooms, nil
}

// Update mutates room attributes.
func (s *RoomService) Update(ctx context.Context, adminID, id string, req dto.UpdateRoomRequest) (*models.Room, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	room, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		room.Name = *req.Name
	}
	if req.Capacity != nil {
		room.Capacity = *req.Capacity
	}
	if req.PricePerHour != nil {
		room.PricePerHour = *req.PricePerHour
	}
	if req.Equipment != nil {
		room.Equipment = req.Equipment
	}
	if req.Amenities != nil {
		room.Amenities = req.Amenities
	}
	if req.Location != nil {
		room.Location = *req.Location
	}
	if req.Description != nil {
		room.Description = req.Description
	}
	if req.IsAvailable != nil {
		room.IsAvailable = *req.IsAvailable
	}

	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room")
	}

	s.invalidateCache(ctx)
	if s.audit != nil {
		s.audit.Record(models.AuditActionRoomUpdate, adminID, room.ID, req)
	}
	return room, nil
}

// Delete soft-deletes a room.
func (s *RoomService) Delete(ctx context.Context, adminID, id string) error {
	affected, err := s.rooms.SoftDelete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "room not found")
	}

	s.invalidateCache(ctx)
	if s.audit != nil {
		s.audit.Record(models.AuditActionRoomDelete, adminID, id, nil)
	}
	return nil
}

func (s *RoomService) invalidateCache(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, roomListCacheKey+"*")
	}
}
