package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roomly-api/internal/dto"
	"github.com/noah-isme/roomly-api/internal/models"
	appErrors "github.com/noah-isme/roomly-api/pkg/errors"
	"github.com/noah-isme/roomly-api/pkg/response"
)

type allocator interface {
	FindOptimalAllocation(ctx context.Context, req dto.MeetingRequest) (*dto.OptimalAllocationResult, error)
	CheckConflict(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error)
	CanOverride(ctx context.Context, req dto.OverrideCheckRequest, caller *models.User) (*dto.OverrideCheckResponse, error)
}

type callerReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// AllocationHandler exposes the allocation engine endpoints.
type AllocationHandler struct {
	service allocator
	users   callerReader
}

// NewAllocationHandler constructs the handler.
func NewAllocationHandler(svc allocator, users callerReader) *AllocationHandler {
	return &AllocationHandler{service: svc, users: users}
}

// FindOptimal godoc
// @Summary Recommend the best room and time for a meeting request
// @Tags Allocation
// @Accept json
// @Produce json
// @Param payload body dto.MeetingRequest true "Meeting request"
// @Success 200 {object} response.Envelope
// @Router /allocations/optimal [post]
func (h *AllocationHandler) FindOptimal(c *gin.Context) {
	var req dto.MeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid allocation payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && req.OrganizerID == "" {
		req.OrganizerID = claims.UserID
	}

	result, err := h.service.FindOptimalAllocation(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CheckConflict godoc
// @Summary Check whether a slot is free on a room and date
// @Tags Allocation
// @Accept json
// @Produce json
// @Param payload body dto.ConflictCheckRequest true "Conflict check"
// @Success 200 {object} response.Envelope
// @Router /allocations/conflicts [post]
func (h *AllocationHandler) CheckConflict(c *gin.Context) {
	var req dto.ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict payload"))
		return
	}

	result, err := h.service.CheckConflict(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CanOverride godoc
// @Summary Check whether the caller's priority may displace a booking
// @Description Advisory only: overriding a booking is a separate action.
// @Tags Allocation
// @Accept json
// @Produce json
// @Param payload body dto.OverrideCheckRequest true "Override check"
// @Success 200 {object} response.Envelope
// @Router /allocations/override [post]
func (h *AllocationHandler) CanOverride(c *gin.Context) {
	var req dto.OverrideCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	caller, err := h.users.FindByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "requester not found"))
		return
	}

	result, err := h.service.CanOverride(c.Request.Context(), req, caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
