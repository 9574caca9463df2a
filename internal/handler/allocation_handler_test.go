package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roomly-api/internal/dto"
	"github.com/noah-isme/roomly-api/internal/middleware"
	"github.com/noah-isme/roomly-api/internal/models"
)

type fakeAllocator struct {
	optimalResp  *dto.OptimalAllocationResult
	optimalErr   error
	lastOptimal  dto.MeetingRequest
	conflictResp *dto.ConflictCheckResponse
	overrideResp *dto.OverrideCheckResponse
}

func (f *fakeAllocator) FindOptimalAllocation(_ context.Context, req dto.MeetingRequest) (*dto.OptimalAllocationResult, error) {
	f.lastOptimal = req
	return f.optimalResp, f.optimalErr
}

func (f *fakeAllocator) CheckConflict(context.Context, dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error) {
	return f.conflictResp, nil
}

func (f *fakeAllocator) CanOverride(_ context.Context, _ dto.OverrideCheckRequest, caller *models.User) (*dto.OverrideCheckResponse, error) {
	return f.overrideResp, nil
}

type fakeCallerReader struct {
	users map[string]*models.User
}

func (f *fakeCallerReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func postJSON(t *testing.T, claims *models.JWTClaims, payload interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func TestAllocationHandlerDefaultsOrganizerFromClaims(t *testing.T) {
	fake := &fakeAllocator{optimalResp: &dto.OptimalAllocationResult{}}
	handler := NewAllocationHandler(fake, &fakeCallerReader{})

	c, rec := postJSON(t, &models.JWTClaims{UserID: "caller-1"}, dto.MeetingRequest{Attendees: []string{"a"}})
	handler.FindOptimal(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "caller-1", fake.lastOptimal.OrganizerID)
}

func TestAllocationHandlerRejectsMalformedBody(t *testing.T) {
	handler := NewAllocationHandler(&fakeAllocator{}, &fakeCallerReader{})

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))

	handler.FindOptimal(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAllocationHandlerCheckConflict(t *testing.T) {
	handler := NewAllocationHandler(&fakeAllocator{conflictResp: &dto.ConflictCheckResponse{Available: true}}, &fakeCallerReader{})

	c, rec := postJSON(t, nil, dto.ConflictCheckRequest{RoomID: "r", Date: "2025-06-15", StartTime: "09:00", EndTime: "10:00"})
	handler.CheckConflict(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":true`)
}

func TestAllocationHandlerCanOverrideNeedsKnownCaller(t *testing.T) {
	handler := NewAllocationHandler(&fakeAllocator{overrideResp: &dto.OverrideCheckResponse{CanOverride: true}}, &fakeCallerReader{})

	c, rec := postJSON(t, &models.JWTClaims{UserID: "ghost"}, dto.OverrideCheckRequest{BookingID: "bk", Priority: models.PriorityHigh})
	handler.CanOverride(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	known := &fakeCallerReader{users: map[string]*models.User{"u1": {ID: "u1"}}}
	handler = NewAllocationHandler(&fakeAllocator{overrideResp: &dto.OverrideCheckResponse{CanOverride: true}}, known)
	c, rec = postJSON(t, &models.JWTClaims{UserID: "u1"}, dto.OverrideCheckRequest{BookingID: "bk", Priority: models.PriorityHigh})
	handler.CanOverride(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"canOverride":true`)
}

func TestAllocationHandlerUnauthenticatedOverride(t *testing.T) {
	handler := NewAllocationHandler(&fakeAllocator{}, &fakeCallerReader{})

	c, rec := postJSON(t, nil, dto.OverrideCheckRequest{BookingID: "bk", Priority: models.PriorityHigh})
	handler.CanOverride(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
