package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roomly-api/internal/models"
	appErrors "github.com/noah-isme/roomly-api/pkg/errors"
)

type exportListerStub struct {
	bookings []models.Booking
}

func (s *exportListerStub) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range s.bookings {
		if filter.Date != nil && !b.Date.Equal(*filter.Date) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func TestDayReportCSV(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	lister := &exportListerStub{bookings: []models.Booking{
		{ID: "b1", RoomID: "room", Date: day, StartMinute: 540, EndMinute: 630, Status: models.BookingStatusApproved, Attendees: 4, TotalCost: 120},
	}}
	rooms := &roomReaderStub{rooms: map[string]*models.Room{
		"room": {ID: "room", Name: "Boardroom"},
	}}
	svc := NewExportService(lister, rooms, nil)

	result, err := svc.DayReport(context.Background(), day, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "bookings-2025-06-15.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)

	body := string(result.Data)
	assert.Contains(t, body, "Room,Start,End,Status,Attendees,Cost")
	assert.Contains(t, body, "Boardroom,09:00,10:30,approved,4,120.00")
}

func TestDayReportPDF(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	svc := NewExportService(&exportListerStub{}, &roomReaderStub{}, nil)

	result, err := svc.DayReport(context.Background(), day, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "bookings-2025-06-15.pdf", result.Filename)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Data), "%PDF"))
}

func TestDayReportRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&exportListerStub{}, &roomReaderStub{}, nil)

	_, err := svc.DayReport(context.Background(), time.Now(), ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDayReportFallsBackToRoomID(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	lister := &exportListerStub{bookings: []models.Booking{
		{ID: "b1", RoomID: "ghost-room", Date: day, StartMinute: 600, EndMinute: 660, Status: models.BookingStatusPending},
	}}
	svc := NewExportService(lister, &roomReaderStub{}, nil)

	result, err := svc.DayReport(context.Background(), day, ExportFormatCSV)
	require.NoError(t, err)
	assert.Contains(t, string(result.Data), "ghost-room")
}
