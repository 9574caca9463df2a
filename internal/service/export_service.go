package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/roomly-api/internal/models"
	appErrors "github.com/noah-isme/roomly-api/pkg/errors"
	"github.com/noah-isme/roomly-api/pkg/export"
)

// ExportFormat enumerates supported report formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type exportBookingLister interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
}

type exportRoomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

// ExportResult is a rendered report ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a day's bookings as a tabular report.
type ExportService struct {
	bookings exportBookingLister
	rooms    exportRoomReader
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService wires the report exporters.
func NewExportService(bookings exportBookingLister, rooms exportRoomReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		bookings: bookings,
		rooms:    rooms,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// DayReport exports every non-deleted booking on the given date.
func (s *ExportService) DayReport(ctx context.Context, date time.Time, format ExportFormat) (*ExportResult, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	day := models.DayOf(date)
	bookings, err := s.bookings.List(ctx, models.BookingFilter{Date: &day})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}

	dataset := export.Dataset{
		Headers: []string{"Room", "Start", "End", "Status", "Attendees", "Cost"},
	}
	roomNames := map[string]string{}
	for i := range bookings {
		b := &bookings[i]
		name, ok := roomNames[b.RoomID]
		if !ok {
			name = b.RoomID
			if room, err := s.rooms.FindByID(ctx, b.RoomID); err == nil {
				name = room.Name
			}
			roomNames[b.RoomID] = name
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Room":      name,
			"Start":     b.Slot().StartClock(),
			"End":       b.Slot().EndClock(),
			"Status":    string(b.Status),
			"Attendees": fmt.Sprintf("%d", b.Attendees),
			"Cost":      fmt.Sprintf("%.2f", b.TotalCost),
		})
	}

	stamp := day.Format("2006-01-02")
	switch format {
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, fmt.Sprintf("Bookings %s", stamp))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("bookings-%s.pdf", stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("bookings-%s.csv", stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	}
}
