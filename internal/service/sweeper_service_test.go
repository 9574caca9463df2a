package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roomly-api/internal/models"
)

type sweeperLedgerStub struct {
	approved   []models.Booking
	released   []string
	listErr    error
	releaseErr map[string]error
	denied     map[string]bool
}

func (s *sweeperLedgerStub) ListApprovedOnOrBefore(ctx context.Context, day time.Time) ([]models.Booking, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Booking
	for _, b := range s.approved {
		if !b.Date.After(day) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *sweeperLedgerStub) ReleaseIfApproved(ctx context.Context, id string) (int64, error) {
	if err := s.releaseErr[id]; err != nil {
		return 0, err
	}
	if s.denied[id] {
		return 0, nil
	}
	for _, done := range s.released {
		if done == id {
			return 0, nil
		}
	}
	s.released = append(s.released, id)
	return 1, nil
}

type auditTrailStub struct {
	actions []string
	ids     []string
}

func (a *auditTrailStub) Record(action, userID, resourceID string, detail interface{}) {
	a.actions = append(a.actions, action)
	a.ids = append(a.ids, resourceID)
}

func approvedBooking(id string, date time.Time, startMinute int) models.Booking {
	return models.Booking{
		ID:          id,
		RoomID:      "room",
		UserID:      "user",
		Date:        date,
		StartMinute: startMinute,
		EndMinute:   startMinute + 60,
		Status:      models.BookingStatusApproved,
	}
}

func TestSweepReleasesOnlyPastGrace(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 15, 10, 11, 0, 0, time.UTC)

	ledger := &sweeperLedgerStub{approved: []models.Booking{
		approvedBooking("overdue", day, 600),  // started 10:00, 11 minutes ago
		approvedBooking("in-grace", day, 605), // started 10:05, 6 minutes ago
		approvedBooking("future", day, 660),   // starts 11:00
	}}
	audit := &auditTrailStub{}
	obs := &observerStub{}
	svc := NewSweeperService(ledger, audit, obs, nil, SweeperConfig{}, nil)

	released, err := svc.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Equal(t, []string{"overdue"}, ledger.released)
	assert.Equal(t, []string{models.AuditActionBookingRelease}, audit.actions)
	assert.Equal(t, []int{1}, obs.sweeps)
}

func TestSweepExactGraceBoundaryIsKept(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	// Exactly ten minutes after the start: not yet overdue.
	now := time.Date(2025, 6, 15, 10, 10, 0, 0, time.UTC)

	ledger := &sweeperLedgerStub{approved: []models.Booking{approvedBooking("b1", day, 600)}}
	svc := NewSweeperService(ledger, nil, nil, nil, SweeperConfig{}, nil)

	released, err := svc.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, released)
	assert.Empty(t, ledger.released)
}

func TestSweepIsIdempotent(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC)

	ledger := &sweeperLedgerStub{approved: []models.Booking{approvedBooking("b1", day, 600)}}
	svc := NewSweeperService(ledger, nil, nil, nil, SweeperConfig{}, nil)

	released, err := svc.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	// The stub leaves the booking in the listing, as a racing reader might;
	// the compare-and-set release reports zero rows and nothing is recounted.
	released, err = svc.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, released)
}

func TestSweepSkipsConcurrentlyCancelled(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC)

	ledger := &sweeperLedgerStub{
		approved: []models.Booking{approvedBooking("gone", day, 600)},
		denied:   map[string]bool{"gone": true},
	}
	audit := &auditTrailStub{}
	svc := NewSweeperService(ledger, audit, nil, nil, SweeperConfig{}, nil)

	released, err := svc.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, released)
	assert.Empty(t, audit.actions)
}

func TestSweepContinuesPastReleaseErrors(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	ledger := &sweeperLedgerStub{
		approved: []models.Booking{
			approvedBooking("bad", day, 600),
			approvedBooking("good", day, 630),
		},
		releaseErr: map[string]error{"bad": errors.New("db down")},
	}
	svc := NewSweeperService(ledger, nil, nil, nil, SweeperConfig{}, nil)

	released, err := svc.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Equal(t, []string{"good"}, ledger.released)
}

func TestSweepListFailureSurfaces(t *testing.T) {
	ledger := &sweeperLedgerStub{listErr: errors.New("db down")}
	svc := NewSweeperService(ledger, nil, nil, nil, SweeperConfig{}, nil)

	_, err := svc.Sweep(context.Background(), time.Now())
	require.Error(t, err)
}
