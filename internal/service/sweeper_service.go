package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/roomly-api/internal/models"
)

type sweeperLedger interface {
	ListApprovedOnOrBefore(ctx context.Context, day time.Time) ([]models.Booking, error)
	ReleaseIfApproved(ctx context.Context, id string) (int64, error)
}

type sweepObserver interface {
	ObserveSweep(released int)
}

// SweeperConfig governs the no-show reclamation schedule.
type SweeperConfig struct {
	Interval time.Duration
	Grace    time.Duration
}

// SweeperService reclaims approved bookings whose holders never showed up.
// A booking whose start instant is more than the grace period in the past is
// transitioned back to cancelled, freeing the room.
type SweeperService struct {
	ledger  sweeperLedger
	audit   auditTrail
	metrics sweepObserver
	logger  *zap.Logger
	cfg     SweeperConfig
	now     func() time.Time
}

// NewSweeperService wires the sweeper. now is injectable for deterministic
// tests; nil defaults to the wall clock.
func NewSweeperService(ledger sweeperLedger, audit auditTrail, metrics sweepObserver, logger *zap.Logger, cfg SweeperConfig, now func() time.Time) *SweeperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Minute
	}
	if cfg.Grace <= 0 {
		cfg.Grace = 10 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &SweeperService{ledger: ledger, audit: audit, metrics: metrics, logger: logger, cfg: cfg, now: now}
}

// Start runs one immediate sweep and then sweeps on every tick until the
// context is cancelled. Scan failures are logged and retried on the next
// tick, never escalated.
func (s *SweeperService) Start(ctx context.Context) {
	go func() {
		s.sweepAndLog(ctx)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweepAndLog(ctx)
			}
		}
	}()
	s.logger.Sugar().Infow("auto-release sweeper started", "interval", s.cfg.Interval, "grace", s.cfg.Grace)
}

func (s *SweeperService) sweepAndLog(ctx context.Context) {
	if _, err := s.Sweep(ctx, s.now()); err != nil {
		s.logger.Sugar().Warnw("sweep failed, will retry on next tick", "error", err)
	}
}

// Sweep scans approved bookings dated on or before now and releases those
// past the grace threshold. Idempotent: the compare-and-set release makes a
// re-scan of an already cancelled booking a no-op, and a booking released by
// a concurrent cancellation is not counted twice.
func (s *SweeperService) Sweep(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	approved, err := s.ledger.ListApprovedOnOrBefore(ctx, now)
	if err != nil {
		return 0, err
	}

	released := 0
	for i := range approved {
		booking := &approved[i]
		elapsed := now.Sub(booking.StartInstant())
		if elapsed <= s.cfg.Grace {
			continue
		}

		affected, err := s.ledger.ReleaseIfApproved(ctx, booking.ID)
		if err != nil {
			// One bad record must not halt the sweep.
			s.logger.Sugar().Warnw("failed to release booking", "booking_id", booking.ID, "error", err)
			continue
		}
		if affected == 0 {
			continue
		}

		released++
		s.logger.Sugar().Infow("booking auto-released",
			"booking_id", booking.ID,
			"room_id", booking.RoomID,
			"user_id", booking.UserID,
			"start", booking.StartInstant(),
			"overdue", elapsed-s.cfg.Grace,
		)
		if s.audit != nil {
			s.audit.Record(models.AuditActionBookingRelease, "", booking.ID, nil)
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveSweep(released)
	}
	if released > 0 {
		s.logger.Sugar().Infow("sweep released bookings", "count", released, "at", now)
	}
	return released, nil
}
