package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/roomly-api/internal/models"
	"github.com/noah-isme/roomly-api/pkg/jobs"
)

type auditLogWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService records lifecycle transitions off the request path through a
// background job queue. Recording never blocks or fails the caller; a lost
// audit entry is logged, not surfaced.
type AuditService struct {
	repo   auditLogWriter
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService builds the audit writer and its queue. Call Start before
// recording and Stop on shutdown.
func NewAuditService(repo auditLogWriter, logger *zap.Logger, workers int) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, logger: logger}
	s.queue = jobs.NewQueue("audit", s.handle, jobs.QueueConfig{
		Workers: workers,
		Logger:  logger,
	})
	return s
}

// Start boots the queue workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record enqueues one audit entry. detail is marshalled to JSON when set.
func (s *AuditService) Record(action string, userID, resourceID string, detail interface{}) {
	log := &models.AuditLog{
		Action:   action,
		Resource: resourceFor(action),
	}
	if userID != "" {
		log.UserID = &userID
	}
	if resourceID != "" {
		log.ResourceID = &resourceID
	}
	if detail != nil {
		if raw, err := json.Marshal(detail); err == nil {
			log.Detail = raw
		}
	}

	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: action, Payload: log}); err != nil {
		s.logger.Sugar().Warnw("failed to enqueue audit entry", "action", action, "error", err)
	}
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		s.logger.Sugar().Warnw("dropping malformed audit job", "job_id", job.ID)
		return nil
	}
	return s.repo.CreateAuditLog(ctx, log)
}

func resourceFor(action string) string {
	switch action {
	case models.AuditActionRoomCreate, models.AuditActionRoomUpdate, models.AuditActionRoomDelete:
		return "room"
	default:
		return "booking"
	}
}
