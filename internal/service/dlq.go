package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ming0627/bellyfed-new-sub008/internal/domain"
	"github.com/ming0627/bellyfed-new-sub008/internal/queue"
	"github.com/ming0627/bellyfed-new-sub008/internal/repo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DLQService persists dead-lettered messages for inspection and replays them
// into the main queue on operator request.
type DLQService struct {
	dlqRepo repo.DLQRepository
	broker  queue.Broker
	logger  *zap.SugaredLogger
}

func NewDLQService(
	dlqRepo repo.DLQRepository,
	broker queue.Broker,
	logger *zap.SugaredLogger,
) *DLQService {
	return &DLQService{
		dlqRepo: dlqRepo,
		broker:  broker,
		logger:  logger,
	}
}

// RecordFailure persists one dead-lettered delivery. The envelope header is
// decoded best-effort: even an unparseable body gets an entry, since the
// pipeline never silently drops a message.
func (s *DLQService) RecordFailure(ctx context.Context, msg queue.Message) error {
	entry := &domain.DLQMessage{
		Payload:       msg.Body,
		OriginalQueue: msg.OriginalQueue,
		RetryCount:    msg.RetryCount,
		LastError:     msg.LastError,
		Status:        domain.DLQStatusDead,
		FailedAt:      time.Now(),
	}

	var envelope domain.EventEnvelope
	if err := json.Unmarshal(msg.Body, &envelope); err == nil {
		entry.EventID = envelope.EventID
		entry.EventType = envelope.EventType
		entry.Source = envelope.Source
		entry.TraceID = envelope.TraceID
		entry.UserID = envelope.UserID
	}

	if err := s.dlqRepo.Create(ctx, entry); err != nil {
		return err
	}

	s.logger.Errorw("message dead-lettered",
		"dlq_id", entry.ID.Hex(),
		"event_id", entry.EventID,
		"event_type", entry.EventType,
		"trace_id", entry.TraceID,
		"user_id", entry.UserID,
		"retry_count", entry.RetryCount,
		"last_error", entry.LastError,
	)

	return nil
}

func (s *DLQService) ListMessages(ctx context.Context, filter domain.DLQFilter) ([]domain.DLQMessage, error) {
	return s.dlqRepo.List(ctx, filter)
}

// ReplayMessage re-injects a dead-lettered envelope into the main queue with
// its delivery count reset. Replay does not bypass idempotency de-duplication:
// an envelope that already applied lands as a no-op.
func (s *DLQService) ReplayMessage(ctx context.Context, messageID primitive.ObjectID) (*domain.DLQMessage, error) {
	msg, err := s.dlqRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if err := s.broker.Publish(ctx, queue.QueueRankingEvents, msg.Payload); err != nil {
		return nil, fmt.Errorf("failed to replay dlq message: %w", err)
	}

	now := time.Now()
	if err := s.dlqRepo.MarkReplayed(ctx, messageID, now); err != nil {
		return nil, err
	}

	msg.Status = domain.DLQStatusReplayed
	msg.ReplayedAt = &now

	s.logger.Infow("dlq message replayed",
		"dlq_id", messageID.Hex(), "event_id", msg.EventID, "event_type", msg.EventType)

	return msg, nil
}
