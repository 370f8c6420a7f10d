package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ming0627/bellyfed-new-sub008/internal/domain"
	"github.com/ming0627/bellyfed-new-sub008/internal/queue"
	"github.com/ming0627/bellyfed-new-sub008/internal/service"
	"go.uber.org/zap"
)

// RankingEventWorker consumes ranking mutation envelopes and applies them
// through the ranking service. Malformed or invalid envelopes are classified
// permanent so the broker dead-letters them without retrying; everything else
// is surfaced as transient and redelivered.
type RankingEventWorker struct {
	rankingService *service.RankingService
	broker         queue.Broker
	logger         *zap.SugaredLogger
	ctx            context.Context
	cancel         context.CancelFunc
}

func NewRankingEventWorker(
	rankingService *service.RankingService,
	broker queue.Broker,
	logger *zap.SugaredLogger,
) *RankingEventWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &RankingEventWorker{
		rankingService: rankingService,
		broker:         broker,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
	}
}

func (w *RankingEventWorker) Start() error {
	w.logger.Info("starting ranking event worker")

	return w.broker.Subscribe(w.ctx, queue.QueueRankingEvents, w.handleMessage)
}

func (w *RankingEventWorker) Stop() {
	w.logger.Info("stopping ranking event worker")
	w.cancel()
}

func (w *RankingEventWorker) handleMessage(ctx context.Context, msg queue.Message) error {
	var envelope domain.EventEnvelope
	if err := json.Unmarshal(msg.Body, &envelope); err != nil {
		w.logger.Errorw("failed to unmarshal envelope", "error", err)
		return queue.Permanent(fmt.Errorf("failed to unmarshal envelope: %w", err))
	}

	if err := envelope.Validate(); err != nil {
		w.logger.Errorw("invalid envelope",
			"event_id", envelope.EventID, "trace_id", envelope.TraceID, "error", err)
		return queue.Permanent(err)
	}

	w.logger.Infow("processing ranking event",
		"event_id", envelope.EventID,
		"event_type", envelope.EventType,
		"trace_id", envelope.TraceID,
		"user_id", envelope.UserID,
		"retry_count", msg.RetryCount,
	)

	if err := w.rankingService.ApplyEnvelope(ctx, &envelope); err != nil {
		w.logger.Errorw("failed to apply ranking event",
			"event_id", envelope.EventID, "trace_id", envelope.TraceID, "user_id", envelope.UserID, "error", err)

		if domain.IsPermanent(err) {
			return queue.Permanent(err)
		}
		return err
	}

	return nil
}
