package worker

import (
	"context"

	"github.com/ming0627/bellyfed-new-sub008/internal/queue"
	"github.com/ming0627/bellyfed-new-sub008/internal/service"
	"go.uber.org/zap"
)

// DLQWorker drains the dead-letter queue into the store so operators can
// inspect and replay failed messages after the broker's retention.
type DLQWorker struct {
	dlqService *service.DLQService
	broker     queue.Broker
	logger     *zap.SugaredLogger
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewDLQWorker(
	dlqService *service.DLQService,
	broker queue.Broker,
	logger *zap.SugaredLogger,
) *DLQWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &DLQWorker{
		dlqService: dlqService,
		broker:     broker,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (w *DLQWorker) Start() error {
	w.logger.Info("starting dlq worker")

	return w.broker.Subscribe(w.ctx, queue.QueueRankingEventsDLQ, w.handleMessage)
}

func (w *DLQWorker) Stop() {
	w.logger.Info("stopping dlq worker")
	w.cancel()
}

func (w *DLQWorker) handleMessage(ctx context.Context, msg queue.Message) error {
	if err := w.dlqService.RecordFailure(ctx, msg); err != nil {
		w.logger.Errorw("failed to persist dlq message", "original_queue", msg.OriginalQueue, "error", err)
		return err
	}

	return nil
}
