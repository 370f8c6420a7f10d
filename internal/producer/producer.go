package producer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ming0627/bellyfed-new-sub008/internal/domain"
	"github.com/ming0627/bellyfed-new-sub008/internal/queue"
	"go.uber.org/zap"
)

// Source identifies this producer in envelope metadata and DLQ filters.
const Source = "ranking-api"

const envelopeVersion = "1"

// Producer wraps ranking mutations into versioned envelopes and hands them to
// the bus. It is the single place idempotency keys are minted.
type Producer struct {
	broker queue.Broker
	logger *zap.SugaredLogger
}

func New(broker queue.Broker, logger *zap.SugaredLogger) *Producer {
	return &Producer{
		broker: broker,
		logger: logger,
	}
}

// IdempotencyKey derives the deterministic dedupe key for a logical mutation.
// Re-publishing the same request (same nonce) yields the same key, so
// downstream consumers can collapse client retries. For update-by-id
// operations the ranking id stands in for dishID.
func IdempotencyKey(userID, dishType, dishID string, eventType domain.EventType, nonce string) string {
	input := strings.Join([]string{userID, dishType, dishID, string(eventType), nonce}, "|")
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// Publish stamps and publishes an envelope for the given mutation, returning
// the envelope so callers can hand its trace id back to the client.
func (p *Producer) Publish(ctx context.Context, eventType domain.EventType, userID, traceID, idempotencyKey string, payload any) (*domain.EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	if traceID == "" {
		traceID = uuid.NewString()
	}

	envelope := &domain.EventEnvelope{
		EventID:        uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		EventType:      eventType,
		Source:         Source,
		Version:        envelopeVersion,
		TraceID:        traceID,
		UserID:         userID,
		Status:         domain.EventStatusPending,
		IdempotencyKey: idempotencyKey,
		Payload:        raw,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := p.broker.Publish(ctx, queue.QueueRankingEvents, body); err != nil {
		p.logger.Errorw("failed to publish event",
			"event_id", envelope.EventID, "event_type", eventType, "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Infow("event published",
		"event_id", envelope.EventID, "event_type", eventType, "trace_id", traceID, "user_id", userID)

	return envelope, nil
}
