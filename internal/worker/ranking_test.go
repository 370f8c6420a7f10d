package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ming0627/bellyfed-new-sub008/internal/domain"
	"github.com/ming0627/bellyfed-new-sub008/internal/queue"
	"github.com/ming0627/bellyfed-new-sub008/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Minimal repo stubs: the worker tests drive classification paths, not storage.

type stubTransactor struct{}

func (stubTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubRankingRepo struct{}

func (stubRankingRepo) Create(context.Context, *domain.DishRanking) error { return nil }
func (stubRankingRepo) GetByID(context.Context, primitive.ObjectID) (*domain.DishRanking, error) {
	return nil, domain.ErrNotFound
}
func (stubRankingRepo) GetByScope(context.Context, string, string) ([]domain.DishRanking, error) {
	return nil, nil
}
func (stubRankingRepo) GetByRestaurant(context.Context, string, string) ([]domain.DishRanking, error) {
	return nil, nil
}
func (stubRankingRepo) FindByDish(context.Context, string, string, string) (*domain.DishRanking, error) {
	return nil, domain.ErrNotFound
}
func (stubRankingRepo) GetTopByDish(context.Context, string, int) ([]domain.DishRanking, error) {
	return nil, nil
}
func (stubRankingRepo) ClearRanks(context.Context, []primitive.ObjectID) error { return nil }
func (stubRankingRepo) SetRank(context.Context, primitive.ObjectID, *int) (int, error) {
	return 1, nil
}
func (stubRankingRepo) UpdateTasteStatus(context.Context, primitive.ObjectID, domain.TasteStatus) error {
	return nil
}
func (stubRankingRepo) DeleteByScope(context.Context, string, string) (int64, error) { return 0, nil }
func (stubRankingRepo) DeleteByRestaurant(context.Context, string, string) (int64, error) {
	return 0, nil
}

type stubHistoryRepo struct{}

func (stubHistoryRepo) Append(context.Context, *domain.RankHistory) error { return nil }
func (stubHistoryRepo) GetByRankingID(context.Context, primitive.ObjectID, int) ([]domain.RankHistory, error) {
	return nil, nil
}

type stubIdempotencyRepo struct {
	markErr error
}

func (s stubIdempotencyRepo) MarkProcessed(context.Context, *domain.ProcessedEvent) error {
	return s.markErr
}

func newTestWorker(markErr error) *RankingEventWorker {
	svc := service.NewRankingService(
		stubRankingRepo{}, stubHistoryRepo{}, stubIdempotencyRepo{markErr: markErr},
		stubTransactor{}, zap.NewNop().Sugar(),
	)
	return NewRankingEventWorker(svc, nil, zap.NewNop().Sugar())
}

func envelopeBody(t *testing.T, eventType domain.EventType, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	body, err := json.Marshal(domain.EventEnvelope{
		EventID:        "evt-1",
		Timestamp:      time.Now(),
		EventType:      eventType,
		UserID:         "user-1",
		IdempotencyKey: "key-1",
		Payload:        raw,
	})
	require.NoError(t, err)
	return body
}

func TestHandleMessage_MalformedBodyIsPermanent(t *testing.T) {
	w := newTestWorker(nil)

	err := w.handleMessage(context.Background(), queue.Message{Body: []byte("not json")})
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err))
}

func TestHandleMessage_InvalidEnvelopeIsPermanent(t *testing.T) {
	w := newTestWorker(nil)

	body, err := json.Marshal(domain.EventEnvelope{
		EventID:   "evt-1",
		EventType: domain.EventRankingCreate,
		// missing user id and idempotency key
		Payload: json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	handleErr := w.handleMessage(context.Background(), queue.Message{Body: body})
	require.Error(t, handleErr)
	assert.True(t, queue.IsPermanent(handleErr))
}

func TestHandleMessage_UnknownEventTypeIsPermanent(t *testing.T) {
	w := newTestWorker(nil)

	body := envelopeBody(t, "DISH_EXPLODE", map[string]string{})

	err := w.handleMessage(context.Background(), queue.Message{Body: body})
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err))
}

func TestHandleMessage_InvalidPayloadIsPermanent(t *testing.T) {
	w := newTestWorker(nil)

	// envelope header validates, but the payload fails field validation;
	// redelivery cannot fix that, so it must dead-letter without retries
	body := envelopeBody(t, domain.EventRankingUpdate, map[string]int{"newRank": 0})

	err := w.handleMessage(context.Background(), queue.Message{Body: body})
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err))

	// same for a payload whose fields do not unmarshal
	body = envelopeBody(t, domain.EventRankingUpdate, map[string]string{"newRank": "high"})

	err = w.handleMessage(context.Background(), queue.Message{Body: body})
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err))
}

func TestHandleMessage_DomainFailureIsPermanent(t *testing.T) {
	w := newTestWorker(nil)

	body := envelopeBody(t, domain.EventRankingUpdate,
		domain.UpdateRankPayload{RankingID: primitive.NewObjectID().Hex(), NewRank: 1})

	// stub repo reports the ranking as missing
	err := w.handleMessage(context.Background(), queue.Message{Body: body})
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err))
}

func TestHandleMessage_StoreFailureIsTransient(t *testing.T) {
	w := newTestWorker(assert.AnError)

	body := envelopeBody(t, domain.EventScopeClear, domain.ClearScopePayload{DishType: "ramen"})

	err := w.handleMessage(context.Background(), queue.Message{Body: body, RetryCount: 1})
	require.Error(t, err)
	assert.False(t, queue.IsPermanent(err))
}

func TestHandleMessage_Success(t *testing.T) {
	w := newTestWorker(nil)

	body := envelopeBody(t, domain.EventScopeClear, domain.ClearScopePayload{DishType: "ramen"})

	assert.NoError(t, w.handleMessage(context.Background(), queue.Message{Body: body}))
}
