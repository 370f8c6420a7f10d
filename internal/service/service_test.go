package service

import (
	"context"
	"sort"
	"time"

	"github.com/ming0627/bellyfed-new-sub008/internal/domain"
	"github.com/ming0627/bellyfed-new-sub008/internal/queue"
	"github.com/ming0627/bellyfed-new-sub008/internal/repo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes mirroring the mongo implementations' error
// semantics, so service tests exercise real decision paths without a store.

type fakeTransactor struct {
	calls int
}

func (t *fakeTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type fakeRankingRepo struct {
	rankings map[primitive.ObjectID]*domain.DishRanking
}

func newFakeRankingRepo() *fakeRankingRepo {
	return &fakeRankingRepo{rankings: map[primitive.ObjectID]*domain.DishRanking{}}
}

func (r *fakeRankingRepo) Create(ctx context.Context, ranking *domain.DishRanking) error {
	for _, existing := range r.rankings {
		if existing.UserID == ranking.UserID && existing.DishType == ranking.DishType && existing.DishID == ranking.DishID {
			return domain.ErrDuplicateDish
		}
	}
	if ranking.ID.IsZero() {
		ranking.ID = primitive.NewObjectID()
	}
	cp := *ranking
	r.rankings[ranking.ID] = &cp
	return nil
}

func (r *fakeRankingRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.DishRanking, error) {
	ranking, ok := r.rankings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ranking
	return &cp, nil
}

func (r *fakeRankingRepo) GetByScope(ctx context.Context, userID, dishType string) ([]domain.DishRanking, error) {
	var out []domain.DishRanking
	for _, ranking := range r.rankings {
		if ranking.UserID == userID && ranking.DishType == dishType {
			out = append(out, *ranking)
		}
	}
	return out, nil
}

func (r *fakeRankingRepo) GetByRestaurant(ctx context.Context, userID, restaurantID string) ([]domain.DishRanking, error) {
	var out []domain.DishRanking
	for _, ranking := range r.rankings {
		if ranking.UserID == userID && ranking.RestaurantID == restaurantID {
			out = append(out, *ranking)
		}
	}
	return out, nil
}

func (r *fakeRankingRepo) FindByDish(ctx context.Context, userID, dishType, dishID string) (*domain.DishRanking, error) {
	for _, ranking := range r.rankings {
		if ranking.UserID == userID && ranking.DishType == dishType && ranking.DishID == dishID {
			cp := *ranking
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRankingRepo) GetTopByDish(ctx context.Context, dishID string, limit int) ([]domain.DishRanking, error) {
	var out []domain.DishRanking
	for _, ranking := range r.rankings {
		if ranking.DishID == dishID && ranking.Rank != nil {
			out = append(out, *ranking)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].Rank < *out[j].Rank })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRankingRepo) ClearRanks(ctx context.Context, ids []primitive.ObjectID) error {
	for _, id := range ids {
		if ranking, ok := r.rankings[id]; ok {
			ranking.Rank = nil
		}
	}
	return nil
}

func (r *fakeRankingRepo) SetRank(ctx context.Context, id primitive.ObjectID, rank *int) (int, error) {
	ranking, ok := r.rankings[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	ranking.Rank = rank
	ranking.HistorySeq++
	ranking.UpdatedAt = time.Now()
	return ranking.HistorySeq, nil
}

func (r *fakeRankingRepo) UpdateTasteStatus(ctx context.Context, id primitive.ObjectID, status domain.TasteStatus) error {
	ranking, ok := r.rankings[id]
	if !ok {
		return domain.ErrNotFound
	}
	ranking.TasteStatus = status
	ranking.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRankingRepo) DeleteByScope(ctx context.Context, userID, dishType string) (int64, error) {
	var deleted int64
	for id, ranking := range r.rankings {
		if ranking.UserID == userID && ranking.DishType == dishType {
			delete(r.rankings, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeRankingRepo) DeleteByRestaurant(ctx context.Context, userID, restaurantID string) (int64, error) {
	var deleted int64
	for id, ranking := range r.rankings {
		if ranking.UserID == userID && ranking.RestaurantID == restaurantID {
			delete(r.rankings, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeRankingRepo) ranksByDish(userID, dishType string) map[string]*int {
	out := map[string]*int{}
	for _, ranking := range r.rankings {
		if ranking.UserID == userID && ranking.DishType == dishType {
			out[ranking.DishID] = ranking.Rank
		}
	}
	return out
}

type fakeHistoryRepo struct {
	entries []domain.RankHistory
}

func (r *fakeHistoryRepo) Append(ctx context.Context, entry *domain.RankHistory) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) GetByRankingID(ctx context.Context, rankingID primitive.ObjectID, limit int) ([]domain.RankHistory, error) {
	var out []domain.RankHistory
	for _, e := range r.entries {
		if e.RankingID == rankingID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeIdempotencyRepo struct {
	processed map[string]bool
}

func newFakeIdempotencyRepo() *fakeIdempotencyRepo {
	return &fakeIdempotencyRepo{processed: map[string]bool{}}
}

func (r *fakeIdempotencyRepo) MarkProcessed(ctx context.Context, record *domain.ProcessedEvent) error {
	if r.processed[record.IdempotencyKey] {
		return repo.ErrAlreadyProcessed
	}
	r.processed[record.IdempotencyKey] = true
	return nil
}

type publishedMessage struct {
	queue string
	body  []byte
}

type fakeBroker struct {
	published  []publishedMessage
	publishErr error
}

func (b *fakeBroker) Publish(ctx context.Context, queueName string, message []byte) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, publishedMessage{queue: queueName, body: message})
	return nil
}

func (b *fakeBroker) Subscribe(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	return nil
}

func (b *fakeBroker) Close() error { return nil }

type fakeDLQRepo struct {
	messages map[primitive.ObjectID]*domain.DLQMessage
}

func newFakeDLQRepo() *fakeDLQRepo {
	return &fakeDLQRepo{messages: map[primitive.ObjectID]*domain.DLQMessage{}}
}

func (r *fakeDLQRepo) Create(ctx context.Context, msg *domain.DLQMessage) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	cp := *msg
	r.messages[msg.ID] = &cp
	return nil
}

func (r *fakeDLQRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.DLQMessage, error) {
	msg, ok := r.messages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (r *fakeDLQRepo) List(ctx context.Context, filter domain.DLQFilter) ([]domain.DLQMessage, error) {
	var out []domain.DLQMessage
	for _, msg := range r.messages {
		if filter.Source != "" && msg.Source != filter.Source {
			continue
		}
		if filter.EventType != "" && msg.EventType != filter.EventType {
			continue
		}
		if filter.Status != "" && msg.Status != filter.Status {
			continue
		}
		out = append(out, *msg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FailedAt.After(out[j].FailedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeDLQRepo) MarkReplayed(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	msg, ok := r.messages[id]
	if !ok {
		return domain.ErrNotFound
	}
	msg.Status = domain.DLQStatusReplayed
	msg.ReplayedAt = &at
	return nil
}
