package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/ming0627/bellyfed-new-sub008/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RankHistoryRepository struct {
	collection *mongo.Collection
}

func NewRankHistoryRepository(db *mongo.Database) *RankHistoryRepository {
	return &RankHistoryRepository{
		collection: db.Collection("rank_history"),
	}
}

func (r *RankHistoryRepository) Append(ctx context.Context, entry *domain.RankHistory) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to append rank history: %w", err)
	}

	return nil
}

func (r *RankHistoryRepository) GetByRankingID(ctx context.Context, rankingID primitive.ObjectID, limit int) ([]domain.RankHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"ranking_id": rankingID}
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get rank history: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []domain.RankHistory
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode rank history: %w", err)
	}

	return entries, nil
}
