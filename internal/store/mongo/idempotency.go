package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/ming0627/bellyfed-new-sub008/internal/domain"
	"github.com/ming0627/bellyfed-new-sub008/internal/repo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type IdempotencyRepository struct {
	collection *mongo.Collection
}

func NewIdempotencyRepository(db *mongo.Database) *IdempotencyRepository {
	return &IdempotencyRepository{
		collection: db.Collection("processed_events"),
	}
}

// MarkProcessed inserts the processed-key record. The unique index on
// idempotency_key turns a replayed event into repo.ErrAlreadyProcessed.
func (r *IdempotencyRepository) MarkProcessed(ctx context.Context, record *domain.ProcessedEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	if record.ProcessedAt.IsZero() {
		record.ProcessedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repo.ErrAlreadyProcessed
		}
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	return nil
}
