package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ming0627/bellyfed-new-sub008/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DLQRepository struct {
	collection *mongo.Collection
}

func NewDLQRepository(db *mongo.Database) *DLQRepository {
	return &DLQRepository{
		collection: db.Collection("dlq_messages"),
	}
}

func (r *DLQRepository) Create(ctx context.Context, msg *domain.DLQMessage) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.FailedAt.IsZero() {
		msg.FailedAt = time.Now()
	}
	if msg.Status == "" {
		msg.Status = domain.DLQStatusDead
	}

	_, err := r.collection.InsertOne(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to create dlq message: %w", err)
	}

	return nil
}

func (r *DLQRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.DLQMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var msg domain.DLQMessage
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dlq message: %w", err)
	}

	return &msg, nil
}

func (r *DLQRepository) List(ctx context.Context, filter domain.DLQFilter) ([]domain.DLQMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := bson.M{}
	if filter.Source != "" {
		query["source"] = filter.Source
	}
	if filter.EventType != "" {
		query["event_type"] = filter.EventType
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	timeRange := bson.M{}
	if !filter.From.IsZero() {
		timeRange["$gte"] = filter.From
	}
	if !filter.To.IsZero() {
		timeRange["$lte"] = filter.To
	}
	if len(timeRange) > 0 {
		query["failed_at"] = timeRange
	}

	limit := int64(filter.Limit)
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().SetSort(bson.D{{Key: "failed_at", Value: -1}}).SetLimit(limit)

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list dlq messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []domain.DLQMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode dlq messages: %w", err)
	}

	return messages, nil
}

func (r *DLQRepository) MarkReplayed(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"status":      domain.DLQStatusReplayed,
			"replayed_at": at,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to mark dlq message replayed: %w", err)
	}

	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}

	return nil
}
