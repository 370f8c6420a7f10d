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

type RankingRepository struct {
	collection *mongo.Collection
}

func NewRankingRepository(db *mongo.Database) *RankingRepository {
	return &RankingRepository{
		collection: db.Collection("rankings"),
	}
}

func (r *RankingRepository) Create(ctx context.Context, ranking *domain.DishRanking) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if ranking.ID.IsZero() {
		ranking.ID = primitive.NewObjectID()
	}
	ranking.CreatedAt = time.Now()
	ranking.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, ranking)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateDish
		}
		return fmt.Errorf("failed to create ranking: %w", err)
	}

	return nil
}

func (r *RankingRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.DishRanking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var ranking domain.DishRanking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ranking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ranking: %w", err)
	}

	return &ranking, nil
}

func (r *RankingRepository) GetByScope(ctx context.Context, userID, dishType string) ([]domain.DishRanking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"user_id": userID, "dish_type": dishType}
	opts := options.Find().SetSort(bson.D{{Key: "rank", Value: 1}, {Key: "updated_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get rankings for scope: %w", err)
	}
	defer cursor.Close(ctx)

	var rankings []domain.DishRanking
	if err := cursor.All(ctx, &rankings); err != nil {
		return nil, fmt.Errorf("failed to decode rankings: %w", err)
	}

	return rankings, nil
}

func (r *RankingRepository) GetByRestaurant(ctx context.Context, userID, restaurantID string) ([]domain.DishRanking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"user_id": userID, "restaurant_id": restaurantID}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get rankings for restaurant: %w", err)
	}
	defer cursor.Close(ctx)

	var rankings []domain.DishRanking
	if err := cursor.All(ctx, &rankings); err != nil {
		return nil, fmt.Errorf("failed to decode rankings: %w", err)
	}

	return rankings, nil
}

func (r *RankingRepository) FindByDish(ctx context.Context, userID, dishType, dishID string) (*domain.DishRanking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"user_id": userID, "dish_type": dishType, "dish_id": dishID}

	var ranking domain.DishRanking
	err := r.collection.FindOne(ctx, filter).Decode(&ranking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find ranking by dish: %w", err)
	}

	return &ranking, nil
}

func (r *RankingRepository) GetTopByDish(ctx context.Context, dishID string, limit int) ([]domain.DishRanking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"dish_id": dishID, "rank": bson.M{"$exists": true}}
	opts := options.Find().
		SetSort(bson.D{{Key: "rank", Value: 1}, {Key: "updated_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get top rankings for dish: %w", err)
	}
	defer cursor.Close(ctx)

	var rankings []domain.DishRanking
	if err := cursor.All(ctx, &rankings); err != nil {
		return nil, fmt.Errorf("failed to decode top rankings: %w", err)
	}

	return rankings, nil
}

// ClearRanks unsets the rank of every given ranking without touching history
// counters. It runs as the first phase of a reorder so the unique rank index
// never sees two documents on the same slot mid-shuffle.
func (r *RankingRepository) ClearRanks(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"_id": bson.M{"$in": ids}}
	update := bson.M{"$unset": bson.M{"rank": ""}}

	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to clear ranks: %w", err)
	}

	return nil
}

// SetRank writes the ranking's new rank (nil unranks it), bumps its history
// counter and returns the new counter value for the history entry.
func (r *RankingRepository) SetRank(ctx context.Context, id primitive.ObjectID, rank *int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"history_seq": 1},
		"$set": bson.M{"updated_at": time.Now()},
	}
	if rank != nil {
		update["$set"].(bson.M)["rank"] = *rank
	} else {
		update["$unset"] = bson.M{"rank": ""}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.DishRanking
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("failed to set rank: %w", err)
	}

	return updated.HistorySeq, nil
}

func (r *RankingRepository) UpdateTasteStatus(ctx context.Context, id primitive.ObjectID, status domain.TasteStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"taste_status": status,
			"updated_at":   time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update taste status: %w", err)
	}

	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *RankingRepository) DeleteByScope(ctx context.Context, userID, dishType string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID, "dish_type": dishType})
	if err != nil {
		return 0, fmt.Errorf("failed to delete rankings for scope: %w", err)
	}

	return result.DeletedCount, nil
}

func (r *RankingRepository) DeleteByRestaurant(ctx context.Context, userID, restaurantID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID, "restaurant_id": restaurantID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete rankings for restaurant: %w", err)
	}

	return result.DeletedCount, nil
}
