package repo

import (
	"context"

	"github.com/ming0627/bellyfed-new-sub008/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RankingRepository interface {
	Create(ctx context.Context, ranking *domain.DishRanking) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.DishRanking, error)
	GetByScope(ctx context.Context, userID, dishType string) ([]domain.DishRanking, error)
	GetByRestaurant(ctx context.Context, userID, restaurantID string) ([]domain.DishRanking, error)
	FindByDish(ctx context.Context, userID, dishType, dishID string) (*domain.DishRanking, error)
	GetTopByDish(ctx context.Context, dishID string, limit int) ([]domain.DishRanking, error)
	ClearRanks(ctx context.Context, ids []primitive.ObjectID) error
	SetRank(ctx context.Context, id primitive.ObjectID, rank *int) (int, error)
	UpdateTasteStatus(ctx context.Context, id primitive.ObjectID, status domain.TasteStatus) error
	DeleteByScope(ctx context.Context, userID, dishType string) (int64, error)
	DeleteByRestaurant(ctx context.Context, userID, restaurantID string) (int64, error)
}
