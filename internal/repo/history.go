package repo

import (
	"context"

	"github.com/ming0627/bellyfed-new-sub008/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RankHistoryRepository interface {
	Append(ctx context.Context, entry *domain.RankHistory) error
	GetByRankingID(ctx context.Context, rankingID primitive.ObjectID, limit int) ([]domain.RankHistory, error)
}
