package service

import (
	"context"
	"fmt"

	"github.com/ming0627/bellyfed-new-sub008/internal/domain"
	"github.com/ming0627/bellyfed-new-sub008/internal/repo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxTopLimit = 100

// QueryService is the read path. It reads the store directly, bypassing the
// pipeline, so results are eventually consistent with in-flight mutations.
type QueryService struct {
	rankingRepo repo.RankingRepository
	historyRepo repo.RankHistoryRepository
	logger      *zap.SugaredLogger
}

func NewQueryService(
	rankingRepo repo.RankingRepository,
	historyRepo repo.RankHistoryRepository,
	logger *zap.SugaredLogger,
) *QueryService {
	return &QueryService{
		rankingRepo: rankingRepo,
		historyRepo: historyRepo,
		logger:      logger,
	}
}

func (s *QueryService) GetRankings(ctx context.Context, userID, dishType string) ([]domain.DishRanking, error) {
	rankings, err := s.rankingRepo.GetByScope(ctx, userID, dishType)
	if err != nil {
		return nil, fmt.Errorf("failed to get rankings: %w", err)
	}

	domain.SortForDisplay(rankings)

	return rankings, nil
}

func (s *QueryService) GetRankHistory(ctx context.Context, rankingID primitive.ObjectID) ([]domain.RankHistory, error) {
	entries, err := s.historyRepo.GetByRankingID(ctx, rankingID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get rank history: %w", err)
	}

	return entries, nil
}

// GetTopRankedAcrossUsers joins rankings across users for one dish, ordered by
// rank ascending then recency.
func (s *QueryService) GetTopRankedAcrossUsers(ctx context.Context, dishID string, limit int) ([]domain.DishRanking, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}

	rankings, err := s.rankingRepo.GetTopByDish(ctx, dishID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top rankings: %w", err)
	}

	return rankings, nil
}
