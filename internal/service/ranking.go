package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ming0627/bellyfed-new-sub008/internal/domain"
	"github.com/ming0627/bellyfed-new-sub008/internal/repo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Transactor runs a function inside a single store transaction. The context
// given to fn carries the session and must flow into every repository call.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// RankingService owns all rank-mutation logic. Every mutating operation reads
// the scope's current ordering, plans the new ordering in memory, writes the
// changed rows and appends one history entry per changed rank, all inside one
// transaction.
type RankingService struct {
	rankingRepo     repo.RankingRepository
	historyRepo     repo.RankHistoryRepository
	idempotencyRepo repo.IdempotencyRepository
	storage         Transactor
	logger          *zap.SugaredLogger
}

func NewRankingService(
	rankingRepo repo.RankingRepository,
	historyRepo repo.RankHistoryRepository,
	idempotencyRepo repo.IdempotencyRepository,
	storage Transactor,
	logger *zap.SugaredLogger,
) *RankingService {
	return &RankingService{
		rankingRepo:     rankingRepo,
		historyRepo:     historyRepo,
		idempotencyRepo: idempotencyRepo,
		storage:         storage,
		logger:          logger,
	}
}

func (s *RankingService) CreateRanking(ctx context.Context, userID string, p domain.CreateRankingPayload) (*domain.DishRanking, error) {
	var created *domain.DishRanking

	err := s.storage.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.createRanking(ctx, userID, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *RankingService) UpdateRank(ctx context.Context, rankingID primitive.ObjectID, newRank int, note string) (*domain.DishRanking, error) {
	var updated *domain.DishRanking

	err := s.storage.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.updateRank(ctx, rankingID, newRank, note)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *RankingService) UpdateTasteStatus(ctx context.Context, rankingID primitive.ObjectID, status domain.TasteStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}

	return s.storage.WithTransaction(ctx, func(ctx context.Context) error {
		return s.rankingRepo.UpdateTasteStatus(ctx, rankingID, status)
	})
}

// ClearScope bulk-deletes every ranking for the user within a dish type or a
// restaurant. Irreversible, administrative.
func (s *RankingService) ClearScope(ctx context.Context, userID, dishType, restaurantID string) (int64, error) {
	if dishType == "" && restaurantID == "" {
		return 0, domain.ErrInvalidScope
	}

	var deleted int64
	err := s.storage.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if dishType != "" {
			deleted, err = s.rankingRepo.DeleteByScope(ctx, userID, dishType)
		} else {
			deleted, err = s.clearRestaurant(ctx, userID, restaurantID)
		}
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Infow("scope cleared",
		"user_id", userID, "dish_type", dishType, "restaurant_id", restaurantID, "deleted", deleted)

	return deleted, nil
}

func (s *RankingService) ListRankings(ctx context.Context, userID, dishType string) ([]domain.DishRanking, error) {
	rankings, err := s.rankingRepo.GetByScope(ctx, userID, dishType)
	if err != nil {
		return nil, fmt.Errorf("failed to list rankings: %w", err)
	}

	domain.SortForDisplay(rankings)

	return rankings, nil
}

// ApplyEnvelope is the worker entry point. It records the envelope's
// idempotency key and applies the mutation in one transaction, so a crash can
// never apply without recording or record without applying. A key seen before
// short-circuits to success without re-running the mutation.
func (s *RankingService) ApplyEnvelope(ctx context.Context, envelope *domain.EventEnvelope) error {
	payload, err := envelope.DecodePayload()
	if err != nil {
		return err
	}

	return s.storage.WithTransaction(ctx, func(ctx context.Context) error {
		err := s.idempotencyRepo.MarkProcessed(ctx, &domain.ProcessedEvent{
			IdempotencyKey: envelope.IdempotencyKey,
			EventID:        envelope.EventID,
			EventType:      envelope.EventType,
			UserID:         envelope.UserID,
		})
		if err != nil {
			if errors.Is(err, repo.ErrAlreadyProcessed) {
				s.logger.Infow("duplicate event skipped",
					"event_id", envelope.EventID, "idempotency_key", envelope.IdempotencyKey)
				return nil
			}
			return err
		}

		switch p := payload.(type) {
		case *domain.CreateRankingPayload:
			_, err = s.createRanking(ctx, envelope.UserID, *p)
		case *domain.UpdateRankPayload:
			id, parseErr := primitive.ObjectIDFromHex(p.RankingID)
			if parseErr != nil {
				return fmt.Errorf("%w: invalid ranking id %q", domain.ErrNotFound, p.RankingID)
			}
			_, err = s.updateRank(ctx, id, p.NewRank, p.Note)
		case *domain.UpdateTasteStatusPayload:
			id, parseErr := primitive.ObjectIDFromHex(p.RankingID)
			if parseErr != nil {
				return fmt.Errorf("%w: invalid ranking id %q", domain.ErrNotFound, p.RankingID)
			}
			err = s.rankingRepo.UpdateTasteStatus(ctx, id, p.TasteStatus)
		case *domain.ClearScopePayload:
			if p.DishType != "" {
				_, err = s.rankingRepo.DeleteByScope(ctx, envelope.UserID, p.DishType)
			} else {
				_, err = s.clearRestaurant(ctx, envelope.UserID, p.RestaurantID)
			}
		default:
			return fmt.Errorf("%w: %T", domain.ErrUnknownEventType, payload)
		}

		return err
	})
}

// clearRestaurant deletes the user's rankings at one restaurant. A restaurant
// spans dish types, so the deletion can punch holes in the middle of surviving
// orderings; every affected scope is renumbered back to 1..n in the same
// transaction, with history entries for each shifted ranking.
func (s *RankingService) clearRestaurant(ctx context.Context, userID, restaurantID string) (int64, error) {
	affected, err := s.rankingRepo.GetByRestaurant(ctx, userID, restaurantID)
	if err != nil {
		return 0, err
	}

	deleted, err := s.rankingRepo.DeleteByRestaurant(ctx, userID, restaurantID)
	if err != nil {
		return 0, err
	}

	dishTypes := make(map[string]struct{})
	for _, r := range affected {
		if r.Rank != nil {
			dishTypes[r.DishType] = struct{}{}
		}
	}

	for dishType := range dishTypes {
		scope, err := s.rankingRepo.GetByScope(ctx, userID, dishType)
		if err != nil {
			return 0, err
		}
		if err := s.applyChanges(ctx, domain.Compact(scope), ""); err != nil {
			return 0, err
		}
	}

	return deleted, nil
}

func (s *RankingService) createRanking(ctx context.Context, userID string, p domain.CreateRankingPayload) (*domain.DishRanking, error) {
	_, err := s.rankingRepo.FindByDish(ctx, userID, p.DishType, p.DishID)
	if err == nil {
		return nil, domain.ErrDuplicateDish
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if p.Rank != nil && *p.Rank < 1 {
		return nil, domain.ErrInvalidRank
	}
	if !p.TasteStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, p.TasteStatus)
	}

	ranking := &domain.DishRanking{
		ID:           primitive.NewObjectID(),
		UserID:       userID,
		DishID:       p.DishID,
		DishType:     p.DishType,
		RestaurantID: p.RestaurantID,
		TasteStatus:  p.TasteStatus,
		Notes:        p.Notes,
		PhotoRefs:    p.PhotoRefs,
	}

	if err := s.rankingRepo.Create(ctx, ranking); err != nil {
		return nil, err
	}

	if p.Rank != nil {
		scope, err := s.rankingRepo.GetByScope(ctx, userID, p.DishType)
		if err != nil {
			return nil, err
		}

		changes, err := domain.Reorder(scope, ranking.ID, p.Rank)
		if err != nil {
			return nil, err
		}

		if err := s.applyChanges(ctx, changes, ""); err != nil {
			return nil, err
		}

		for _, c := range changes {
			if c.RankingID == ranking.ID {
				ranking.Rank = c.NewRank
			}
		}
	}

	s.logger.Infow("ranking created",
		"ranking_id", ranking.ID.Hex(), "user_id", userID, "dish_id", p.DishID, "dish_type", p.DishType)

	return ranking, nil
}

func (s *RankingService) updateRank(ctx context.Context, rankingID primitive.ObjectID, newRank int, note string) (*domain.DishRanking, error) {
	if newRank < 1 {
		return nil, domain.ErrInvalidRank
	}

	ranking, err := s.rankingRepo.GetByID(ctx, rankingID)
	if err != nil {
		return nil, err
	}

	scope, err := s.rankingRepo.GetByScope(ctx, ranking.UserID, ranking.DishType)
	if err != nil {
		return nil, err
	}

	changes, err := domain.Reorder(scope, rankingID, &newRank)
	if err != nil {
		return nil, err
	}

	if err := s.applyChanges(ctx, changes, note); err != nil {
		return nil, err
	}

	for _, c := range changes {
		if c.RankingID == rankingID {
			ranking.Rank = c.NewRank
		}
	}

	s.logger.Infow("rank updated",
		"ranking_id", rankingID.Hex(), "user_id", ranking.UserID, "dish_type", ranking.DishType, "new_rank", newRank)

	return ranking, nil
}

// applyChanges writes a planned reorder. Ranks are unset first so the unique
// (user, dish type, rank) index never sees an intermediate collision, then each
// ranking gets its final rank and one history entry.
func (s *RankingService) applyChanges(ctx context.Context, changes []domain.RankChange, note string) error {
	if len(changes) == 0 {
		return nil
	}

	ids := make([]primitive.ObjectID, 0, len(changes))
	for _, c := range changes {
		ids = append(ids, c.RankingID)
	}

	if err := s.rankingRepo.ClearRanks(ctx, ids); err != nil {
		return err
	}

	now := time.Now()
	for _, c := range changes {
		seq, err := s.rankingRepo.SetRank(ctx, c.RankingID, c.NewRank)
		if err != nil {
			return err
		}

		entry := &domain.RankHistory{
			RankingID:    c.RankingID,
			Seq:          seq,
			PreviousRank: c.PreviousRank,
			NewRank:      c.NewRank,
			Note:         note,
			ChangedAt:    now,
		}
		if err := s.historyRepo.Append(ctx, entry); err != nil {
			return err
		}
	}

	return nil
}
