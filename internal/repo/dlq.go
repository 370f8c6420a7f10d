package repo

import (
	"context"
	"time"

	"github.com/ming0627/bellyfed-new-sub008/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DLQRepository interface {
	Create(ctx context.Context, msg *domain.DLQMessage) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.DLQMessage, error)
	List(ctx context.Context, filter domain.DLQFilter) ([]domain.DLQMessage, error)
	MarkReplayed(ctx context.Context, id primitive.ObjectID, at time.Time) error
}
