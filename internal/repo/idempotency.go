package repo

import (
	"context"
	"errors"

	"github.com/ming0627/bellyfed-new-sub008/internal/domain"
)

// ErrAlreadyProcessed signals that an idempotency key has been applied before.
// Callers treat it as success, not failure.
var ErrAlreadyProcessed = errors.New("idempotency key already processed")

type IdempotencyRepository interface {
	// MarkProcessed records the key, returning ErrAlreadyProcessed if it exists.
	MarkProcessed(ctx context.Context, record *domain.ProcessedEvent) error
}
