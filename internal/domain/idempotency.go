package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProcessedEvent records an applied idempotency key. It is written in the same
// store transaction as the mutation it guards, so a crash can never separate
// the two.
type ProcessedEvent struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IdempotencyKey string             `bson:"idempotency_key" json:"idempotency_key"`
	EventID        string             `bson:"event_id" json:"event_id"`
	EventType      EventType          `bson:"event_type" json:"event_type"`
	UserID         string             `bson:"user_id" json:"user_id"`
	ProcessedAt    time.Time          `bson:"processed_at" json:"processed_at"`
}
