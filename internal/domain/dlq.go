package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DLQStatus string

const (
	DLQStatusDead     DLQStatus = "dead"
	DLQStatusReplayed DLQStatus = "replayed"
)

// DLQMessage is a persisted dead-letter entry. Payload holds the original
// envelope bytes untouched so a replay re-injects exactly what failed.
type DLQMessage struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID       string             `bson:"event_id" json:"event_id"`
	EventType     EventType          `bson:"event_type" json:"event_type"`
	Source        string             `bson:"source" json:"source"`
	TraceID       string             `bson:"trace_id" json:"trace_id"`
	UserID        string             `bson:"user_id" json:"user_id"`
	Payload       []byte             `bson:"payload" json:"-"`
	OriginalQueue string             `bson:"original_queue" json:"original_queue"`
	RetryCount    int                `bson:"retry_count" json:"retry_count"`
	LastError     string             `bson:"last_error" json:"last_error"`
	Status        DLQStatus          `bson:"status" json:"status"`
	FailedAt      time.Time          `bson:"failed_at" json:"failed_at"`
	ReplayedAt    *time.Time         `bson:"replayed_at,omitempty" json:"replayed_at,omitempty"`
}

// DLQFilter narrows DLQ listings. Zero values mean "any".
type DLQFilter struct {
	Source    string
	EventType EventType
	Status    DLQStatus
	From      time.Time
	To        time.Time
	Limit     int
}
