package queue

import (
	"context"
	"errors"
	"time"
)

type Broker interface {
	Publish(ctx context.Context, queueName string, message []byte) error
	Subscribe(ctx context.Context, queueName string, handler MessageHandler) error
	Close() error
}

// Message is one delivery plus the redelivery metadata carried in its headers.
type Message struct {
	Body          []byte
	RetryCount    int
	LastError     string
	OriginalQueue string
	Timestamp     time.Time
}

type MessageHandler func(ctx context.Context, msg Message) error

const (
	QueueRankingEvents    = "ranking-events"
	QueueRankingEventsDLQ = "ranking-events-dlq"
)

// PermanentError marks a handler failure that redelivery cannot fix (malformed
// payload, failed validation). The broker routes such messages straight to the
// DLQ instead of retrying.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so the broker treats it as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError anywhere in its chain.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}
