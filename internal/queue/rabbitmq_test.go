package queue

import (
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestDecideDelivery(t *testing.T) {
	transient := errors.New("store unavailable")
	permanent := Permanent(errors.New("malformed envelope"))

	tests := []struct {
		name       string
		err        error
		retryCount int
		want       deliveryDecision
	}{
		{"success acks", nil, 0, decideAck},
		{"success acks even at max", nil, 3, decideAck},
		{"permanent dead-letters without retrying", permanent, 0, decideDeadLetter},
		{"transient first delivery requeues", transient, 0, decideRequeue},
		{"transient below max requeues", transient, 2, decideRequeue},
		{"transient at max dead-letters", transient, 3, decideDeadLetter},
		{"transient past max dead-letters", transient, 5, decideDeadLetter},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, decideDelivery(tc.err, tc.retryCount, 3))
		})
	}
}

func TestDecideDelivery_RetriesExhaust(t *testing.T) {
	// a message that keeps failing transiently is redelivered exactly
	// maxRetries times before it dead-letters
	const maxRetries = 3
	cause := errors.New("write conflict")

	retryCount := 0
	redeliveries := 0
	for decideDelivery(cause, retryCount, maxRetries) == decideRequeue {
		retryCount = int(requeueHeaders(retryCount, cause)["x-retry-count"].(int32))
		redeliveries++
	}

	assert.Equal(t, maxRetries, redeliveries)
	assert.Equal(t, decideDeadLetter, decideDelivery(cause, retryCount, maxRetries))

	headers := dlqHeaders(QueueRankingEvents, retryCount, cause)
	assert.Equal(t, int32(maxRetries), headers["x-retry-count"])
	assert.Equal(t, "write conflict", headers["x-error"])
	assert.Equal(t, QueueRankingEvents, headers["x-original-queue"])
}

func TestRequeueHeaders(t *testing.T) {
	headers := requeueHeaders(1, errors.New("boom"))
	assert.Equal(t, int32(2), headers["x-retry-count"])
	assert.Equal(t, "boom", headers["x-error"])
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, 1*time.Second, backoffDelay(0))
	assert.Equal(t, 2*time.Second, backoffDelay(1))
	assert.Equal(t, 4*time.Second, backoffDelay(2))
}

func TestDlqNameFor(t *testing.T) {
	assert.Equal(t, QueueRankingEventsDLQ, dlqNameFor(QueueRankingEvents))
	// the DLQ consumer's own failures stay on the DLQ
	assert.Equal(t, QueueRankingEventsDLQ, dlqNameFor(QueueRankingEventsDLQ))
}

func TestHeaderHelpers(t *testing.T) {
	headers := amqp.Table{
		"x-retry-count":    int32(2),
		"x-error":          "boom",
		"x-original-queue": QueueRankingEvents,
	}

	assert.Equal(t, 2, headerInt(headers, "x-retry-count"))
	assert.Equal(t, "boom", headerString(headers, "x-error"))
	assert.Equal(t, QueueRankingEvents, headerString(headers, "x-original-queue"))

	assert.Equal(t, 0, headerInt(nil, "x-retry-count"))
	assert.Equal(t, "", headerString(nil, "x-error"))
	assert.Equal(t, 0, headerInt(headers, "missing"))
}

func TestPermanentError(t *testing.T) {
	cause := errors.New("bad payload")
	wrapped := Permanent(cause)

	assert.True(t, IsPermanent(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "bad payload", wrapped.Error())

	assert.False(t, IsPermanent(cause))
	assert.Nil(t, Permanent(nil))
}
