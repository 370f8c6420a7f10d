package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQBroker struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	url        string
	maxRetries int
	mu         sync.RWMutex
}

type Config struct {
	URL           string
	MaxRetries    int
	RetryDelay    time.Duration
	PrefetchCount int
}

func NewRabbitMQBroker(cfg Config) (*RabbitMQBroker, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// set QoS; prefetch bounds the in-flight batch per consumer
	if err := channel.Qos(cfg.PrefetchCount, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	broker := &RabbitMQBroker{
		conn:       conn,
		channel:    channel,
		url:        cfg.URL,
		maxRetries: maxRetries,
	}

	// declare queues
	queues := []string{
		QueueRankingEvents,
		QueueRankingEventsDLQ,
	}

	for _, queueName := range queues {
		if err := broker.declareQueue(queueName); err != nil {
			broker.Close()
			return nil, err
		}
	}

	return broker, nil
}

func (b *RabbitMQBroker) declareQueue(queueName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	return nil
}

func (b *RabbitMQBroker) Publish(ctx context.Context, queueName string, message []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	err := b.channel.PublishWithContext(
		ctx,
		"",        // exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         message,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

func (b *RabbitMQBroker) Subscribe(ctx context.Context, queueName string, handler MessageHandler) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	msgs, err := b.channel.Consume(
		queueName, // queue
		"",        // consumer
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				b.handleMessage(ctx, msg, handler, queueName)
			}
		}
	}()

	return nil
}

type deliveryDecision int

const (
	decideAck deliveryDecision = iota
	decideRequeue
	decideDeadLetter
)

// decideDelivery picks what happens to a delivery after its handler returns:
// success acks, permanent failures dead-letter without retrying, transient
// failures requeue until maxRetries deliveries, then dead-letter.
func decideDelivery(err error, retryCount, maxRetries int) deliveryDecision {
	switch {
	case err == nil:
		return decideAck
	case IsPermanent(err):
		return decideDeadLetter
	case retryCount < maxRetries:
		return decideRequeue
	}
	return decideDeadLetter
}

// backoffDelay is the requeue delay before delivery retryCount+1: 2^retryCount seconds.
func backoffDelay(retryCount int) time.Duration {
	return time.Duration(1<<retryCount) * time.Second
}

func requeueHeaders(retryCount int, cause error) amqp.Table {
	return amqp.Table{
		"x-retry-count": int32(retryCount + 1),
		"x-error":       cause.Error(),
	}
}

func dlqHeaders(queueName string, retryCount int, cause error) amqp.Table {
	return amqp.Table{
		"x-original-queue": queueName,
		"x-retry-count":    int32(retryCount),
		"x-error":          cause.Error(),
	}
}

// dlqNameFor returns the dead-letter queue for queueName. A failing DLQ
// consumer re-queues to the DLQ itself; nothing is dropped.
func dlqNameFor(queueName string) string {
	if strings.HasSuffix(queueName, "-dlq") {
		return queueName
	}
	return queueName + "-dlq"
}

func (b *RabbitMQBroker) handleMessage(ctx context.Context, msg amqp.Delivery, handler MessageHandler, queueName string) {
	delivery := Message{
		Body:          msg.Body,
		RetryCount:    headerInt(msg.Headers, "x-retry-count"),
		LastError:     headerString(msg.Headers, "x-error"),
		OriginalQueue: headerString(msg.Headers, "x-original-queue"),
		Timestamp:     msg.Timestamp,
	}
	if delivery.OriginalQueue == "" {
		delivery.OriginalQueue = queueName
	}

	err := handler(ctx, delivery)

	switch decideDelivery(err, delivery.RetryCount, b.maxRetries) {
	case decideRequeue:
		// republish after the backoff from a timer, off the consumer
		// goroutine, so the other prefetched messages keep flowing
		headers := requeueHeaders(delivery.RetryCount, err)
		body, contentType := msg.Body, msg.ContentType
		time.AfterFunc(backoffDelay(delivery.RetryCount), func() {
			b.publishRaw(context.Background(), queueName, body, contentType, headers)
		})
	case decideDeadLetter:
		b.publishRaw(ctx, dlqNameFor(queueName), msg.Body, msg.ContentType,
			dlqHeaders(queueName, delivery.RetryCount, err))
	}

	msg.Ack(false)
}

func (b *RabbitMQBroker) publishRaw(ctx context.Context, queueName string, body []byte, contentType string, headers amqp.Table) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_ = b.channel.PublishWithContext(
		ctx,
		"",
		queueName,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  contentType,
			Body:         body,
			Headers:      headers,
			Timestamp:    time.Now(),
		},
	)
}

func (b *RabbitMQBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

func headerInt(headers amqp.Table, key string) int {
	if headers == nil {
		return 0
	}
	if count, ok := headers[key].(int32); ok {
		return int(count)
	}
	return 0
}

func headerString(headers amqp.Table, key string) string {
	if headers == nil {
		return ""
	}
	if val, ok := headers[key].(string); ok {
		return val
	}
	return ""
}
