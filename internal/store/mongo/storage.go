package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Storage struct {
	client   *mongo.Client
	database *mongo.Database
	config   Config
}

type Config struct {
	URI          string
	Database     string
	Timeout      time.Duration
	DLQRetention time.Duration
}

func New(cfg Config) (*Storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	database := client.Database(cfg.Database)

	return &Storage{
		client:   client,
		database: database,
		config:   cfg,
	}, nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Storage) Database() *mongo.Database {
	return s.database
}

// WithTransaction runs fn inside a single multi-document transaction. The
// session context passed to fn must flow into every repository call so the
// reads and writes share one atomic boundary. The driver retries fn on
// transient transaction errors (write conflicts between concurrent workers on
// the same scope), so fn must be safe to re-run.
func (s *Storage) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

func (s *Storage) CreateIndexes(ctx context.Context) error {
	// one ranking per dish per scope, and unique ranks within a scope
	rankingsIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "dish_type", Value: 1}, {Key: "dish_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "dish_type", Value: 1}, {Key: "rank", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"rank": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "dish_id", Value: 1}, {Key: "rank", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "restaurant_id", Value: 1}},
		},
	}
	if _, err := s.database.Collection("rankings").Indexes().CreateMany(ctx, rankingsIndexes); err != nil {
		return fmt.Errorf("failed to create rankings indexes: %w", err)
	}

	historyIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ranking_id", Value: 1}, {Key: "seq", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := s.database.Collection("rank_history").Indexes().CreateMany(ctx, historyIndexes); err != nil {
		return fmt.Errorf("failed to create rank_history indexes: %w", err)
	}

	processedIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "idempotency_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := s.database.Collection("processed_events").Indexes().CreateMany(ctx, processedIndexes); err != nil {
		return fmt.Errorf("failed to create processed_events indexes: %w", err)
	}

	retention := s.config.DLQRetention
	if retention == 0 {
		retention = 14 * 24 * time.Hour
	}
	dlqIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "failed_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds())),
		},
		{
			Keys: bson.D{{Key: "event_type", Value: 1}, {Key: "failed_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "source", Value: 1}, {Key: "failed_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	}
	if _, err := s.database.Collection("dlq_messages").Indexes().CreateMany(ctx, dlqIndexes); err != nil {
		return fmt.Errorf("failed to create dlq_messages indexes: %w", err)
	}

	return nil
}
