package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore реестр состояний саг поверх MongoDB
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// MongoConfig конфигурация подключения к MongoDB
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// NewMongoStore создает новое хранилище поверх MongoDB
func NewMongoStore(ctx context.Context, config MongoConfig) (*MongoStore, error) {
	if config.Database == "" {
		config.Database = "sagalab"
	}
	if config.Collection == "" {
		config.Collection = "saga_records"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
	}, nil
}

func (s *MongoStore) Save(ctx context.Context, record *Record) error {
	filter := bson.M{"saga_id": record.SagaID}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, filter, record, opts); err != nil {
		return fmt.Errorf("failed to save saga record: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, sagaID string) (*Record, error) {
	var record Record
	err := s.collection.FindOne(ctx, bson.M{"saga_id": sagaID}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get saga record: %w", err)
	}
	if record.CompletedSteps == nil {
		record.CompletedSteps = []string{}
	}
	return &record, nil
}

func (s *MongoStore) List(ctx context.Context) ([]*Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list saga records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*Record
	for cursor.Next(ctx) {
		var record Record
		if err := cursor.Decode(&record); err != nil {
			return nil, fmt.Errorf("failed to decode saga record: %w", err)
		}
		if record.CompletedSteps == nil {
			record.CompletedSteps = []string{}
		}
		records = append(records, &record)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saga records: %w", err)
	}
	return records, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
