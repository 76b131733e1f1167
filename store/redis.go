package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore реестр состояний саг поверх Redis. Записи хранятся
// как JSON, индекс сортировки по времени создания - в sorted set.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	indexKey  string
}

// RedisConfig конфигурация подключения к Redis
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisStore создает новое хранилище поверх Redis
func NewRedisStore(ctx context.Context, config RedisConfig) (*RedisStore, error) {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "saga"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		client:    client,
		keyPrefix: config.KeyPrefix,
		indexKey:  config.KeyPrefix + ":index",
	}, nil
}

func (s *RedisStore) recordKey(sagaID string) string {
	return fmt.Sprintf("%s:record:%s", s.keyPrefix, sagaID)
}

func (s *RedisStore) Save(ctx context.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal saga record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.recordKey(record.SagaID), data, 0)
	pipe.ZAdd(ctx, s.indexKey, redis.Z{
		Score:  float64(record.CreatedAt.UnixNano()),
		Member: record.SagaID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save saga record: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sagaID string) (*Record, error) {
	data, err := s.client.Get(ctx, s.recordKey(sagaID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get saga record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal saga record: %w", err)
	}
	return &record, nil
}

func (s *RedisStore) List(ctx context.Context) ([]*Record, error) {
	sagaIDs, err := s.client.ZRange(ctx, s.indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list saga records: %w", err)
	}

	records := make([]*Record, 0, len(sagaIDs))
	for _, sagaID := range sagaIDs {
		record, err := s.Get(ctx, sagaID)
		if errors.Is(err, ErrNotFound) {
			// Запись могла быть удалена между ZRange и Get
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *RedisStore) Close(ctx context.Context) error {
	return s.client.Close()
}
