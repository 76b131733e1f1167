package store

import (
	"context"
	"fmt"
)

// Типы хранилищ
const (
	TypeMemory   = "memory"
	TypeRedis    = "redis"
	TypePostgres = "postgres"
	TypeMongoDB  = "mongodb"
)

// Config конфигурация реестра состояний саг
type Config struct {
	Type     string
	Redis    RedisConfig
	Postgres PostgresConfig
	Mongo    MongoConfig
}

// New создает реестр состояний саг указанного типа
func New(ctx context.Context, config Config) (Store, error) {
	switch config.Type {
	case TypeMemory, "":
		return NewMemoryStore(), nil
	case TypeRedis:
		return NewRedisStore(ctx, config.Redis)
	case TypePostgres:
		return NewPostgresStore(ctx, config.Postgres)
	case TypeMongoDB:
		return NewMongoStore(ctx, config.Mongo)
	default:
		return nil, fmt.Errorf("unknown store type: %s", config.Type)
	}
}
