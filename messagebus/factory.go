package messagebus

import "fmt"

// Типы транспортов
const (
	TypeMemory = "memory"
	TypeNATS   = "nats"
	TypeRedis  = "redis"
	TypeKafka  = "kafka"
)

// Config конфигурация message bus
type Config struct {
	Type  string
	NATS  NATSConfig
	Redis RedisConfig
	Kafka KafkaConfig
}

// New создает транспорт указанного типа
func New(config Config) (Transport, error) {
	switch config.Type {
	case TypeMemory, "":
		return NewInMemoryTransport(), nil
	case TypeNATS:
		return NewNATSTransport(config.NATS)
	case TypeRedis:
		return NewRedisTransport(config.Redis)
	case TypeKafka:
		return NewKafkaTransport(config.Kafka)
	default:
		return nil, fmt.Errorf("unknown message bus type: %s", config.Type)
	}
}
