package messagebus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig конфигурация для транспорта поверх Redis Streams
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	StreamPrefix  string
	StreamMaxLen  int64
	ConsumerGroup string
	ConsumerName  string
	BlockTimeout  time.Duration
}

// DefaultRedisConfig возвращает конфигурацию Redis по умолчанию
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:          "localhost:6379",
		StreamPrefix:  "sagalab",
		StreamMaxLen:  10000,
		ConsumerGroup: "sagalab-group",
		ConsumerName:  "sagalab-consumer",
		BlockTimeout:  5 * time.Second,
	}
}

// RedisTransport транспорт поверх Redis Streams.
// Каждый subject отображается на отдельный stream; подписчики читают
// через consumer group с подтверждением XAck.
type RedisTransport struct {
	config  RedisConfig
	client  *redis.Client
	cancel  context.CancelFunc
	rootCtx context.Context
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewRedisTransport создает новый транспорт поверх Redis Streams
func NewRedisTransport(config RedisConfig) (*RedisTransport, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("redis addr cannot be empty")
	}
	if config.ConsumerGroup == "" {
		config.ConsumerGroup = "sagalab-group"
	}
	if config.ConsumerName == "" {
		config.ConsumerName = "sagalab-consumer"
	}
	if config.BlockTimeout <= 0 {
		config.BlockTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &RedisTransport{
		config:  config,
		client:  client,
		cancel:  rootCancel,
		rootCtx: rootCtx,
		logger:  slog.Default(),
	}, nil
}

func (t *RedisTransport) streamName(subject string) string {
	if t.config.StreamPrefix == "" {
		return subject
	}
	return t.config.StreamPrefix + ":" + subject
}

func (t *RedisTransport) Publish(ctx context.Context, msg *Message) error {
	headers, err := json.Marshal(msg.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal message headers: %w", err)
	}

	args := redis.XAddArgs{
		Stream: t.streamName(msg.Subject),
		Values: map[string]interface{}{
			"subject": msg.Subject,
			"data":    msg.Data,
			"headers": headers,
		},
	}
	if t.config.StreamMaxLen > 0 {
		args.MaxLen = t.config.StreamMaxLen
		args.Approx = true
	}

	if _, err := t.client.XAdd(ctx, &args).Result(); err != nil {
		return fmt.Errorf("failed to publish to Redis stream: %w", err)
	}
	return nil
}

func (t *RedisTransport) Subscribe(subject string, handler Handler) error {
	stream := t.streamName(subject)

	err := t.client.XGroupCreateMkStream(t.rootCtx, stream, t.config.ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	t.wg.Add(1)
	go t.consume(stream, subject, handler)
	return nil
}

func (t *RedisTransport) consume(stream, subject string, handler Handler) {
	defer t.wg.Done()

	for {
		streams, err := t.client.XReadGroup(t.rootCtx, &redis.XReadGroupArgs{
			Group:    t.config.ConsumerGroup,
			Consumer: t.config.ConsumerName,
			Streams:  []string{stream, ">"},
			Count:    10,
			Block:    t.config.BlockTimeout,
		}).Result()

		if t.rootCtx.Err() != nil {
			return
		}
		if err == redis.Nil {
			continue
		}
		if err != nil {
			t.logger.Error("failed to read from Redis stream",
				"stream", stream, "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, result := range streams {
			for _, xmsg := range result.Messages {
				msg := t.decodeMessage(subject, xmsg)
				if err := handler(t.rootCtx, msg); err != nil {
					t.logger.Error("message handler failed",
						"subject", subject, "error", err)
				}
				// Подтверждаем в любом случае: повторная доставка
				// демо-событий не нужна
				_ = t.client.XAck(t.rootCtx, result.Stream, t.config.ConsumerGroup, xmsg.ID).Err()
			}
		}
	}
}

func (t *RedisTransport) decodeMessage(subject string, xmsg redis.XMessage) *Message {
	msg := &Message{Subject: subject}
	if data, ok := xmsg.Values["data"].(string); ok {
		msg.Data = []byte(data)
	}
	if rawHeaders, ok := xmsg.Values["headers"].(string); ok {
		if err := json.Unmarshal([]byte(rawHeaders), &msg.Headers); err != nil {
			t.logger.Warn("failed to unmarshal message headers",
				"subject", subject, "error", err)
		}
	}
	return msg
}

func (t *RedisTransport) Close(ctx context.Context) error {
	t.cancel()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("transport shutdown interrupted: %w", ctx.Err())
	}
	return t.client.Close()
}
