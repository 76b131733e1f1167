package messagebus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig конфигурация для Kafka транспорта
type KafkaConfig struct {
	Brokers      []string
	GroupID      string
	TopicPrefix  string
	BatchSize    int
	BatchTimeout time.Duration
	MinBytes     int
	MaxBytes     int
	MaxWait      time.Duration
	StartOffset  int64
}

// Validate проверяет корректность конфигурации
func (c KafkaConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("brokers cannot be empty")
	}
	for i, broker := range c.Brokers {
		if !strings.Contains(broker, ":") {
			return fmt.Errorf("broker[%d] must be in format host:port", i)
		}
	}
	return nil
}

// DefaultKafkaConfig возвращает конфигурацию Kafka по умолчанию
func DefaultKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Brokers:      []string{"localhost:9092"},
		GroupID:      "sagalab-group",
		TopicPrefix:  "sagalab",
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MinBytes:     1,
		MaxBytes:     10e6,
		MaxWait:      time.Second,
		StartOffset:  kafka.LastOffset,
	}
}

// KafkaTransport транспорт поверх Kafka
type KafkaTransport struct {
	config  KafkaConfig
	writer  *kafka.Writer
	cancel  context.CancelFunc
	rootCtx context.Context
	readers []*kafka.Reader
	mu      sync.Mutex
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewKafkaTransport создает новый Kafka транспорт
func NewKafkaTransport(config KafkaConfig) (*KafkaTransport, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka config: %w", err)
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              config.BatchSize,
		BatchTimeout:           config.BatchTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	return &KafkaTransport{
		config:  config,
		writer:  writer,
		cancel:  cancel,
		rootCtx: rootCtx,
		logger:  slog.Default(),
	}, nil
}

// topicName отображает subject на имя топика: точки в Kafka не
// рекомендуются, поэтому заменяются на дефисы
func (t *KafkaTransport) topicName(subject string) string {
	topic := strings.ReplaceAll(subject, ".", "-")
	if t.config.TopicPrefix == "" {
		return topic
	}
	return t.config.TopicPrefix + "-" + topic
}

func (t *KafkaTransport) Publish(ctx context.Context, msg *Message) error {
	kafkaMsg := kafka.Message{
		Topic: t.topicName(msg.Subject),
		Key:   []byte(msg.Subject),
		Value: msg.Data,
	}
	for key, value := range msg.Headers {
		kafkaMsg.Headers = append(kafkaMsg.Headers, kafka.Header{
			Key:   key,
			Value: []byte(value),
		})
	}

	if err := t.writer.WriteMessages(ctx, kafkaMsg); err != nil {
		return fmt.Errorf("failed to publish to Kafka: %w", err)
	}
	return nil
}

func (t *KafkaTransport) Subscribe(subject string, handler Handler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     t.config.Brokers,
		GroupID:     t.config.GroupID,
		Topic:       t.topicName(subject),
		MinBytes:    t.config.MinBytes,
		MaxBytes:    t.config.MaxBytes,
		MaxWait:     t.config.MaxWait,
		StartOffset: t.config.StartOffset,
	})

	t.mu.Lock()
	t.readers = append(t.readers, reader)
	t.mu.Unlock()

	t.wg.Add(1)
	go t.consume(reader, subject, handler)
	return nil
}

func (t *KafkaTransport) consume(reader *kafka.Reader, subject string, handler Handler) {
	defer t.wg.Done()

	for {
		kafkaMsg, err := reader.FetchMessage(t.rootCtx)
		if t.rootCtx.Err() != nil {
			return
		}
		if err != nil {
			t.logger.Error("failed to fetch from Kafka",
				"subject", subject, "error", err)
			time.Sleep(time.Second)
			continue
		}

		msg := &Message{
			Subject: subject,
			Data:    kafkaMsg.Value,
			Headers: make(map[string]string, len(kafkaMsg.Headers)),
		}
		for _, header := range kafkaMsg.Headers {
			msg.Headers[header.Key] = string(header.Value)
		}

		if err := handler(t.rootCtx, msg); err != nil {
			t.logger.Error("message handler failed",
				"subject", subject, "error", err)
		}
		if err := reader.CommitMessages(t.rootCtx, kafkaMsg); err != nil && t.rootCtx.Err() == nil {
			t.logger.Error("failed to commit Kafka message",
				"subject", subject, "error", err)
		}
	}
}

func (t *KafkaTransport) Close(ctx context.Context) error {
	t.cancel()

	t.mu.Lock()
	for _, reader := range t.readers {
		if err := reader.Close(); err != nil {
			t.logger.Warn("failed to close Kafka reader", "error", err)
		}
	}
	t.readers = nil
	t.mu.Unlock()

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
	return t.writer.Close()
}
