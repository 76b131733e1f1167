package messagebus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig конфигурация для NATS транспорта
type NATSConfig struct {
	URL               string
	MaxReconnects     int
	ReconnectWait     time.Duration
	ConnectionTimeout time.Duration
}

// DefaultNATSConfig возвращает конфигурацию NATS по умолчанию
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:               nats.DefaultURL,
		MaxReconnects:     10,
		ReconnectWait:     2 * time.Second,
		ConnectionTimeout: 5 * time.Second,
	}
}

// NATSTransport транспорт поверх NATS
type NATSTransport struct {
	conn   *nats.Conn
	mu     sync.Mutex
	subs   []*nats.Subscription
	logger *slog.Logger
}

// NewNATSTransport создает новый NATS транспорт
func NewNATSTransport(config NATSConfig) (*NATSTransport, error) {
	if config.URL == "" {
		config.URL = nats.DefaultURL
	}

	logger := slog.Default()
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.Timeout(config.ConnectionTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSTransport{conn: conn, logger: logger}, nil
}

func (t *NATSTransport) Publish(ctx context.Context, msg *Message) error {
	natsMsg := nats.NewMsg(msg.Subject)
	natsMsg.Data = msg.Data
	if len(msg.Headers) > 0 {
		natsMsg.Header = make(nats.Header, len(msg.Headers))
		for key, value := range msg.Headers {
			natsMsg.Header.Set(key, value)
		}
	}
	if err := t.conn.PublishMsg(natsMsg); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	return nil
}

func (t *NATSTransport) Subscribe(subject string, handler Handler) error {
	sub, err := t.conn.Subscribe(subject, func(natsMsg *nats.Msg) {
		msg := &Message{
			Subject: natsMsg.Subject,
			Data:    natsMsg.Data,
			Headers: make(map[string]string, len(natsMsg.Header)),
		}
		for key := range natsMsg.Header {
			msg.Headers[key] = natsMsg.Header.Get(key)
		}
		if err := handler(context.Background(), msg); err != nil {
			t.logger.Error("message handler failed",
				"subject", natsMsg.Subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	t.mu.Lock()
	t.subs = append(t.subs, sub)
	t.mu.Unlock()
	return nil
}

func (t *NATSTransport) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, sub := range t.subs {
		_ = sub.Unsubscribe()
	}
	t.subs = nil
	if err := t.conn.Drain(); err != nil {
		t.conn.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
