package messagebus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// InMemoryTransport транспорт в памяти. Имитирует асинхронную доставку
// брокера: обработчики вызываются в отдельных горутинах.
type InMemoryTransport struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
	closed   bool
	logger   *slog.Logger
}

// NewInMemoryTransport создает новый транспорт в памяти
func NewInMemoryTransport() *InMemoryTransport {
	return &InMemoryTransport{
		handlers: make(map[string][]Handler),
		logger:   slog.Default(),
	}
}

func (t *InMemoryTransport) Publish(ctx context.Context, msg *Message) error {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return fmt.Errorf("transport is closed")
	}
	handlers := append([]Handler(nil), t.handlers[msg.Subject]...)
	t.wg.Add(len(handlers))
	t.mu.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			defer t.wg.Done()
			if err := h(context.WithoutCancel(ctx), msg); err != nil {
				t.logger.Error("message handler failed",
					"subject", msg.Subject, "error", err)
			}
		}(handler)
	}
	return nil
}

func (t *InMemoryTransport) Subscribe(subject string, handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transport is closed")
	}
	t.handlers[subject] = append(t.handlers[subject], handler)
	return nil
}

func (t *InMemoryTransport) Close(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("transport shutdown interrupted: %w", ctx.Err())
	}
}
