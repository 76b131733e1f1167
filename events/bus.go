// Package events предоставляет реализацию EventBus.
package events

import (
	"context"
	"fmt"
	"sync"
)

// EventMiddleware middleware для событий
type EventMiddleware func(ctx context.Context, event Event, next func(ctx context.Context, event Event) error) error

// InMemoryEventBus синхронная шина событий в памяти.
//
// Доставка: каждое событие вручается всем подписчикам его типа в порядке
// подписки, в горутине публикующего. Гарантий доставки за пределами
// процесса нет - для внешней видимости событий используется мост
// messagebus.BridgeMiddleware.
type InMemoryEventBus struct {
	handlers   map[string][]EventHandler
	middleware []EventMiddleware
	mu         sync.RWMutex
	wg         sync.WaitGroup
	shutdownMu sync.Mutex
	stopped    bool
}

// NewInMemoryEventBus создает новую шину событий
func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{
		handlers:   make(map[string][]EventHandler),
		middleware: make([]EventMiddleware, 0),
	}
}

// WithMiddleware добавляет middleware к шине
func (b *InMemoryEventBus) WithMiddleware(middleware EventMiddleware) *InMemoryEventBus {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middleware = append(b.middleware, middleware)
	return b
}

// Publish публикует событие всем подписчикам его типа
func (b *InMemoryEventBus) Publish(ctx context.Context, event Event) error {
	b.shutdownMu.Lock()
	if b.stopped {
		b.shutdownMu.Unlock()
		return fmt.Errorf("event bus is stopped")
	}
	b.wg.Add(1)
	b.shutdownMu.Unlock()
	defer b.wg.Done()

	next := func(ctx context.Context, event Event) error {
		return b.dispatch(ctx, event)
	}

	for i := len(b.middleware) - 1; i >= 0; i-- {
		mw := b.middleware[i]
		prevNext := next
		next = func(ctx context.Context, event Event) error {
			return mw(ctx, event, prevNext)
		}
	}

	return next(ctx, event)
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := make([]EventHandler, len(b.handlers[event.EventType()]))
	copy(handlers, b.handlers[event.EventType()])
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			return fmt.Errorf("handler for %s failed: %w", event.EventType(), err)
		}
	}
	return nil
}

// Subscribe подписывается на тип события
func (b *InMemoryEventBus) Subscribe(eventType string, handler EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, h := range b.handlers[eventType] {
		if h == handler {
			return fmt.Errorf("handler already subscribed to event type %s", eventType)
		}
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Unsubscribe отписывается от типа события
func (b *InMemoryEventBus) Unsubscribe(eventType string, handler EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[eventType]
	for i, h := range handlers {
		if h == handler {
			b.handlers[eventType] = append(handlers[:i:i], handlers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("handler not subscribed to event type %s", eventType)
}

// Shutdown корректно завершает работу шины
func (b *InMemoryEventBus) Shutdown(ctx context.Context) error {
	b.shutdownMu.Lock()
	if b.stopped {
		b.shutdownMu.Unlock()
		return nil
	}
	b.stopped = true
	b.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus shutdown interrupted: %w", ctx.Err())
	}
}
