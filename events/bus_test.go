package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryEventBus_PublishSubscribe(t *testing.T) {
	bus := NewInMemoryEventBus()

	received := make([]Event, 0)
	handler := &HandlerFunc{Type: "test.event", Fn: func(ctx context.Context, event Event) error {
		received = append(received, event)
		return nil
	}}

	if err := bus.Subscribe("test.event", handler); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	event := NewBaseEvent("test.event", "agg-1")
	if err := bus.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(received) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(received))
	}
	if received[0].EventID() != event.EventID() {
		t.Errorf("Received wrong event: %s", received[0].EventID())
	}
}

func TestInMemoryEventBus_NoHandlers(t *testing.T) {
	bus := NewInMemoryEventBus()

	if err := bus.Publish(context.Background(), NewBaseEvent("unknown.event", "agg-1")); err != nil {
		t.Fatalf("Publish to event type without handlers must not fail: %v", err)
	}
}

func TestInMemoryEventBus_DuplicateSubscribe(t *testing.T) {
	bus := NewInMemoryEventBus()

	handler := &HandlerFunc{Type: "test.event", Fn: func(ctx context.Context, event Event) error {
		return nil
	}}

	if err := bus.Subscribe("test.event", handler); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := bus.Subscribe("test.event", handler); err == nil {
		t.Error("Expected error on duplicate subscribe")
	}
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus()

	calls := 0
	handler := &HandlerFunc{Type: "test.event", Fn: func(ctx context.Context, event Event) error {
		calls++
		return nil
	}}

	if err := bus.Subscribe("test.event", handler); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := bus.Unsubscribe("test.event", handler); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}

	if err := bus.Publish(context.Background(), NewBaseEvent("test.event", "agg-1")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("Handler called after unsubscribe: %d calls", calls)
	}
}

func TestInMemoryEventBus_HandlerError(t *testing.T) {
	bus := NewInMemoryEventBus()

	handlerErr := errors.New("handler failed")
	handler := &HandlerFunc{Type: "test.event", Fn: func(ctx context.Context, event Event) error {
		return handlerErr
	}}
	if err := bus.Subscribe("test.event", handler); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	err := bus.Publish(context.Background(), NewBaseEvent("test.event", "agg-1"))
	if !errors.Is(err, handlerErr) {
		t.Errorf("Expected handler error to propagate, got %v", err)
	}
}

func TestInMemoryEventBus_Middleware(t *testing.T) {
	order := make([]string, 0)

	bus := NewInMemoryEventBus().
		WithMiddleware(func(ctx context.Context, event Event, next func(ctx context.Context, event Event) error) error {
			order = append(order, "first")
			return next(ctx, event)
		}).
		WithMiddleware(func(ctx context.Context, event Event, next func(ctx context.Context, event Event) error) error {
			order = append(order, "second")
			return next(ctx, event)
		})

	handler := &HandlerFunc{Type: "test.event", Fn: func(ctx context.Context, event Event) error {
		order = append(order, "handler")
		return nil
	}}
	if err := bus.Subscribe("test.event", handler); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := bus.Publish(context.Background(), NewBaseEvent("test.event", "agg-1")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "handler" {
		t.Errorf("Unexpected middleware order: %v", order)
	}
}

func TestInMemoryEventBus_Shutdown(t *testing.T) {
	bus := NewInMemoryEventBus()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := bus.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := bus.Publish(context.Background(), NewBaseEvent("test.event", "agg-1")); err == nil {
		t.Error("Expected error publishing to stopped bus")
	}
}
