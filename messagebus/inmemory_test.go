package messagebus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/akrylov/sagalab/events"
)

func TestInMemoryTransport_PublishSubscribe(t *testing.T) {
	transport := NewInMemoryTransport()

	received := make(chan *Message, 1)
	err := transport.Subscribe("orders.test", func(ctx context.Context, msg *Message) error {
		received <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	err = transport.Publish(context.Background(), &Message{
		Subject: "orders.test",
		Data:    []byte("payload"),
		Headers: map[string]string{"key": "value"},
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-received:
		if string(msg.Data) != "payload" || msg.Headers["key"] != "value" {
			t.Errorf("Unexpected message: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Message was not delivered")
	}
}

func TestInMemoryTransport_ClosedRejectsPublish(t *testing.T) {
	transport := NewInMemoryTransport()

	if err := transport.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := transport.Publish(context.Background(), &Message{Subject: "x"}); err == nil {
		t.Error("Expected error publishing to closed transport")
	}
}

func TestBridgeMiddleware_MirrorsEvents(t *testing.T) {
	transport := NewInMemoryTransport()

	var mu sync.Mutex
	mirrored := make([]*Message, 0)
	err := transport.Subscribe("test.event", func(ctx context.Context, msg *Message) error {
		mu.Lock()
		mirrored = append(mirrored, msg)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	bus := events.NewInMemoryEventBus().WithMiddleware(BridgeMiddleware(transport, nil))

	event := events.NewBaseEvent("test.event", "agg-1")
	if err := bus.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		count := len(mirrored)
		mu.Unlock()
		if count == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Event was not mirrored to transport")
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if mirrored[0].Headers["event_id"] != event.EventID() {
		t.Errorf("Unexpected mirrored headers: %+v", mirrored[0].Headers)
	}
}
