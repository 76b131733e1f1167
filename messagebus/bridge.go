package messagebus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/akrylov/sagalab/events"
)

// Envelope сериализованное представление доменного события для брокера
type Envelope struct {
	EventID     string                 `json:"eventId"`
	EventType   string                 `json:"eventType"`
	AggregateID string                 `json:"aggregateId"`
	OccurredAt  time.Time              `json:"occurredAt"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// BridgeMiddleware возвращает middleware шины событий, зеркалирующее
// каждое событие во внешний брокер. Доставка во внешний брокер
// best-effort: ошибка публикации логируется и не мешает локальным
// подписчикам.
func BridgeMiddleware(transport Transport, logger *slog.Logger) events.EventMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, event events.Event, next func(ctx context.Context, event events.Event) error) error {
		if err := forward(ctx, transport, event); err != nil {
			logger.Warn("failed to mirror event to broker",
				"event_type", event.EventType(), "error", err)
		}
		return next(ctx, event)
	}
}

func forward(ctx context.Context, transport Transport, event events.Event) error {
	envelope := Envelope{
		EventID:     event.EventID(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Metadata:    event.Metadata(),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return transport.Publish(ctx, &Message{
		Subject: event.EventType(),
		Data:    data,
		Headers: map[string]string{
			"event_id":     event.EventID(),
			"aggregate_id": event.AggregateID(),
		},
	})
}
