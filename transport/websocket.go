package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/akrylov/sagalab/events"
	"github.com/akrylov/sagalab/orders"
	"github.com/akrylov/sagalab/saga"
)

// FeedConfig конфигурация WebSocket трансляции событий
type FeedConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	WriteWait       time.Duration
}

// DefaultFeedConfig возвращает конфигурацию трансляции по умолчанию
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		WriteWait:       10 * time.Second,
	}
}

// feedMessage сообщение трансляции
type feedMessage struct {
	EventID     string    `json:"eventId"`
	EventType   string    `json:"eventType"`
	AggregateID string    `json:"aggregateId"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// EventFeed транслирует события саг подключенным WebSocket клиентам.
// Клиенты только читают; входящие сообщения игнорируются.
type EventFeed struct {
	config   FeedConfig
	upgrader websocket.Upgrader
	bus      events.EventBus
	mu       sync.Mutex
	conns    map[*websocket.Conn]bool
	handlers []events.EventHandler
	logger   *slog.Logger
}

// NewEventFeed создает новую трансляцию событий
func NewEventFeed(config FeedConfig, bus events.EventBus) *EventFeed {
	return &EventFeed{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true // Демо-приложение, origin не проверяется
			},
		},
		bus:    bus,
		conns:  make(map[*websocket.Conn]bool),
		logger: slog.Default(),
	}
}

// WithLogger устанавливает логгер
func (f *EventFeed) WithLogger(logger *slog.Logger) *EventFeed {
	f.logger = logger
	return f
}

// feedEventTypes типы событий, попадающие в трансляцию
var feedEventTypes = []string{
	saga.EventSagaStarted,
	saga.EventStepStarted,
	saga.EventStepCompleted,
	saga.EventStepFailed,
	saga.EventCompensationStarted,
	saga.EventStepCompensated,
	saga.EventCompensationFinished,
	saga.EventSagaCompleted,
	saga.EventSagaFailed,
	orders.EventOrderCreated,
	orders.EventInventoryReserved,
	orders.EventPaymentProcessed,
	orders.EventOrderShipped,
}

// Register подписывает трансляцию на события саг
func (f *EventFeed) Register() error {
	for _, eventType := range feedEventTypes {
		handler := &events.HandlerFunc{Type: eventType, Fn: f.broadcast}
		if err := f.bus.Subscribe(eventType, handler); err != nil {
			return err
		}
		f.handlers = append(f.handlers, handler)
	}
	return nil
}

// Close отписывает трансляцию и закрывает все соединения
func (f *EventFeed) Close(ctx context.Context) error {
	for _, handler := range f.handlers {
		_ = f.bus.Unsubscribe(handler.EventType(), handler)
	}
	f.handlers = nil

	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		_ = conn.Close()
	}
	f.conns = make(map[*websocket.Conn]bool)
	return nil
}

// Handler обрабатывает подключение WebSocket клиента
func (f *EventFeed) Handler(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	f.mu.Lock()
	f.conns[conn] = true
	f.mu.Unlock()

	f.logger.Info("websocket client connected", "remote", conn.RemoteAddr().String())

	// Читаем до разрыва соединения, чтобы заметить отключение клиента
	go func() {
		defer f.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (f *EventFeed) broadcast(ctx context.Context, event events.Event) error {
	message := feedMessage{
		EventID:     event.EventID(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(f.config.WriteWait))
		if err := conn.WriteJSON(message); err != nil {
			f.logger.Warn("websocket write failed, dropping client",
				"remote", conn.RemoteAddr().String(), "error", err)
			_ = conn.Close()
			delete(f.conns, conn)
		}
	}
	return nil
}

func (f *EventFeed) drop(conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conns[conn] {
		_ = conn.Close()
		delete(f.conns, conn)
	}
}
