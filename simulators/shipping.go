package simulators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrShippingUnavailable служба доставки недоступна
var ErrShippingUnavailable = errors.New("shipping unavailable")

// Shipping симулятор службы доставки. Хранит трекинг-номера по заказам.
type Shipping struct {
	mu        sync.Mutex
	shipments map[string]string
	decide    FailureDecider
	latency   time.Duration
	logger    *slog.Logger
}

// NewShipping создает симулятор службы доставки
func NewShipping() *Shipping {
	return &Shipping{
		shipments: make(map[string]string),
		decide:    NeverFail(),
		logger:    slog.Default(),
	}
}

// WithFailureDecider устанавливает стратегию сбоев
func (s *Shipping) WithFailureDecider(decide FailureDecider) *Shipping {
	s.decide = decide
	return s
}

// WithLatency устанавливает имитируемую задержку вызова
func (s *Shipping) WithLatency(latency time.Duration) *Shipping {
	s.latency = latency
	return s
}

// WithLogger устанавливает логгер
func (s *Shipping) WithLogger(logger *slog.Logger) *Shipping {
	s.logger = logger
	return s
}

// Ship оформляет доставку заказа и возвращает трекинг-номер
func (s *Shipping) Ship(ctx context.Context, orderID string) (string, error) {
	if err := simulateLatency(ctx, s.latency); err != nil {
		return "", err
	}
	if err := s.decide(orderID); err != nil {
		return "", err
	}

	trackingID := "TRK-" + strings.ToUpper(uuid.New().String()[:8])

	s.mu.Lock()
	s.shipments[orderID] = trackingID
	s.mu.Unlock()

	s.logger.Info("order shipped", "order_id", orderID, "tracking_id", trackingID)
	return trackingID, nil
}

// Compensate отменяет доставку заказа. Для заказа без доставки
// возвращает (false, nil).
func (s *Shipping) Compensate(ctx context.Context, orderID string) (bool, error) {
	if err := simulateLatency(ctx, s.latency); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	trackingID, ok := s.shipments[orderID]
	if !ok {
		s.logger.Warn("nothing to cancel in shipping", "order_id", orderID)
		return false, nil
	}
	delete(s.shipments, orderID)

	s.logger.Info("shipment cancelled", "order_id", orderID, "tracking_id", trackingID)
	return true, nil
}

// Tracking возвращает трекинг-номер заказа
func (s *Shipping) Tracking(orderID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trackingID, ok := s.shipments[orderID]
	return trackingID, ok
}
