package simulators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrPaymentDeclined платеж отклонен платежной системой
var ErrPaymentDeclined = errors.New("payment declined")

// Payment симулятор платежной системы. Хранит списанные суммы по заказам.
type Payment struct {
	mu      sync.Mutex
	charges map[string]float64
	decide  FailureDecider
	latency time.Duration
	logger  *slog.Logger
}

// NewPayment создает симулятор платежной системы
func NewPayment() *Payment {
	return &Payment{
		charges: make(map[string]float64),
		decide:  NeverFail(),
		logger:  slog.Default(),
	}
}

// WithFailureDecider устанавливает стратегию сбоев
func (s *Payment) WithFailureDecider(decide FailureDecider) *Payment {
	s.decide = decide
	return s
}

// WithLatency устанавливает имитируемую задержку вызова
func (s *Payment) WithLatency(latency time.Duration) *Payment {
	s.latency = latency
	return s
}

// WithLogger устанавливает логгер
func (s *Payment) WithLogger(logger *slog.Logger) *Payment {
	s.logger = logger
	return s
}

// Process списывает сумму по заказу
func (s *Payment) Process(ctx context.Context, orderID string, amount float64) error {
	if err := simulateLatency(ctx, s.latency); err != nil {
		return err
	}
	if err := s.decide(orderID); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("invalid payment amount for order %s: %.2f", orderID, amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.charges[orderID] += amount

	s.logger.Info("payment processed", "order_id", orderID, "amount", amount)
	return nil
}

// Compensate возвращает списанную сумму заказа. Для заказа без платежа
// возвращает (false, nil).
func (s *Payment) Compensate(ctx context.Context, orderID string) (bool, error) {
	if err := simulateLatency(ctx, s.latency); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	amount, ok := s.charges[orderID]
	if !ok {
		s.logger.Warn("nothing to refund", "order_id", orderID)
		return false, nil
	}
	delete(s.charges, orderID)

	s.logger.Info("payment refunded", "order_id", orderID, "amount", amount)
	return true, nil
}

// Charged возвращает списанную сумму заказа
func (s *Payment) Charged(orderID string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	amount, ok := s.charges[orderID]
	return amount, ok
}
