package simulators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrInsufficientStock недостаточно товара на складе
var ErrInsufficientStock = errors.New("insufficient stock")

// Item позиция заказа
type Item struct {
	ProductID string  `json:"productId" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	Price     float64 `json:"price" binding:"required,gte=0"`
}

// Inventory симулятор склада. Хранит остатки по товарам и резервы
// по заказам. Резервирование атомарно: либо списываются все позиции
// заказа, либо ни одной.
type Inventory struct {
	mu           sync.Mutex
	stock        map[string]int
	reservations map[string]map[string]int
	decide       FailureDecider
	latency      time.Duration
	logger       *slog.Logger
}

// NewInventory создает симулятор склада с начальными остатками
func NewInventory(initialStock map[string]int) *Inventory {
	stock := make(map[string]int, len(initialStock))
	for productID, quantity := range initialStock {
		stock[productID] = quantity
	}
	return &Inventory{
		stock:        stock,
		reservations: make(map[string]map[string]int),
		decide:       NeverFail(),
		logger:       slog.Default(),
	}
}

// WithFailureDecider устанавливает стратегию сбоев
func (s *Inventory) WithFailureDecider(decide FailureDecider) *Inventory {
	s.decide = decide
	return s
}

// WithLatency устанавливает имитируемую задержку вызова
func (s *Inventory) WithLatency(latency time.Duration) *Inventory {
	s.latency = latency
	return s
}

// WithLogger устанавливает логгер
func (s *Inventory) WithLogger(logger *slog.Logger) *Inventory {
	s.logger = logger
	return s
}

// Reserve резервирует позиции заказа. Проверка и списание выполняются
// под одной блокировкой: запрос с хотя бы одной недоступной позицией
// не изменяет остатки вообще. Неизвестный товар трактуется как товар
// с нулевым остатком (бизнес-сбой, а не программная ошибка).
func (s *Inventory) Reserve(ctx context.Context, orderID string, items []Item) error {
	if err := simulateLatency(ctx, s.latency); err != nil {
		return err
	}
	if err := s.decide(orderID); err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("order %s has no items", orderID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Сначала проверяем все позиции
	for _, item := range items {
		available := s.stock[item.ProductID]
		if available < item.Quantity {
			return fmt.Errorf("%w: product %s (requested %d, available %d)",
				ErrInsufficientStock, item.ProductID, item.Quantity, available)
		}
	}

	// Затем списываем все позиции
	reservation := s.reservations[orderID]
	if reservation == nil {
		reservation = make(map[string]int)
		s.reservations[orderID] = reservation
	}
	for _, item := range items {
		s.stock[item.ProductID] -= item.Quantity
		reservation[item.ProductID] += item.Quantity
	}

	s.logger.Info("inventory reserved", "order_id", orderID, "items", len(items))
	return nil
}

// Compensate возвращает зарезервированные позиции заказа на склад.
// Для неизвестного заказа возвращает (false, nil): повторная или
// ошибочная компенсация - допустимый no-op.
func (s *Inventory) Compensate(ctx context.Context, orderID string) (bool, error) {
	if err := simulateLatency(ctx, s.latency); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reservation, ok := s.reservations[orderID]
	if !ok {
		s.logger.Warn("nothing to compensate in inventory", "order_id", orderID)
		return false, nil
	}

	for productID, quantity := range reservation {
		s.stock[productID] += quantity
	}
	delete(s.reservations, orderID)

	s.logger.Info("inventory reservation released", "order_id", orderID)
	return true, nil
}

// Snapshot возвращает копию текущих остатков
func (s *Inventory) Snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[string]int, len(s.stock))
	for productID, quantity := range s.stock {
		snapshot[productID] = quantity
	}
	return snapshot
}

// Available возвращает остаток товара
func (s *Inventory) Available(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[productID]
}
