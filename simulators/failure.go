// Package simulators предоставляет симуляторы внешних ресурсов
// (склад, платежи, доставка) для демонстрации saga pattern.
// Каждый симулятор владеет только собственным состоянием; сбои
// управляются внедряемой стратегией FailureDecider.
package simulators

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// FailureDecider стратегия принятия решения о сбое операции.
// Возвращает ненулевую ошибку, если операция для указанного заказа
// должна завершиться бизнес-сбоем.
type FailureDecider func(orderID string) error

// NeverFail создает стратегию без сбоев
func NeverFail() FailureDecider {
	return func(orderID string) error {
		return nil
	}
}

// AlwaysFail создает стратегию, при которой каждая операция
// завершается указанной ошибкой
func AlwaysFail(err error) FailureDecider {
	return func(orderID string) error {
		return err
	}
}

// FailForOrders создает стратегию сбоя для перечисленных заказов
func FailForOrders(err error, orderIDs ...string) FailureDecider {
	failing := make(map[string]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		failing[id] = struct{}{}
	}
	return func(orderID string) error {
		if _, ok := failing[orderID]; ok {
			return err
		}
		return nil
	}
}

// FailWithRate создает вероятностную стратегию сбоя:
// rate=0.2 означает сбой примерно 20% операций
func FailWithRate(rate float64, err error) FailureDecider {
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func(orderID string) error {
		mu.Lock()
		roll := rng.Float64()
		mu.Unlock()
		if roll < rate {
			return err
		}
		return nil
	}
}

// simulateLatency имитирует задержку внешнего вызова с учетом контекста
func simulateLatency(ctx context.Context, latency time.Duration) error {
	if latency <= 0 {
		return nil
	}
	timer := time.NewTimer(latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
