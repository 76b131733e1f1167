// Package saga предоставляет реализацию Saga Pattern: шаги с компенсациями,
// последовательный оркестратор и события жизненного цикла.
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Step шаг саги
type Step interface {
	// Name возвращает имя шага
	Name() string
	// Execute выполняет forward action (основное действие)
	Execute(ctx context.Context, sagaCtx *Context) error
	// Compensate выполняет compensating action (откат изменений)
	Compensate(ctx context.Context, sagaCtx *Context) error
	// Timeout возвращает таймаут выполнения шага (0 - без ограничения)
	Timeout() time.Duration
	// RetryPolicy возвращает политику повторов (nil - без повторов)
	RetryPolicy() *RetryPolicy
}

// RetryPolicy политика повторов для шага
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Backoff      float64
}

// ShouldRetry определяет, нужно ли повторить попытку
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	// Отмена контекста повторами не лечится
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return attempt < p.MaxAttempts-1
}

// CalculateDelay вычисляет задержку перед повтором
func (p *RetryPolicy) CalculateDelay(attempt int) time.Duration {
	return time.Duration(float64(p.InitialDelay) * float64(attempt+1) * p.Backoff)
}

// NoRetry создает политику без повторов
func NoRetry() *RetryPolicy {
	return &RetryPolicy{MaxAttempts: 1, Backoff: 1.0}
}

// SimpleRetry создает политику с фиксированной задержкой
func SimpleRetry(maxAttempts int) *RetryPolicy {
	return &RetryPolicy{MaxAttempts: maxAttempts, InitialDelay: time.Second, Backoff: 1.0}
}

// ExponentialBackoff создает политику с растущей задержкой
func ExponentialBackoff(maxAttempts int, initialDelay time.Duration, backoff float64) *RetryPolicy {
	return &RetryPolicy{MaxAttempts: maxAttempts, InitialDelay: initialDelay, Backoff: backoff}
}

// BaseStep базовая реализация Step
type BaseStep struct {
	name             string
	executeAction    func(ctx context.Context, sagaCtx *Context) error
	compensateAction func(ctx context.Context, sagaCtx *Context) error
	timeout          time.Duration
	retryPolicy      *RetryPolicy
}

// NewBaseStep создает новый базовый шаг
func NewBaseStep(name string) *BaseStep {
	return &BaseStep{name: name}
}

func (s *BaseStep) Name() string {
	return s.name
}

func (s *BaseStep) Execute(ctx context.Context, sagaCtx *Context) error {
	if s.executeAction == nil {
		return fmt.Errorf("execute action not set for step %s", s.name)
	}
	return s.executeAction(ctx, sagaCtx)
}

func (s *BaseStep) Compensate(ctx context.Context, sagaCtx *Context) error {
	if s.compensateAction == nil {
		// Отсутствие компенсации - это no-op, а не ошибка
		return nil
	}
	return s.compensateAction(ctx, sagaCtx)
}

func (s *BaseStep) Timeout() time.Duration {
	return s.timeout
}

func (s *BaseStep) RetryPolicy() *RetryPolicy {
	return s.retryPolicy
}

// WithExecute устанавливает execute action
func (s *BaseStep) WithExecute(action func(ctx context.Context, sagaCtx *Context) error) *BaseStep {
	s.executeAction = action
	return s
}

// WithCompensate устанавливает compensate action
func (s *BaseStep) WithCompensate(action func(ctx context.Context, sagaCtx *Context) error) *BaseStep {
	s.compensateAction = action
	return s
}

// WithTimeout устанавливает timeout
func (s *BaseStep) WithTimeout(timeout time.Duration) *BaseStep {
	s.timeout = timeout
	return s
}

// WithRetry устанавливает retry policy
func (s *BaseStep) WithRetry(policy *RetryPolicy) *BaseStep {
	s.retryPolicy = policy
	return s
}
