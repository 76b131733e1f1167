package saga

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/akrylov/sagalab/events"
	"github.com/akrylov/sagalab/metrics"
	"github.com/akrylov/sagalab/store"
)

// ContextKeyOrderID ключ контекста саги, по которому оркестратор
// сериализует саги одного заказа.
const ContextKeyOrderID = "order_id"

// Orchestrator оркестратор саг. Выполняет шаги последовательно,
// при ошибке запускает компенсации в обратном порядке (best-effort:
// ошибка компенсации логируется и не прерывает откат остальных шагов).
type Orchestrator struct {
	eventBus           events.EventPublisher
	registry           store.Store
	logger             *slog.Logger
	metrics            *metrics.Metrics
	tracer             trace.Tracer
	locks              *KeyedMutex
	defaultStepTimeout time.Duration
}

// NewOrchestrator создает новый оркестратор
func NewOrchestrator(eventBus events.EventPublisher, registry store.Store) *Orchestrator {
	return &Orchestrator{
		eventBus: eventBus,
		registry: registry,
		logger:   slog.Default(),
		locks:    NewKeyedMutex(),
	}
}

// WithLogger устанавливает логгер
func (o *Orchestrator) WithLogger(logger *slog.Logger) *Orchestrator {
	o.logger = logger
	return o
}

// WithMetrics устанавливает сборщик метрик
func (o *Orchestrator) WithMetrics(m *metrics.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// WithTracer устанавливает трассировщик
func (o *Orchestrator) WithTracer(tracer trace.Tracer) *Orchestrator {
	o.tracer = tracer
	return o
}

// WithDefaultStepTimeout устанавливает таймаут для шагов,
// не задавших собственный
func (o *Orchestrator) WithDefaultStepTimeout(timeout time.Duration) *Orchestrator {
	o.defaultStepTimeout = timeout
	return o
}

// Execute выполняет сагу от начала до конца и возвращает результат.
// Результат с Status=failed - это бизнес-исход, а не ошибка вызова:
// error возвращается только при некорректном определении саги.
func (o *Orchestrator) Execute(ctx context.Context, def *Definition, sagaCtx *Context) (*Result, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid saga definition: %w", err)
	}
	if sagaCtx == nil {
		sagaCtx = NewContext()
	}

	sagaID := uuid.New().String()
	sagaCtx.Set("saga_id", sagaID)

	// Саги одного заказа выполняются строго последовательно
	if orderID := sagaCtx.GetString(ContextKeyOrderID); orderID != "" {
		o.locks.Lock(orderID)
		defer o.locks.Unlock(orderID)
	}

	if o.tracer != nil {
		var span trace.Span
		ctx, span = o.tracer.Start(ctx, "saga.execute",
			trace.WithAttributes(
				attribute.String("saga.id", sagaID),
				attribute.String("saga.name", def.Name()),
			))
		defer span.End()
	}

	return o.run(ctx, def, sagaCtx, sagaID), nil
}

func (o *Orchestrator) run(ctx context.Context, def *Definition, sagaCtx *Context, sagaID string) *Result {
	startedAt := time.Now()
	machine := newLifecycleMachine()
	_ = machine.Trigger(triggerStart)

	record := &store.Record{
		SagaID:         sagaID,
		OrderID:        sagaCtx.GetString(ContextKeyOrderID),
		SagaName:       def.Name(),
		Status:         string(StatusInProgress),
		CompletedSteps: []string{},
		CreatedAt:      startedAt,
		UpdatedAt:      startedAt,
	}
	o.saveRecord(ctx, record)

	o.publish(ctx, NewSagaStartedEvent(sagaID, def.Name()))
	o.metrics.SagaStarted(ctx, def.Name())
	o.logger.Info("saga started", "saga_id", sagaID, "saga_name", def.Name())

	completed := make([]string, 0, len(def.Steps()))
	completedSteps := make([]Step, 0, len(def.Steps()))

	for _, step := range def.Steps() {
		o.publish(ctx, NewStepStartedEvent(sagaID, step.Name()))

		err := o.executeStep(ctx, step, sagaCtx, sagaID)
		if err != nil {
			o.logger.Warn("saga step failed",
				"saga_id", sagaID, "step", step.Name(), "error", err)
			o.publish(ctx, NewStepFailedEvent(sagaID, step.Name(), err.Error()))
			o.metrics.StepFailed(ctx, def.Name(), step.Name())

			_ = machine.Trigger(triggerStepFailed)
			o.compensate(ctx, sagaCtx, sagaID, completedSteps, completed)
			_ = machine.Trigger(triggerCompensated)

			record.Status = string(StatusFailed)
			record.FailedStep = step.Name()
			record.Error = err.Error()
			record.UpdatedAt = time.Now()
			o.saveRecord(ctx, record)

			o.publish(ctx, NewSagaFailedEvent(sagaID, def.Name(), step.Name(), err.Error()))
			o.metrics.SagaFailed(ctx, def.Name(), step.Name())
			o.logger.Info("saga failed",
				"saga_id", sagaID, "failed_step", step.Name(), "duration", time.Since(startedAt))

			return &Result{
				SagaID:         sagaID,
				SagaName:       def.Name(),
				Status:         StatusFailed,
				CompletedSteps: completed,
				FailedStep:     step.Name(),
				Err:            err,
			}
		}

		completed = append(completed, step.Name())
		completedSteps = append(completedSteps, step)
		record.CompletedSteps = append(record.CompletedSteps, step.Name())
		record.UpdatedAt = time.Now()
		o.saveRecord(ctx, record)

		o.publish(ctx, NewStepCompletedEvent(sagaID, step.Name()))
		o.metrics.StepCompleted(ctx, def.Name(), step.Name())
	}

	_ = machine.Trigger(triggerComplete)
	record.Status = string(StatusCompleted)
	record.UpdatedAt = time.Now()
	o.saveRecord(ctx, record)

	o.publish(ctx, NewSagaCompletedEvent(sagaID, def.Name(), completed))
	o.metrics.SagaCompleted(ctx, def.Name(), time.Since(startedAt))
	o.logger.Info("saga completed",
		"saga_id", sagaID, "saga_name", def.Name(), "duration", time.Since(startedAt))

	return &Result{
		SagaID:         sagaID,
		SagaName:       def.Name(),
		Status:         StatusCompleted,
		CompletedSteps: completed,
	}
}

// executeStep выполняет один шаг с учетом его таймаута и политики повторов
func (o *Orchestrator) executeStep(ctx context.Context, step Step, sagaCtx *Context, sagaID string) error {
	timeout := step.Timeout()
	if timeout == 0 {
		timeout = o.defaultStepTimeout
	}

	policy := step.RetryPolicy()
	if policy == nil {
		policy = NoRetry()
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := policy.CalculateDelay(attempt - 1)
			o.logger.Debug("retrying saga step",
				"saga_id", sagaID, "step", step.Name(), "attempt", attempt+1, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		stepCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, timeout)
		}

		lastErr = step.Execute(stepCtx, sagaCtx)
		if cancel != nil {
			cancel()
		}
		if lastErr == nil {
			return nil
		}
		if !policy.ShouldRetry(lastErr, attempt) {
			break
		}
	}
	return lastErr
}

// compensate откатывает выполненные шаги в обратном порядке
func (o *Orchestrator) compensate(ctx context.Context, sagaCtx *Context, sagaID string, steps []Step, names []string) {
	if len(steps) == 0 {
		return
	}

	if o.tracer != nil {
		var span trace.Span
		ctx, span = o.tracer.Start(ctx, "saga.compensate",
			trace.WithAttributes(attribute.String("saga.id", sagaID)))
		defer span.End()
	}

	o.publish(ctx, NewCompensationStartedEvent(sagaID, names))

	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		if err := step.Compensate(ctx, sagaCtx); err != nil {
			// Best-effort: продолжаем откат остальных шагов
			o.logger.Error("saga step compensation failed",
				"saga_id", sagaID, "step", step.Name(), "error", err)
			o.metrics.CompensationFailed(ctx, step.Name())
			o.recordSpanError(ctx, err)
			continue
		}
		o.publish(ctx, NewStepCompensatedEvent(sagaID, step.Name()))
		o.metrics.CompensationCompleted(ctx, step.Name())
		o.logger.Info("saga step compensated", "saga_id", sagaID, "step", step.Name())
	}

	o.publish(ctx, NewCompensationFinishedEvent(sagaID))
}

func (o *Orchestrator) saveRecord(ctx context.Context, record *store.Record) {
	if o.registry == nil {
		return
	}
	if err := o.registry.Save(ctx, record); err != nil {
		o.logger.Error("failed to save saga record",
			"saga_id", record.SagaID, "error", err)
	}
}

func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if o.eventBus == nil {
		return
	}
	if err := o.eventBus.Publish(ctx, event); err != nil {
		o.logger.Error("failed to publish saga event",
			"event_type", event.EventType(), "error", err)
	}
}

func (o *Orchestrator) recordSpanError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
