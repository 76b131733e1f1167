// Package metrics предоставляет систему метрик саг на основе OpenTelemetry.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics сборщик метрик выполнения саг.
// Методы безопасны для вызова на nil-получателе: компоненты могут
// работать без метрик.
type Metrics struct {
	meter              metric.Meter
	sagasTotal         metric.Int64Counter
	sagaDuration       metric.Float64Histogram
	stepsTotal         metric.Int64Counter
	compensationsTotal metric.Int64Counter
	eventsTotal        metric.Int64Counter
	activeSagas        metric.Int64UpDownCounter
}

// NewMetrics создает новый сборщик метрик
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("sagalab")

	sagasTotal, err := meter.Int64Counter(
		"sagas_total",
		metric.WithDescription("Total number of sagas by outcome"),
	)
	if err != nil {
		return nil, err
	}

	sagaDuration, err := meter.Float64Histogram(
		"saga_duration_seconds",
		metric.WithDescription("Saga execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stepsTotal, err := meter.Int64Counter(
		"saga_steps_total",
		metric.WithDescription("Total number of saga steps by outcome"),
	)
	if err != nil {
		return nil, err
	}

	compensationsTotal, err := meter.Int64Counter(
		"saga_compensations_total",
		metric.WithDescription("Total number of compensating actions by outcome"),
	)
	if err != nil {
		return nil, err
	}

	eventsTotal, err := meter.Int64Counter(
		"events_total",
		metric.WithDescription("Total number of events published"),
	)
	if err != nil {
		return nil, err
	}

	activeSagas, err := meter.Int64UpDownCounter(
		"active_sagas",
		metric.WithDescription("Number of sagas currently in progress"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		meter:              meter,
		sagasTotal:         sagasTotal,
		sagaDuration:       sagaDuration,
		stepsTotal:         stepsTotal,
		compensationsTotal: compensationsTotal,
		eventsTotal:        eventsTotal,
		activeSagas:        activeSagas,
	}, nil
}

// SagaStarted записывает старт саги
func (m *Metrics) SagaStarted(ctx context.Context, sagaName string) {
	if m == nil {
		return
	}
	m.activeSagas.Add(ctx, 1, metric.WithAttributes(attribute.String("saga", sagaName)))
}

// SagaCompleted записывает успешное завершение саги
func (m *Metrics) SagaCompleted(ctx context.Context, sagaName string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("saga", sagaName),
		attribute.String("outcome", "completed"),
	}
	m.sagasTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.sagaDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.activeSagas.Add(ctx, -1, metric.WithAttributes(attribute.String("saga", sagaName)))
}

// SagaFailed записывает провал саги
func (m *Metrics) SagaFailed(ctx context.Context, sagaName, failedStep string) {
	if m == nil {
		return
	}
	m.sagasTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("saga", sagaName),
		attribute.String("outcome", "failed"),
		attribute.String("failed_step", failedStep),
	))
	m.activeSagas.Add(ctx, -1, metric.WithAttributes(attribute.String("saga", sagaName)))
}

// StepCompleted записывает успешное выполнение шага
func (m *Metrics) StepCompleted(ctx context.Context, sagaName, stepName string) {
	if m == nil {
		return
	}
	m.stepsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("saga", sagaName),
		attribute.String("step", stepName),
		attribute.String("outcome", "completed"),
	))
}

// StepFailed записывает провал шага
func (m *Metrics) StepFailed(ctx context.Context, sagaName, stepName string) {
	if m == nil {
		return
	}
	m.stepsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("saga", sagaName),
		attribute.String("step", stepName),
		attribute.String("outcome", "failed"),
	))
}

// CompensationCompleted записывает успешную компенсацию шага
func (m *Metrics) CompensationCompleted(ctx context.Context, stepName string) {
	if m == nil {
		return
	}
	m.compensationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", stepName),
		attribute.String("outcome", "completed"),
	))
}

// CompensationFailed записывает провал компенсации шага
func (m *Metrics) CompensationFailed(ctx context.Context, stepName string) {
	if m == nil {
		return
	}
	m.compensationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", stepName),
		attribute.String("outcome", "failed"),
	))
}

// EventPublished записывает публикацию события
func (m *Metrics) EventPublished(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.eventsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}
