package saga

import "github.com/akrylov/sagalab/events"

// Типы событий жизненного цикла саги
const (
	EventSagaStarted          = "saga.started"
	EventSagaCompleted        = "saga.completed"
	EventSagaFailed           = "saga.failed"
	EventStepStarted          = "saga.step.started"
	EventStepCompleted        = "saga.step.completed"
	EventStepFailed           = "saga.step.failed"
	EventCompensationStarted  = "saga.compensation.started"
	EventCompensationFinished = "saga.compensation.finished"
	EventStepCompensated      = "saga.step.compensated"
)

// SagaStartedEvent сага запущена
type SagaStartedEvent struct {
	*events.BaseEvent
	SagaName string
}

// NewSagaStartedEvent создает событие запуска саги
func NewSagaStartedEvent(sagaID, sagaName string) *SagaStartedEvent {
	return &SagaStartedEvent{
		BaseEvent: events.NewBaseEvent(EventSagaStarted, sagaID),
		SagaName:  sagaName,
	}
}

// SagaCompletedEvent сага завершена успешно
type SagaCompletedEvent struct {
	*events.BaseEvent
	SagaName       string
	CompletedSteps []string
}

// NewSagaCompletedEvent создает событие успешного завершения саги
func NewSagaCompletedEvent(sagaID, sagaName string, completedSteps []string) *SagaCompletedEvent {
	return &SagaCompletedEvent{
		BaseEvent:      events.NewBaseEvent(EventSagaCompleted, sagaID),
		SagaName:       sagaName,
		CompletedSteps: completedSteps,
	}
}

// SagaFailedEvent сага завершена с ошибкой
type SagaFailedEvent struct {
	*events.BaseEvent
	SagaName   string
	FailedStep string
	Reason     string
}

// NewSagaFailedEvent создает событие провала саги
func NewSagaFailedEvent(sagaID, sagaName, failedStep, reason string) *SagaFailedEvent {
	return &SagaFailedEvent{
		BaseEvent:  events.NewBaseEvent(EventSagaFailed, sagaID),
		SagaName:   sagaName,
		FailedStep: failedStep,
		Reason:     reason,
	}
}

// StepStartedEvent шаг начал выполнение
type StepStartedEvent struct {
	*events.BaseEvent
	StepName string
}

// NewStepStartedEvent создает событие начала шага
func NewStepStartedEvent(sagaID, stepName string) *StepStartedEvent {
	return &StepStartedEvent{
		BaseEvent: events.NewBaseEvent(EventStepStarted, sagaID),
		StepName:  stepName,
	}
}

// StepCompletedEvent шаг выполнен успешно
type StepCompletedEvent struct {
	*events.BaseEvent
	StepName string
}

// NewStepCompletedEvent создает событие завершения шага
func NewStepCompletedEvent(sagaID, stepName string) *StepCompletedEvent {
	return &StepCompletedEvent{
		BaseEvent: events.NewBaseEvent(EventStepCompleted, sagaID),
		StepName:  stepName,
	}
}

// StepFailedEvent шаг завершился с ошибкой
type StepFailedEvent struct {
	*events.BaseEvent
	StepName string
	Reason   string
}

// NewStepFailedEvent создает событие провала шага
func NewStepFailedEvent(sagaID, stepName, reason string) *StepFailedEvent {
	return &StepFailedEvent{
		BaseEvent: events.NewBaseEvent(EventStepFailed, sagaID),
		StepName:  stepName,
		Reason:    reason,
	}
}

// CompensationStartedEvent начат откат выполненных шагов
type CompensationStartedEvent struct {
	*events.BaseEvent
	Steps []string
}

// NewCompensationStartedEvent создает событие начала компенсации
func NewCompensationStartedEvent(sagaID string, steps []string) *CompensationStartedEvent {
	return &CompensationStartedEvent{
		BaseEvent: events.NewBaseEvent(EventCompensationStarted, sagaID),
		Steps:     steps,
	}
}

// CompensationFinishedEvent откат завершен
type CompensationFinishedEvent struct {
	*events.BaseEvent
}

// NewCompensationFinishedEvent создает событие завершения компенсации
func NewCompensationFinishedEvent(sagaID string) *CompensationFinishedEvent {
	return &CompensationFinishedEvent{
		BaseEvent: events.NewBaseEvent(EventCompensationFinished, sagaID),
	}
}

// StepCompensatedEvent шаг откачен
type StepCompensatedEvent struct {
	*events.BaseEvent
	StepName string
}

// NewStepCompensatedEvent создает событие отката шага
func NewStepCompensatedEvent(sagaID, stepName string) *StepCompensatedEvent {
	return &StepCompensatedEvent{
		BaseEvent: events.NewBaseEvent(EventStepCompensated, sagaID),
		StepName:  stepName,
	}
}
