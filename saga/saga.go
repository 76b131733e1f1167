package saga

import (
	"fmt"

	"github.com/akrylov/sagalab/fsm"
)

// Status статус саги
type Status string

const (
	// StatusPending сага создана, но не запущена
	StatusPending Status = "pending"
	// StatusInProgress сага выполняется
	StatusInProgress Status = "in_progress"
	// StatusCompensating выполняются компенсации
	StatusCompensating Status = "compensating"
	// StatusCompleted все шаги выполнены успешно
	StatusCompleted Status = "completed"
	// StatusFailed сага завершилась с ошибкой
	StatusFailed Status = "failed"
)

// События переходов жизненного цикла саги
const (
	triggerStart       = "start"
	triggerComplete    = "complete"
	triggerStepFailed  = "step_failed"
	triggerCompensated = "compensated"
)

// newLifecycleMachine создает конечный автомат жизненного цикла саги.
// Автомат защищает от некорректных переходов (например, completed -> compensating).
func newLifecycleMachine() *fsm.Machine {
	return fsm.NewMachine(fsm.State(StatusPending), []fsm.Transition{
		{From: fsm.State(StatusPending), Event: triggerStart, To: fsm.State(StatusInProgress)},
		{From: fsm.State(StatusInProgress), Event: triggerComplete, To: fsm.State(StatusCompleted)},
		{From: fsm.State(StatusInProgress), Event: triggerStepFailed, To: fsm.State(StatusCompensating)},
		{From: fsm.State(StatusCompensating), Event: triggerCompensated, To: fsm.State(StatusFailed)},
	})
}

// Definition определение саги: имя и упорядоченный список шагов
type Definition struct {
	name  string
	steps []Step
}

// NewDefinition создает новое определение саги
func NewDefinition(name string) *Definition {
	return &Definition{name: name}
}

// Name возвращает имя саги
func (d *Definition) Name() string {
	return d.name
}

// AddStep добавляет шаг в конец саги
func (d *Definition) AddStep(step Step) *Definition {
	d.steps = append(d.steps, step)
	return d
}

// Steps возвращает шаги саги
func (d *Definition) Steps() []Step {
	return d.steps
}

// Validate проверяет корректность определения
func (d *Definition) Validate() error {
	if d.name == "" {
		return fmt.Errorf("saga name is required")
	}
	if len(d.steps) == 0 {
		return fmt.Errorf("saga %s has no steps", d.name)
	}
	seen := make(map[string]struct{}, len(d.steps))
	for _, step := range d.steps {
		if step.Name() == "" {
			return fmt.Errorf("saga %s contains step without name", d.name)
		}
		if _, ok := seen[step.Name()]; ok {
			return fmt.Errorf("saga %s contains duplicate step %s", d.name, step.Name())
		}
		seen[step.Name()] = struct{}{}
	}
	return nil
}

// Result результат выполнения саги
type Result struct {
	SagaID         string
	SagaName       string
	Status         Status
	CompletedSteps []string
	FailedStep     string
	Err            error
}

// Success возвращает true, если все шаги выполнены
func (r *Result) Success() bool {
	return r.Status == StatusCompleted
}
