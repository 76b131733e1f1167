// Package fsm предоставляет минимальный конечный автомат для контроля
// жизненного цикла саг.
package fsm

import (
	"fmt"
	"sync"
	"time"
)

// State состояние автомата
type State string

// Transition описывает разрешенный переход между состояниями
type Transition struct {
	From  State
	Event string
	To    State
}

// HistoryEntry запись истории переходов
type HistoryEntry struct {
	From      State
	To        State
	Event     string
	Timestamp time.Time
}

// Machine конечный автомат с фиксированным набором переходов.
//
// Запрещенный переход - это ошибка программирования в вызывающем коде,
// Trigger возвращает ее явно вместо паники.
type Machine struct {
	mu          sync.RWMutex
	current     State
	transitions map[string]State // key: "from:event"
	history     []HistoryEntry
}

// NewMachine создает автомат в начальном состоянии
func NewMachine(initial State, transitions []Transition) *Machine {
	m := &Machine{
		current:     initial,
		transitions: make(map[string]State, len(transitions)),
	}
	for _, t := range transitions {
		m.transitions[transitionKey(t.From, t.Event)] = t.To
	}
	return m
}

func transitionKey(from State, event string) string {
	return fmt.Sprintf("%s:%s", from, event)
}

// Current возвращает текущее состояние
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Trigger выполняет переход по событию
func (m *Machine) Trigger(event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	to, ok := m.transitions[transitionKey(m.current, event)]
	if !ok {
		return fmt.Errorf("no transition from state %q on event %q", m.current, event)
	}

	m.history = append(m.history, HistoryEntry{
		From:      m.current,
		To:        to,
		Event:     event,
		Timestamp: time.Now(),
	})
	m.current = to
	return nil
}

// Can проверяет, возможен ли переход по событию из текущего состояния
func (m *Machine) Can(event string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.transitions[transitionKey(m.current, event)]
	return ok
}

// History возвращает копию истории переходов
func (m *Machine) History() []HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]HistoryEntry, len(m.history))
	copy(result, m.history)
	return result
}
