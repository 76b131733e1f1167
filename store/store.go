// Package store предоставляет реестр состояний саг с набором
// взаимозаменяемых адаптеров хранения (memory, redis, postgres, mongodb).
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound сага с указанным идентификатором не найдена
var ErrNotFound = errors.New("saga record not found")

// Record запись о состоянии саги
type Record struct {
	SagaID         string    `json:"sagaId" bson:"saga_id"`
	OrderID        string    `json:"orderId,omitempty" bson:"order_id,omitempty"`
	SagaName       string    `json:"sagaName,omitempty" bson:"saga_name,omitempty"`
	Status         string    `json:"status" bson:"status"`
	CompletedSteps []string  `json:"completedSteps" bson:"completed_steps"`
	FailedStep     string    `json:"failedStep,omitempty" bson:"failed_step,omitempty"`
	Error          string    `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt      time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updated_at"`
}

// Clone возвращает глубокую копию записи
func (r *Record) Clone() *Record {
	clone := *r
	clone.CompletedSteps = append([]string(nil), r.CompletedSteps...)
	return &clone
}

// Store реестр состояний саг
type Store interface {
	// Save сохраняет запись (upsert по SagaID)
	Save(ctx context.Context, record *Record) error
	// Get возвращает запись по идентификатору саги.
	// Возвращает ErrNotFound, если запись отсутствует.
	Get(ctx context.Context, sagaID string) (*Record, error)
	// List возвращает все записи, отсортированные по времени создания
	List(ctx context.Context) ([]*Record, error)
	// Close освобождает ресурсы хранилища
	Close(ctx context.Context) error
}

// MemoryStore хранилище в памяти. Подходит для демонстраций и тестов.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore создает новое хранилище в памяти
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Save(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SagaID] = record.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sagaID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[sagaID]
	if !ok {
		return nil, ErrNotFound
	}
	return record.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]*Record, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record.Clone())
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
