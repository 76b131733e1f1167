package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newRecord(sagaID string, createdAt time.Time) *Record {
	return &Record{
		SagaID:         sagaID,
		OrderID:        "order-" + sagaID,
		Status:         "in_progress",
		CompletedSteps: []string{},
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func TestMemoryStore_SaveAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	record := newRecord("saga-1", time.Now())
	if err := s.Save(ctx, record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Get(ctx, "saga-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.SagaID != "saga-1" || got.OrderID != "order-saga-1" {
		t.Errorf("Unexpected record: %+v", got)
	}
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Upsert(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	record := newRecord("saga-1", time.Now())
	if err := s.Save(ctx, record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	record.Status = "completed"
	record.CompletedSteps = append(record.CompletedSteps, "step1")
	if err := s.Save(ctx, record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Get(ctx, "saga-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != "completed" || len(got.CompletedSteps) != 1 {
		t.Errorf("Expected updated record, got %+v", got)
	}
}

func TestMemoryStore_ListOrderedByCreation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	_ = s.Save(ctx, newRecord("saga-2", base.Add(time.Second)))
	_ = s.Save(ctx, newRecord("saga-1", base))
	_ = s.Save(ctx, newRecord("saga-3", base.Add(2*time.Second)))

	records, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if records[0].SagaID != "saga-1" || records[2].SagaID != "saga-3" {
		t.Errorf("Expected creation order, got %s, %s, %s",
			records[0].SagaID, records[1].SagaID, records[2].SagaID)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	record := newRecord("saga-1", time.Now())
	_ = s.Save(ctx, record)

	got, _ := s.Get(ctx, "saga-1")
	got.Status = "mutated"
	got.CompletedSteps = append(got.CompletedSteps, "rogue")

	fresh, _ := s.Get(ctx, "saga-1")
	if fresh.Status != "in_progress" || len(fresh.CompletedSteps) != 0 {
		t.Errorf("Store must return copies, got %+v", fresh)
	}
}
