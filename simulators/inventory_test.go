package simulators

import (
	"context"
	"errors"
	"testing"
)

func TestInventory_ReserveAndCompensate(t *testing.T) {
	inventory := NewInventory(map[string]int{"prod_123": 10})
	ctx := context.Background()

	err := inventory.Reserve(ctx, "o1", []Item{{ProductID: "prod_123", Quantity: 5, Price: 100}})
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if got := inventory.Available("prod_123"); got != 5 {
		t.Errorf("Expected 5 after reserve, got %d", got)
	}

	compensated, err := inventory.Compensate(ctx, "o1")
	if err != nil {
		t.Fatalf("Compensate failed: %v", err)
	}
	if !compensated {
		t.Error("Expected compensation to apply")
	}
	if got := inventory.Available("prod_123"); got != 10 {
		t.Errorf("Expected ledger restored to 10, got %d", got)
	}
}

func TestInventory_AllOrNothing(t *testing.T) {
	inventory := NewInventory(map[string]int{"prod_a": 10, "prod_b": 1})
	ctx := context.Background()

	err := inventory.Reserve(ctx, "o1", []Item{
		{ProductID: "prod_a", Quantity: 5, Price: 10},
		{ProductID: "prod_b", Quantity: 2, Price: 10},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("Expected ErrInsufficientStock, got %v", err)
	}

	// Ни одна позиция не списана
	if got := inventory.Available("prod_a"); got != 10 {
		t.Errorf("Expected prod_a untouched at 10, got %d", got)
	}
	if got := inventory.Available("prod_b"); got != 1 {
		t.Errorf("Expected prod_b untouched at 1, got %d", got)
	}
}

func TestInventory_UnknownProduct(t *testing.T) {
	inventory := NewInventory(map[string]int{"prod_123": 10})
	ctx := context.Background()

	// Неизвестный товар = нулевой остаток, бизнес-сбой без паники
	err := inventory.Reserve(ctx, "o1", []Item{{ProductID: "missing", Quantity: 1, Price: 10}})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("Expected ErrInsufficientStock for unknown product, got %v", err)
	}
}

func TestInventory_CompensateUnknownOrder(t *testing.T) {
	inventory := NewInventory(map[string]int{"prod_123": 10})

	compensated, err := inventory.Compensate(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Compensate must not fail for unknown order: %v", err)
	}
	if compensated {
		t.Error("Expected compensated=false for unknown order")
	}
	if got := inventory.Available("prod_123"); got != 10 {
		t.Errorf("Ledger must not change, got %d", got)
	}
}

func TestInventory_CompensateTwice(t *testing.T) {
	inventory := NewInventory(map[string]int{"prod_123": 10})
	ctx := context.Background()

	if err := inventory.Reserve(ctx, "o1", []Item{{ProductID: "prod_123", Quantity: 3, Price: 10}}); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	if compensated, _ := inventory.Compensate(ctx, "o1"); !compensated {
		t.Fatal("Expected first compensation to apply")
	}
	if compensated, _ := inventory.Compensate(ctx, "o1"); compensated {
		t.Error("Expected second compensation to be a no-op")
	}
	if got := inventory.Available("prod_123"); got != 10 {
		t.Errorf("Expected 10 after double compensation, got %d", got)
	}
}

func TestInventory_FailureDecider(t *testing.T) {
	forcedErr := errors.New("forced failure")
	inventory := NewInventory(map[string]int{"prod_123": 10}).
		WithFailureDecider(FailForOrders(forcedErr, "o2"))
	ctx := context.Background()

	if err := inventory.Reserve(ctx, "o1", []Item{{ProductID: "prod_123", Quantity: 1, Price: 10}}); err != nil {
		t.Fatalf("Reserve for o1 must succeed: %v", err)
	}
	err := inventory.Reserve(ctx, "o2", []Item{{ProductID: "prod_123", Quantity: 1, Price: 10}})
	if !errors.Is(err, forcedErr) {
		t.Errorf("Expected forced failure for o2, got %v", err)
	}
}

func TestInventory_Snapshot(t *testing.T) {
	inventory := NewInventory(map[string]int{"prod_123": 10, "prod_456": 3})

	snapshot := inventory.Snapshot()
	snapshot["prod_123"] = 0

	if got := inventory.Available("prod_123"); got != 10 {
		t.Errorf("Snapshot must be a copy, ledger changed to %d", got)
	}
}
