package simulators

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestShipping_ShipAndCompensate(t *testing.T) {
	shipping := NewShipping()
	ctx := context.Background()

	trackingID, err := shipping.Ship(ctx, "o1")
	if err != nil {
		t.Fatalf("Ship failed: %v", err)
	}
	if !strings.HasPrefix(trackingID, "TRK-") {
		t.Errorf("Expected tracking id with TRK- prefix, got %s", trackingID)
	}
	if got, ok := shipping.Tracking("o1"); !ok || got != trackingID {
		t.Errorf("Expected tracking %s recorded, got %s (%v)", trackingID, got, ok)
	}

	compensated, err := shipping.Compensate(ctx, "o1")
	if err != nil {
		t.Fatalf("Compensate failed: %v", err)
	}
	if !compensated {
		t.Error("Expected shipment cancellation to apply")
	}
	if _, ok := shipping.Tracking("o1"); ok {
		t.Error("Expected shipment removed after cancellation")
	}
}

func TestShipping_CompensateUnknownOrder(t *testing.T) {
	shipping := NewShipping()

	compensated, err := shipping.Compensate(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Compensate must not fail for unknown order: %v", err)
	}
	if compensated {
		t.Error("Expected compensated=false for unknown order")
	}
}

func TestShipping_Unavailable(t *testing.T) {
	shipping := NewShipping().WithFailureDecider(AlwaysFail(ErrShippingUnavailable))

	_, err := shipping.Ship(context.Background(), "o1")
	if !errors.Is(err, ErrShippingUnavailable) {
		t.Errorf("Expected ErrShippingUnavailable, got %v", err)
	}
	if _, ok := shipping.Tracking("o1"); ok {
		t.Error("Failed shipment must not be recorded")
	}
}

func TestFailWithRate_Extremes(t *testing.T) {
	forcedErr := errors.New("boom")

	never := FailWithRate(0, forcedErr)
	for i := 0; i < 100; i++ {
		if err := never("o1"); err != nil {
			t.Fatalf("Rate 0 must never fail, got %v", err)
		}
	}

	always := FailWithRate(1, forcedErr)
	for i := 0; i < 100; i++ {
		if err := always("o1"); !errors.Is(err, forcedErr) {
			t.Fatalf("Rate 1 must always fail, got %v", err)
		}
	}
}
