package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akrylov/sagalab/events"
	"github.com/akrylov/sagalab/saga"
	"github.com/akrylov/sagalab/simulators"
	"github.com/akrylov/sagalab/store"
)

type orchestrationFixture struct {
	registry  *store.MemoryStore
	inventory *simulators.Inventory
	payment   *simulators.Payment
	shipping  *simulators.Shipping
	service   *OrchestrationService
}

func newOrchestrationFixture(t *testing.T, stock map[string]int) *orchestrationFixture {
	t.Helper()

	registry := store.NewMemoryStore()
	inventory := simulators.NewInventory(stock)
	payment := simulators.NewPayment()
	shipping := simulators.NewShipping()

	orchestrator := saga.NewOrchestrator(events.NewInMemoryEventBus(), registry)
	service := NewOrchestrationService(orchestrator, inventory, payment, shipping).
		WithStepTimeout(time.Second)

	return &orchestrationFixture{
		registry:  registry,
		inventory: inventory,
		payment:   payment,
		shipping:  shipping,
		service:   service,
	}
}

func testOrder(quantity int) *Order {
	return NewOrder("user-1", []simulators.Item{
		{ProductID: "prod_123", Quantity: quantity, Price: 100},
	})
}

func TestOrchestration_Success(t *testing.T) {
	f := newOrchestrationFixture(t, map[string]int{"prod_123": 10})
	order := testOrder(5)

	result, err := f.service.ExecuteSaga(context.Background(), order)
	require.NoError(t, err)

	require.True(t, result.Success())
	assert.Equal(t,
		[]string{StepInventoryReserved, StepPaymentProcessed, StepOrderShipped},
		result.CompletedSteps)

	assert.Equal(t, 5, f.inventory.Available("prod_123"))

	amount, charged := f.payment.Charged(order.ID)
	require.True(t, charged)
	assert.Equal(t, 500.0, amount)

	_, shipped := f.shipping.Tracking(order.ID)
	assert.True(t, shipped)

	record, err := f.registry.Get(context.Background(), result.SagaID)
	require.NoError(t, err)
	assert.Equal(t, string(saga.StatusCompleted), record.Status)
	assert.Equal(t, order.ID, record.OrderID)
}

func TestOrchestration_PaymentFailureRestoresLedger(t *testing.T) {
	f := newOrchestrationFixture(t, map[string]int{"prod_123": 10})
	f.payment.WithFailureDecider(simulators.AlwaysFail(simulators.ErrPaymentDeclined))
	order := testOrder(3)

	result, err := f.service.ExecuteSaga(context.Background(), order)
	require.NoError(t, err)

	require.False(t, result.Success())
	assert.Equal(t, StepPaymentProcessed, result.FailedStep)
	assert.Equal(t, []string{StepInventoryReserved}, result.CompletedSteps)

	// Резерв откатился: остаток как до саги
	assert.Equal(t, 10, f.inventory.Available("prod_123"))

	record, err := f.registry.Get(context.Background(), result.SagaID)
	require.NoError(t, err)
	assert.Equal(t, string(saga.StatusFailed), record.Status)
	assert.Contains(t, record.Error, "payment declined")
}

func TestOrchestration_ShippingFailureCompensatesEverything(t *testing.T) {
	f := newOrchestrationFixture(t, map[string]int{"prod_123": 10})
	f.shipping.WithFailureDecider(simulators.AlwaysFail(simulators.ErrShippingUnavailable))
	order := testOrder(4)

	result, err := f.service.ExecuteSaga(context.Background(), order)
	require.NoError(t, err)

	require.False(t, result.Success())
	assert.Equal(t, StepOrderShipped, result.FailedStep)
	assert.Equal(t, []string{StepInventoryReserved, StepPaymentProcessed}, result.CompletedSteps)

	assert.Equal(t, 10, f.inventory.Available("prod_123"))
	_, charged := f.payment.Charged(order.ID)
	assert.False(t, charged, "payment must be refunded")
}

func TestOrchestration_InsufficientInventory(t *testing.T) {
	f := newOrchestrationFixture(t, map[string]int{"prod_123": 2})
	order := testOrder(5)

	result, err := f.service.ExecuteSaga(context.Background(), order)
	require.NoError(t, err)

	require.False(t, result.Success())
	assert.Equal(t, StepInventoryReserved, result.FailedStep)
	assert.Empty(t, result.CompletedSteps)
	assert.Equal(t, 2, f.inventory.Available("prod_123"))
}

func TestOrchestration_IndependentOrdersDoNotInteract(t *testing.T) {
	f := newOrchestrationFixture(t, map[string]int{"prod_123": 10})

	first := testOrder(3)
	second := testOrder(4)

	firstResult, err := f.service.ExecuteSaga(context.Background(), first)
	require.NoError(t, err)
	secondResult, err := f.service.ExecuteSaga(context.Background(), second)
	require.NoError(t, err)

	assert.True(t, firstResult.Success())
	assert.True(t, secondResult.Success())
	assert.Equal(t, 3, f.inventory.Available("prod_123"))
	assert.NotEqual(t, firstResult.SagaID, secondResult.SagaID)
}

func TestNewOrder_Total(t *testing.T) {
	order := NewOrder("user-1", []simulators.Item{
		{ProductID: "a", Quantity: 2, Price: 10.5},
		{ProductID: "b", Quantity: 1, Price: 4},
	})
	assert.Equal(t, 25.0, order.Total)
	assert.NotEmpty(t, order.ID)
}
