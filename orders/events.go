package orders

import "github.com/akrylov/sagalab/events"

// Контракт событий хореографической саги
const (
	EventOrderCreated      = "order.created"
	EventInventoryReserved = "inventory.reserved"
	EventPaymentProcessed  = "payment.processed"
	EventOrderShipped      = "order.shipped"
	EventSagaCompleted     = "saga.completed"
	EventSagaFailed        = "saga.failed"
)

// Статусы промежуточных событий
const (
	ReservationStatusReserved = "reserved"
	PaymentStatusSuccess      = "success"
)

// Имена шагов хореографической саги
const (
	ChoreoStepInventoryReservation = "inventory_reservation"
	ChoreoStepPaymentProcessing    = "payment_processing"
	ChoreoStepShipping             = "shipping"
)

// OrderCreatedEvent заказ создан, сага запущена
type OrderCreatedEvent struct {
	*events.BaseEvent
	SagaID string
	Order  *Order
}

// NewOrderCreatedEvent создает событие создания заказа
func NewOrderCreatedEvent(sagaID string, order *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseEvent: events.NewBaseEvent(EventOrderCreated, order.ID),
		SagaID:    sagaID,
		Order:     order,
	}
}

// InventoryReservedEvent товар зарезервирован
type InventoryReservedEvent struct {
	*events.BaseEvent
	SagaID string
	Order  *Order
	Status string
}

// NewInventoryReservedEvent создает событие резервирования товара
func NewInventoryReservedEvent(sagaID string, order *Order, status string) *InventoryReservedEvent {
	return &InventoryReservedEvent{
		BaseEvent: events.NewBaseEvent(EventInventoryReserved, order.ID),
		SagaID:    sagaID,
		Order:     order,
		Status:    status,
	}
}

// PaymentProcessedEvent платеж проведен
type PaymentProcessedEvent struct {
	*events.BaseEvent
	SagaID string
	Order  *Order
	Status string
	Amount float64
}

// NewPaymentProcessedEvent создает событие проведения платежа
func NewPaymentProcessedEvent(sagaID string, order *Order, status string, amount float64) *PaymentProcessedEvent {
	return &PaymentProcessedEvent{
		BaseEvent: events.NewBaseEvent(EventPaymentProcessed, order.ID),
		SagaID:    sagaID,
		Order:     order,
		Status:    status,
		Amount:    amount,
	}
}

// OrderShippedEvent заказ отгружен
type OrderShippedEvent struct {
	*events.BaseEvent
	SagaID     string
	Order      *Order
	TrackingID string
}

// NewOrderShippedEvent создает событие отгрузки заказа
func NewOrderShippedEvent(sagaID string, order *Order, trackingID string) *OrderShippedEvent {
	return &OrderShippedEvent{
		BaseEvent:  events.NewBaseEvent(EventOrderShipped, order.ID),
		SagaID:     sagaID,
		Order:      order,
		TrackingID: trackingID,
	}
}

// ChoreoSagaCompletedEvent хореографическая сага завершена успешно
type ChoreoSagaCompletedEvent struct {
	*events.BaseEvent
	SagaID string
	Order  *Order
}

// NewChoreoSagaCompletedEvent создает событие завершения хореографической саги
func NewChoreoSagaCompletedEvent(sagaID string, order *Order) *ChoreoSagaCompletedEvent {
	return &ChoreoSagaCompletedEvent{
		BaseEvent: events.NewBaseEvent(EventSagaCompleted, order.ID),
		SagaID:    sagaID,
		Order:     order,
	}
}

// ChoreoSagaFailedEvent хореографическая сага завершена с ошибкой
type ChoreoSagaFailedEvent struct {
	*events.BaseEvent
	SagaID string
	Order  *Order
	Step   string
	Reason string
}

// NewChoreoSagaFailedEvent создает событие провала хореографической саги
func NewChoreoSagaFailedEvent(sagaID string, order *Order, step, reason string) *ChoreoSagaFailedEvent {
	return &ChoreoSagaFailedEvent{
		BaseEvent: events.NewBaseEvent(EventSagaFailed, order.ID),
		SagaID:    sagaID,
		Order:     order,
		Step:      step,
		Reason:    reason,
	}
}
