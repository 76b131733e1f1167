package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/akrylov/sagalab/events"
	"github.com/akrylov/sagalab/saga"
	"github.com/akrylov/sagalab/simulators"
	"github.com/akrylov/sagalab/store"
)

// ChoreoSagaName имя хореографической саги обработки заказа
const ChoreoSagaName = "order_processing_choreography"

// ChoreographyService реализует тот же поток обработки заказа
// хореографией: независимые обработчики реагируют на события и
// публикуют следующие, без центрального координатора.
//
// Обработчики не дедуплицируют события: повторная доставка повторит
// побочный эффект. Для демонстрации паттерна это осознанное упрощение.
// Реестр саг обновляется best-effort и служит только для интроспекции,
// управление потоком идет исключительно через события.
type ChoreographyService struct {
	bus       events.EventBus
	registry  store.Store
	inventory *simulators.Inventory
	payment   *simulators.Payment
	shipping  *simulators.Shipping
	logger    *slog.Logger
	handlers  []events.EventHandler
}

// NewChoreographyService создает сервис хореографической саги
func NewChoreographyService(
	bus events.EventBus,
	registry store.Store,
	inventory *simulators.Inventory,
	payment *simulators.Payment,
	shipping *simulators.Shipping,
) *ChoreographyService {
	return &ChoreographyService{
		bus:       bus,
		registry:  registry,
		inventory: inventory,
		payment:   payment,
		shipping:  shipping,
		logger:    slog.Default(),
	}
}

// WithLogger устанавливает логгер
func (s *ChoreographyService) WithLogger(logger *slog.Logger) *ChoreographyService {
	s.logger = logger
	return s
}

// Register подписывает обработчики шагов на шину событий
func (s *ChoreographyService) Register() error {
	subscriptions := []*events.HandlerFunc{
		{Type: EventOrderCreated, Fn: s.handleOrderCreated},
		{Type: EventInventoryReserved, Fn: s.handleInventoryReserved},
		{Type: EventPaymentProcessed, Fn: s.handlePaymentProcessed},
		{Type: EventSagaCompleted, Fn: s.handleSagaCompleted},
		{Type: EventSagaFailed, Fn: s.handleSagaFailed},
	}
	for _, sub := range subscriptions {
		if err := s.bus.Subscribe(sub.Type, sub); err != nil {
			return err
		}
		s.handlers = append(s.handlers, sub)
	}
	return nil
}

// Close отписывает обработчики от шины событий
func (s *ChoreographyService) Close() error {
	for _, handler := range s.handlers {
		if err := s.bus.Unsubscribe(handler.EventType(), handler); err != nil {
			return err
		}
	}
	s.handlers = nil
	return nil
}

// StartSaga запускает хореографическую сагу и сразу возвращает
// идентификатор: дальнейшая обработка идет через события
// (fire-and-forget).
func (s *ChoreographyService) StartSaga(ctx context.Context, order *Order) (string, error) {
	sagaID := uuid.New().String()
	now := time.Now()

	record := &store.Record{
		SagaID:         sagaID,
		OrderID:        order.ID,
		SagaName:       ChoreoSagaName,
		Status:         string(saga.StatusInProgress),
		CompletedSteps: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.registry.Save(ctx, record); err != nil {
		return "", err
	}

	s.logger.Info("choreography saga started", "saga_id", sagaID, "order_id", order.ID)

	go func() {
		bgCtx := context.WithoutCancel(ctx)
		if err := s.bus.Publish(bgCtx, NewOrderCreatedEvent(sagaID, order)); err != nil {
			s.logger.Error("failed to publish order.created",
				"saga_id", sagaID, "error", err)
		}
	}()

	return sagaID, nil
}

func (s *ChoreographyService) handleOrderCreated(ctx context.Context, event events.Event) error {
	ev, ok := event.(*OrderCreatedEvent)
	if !ok {
		return nil
	}

	if err := s.inventory.Reserve(ctx, ev.Order.ID, ev.Order.Items); err != nil {
		s.logger.Warn("choreography: inventory reservation failed",
			"saga_id", ev.SagaID, "order_id", ev.Order.ID, "error", err)
		return s.bus.Publish(ctx, NewChoreoSagaFailedEvent(
			ev.SagaID, ev.Order, ChoreoStepInventoryReservation, err.Error()))
	}

	s.appendStep(ctx, ev.SagaID, StepInventoryReserved)
	return s.bus.Publish(ctx, NewInventoryReservedEvent(ev.SagaID, ev.Order, ReservationStatusReserved))
}

func (s *ChoreographyService) handleInventoryReserved(ctx context.Context, event events.Event) error {
	ev, ok := event.(*InventoryReservedEvent)
	if !ok || ev.Status != ReservationStatusReserved {
		return nil
	}

	if err := s.payment.Process(ctx, ev.Order.ID, ev.Order.Total); err != nil {
		s.logger.Warn("choreography: payment failed",
			"saga_id", ev.SagaID, "order_id", ev.Order.ID, "error", err)
		s.compensate(ctx, ev.SagaID, "inventory", ev.Order.ID, s.inventory.Compensate)
		return s.bus.Publish(ctx, NewChoreoSagaFailedEvent(
			ev.SagaID, ev.Order, ChoreoStepPaymentProcessing, err.Error()))
	}

	s.appendStep(ctx, ev.SagaID, StepPaymentProcessed)
	return s.bus.Publish(ctx, NewPaymentProcessedEvent(ev.SagaID, ev.Order, PaymentStatusSuccess, ev.Order.Total))
}

func (s *ChoreographyService) handlePaymentProcessed(ctx context.Context, event events.Event) error {
	ev, ok := event.(*PaymentProcessedEvent)
	if !ok || ev.Status != PaymentStatusSuccess {
		return nil
	}

	trackingID, err := s.shipping.Ship(ctx, ev.Order.ID)
	if err != nil {
		s.logger.Warn("choreography: shipping failed",
			"saga_id", ev.SagaID, "order_id", ev.Order.ID, "error", err)
		// Откат в обратном порядке: сначала платеж, затем склад
		s.compensate(ctx, ev.SagaID, "payment", ev.Order.ID, s.payment.Compensate)
		s.compensate(ctx, ev.SagaID, "inventory", ev.Order.ID, s.inventory.Compensate)
		return s.bus.Publish(ctx, NewChoreoSagaFailedEvent(
			ev.SagaID, ev.Order, ChoreoStepShipping, err.Error()))
	}

	s.appendStep(ctx, ev.SagaID, StepOrderShipped)
	if err := s.bus.Publish(ctx, NewOrderShippedEvent(ev.SagaID, ev.Order, trackingID)); err != nil {
		return err
	}
	return s.bus.Publish(ctx, NewChoreoSagaCompletedEvent(ev.SagaID, ev.Order))
}

func (s *ChoreographyService) handleSagaCompleted(ctx context.Context, event events.Event) error {
	ev, ok := event.(*ChoreoSagaCompletedEvent)
	if !ok {
		return nil
	}
	s.updateRecord(ctx, ev.SagaID, func(record *store.Record) {
		record.Status = string(saga.StatusCompleted)
	})
	s.logger.Info("choreography saga completed", "saga_id", ev.SagaID, "order_id", ev.Order.ID)
	return nil
}

func (s *ChoreographyService) handleSagaFailed(ctx context.Context, event events.Event) error {
	ev, ok := event.(*ChoreoSagaFailedEvent)
	if !ok {
		return nil
	}
	s.updateRecord(ctx, ev.SagaID, func(record *store.Record) {
		record.Status = string(saga.StatusFailed)
		record.FailedStep = ev.Step
		record.Error = ev.Reason
	})
	s.logger.Info("choreography saga failed",
		"saga_id", ev.SagaID, "order_id", ev.Order.ID, "step", ev.Step, "reason", ev.Reason)
	return nil
}

func (s *ChoreographyService) compensate(
	ctx context.Context,
	sagaID, resource, orderID string,
	fn func(ctx context.Context, orderID string) (bool, error),
) {
	compensated, err := fn(ctx, orderID)
	if err != nil {
		s.logger.Error("choreography: compensation failed",
			"saga_id", sagaID, "resource", resource, "order_id", orderID, "error", err)
		return
	}
	if !compensated {
		s.logger.Warn("choreography: nothing to compensate",
			"saga_id", sagaID, "resource", resource, "order_id", orderID)
	}
}

func (s *ChoreographyService) appendStep(ctx context.Context, sagaID, stepName string) {
	s.updateRecord(ctx, sagaID, func(record *store.Record) {
		record.CompletedSteps = append(record.CompletedSteps, stepName)
	})
}

func (s *ChoreographyService) updateRecord(ctx context.Context, sagaID string, mutate func(record *store.Record)) {
	record, err := s.registry.Get(ctx, sagaID)
	if err != nil {
		s.logger.Error("failed to load saga record", "saga_id", sagaID, "error", err)
		return
	}
	mutate(record)
	record.UpdatedAt = time.Now()
	if err := s.registry.Save(ctx, record); err != nil {
		s.logger.Error("failed to save saga record", "saga_id", sagaID, "error", err)
	}
}
