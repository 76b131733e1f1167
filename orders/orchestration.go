package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/akrylov/sagalab/saga"
	"github.com/akrylov/sagalab/simulators"
)

// Имена шагов оркестрируемой саги обработки заказа
const (
	StepInventoryReserved = "inventory_reserved"
	StepPaymentProcessed  = "payment_processed"
	StepOrderShipped      = "order_shipped"
)

// SagaName имя саги обработки заказа
const SagaName = "order_processing"

// Ключи контекста саги
const (
	ctxKeyOrder      = "order"
	ctxKeyTrackingID = "tracking_id"
)

// OrchestrationService выполняет сагу обработки заказа через оркестратор:
// резерв товара, платеж, отгрузка. Откаты выполняет оркестратор
// в обратном порядке.
type OrchestrationService struct {
	orchestrator *saga.Orchestrator
	inventory    *simulators.Inventory
	payment      *simulators.Payment
	shipping     *simulators.Shipping
	stepTimeout  time.Duration
	logger       *slog.Logger
}

// NewOrchestrationService создает сервис оркестрируемой саги
func NewOrchestrationService(
	orchestrator *saga.Orchestrator,
	inventory *simulators.Inventory,
	payment *simulators.Payment,
	shipping *simulators.Shipping,
) *OrchestrationService {
	return &OrchestrationService{
		orchestrator: orchestrator,
		inventory:    inventory,
		payment:      payment,
		shipping:     shipping,
		stepTimeout:  10 * time.Second,
		logger:       slog.Default(),
	}
}

// WithStepTimeout устанавливает таймаут для каждого шага саги
func (s *OrchestrationService) WithStepTimeout(timeout time.Duration) *OrchestrationService {
	s.stepTimeout = timeout
	return s
}

// WithLogger устанавливает логгер
func (s *OrchestrationService) WithLogger(logger *slog.Logger) *OrchestrationService {
	s.logger = logger
	return s
}

// ExecuteSaga выполняет сагу обработки заказа и синхронно возвращает
// результат. Бизнес-сбой (недостаточно товара, отклоненный платеж)
// приходит в Result, а не в error.
func (s *OrchestrationService) ExecuteSaga(ctx context.Context, order *Order) (*saga.Result, error) {
	sagaCtx := saga.NewContext()
	sagaCtx.Set(saga.ContextKeyOrderID, order.ID)
	sagaCtx.Set(ctxKeyOrder, order)

	return s.orchestrator.Execute(ctx, s.definition(order), sagaCtx)
}

func (s *OrchestrationService) definition(order *Order) *saga.Definition {
	return saga.NewDefinition(SagaName).
		AddStep(saga.NewBaseStep(StepInventoryReserved).
			WithTimeout(s.stepTimeout).
			WithExecute(func(ctx context.Context, sagaCtx *saga.Context) error {
				return s.inventory.Reserve(ctx, order.ID, order.Items)
			}).
			WithCompensate(func(ctx context.Context, sagaCtx *saga.Context) error {
				return s.compensate(ctx, "inventory", order.ID, s.inventory.Compensate)
			})).
		AddStep(saga.NewBaseStep(StepPaymentProcessed).
			WithTimeout(s.stepTimeout).
			WithExecute(func(ctx context.Context, sagaCtx *saga.Context) error {
				return s.payment.Process(ctx, order.ID, order.Total)
			}).
			WithCompensate(func(ctx context.Context, sagaCtx *saga.Context) error {
				return s.compensate(ctx, "payment", order.ID, s.payment.Compensate)
			})).
		AddStep(saga.NewBaseStep(StepOrderShipped).
			WithTimeout(s.stepTimeout).
			WithExecute(func(ctx context.Context, sagaCtx *saga.Context) error {
				trackingID, err := s.shipping.Ship(ctx, order.ID)
				if err != nil {
					return err
				}
				sagaCtx.Set(ctxKeyTrackingID, trackingID)
				return nil
			}).
			WithCompensate(func(ctx context.Context, sagaCtx *saga.Context) error {
				return s.compensate(ctx, "shipping", order.ID, s.shipping.Compensate)
			}))
}

// compensate вызывает компенсацию симулятора. Отсутствие резерва
// (compensated=false) - допустимый no-op, а не ошибка отката.
func (s *OrchestrationService) compensate(
	ctx context.Context,
	resource, orderID string,
	fn func(ctx context.Context, orderID string) (bool, error),
) error {
	compensated, err := fn(ctx, orderID)
	if err != nil {
		return err
	}
	if !compensated {
		s.logger.Warn("nothing to compensate",
			"resource", resource, "order_id", orderID)
	}
	return nil
}
