// Package orders реализует обработку заказа по saga pattern
// в двух вариантах: оркестрация и хореография.
package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/akrylov/sagalab/simulators"
)

// Order заказ пользователя
type Order struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Items     []simulators.Item `json:"items"`
	Total     float64           `json:"total"`
	CreatedAt time.Time         `json:"createdAt"`
}

// NewOrder создает новый заказ и считает его сумму
func NewOrder(userID string, items []simulators.Item) *Order {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return &Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     items,
		Total:     total,
		CreatedAt: time.Now(),
	}
}
