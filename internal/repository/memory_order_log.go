package repository

import (
	"context"
	"sync"

	"storefront/internal/model"
)

// memoryOrderLog implements OrderLog in process memory.
type memoryOrderLog struct {
	mu     sync.RWMutex
	orders []model.Order
}

// NewMemoryOrderLog creates an empty in-memory order log.
func NewMemoryOrderLog() OrderLog {
	return &memoryOrderLog{}
}

func (l *memoryOrderLog) Append(_ context.Context, order *model.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.indexOf(order.ID) >= 0 {
		return ErrDuplicateOrder
	}
	l.orders = append(l.orders, cloneOrder(*order))
	return nil
}

func (l *memoryOrderLog) List(_ context.Context) ([]model.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.Order, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, cloneOrder(o))
	}
	return out, nil
}

func (l *memoryOrderLog) ListByUser(_ context.Context, userID string) ([]model.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []model.Order{}
	for _, o := range l.orders {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (l *memoryOrderLog) Get(_ context.Context, id string) (*model.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i := l.indexOf(id)
	if i < 0 {
		return nil, model.ErrOrderNotFound
	}
	o := cloneOrder(l.orders[i])
	return &o, nil
}

func (l *memoryOrderLog) Replace(_ context.Context, order *model.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(order.ID)
	if i < 0 {
		return model.ErrOrderNotFound
	}
	l.orders[i] = cloneOrder(*order)
	return nil
}

func (l *memoryOrderLog) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.indexOf(id); i >= 0 {
		l.orders = append(l.orders[:i], l.orders[i+1:]...)
	}
	return nil
}

func (l *memoryOrderLog) indexOf(id string) int {
	for i := range l.orders {
		if l.orders[i].ID == id {
			return i
		}
	}
	return -1
}

// cloneOrder copies the item slice so callers cannot mutate stored orders.
func cloneOrder(o model.Order) model.Order {
	items := make([]model.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}
