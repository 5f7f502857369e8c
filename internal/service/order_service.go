package service

import (
	"context"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// OrderStore is the read-model the order service works through.
type OrderStore interface {
	OrdersForUser(ctx context.Context, userID string) ([]model.Order, error)
	StatsForUser(ctx context.Context, userID string) (model.OrderStats, error)
	Get(ctx context.Context, id string) (*model.Order, error)
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error)
	Delete(ctx context.Context, id string) error
}

// orderService implements OrderService. Orders belonging to someone else are
// reported as not found.
type orderService struct {
	orders OrderStore
	logger zerolog.Logger
}

// NewOrderService creates a new order service. orders should enforce the
// strict status lifecycle.
func NewOrderService(orders OrderStore, logger zerolog.Logger) OrderService {
	return &orderService{
		orders: orders,
		logger: logger.With().Str("service", "order").Logger(),
	}
}

func (s *orderService) List(ctx context.Context, userID string) ([]model.Order, error) {
	return s.orders.OrdersForUser(ctx, userID)
}

func (s *orderService) Stats(ctx context.Context, userID string) (model.OrderStats, error) {
	return s.orders.StatsForUser(ctx, userID)
}

func (s *orderService) Get(ctx context.Context, userID, orderID string) (*model.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.UserID != userID {
		s.logger.Warn().
			Str("order_id", orderID).
			Str("user_id", userID).
			Msg("order requested by non-owner")
		return nil, model.ErrOrderNotFound
	}

	return order, nil
}

func (s *orderService) Cancel(ctx context.Context, userID, orderID string) (*model.Order, error) {
	if _, err := s.Get(ctx, userID, orderID); err != nil {
		return nil, err
	}
	return s.orders.UpdateStatus(ctx, orderID, model.StatusCancelled)
}

func (s *orderService) DeleteOwn(ctx context.Context, userID, orderID string) error {
	order, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return err
	}

	if order.Status != model.StatusPending {
		s.logger.Debug().
			Str("order_id", orderID).
			Str("status", string(order.Status)).
			Msg("refusing to delete non-pending order")
		return model.ErrOrderNotDeletable
	}

	return s.orders.Delete(ctx, orderID)
}
