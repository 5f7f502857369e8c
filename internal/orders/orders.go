// Package orders answers questions about placed orders by reading the order
// log, and applies status changes and deletions to it.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/remote"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

// Mirror is the remote copy of the order log.
type Mirror interface {
	Upsert(ctx context.Context, id string, o *model.Order) (*model.Order, error)
	Delete(ctx context.Context, id string) error
}

// ReadModel derives per-user views from the order log. Remote mirroring of
// changes is best-effort; the log is always written first.
type ReadModel struct {
	log     repository.OrderLog
	mirror  Mirror
	policy  model.TransitionPolicy
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewReadModel creates a read-model whose status changes are checked against policy.
func NewReadModel(
	log repository.OrderLog,
	mirror Mirror,
	policy model.TransitionPolicy,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *ReadModel {
	if policy == nil {
		policy = model.StrictTransitions
	}
	return &ReadModel{
		log:     log,
		mirror:  mirror,
		policy:  policy,
		metrics: m,
		logger:  logger.With().Str("service", "orders").Logger(),
		now:     time.Now,
	}
}

// OrdersForUser returns the orders owned by userID in the order they were placed.
func (r *ReadModel) OrdersForUser(ctx context.Context, userID string) ([]model.Order, error) {
	orders, err := r.log.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user: %w", err)
	}
	return orders, nil
}

// StatsForUser counts the orders of userID per status.
func (r *ReadModel) StatsForUser(ctx context.Context, userID string) (model.OrderStats, error) {
	orders, err := r.OrdersForUser(ctx, userID)
	if err != nil {
		return model.OrderStats{}, err
	}

	var stats model.OrderStats
	for _, o := range orders {
		stats.Count(o.Status)
	}
	return stats, nil
}

// All returns every order in the log.
func (r *ReadModel) All(ctx context.Context) ([]model.Order, error) {
	orders, err := r.log.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Get returns a single order.
func (r *ReadModel) Get(ctx context.Context, id string) (*model.Order, error) {
	return r.log.Get(ctx, id)
}

// UpdateStatus moves an order to status if the policy allows it, replacing the
// stored record and refreshing UpdatedAt.
func (r *ReadModel) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	order, err := r.log.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.policy.Allow(order.Status, status); err != nil {
		r.logger.Debug().
			Str("order_id", id).
			Str("from", string(order.Status)).
			Str("to", string(status)).
			Msg("status change rejected")
		return nil, err
	}

	from := order.Status
	order.Status = status
	order.UpdatedAt = r.now().UTC()

	if err := r.log.Replace(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save order status: %w", err)
	}

	r.logger.Info().
		Str("order_id", id).
		Str("from", string(from)).
		Str("to", string(status)).
		Msg("order status changed")

	if _, err := r.mirror.Upsert(context.WithoutCancel(ctx), id, order); err != nil {
		r.degraded("order_status", id, err)
	}

	return order, nil
}

// Delete removes an order from the log unconditionally. Callers enforce who
// may delete what.
func (r *ReadModel) Delete(ctx context.Context, id string) error {
	if err := r.log.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	err := r.mirror.Delete(context.WithoutCancel(ctx), id)
	if err != nil && !errors.Is(err, remote.ErrNotFound) {
		r.degraded("order_delete", id, err)
	}

	r.logger.Info().Str("order_id", id).Msg("order deleted")
	return nil
}

func (r *ReadModel) degraded(operation, id string, err error) {
	r.metrics.DegradedWrite(operation)
	r.logger.Warn().
		Err(err).
		Bool("degraded", true).
		Str("operation", operation).
		Str("order_id", id).
		Msg("order changed locally but not mirrored remotely")
}
