package repository

import (
	"context"
	"errors"

	"storefront/internal/model"
)

// ErrDuplicateOrder is returned when an order with the same ID is already logged.
var ErrDuplicateOrder = errors.New("order already exists")

// OrderLog is the durable system of record for placed orders. Orders are kept
// in the order they were appended.
type OrderLog interface {
	// Append adds a new order to the end of the log.
	// Returns ErrDuplicateOrder if the ID is already present.
	Append(ctx context.Context, order *model.Order) error

	// List returns every order in insertion order.
	List(ctx context.Context) ([]model.Order, error)

	// ListByUser returns the orders owned by userID in insertion order.
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)

	// Get retrieves a single order by its ID.
	// Returns model.ErrOrderNotFound if it does not exist.
	Get(ctx context.Context, id string) (*model.Order, error)

	// Replace overwrites the stored order that has the same ID.
	// Returns model.ErrOrderNotFound if it does not exist.
	Replace(ctx context.Context, order *model.Order) error

	// Delete removes the order with the given ID. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
}
