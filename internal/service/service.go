package service

import (
	"context"

	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/model"
)

// ProductService defines read operations over the product catalogue.
type ProductService interface {
	// List returns the products matching filter.
	List(ctx context.Context, filter catalog.Filter) ([]model.Product, error)

	// Get retrieves a single product by ID.
	Get(ctx context.Context, id string) (*model.Product, error)

	// Categories returns the distinct product categories.
	Categories(ctx context.Context) ([]string, error)
}

// CartService defines operations on the cart of a session.
type CartService interface {
	// View returns the current cart.
	View(ctx context.Context, sessionID string) model.CartView

	// AddItem adds a product in the chosen variant, merging with an existing line.
	AddItem(ctx context.Context, sessionID string, req *model.AddToCartRequest) (model.CartView, error)

	// UpdateItem sets the quantity of a line; zero or less removes it.
	UpdateItem(ctx context.Context, sessionID string, req *model.UpdateCartItemRequest) model.CartView

	// RemoveItem deletes a line if present.
	RemoveItem(ctx context.Context, sessionID string, key model.LineKey) model.CartView

	// Clear empties the cart.
	Clear(ctx context.Context, sessionID string)

	// Checkout places an order for the cart contents. userID is empty for guests.
	Checkout(ctx context.Context, sessionID, userID string, req *model.CheckoutRequest) (*checkout.Result, error)
}

// OrderService defines the operations a customer may perform on their own orders.
type OrderService interface {
	// List returns the user's orders in the order they were placed.
	List(ctx context.Context, userID string) ([]model.Order, error)

	// Stats returns the user's order counts per status.
	Stats(ctx context.Context, userID string) (model.OrderStats, error)

	// Get retrieves one of the user's orders.
	Get(ctx context.Context, userID, orderID string) (*model.Order, error)

	// Cancel moves one of the user's orders to cancelled if its status allows.
	Cancel(ctx context.Context, userID, orderID string) (*model.Order, error)

	// DeleteOwn deletes one of the user's orders while it is still pending.
	DeleteOwn(ctx context.Context, userID, orderID string) error
}
