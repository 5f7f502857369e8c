// Package checkout turns a session cart into a placed order.
package checkout

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/cart"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ProductStore reads and overwrites products in the system that owns stock.
type ProductStore interface {
	Get(ctx context.Context, id string) (*model.Product, error)
	Replace(ctx context.Context, id string, p *model.Product) (*model.Product, error)
}

// OrderMirror receives a copy of every placed order.
type OrderMirror interface {
	Create(ctx context.Context, o *model.Order) (*model.Order, error)
}

// MirrorState reports whether the remote copy of an order was written.
type MirrorState string

const (
	MirrorSynced   MirrorState = "synced"
	MirrorDegraded MirrorState = "degraded"
)

// Config holds the pricing applied at checkout.
type Config struct {
	TaxRate     decimal.Decimal
	ShippingFee decimal.Decimal
}

// Result is the outcome of a successful checkout. The order is durable even
// when Mirror is degraded or StockWarnings is non-empty.
type Result struct {
	Order         *model.Order `json:"order"`
	Mirror        MirrorState  `json:"mirror"`
	StockWarnings []string     `json:"stockWarnings,omitempty"`
}

// Service places orders. The order log append is the only step whose failure
// aborts a checkout once stock has been checked.
type Service struct {
	cfg      Config
	products ProductStore
	orders   repository.OrderLog
	mirror   OrderMirror
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a checkout service.
func NewService(
	cfg Config,
	products ProductStore,
	orders repository.OrderLog,
	mirror OrderMirror,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		cfg:      cfg,
		products: products,
		orders:   orders,
		mirror:   mirror,
		metrics:  m,
		logger:   logger.With().Str("service", "checkout").Logger(),
		now:      time.Now,
	}
}

// Place checks stock, prices and persists an order for the contents of c,
// removes the ordered lines from the cart, then mirrors the order remotely and
// decrements stock. userID may be empty for guests.
func (s *Service) Place(ctx context.Context, c *cart.Store, userID string, req model.CheckoutRequest) (*Result, error) {
	// A concurrent checkout of the same cart waits here and then finds it
	// emptied by this one.
	release := c.BeginCheckout()
	defer release()

	lines := c.Items()
	if len(lines) == 0 {
		s.metrics.Checkout(metrics.OutcomeEmptyCart)
		return nil, model.ErrEmptyCart
	}

	if err := req.Validate(); err != nil {
		s.metrics.Checkout(metrics.OutcomeInvalid)
		return nil, err
	}

	if err := s.checkStock(ctx, lines); err != nil {
		s.metrics.Checkout(metrics.OutcomeOutOfStock)
		return nil, err
	}

	order, err := s.buildOrder(lines, userID, req)
	if err != nil {
		return nil, err
	}

	if err := s.orders.Append(ctx, order); err != nil {
		s.metrics.Checkout(metrics.OutcomePersistFailed)
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID).
			Str("user_id", order.UserID).
			Msg("failed to persist order, cart kept")
		return nil, fmt.Errorf("%w: %w", model.ErrPersistOrder, err)
	}

	c.RemoveOrdered(lines)

	// The order is durable from here on; the remaining steps must not be
	// abandoned because the caller went away.
	bg := context.WithoutCancel(ctx)

	result := &Result{Order: order, Mirror: s.mirrorOrder(bg, order)}
	result.StockWarnings = s.decrementStock(bg, lines)

	s.metrics.Checkout(metrics.OutcomePlaced)

	s.logger.Info().
		Str("order_id", order.ID).
		Str("user_id", order.UserID).
		Int("items", order.ItemCount()).
		Str("total", order.Total.StringFixed(2)).
		Str("mirror", string(result.Mirror)).
		Int("stock_warnings", len(result.StockWarnings)).
		Msg("order placed")

	return result, nil
}

// checkStock rejects the checkout if any line asks for more than is in stock.
// Lines whose product cannot be fetched are not checked.
func (s *Service) checkStock(ctx context.Context, lines []model.CartLineItem) error {
	for _, line := range lines {
		product, err := s.products.Get(ctx, line.ProductID)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("product_id", line.ProductID).
				Msg("stock check skipped, product fetch failed")
			continue
		}

		if product.Stock == 0 || product.Stock < line.Quantity {
			name := product.Name
			if name == "" {
				name = line.Name
			}
			s.logger.Info().
				Str("product_id", line.ProductID).
				Int("stock", product.Stock).
				Int("requested", line.Quantity).
				Msg("checkout rejected, insufficient stock")
			return model.NewOutOfStockError(name, product.Stock, line.Quantity)
		}
	}
	return nil
}

func (s *Service) buildOrder(lines []model.CartLineItem, userID string, req model.CheckoutRequest) (*model.Order, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate order id: %w", err)
	}

	now := s.now().UTC()
	if userID == "" {
		userID = fmt.Sprintf("guest-%d", now.UnixMilli())
	}

	subtotal := decimal.Zero
	items := make([]model.OrderItem, 0, len(lines))
	for _, line := range lines {
		subtotal = subtotal.Add(line.Subtotal())
		items = append(items, model.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			Image:     line.Image,
			Quantity:  line.Quantity,
			Size:      line.Size,
			Color:     line.Color,
		})
	}

	tax := subtotal.Mul(s.cfg.TaxRate).Round(2)

	return &model.Order{
		ID:              id.String(),
		UserID:          userID,
		Items:           items,
		Subtotal:        subtotal,
		Tax:             tax,
		Total:           subtotal.Add(tax),
		ShippingFee:     s.cfg.ShippingFee,
		Status:          model.StatusPending,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (s *Service) mirrorOrder(ctx context.Context, order *model.Order) MirrorState {
	if _, err := s.mirror.Create(ctx, order); err != nil {
		s.metrics.DegradedWrite("order_mirror")
		s.logger.Warn().
			Err(err).
			Bool("degraded", true).
			Str("order_id", order.ID).
			Msg("order saved locally but not mirrored remotely")
		return MirrorDegraded
	}
	return MirrorSynced
}

// decrementStock writes max(0, stock-qty) back for every line. The read and
// the write are separate calls, so concurrent checkouts can lose updates.
func (s *Service) decrementStock(ctx context.Context, lines []model.CartLineItem) []string {
	var warnings []string
	for _, line := range lines {
		product, err := s.products.Get(ctx, line.ProductID)
		if err != nil {
			warnings = append(warnings, s.stockWarning(line, "fetch", err))
			continue
		}

		product.Stock = max(0, product.Stock-line.Quantity)
		if _, err := s.products.Replace(ctx, product.ID, product); err != nil {
			warnings = append(warnings, s.stockWarning(line, "update", err))
		}
	}
	return warnings
}

func (s *Service) stockWarning(line model.CartLineItem, step string, err error) string {
	s.metrics.DegradedWrite("stock_decrement")
	s.logger.Warn().
		Err(err).
		Bool("degraded", true).
		Str("product_id", line.ProductID).
		Str("step", step).
		Msg("stock not decremented")
	return fmt.Sprintf("stock for %s could not be updated", line.Name)
}
