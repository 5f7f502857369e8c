package service

import (
	"context"
	"strings"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Checkouter places an order for a cart.
type Checkouter interface {
	Place(ctx context.Context, c *cart.Store, userID string, req model.CheckoutRequest) (*checkout.Result, error)
}

// cartService implements CartService.
type cartService struct {
	sessions *cart.Sessions
	products ProductService
	checkout Checkouter
	logger   zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	sessions *cart.Sessions,
	products ProductService,
	checkout Checkouter,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		sessions: sessions,
		products: products,
		checkout: checkout,
		logger:   logger.With().Str("service", "cart").Logger(),
	}
}

func (s *cartService) View(ctx context.Context, sessionID string) model.CartView {
	return s.sessions.Get(ctx, sessionID).View()
}

// AddItem resolves the product from the catalogue so the line carries its
// current name and price, then adds it to the cart.
func (s *cartService) AddItem(ctx context.Context, sessionID string, req *model.AddToCartRequest) (model.CartView, error) {
	if strings.TrimSpace(req.ProductID) == "" {
		v := &model.ValidationError{}
		v.Add("productId", "product ID is required")
		return model.CartView{}, v
	}

	product, err := s.products.Get(ctx, req.ProductID)
	if err != nil {
		s.logger.Debug().Err(err).Str("product_id", req.ProductID).Msg("cannot add product to cart")
		return model.CartView{}, err
	}

	v := &model.ValidationError{}
	if !product.HasSize(req.Size) {
		v.Add("size", "size "+req.Size+" is not available for "+product.Name)
	}
	if !product.HasColor(req.Color) {
		v.Add("color", "colour "+req.Color+" is not available for "+product.Name)
	}
	if err := v.OrNil(); err != nil {
		return model.CartView{}, err
	}

	store := s.sessions.Get(ctx, sessionID)
	store.AddItem(*product, req.Quantity, req.Size, req.Color)
	s.sessions.Persist(ctx, sessionID, store)

	s.logger.Debug().
		Str("session_id", sessionID).
		Str("product_id", product.ID).
		Int("quantity", req.Quantity).
		Msg("item added to cart")

	return store.View(), nil
}

func (s *cartService) UpdateItem(ctx context.Context, sessionID string, req *model.UpdateCartItemRequest) model.CartView {
	store := s.sessions.Get(ctx, sessionID)
	store.UpdateQuantity(req.LineKey, req.Quantity)
	s.sessions.Persist(ctx, sessionID, store)
	return store.View()
}

func (s *cartService) RemoveItem(ctx context.Context, sessionID string, key model.LineKey) model.CartView {
	store := s.sessions.Get(ctx, sessionID)
	store.RemoveItem(key)
	s.sessions.Persist(ctx, sessionID, store)
	return store.View()
}

func (s *cartService) Clear(ctx context.Context, sessionID string) {
	store := s.sessions.Get(ctx, sessionID)
	store.Clear()
	s.sessions.Persist(ctx, sessionID, store)
}

// Checkout places the order. On failure the cart is left exactly as it was.
func (s *cartService) Checkout(ctx context.Context, sessionID, userID string, req *model.CheckoutRequest) (*checkout.Result, error) {
	store := s.sessions.Get(ctx, sessionID)

	result, err := s.checkout.Place(ctx, store, userID, *req)
	if err != nil {
		return nil, err
	}

	s.sessions.Persist(ctx, sessionID, store)
	return result, nil
}
