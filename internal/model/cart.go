package model

import "github.com/shopspring/decimal"

// LineKey identifies a cart line: the same product in a different size or
// colour is a different line.
type LineKey struct {
	ProductID string `json:"productId"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// CartLineItem is a product placed in the cart with a chosen variant.
type CartLineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Category  string          `json:"category,omitempty"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
}

// Key returns the identity of the line.
func (l CartLineItem) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Size: l.Size, Color: l.Color}
}

// Subtotal returns price times quantity.
func (l CartLineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartView is the read shape of a cart returned to clients.
type CartView struct {
	Items     []CartLineItem  `json:"items"`
	ItemCount int             `json:"itemCount"`
	Total     decimal.Decimal `json:"total"`
}

// AddToCartRequest represents the payload for adding a product to the cart.
type AddToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// UpdateCartItemRequest sets the quantity of an existing line.
type UpdateCartItemRequest struct {
	LineKey
	Quantity int `json:"quantity"`
}
