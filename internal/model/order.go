package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// ParseOrderStatus converts s into a known status.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, status := range OrderStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", ErrInvalidStatus
}

// IsTerminal reports whether no further transitions leave this status.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// PaymentMethod is how the customer intends to pay.
type PaymentMethod string

const (
	PaymentCard           PaymentMethod = "card"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentPayPal         PaymentMethod = "paypal"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCard, PaymentCashOnDelivery, PaymentPayPal:
		return true
	}
	return false
}

// ShippingAddress is where an order is delivered.
type ShippingAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Order represents a placed customer order.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	ShippingFee     decimal.Decimal `json:"shippingFee"`
	Status          OrderStatus     `json:"status"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	CustomerName    string          `json:"customerName"`
	CustomerEmail   string          `json:"customerEmail"`
	CustomerPhone   string          `json:"customerPhone,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Validate rejects order payloads without an identity, owner or known status,
// orders with no items, and orders whose total is not subtotal plus tax.
func (o *Order) Validate() error {
	var errs []error
	if strings.TrimSpace(o.ID) == "" {
		errs = append(errs, errors.New("order id is required"))
	}
	if strings.TrimSpace(o.UserID) == "" {
		errs = append(errs, errors.New("order user id is required"))
	}
	if _, err := ParseOrderStatus(string(o.Status)); err != nil {
		errs = append(errs, fmt.Errorf("order status %q: %w", o.Status, err))
	}
	if len(o.Items) == 0 {
		errs = append(errs, errors.New("order has no items"))
	}
	if !o.Total.Equal(o.Subtotal.Add(o.Tax)) {
		errs = append(errs, fmt.Errorf("order total %s is not subtotal %s plus tax %s", o.Total, o.Subtotal, o.Tax))
	}
	for i, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, fmt.Errorf("item %d: quantity must be positive", i))
		}
	}
	return errors.Join(errs...)
}

// AmountDue is the order total plus any shipping fee.
func (o *Order) AmountDue() decimal.Decimal {
	return o.Total.Add(o.ShippingFee)
}

// ItemCount returns the number of units across all lines.
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// OrderItem is a snapshot of a cart line taken when the order was placed.
// Later product edits never change it.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
}

// OrderStats is a per-status breakdown of a user's orders.
type OrderStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Shipped    int `json:"shipped"`
	Delivered  int `json:"delivered"`
	Cancelled  int `json:"cancelled"`
}

// Count adds one order with the given status.
func (s *OrderStats) Count(status OrderStatus) {
	s.Total++
	switch status {
	case StatusPending:
		s.Pending++
	case StatusProcessing:
		s.Processing++
	case StatusShipped:
		s.Shipped++
	case StatusDelivered:
		s.Delivered++
	case StatusCancelled:
		s.Cancelled++
	}
}

// UpdateStatusRequest represents the payload for changing an order's status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}
