package model

import (
	"net/mail"
	"strings"
	"unicode"
)

// CheckoutRequest represents the shipping and payment form submitted at checkout.
type CheckoutRequest struct {
	CustomerName    string          `json:"customerName"`
	CustomerEmail   string          `json:"customerEmail"`
	CustomerPhone   string          `json:"customerPhone,omitempty"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	Card            *CardDetails    `json:"card,omitempty"`
}

// CardDetails are collected by the form and only checked for shape.
// They are never stored on the order or sent anywhere.
type CardDetails struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVC    string `json:"cvc"`
}

// Validate returns a *ValidationError describing every malformed field, or nil.
func (r *CheckoutRequest) Validate() error {
	v := &ValidationError{}

	if strings.TrimSpace(r.CustomerName) == "" {
		v.Add("customerName", "name is required")
	}
	if _, err := mail.ParseAddress(r.CustomerEmail); err != nil {
		v.Add("customerEmail", "a valid email is required")
	}
	if r.CustomerPhone != "" && countDigits(r.CustomerPhone) < 7 {
		v.Add("customerPhone", "phone number is too short")
	}

	a := r.ShippingAddress
	if strings.TrimSpace(a.Street) == "" {
		v.Add("shippingAddress.street", "street is required")
	}
	if strings.TrimSpace(a.City) == "" {
		v.Add("shippingAddress.city", "city is required")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		v.Add("shippingAddress.postalCode", "postal code is required")
	}
	if strings.TrimSpace(a.Country) == "" {
		v.Add("shippingAddress.country", "country is required")
	}

	if !r.PaymentMethod.Valid() {
		v.Add("paymentMethod", "payment method must be card, cash_on_delivery or paypal")
	}
	if r.PaymentMethod == PaymentCard {
		validateCard(r.Card, v)
	}

	return v.OrNil()
}

func validateCard(c *CardDetails, v *ValidationError) {
	if c == nil {
		v.Add("card", "card details are required for card payments")
		return
	}
	digits := strings.ReplaceAll(c.Number, " ", "")
	if len(digits) < 12 || len(digits) > 19 || countDigits(digits) != len(digits) {
		v.Add("card.number", "card number is invalid")
	}
	if len(c.Expiry) != 5 || c.Expiry[2] != '/' {
		v.Add("card.expiry", "expiry must be MM/YY")
	}
	if len(c.CVC) < 3 || len(c.CVC) > 4 || countDigits(c.CVC) != len(c.CVC) {
		v.Add("card.cvc", "cvc is invalid")
	}
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
