package model

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Product represents a catalogue entry owned by the remote product service.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Image       string          `json:"image,omitempty"`
	Colors      []string        `json:"colors,omitempty"`
	Sizes       []string        `json:"sizes,omitempty"`
}

// Validate rejects product payloads that break catalogue invariants.
func (p *Product) Validate() error {
	var errs []error
	if strings.TrimSpace(p.ID) == "" {
		errs = append(errs, errors.New("product id is required"))
	}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("product name is required"))
	}
	if p.Price.IsNegative() {
		errs = append(errs, errors.New("product price must not be negative"))
	}
	if p.Stock < 0 {
		errs = append(errs, errors.New("product stock must not be negative"))
	}
	return errors.Join(errs...)
}

// HasColor reports whether color is one of the product's variants.
// Products without colour variants accept only the empty colour.
func (p *Product) HasColor(color string) bool {
	return hasVariant(p.Colors, color)
}

// HasSize reports whether size is one of the product's variants.
func (p *Product) HasSize(size string) bool {
	return hasVariant(p.Sizes, size)
}

func hasVariant(options []string, value string) bool {
	if value == "" {
		return true
	}
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
