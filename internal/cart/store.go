// Package cart holds shopping cart state for a browsing session.
package cart

import (
	"sync"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// Store is the cart of a single session: an insertion-ordered set of lines
// keyed by product and variant. It never fails; out-of-range quantities are
// normalised instead. A Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	lines []model.CartLineItem

	// checkout is held from the moment an order is priced from the cart
	// until its lines are removed.
	checkout sync.Mutex
}

// New returns an empty cart.
func New() *Store {
	return &Store{}
}

// NewFromItems returns a cart holding items, dropping any non-positive lines
// and merging duplicate keys.
func NewFromItems(items []model.CartLineItem) *Store {
	s := New()
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		s.add(item)
	}
	return s
}

// AddItem puts quantity units of product into the cart. If a line with the
// same product, size and colour exists its quantity is increased; otherwise a
// new line is appended. Quantities below one are treated as one.
func (s *Store) AddItem(product model.Product, quantity int, size, color string) {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.add(model.CartLineItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.Image,
		Category:  product.Category,
		Quantity:  quantity,
		Size:      size,
		Color:     color,
	})
}

func (s *Store) add(item model.CartLineItem) {
	if i := s.indexOf(item.Key()); i >= 0 {
		s.lines[i].Quantity += item.Quantity
		return
	}
	s.lines = append(s.lines, item)
}

// UpdateQuantity sets the quantity of the line identified by key. A quantity
// of zero or less removes the line. Unknown keys are ignored.
func (s *Store) UpdateQuantity(key model.LineKey, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(key)
	if i < 0 {
		return
	}
	if quantity <= 0 {
		s.removeAt(i)
		return
	}
	s.lines[i].Quantity = quantity
}

// RemoveItem deletes the line identified by key, if present.
func (s *Store) RemoveItem(key model.LineKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(key); i >= 0 {
		s.removeAt(i)
	}
}

// Total returns the sum of price times quantity over all lines.
func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
}

// BeginCheckout serialises checkouts of this cart. The returned function
// releases it and must be called exactly once.
func (s *Store) BeginCheckout() (release func()) {
	s.checkout.Lock()
	return s.checkout.Unlock
}

// RemoveOrdered subtracts the quantities of ordered from the matching lines,
// dropping lines that reach zero. Lines added after the order was taken, and
// units added to an ordered line since, stay in the cart.
func (s *Store) RemoveOrdered(ordered []model.CartLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range ordered {
		i := s.indexOf(item.Key())
		if i < 0 {
			continue
		}
		if s.lines[i].Quantity <= item.Quantity {
			s.removeAt(i)
			continue
		}
		s.lines[i].Quantity -= item.Quantity
	}
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []model.CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.CartLineItem, len(s.lines))
	copy(items, s.lines)
	return items
}

// Get returns the line identified by key.
func (s *Store) Get(key model.LineKey) (model.CartLineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(key); i >= 0 {
		return s.lines[i], true
	}
	return model.CartLineItem{}, false
}

// Len returns the number of distinct lines.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.lines)
}

// ItemCount returns the number of units across all lines.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, line := range s.lines {
		n += line.Quantity
	}
	return n
}

// View returns the client-facing representation of the cart.
func (s *Store) View() model.CartView {
	items := s.Items()
	total := decimal.Zero
	count := 0
	for _, line := range items {
		total = total.Add(line.Subtotal())
		count += line.Quantity
	}
	return model.CartView{Items: items, ItemCount: count, Total: total}
}

func (s *Store) indexOf(key model.LineKey) int {
	for i := range s.lines {
		if s.lines[i].Key() == key {
			return i
		}
	}
	return -1
}

func (s *Store) removeAt(i int) {
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
}
