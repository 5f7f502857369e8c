// Package catalog serves product browsing over the remote product collection.
// The API ignores query parameters, so filtering and sorting happen here.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"storefront/internal/model"
	"storefront/internal/remote"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// ProductSource reads products from the system that owns them.
type ProductSource interface {
	List(ctx context.Context) ([]model.Product, error)
	Get(ctx context.Context, id string) (*model.Product, error)
}

// SortOrder selects how listings are ordered.
type SortOrder string

const (
	SortNone      SortOrder = ""
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortNameAsc   SortOrder = "name_asc"
	SortNameDesc  SortOrder = "name_desc"
)

// ParseSortOrder converts a query value into a SortOrder.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case SortNone, SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc:
		return o, nil
	}
	return SortNone, fmt.Errorf("unknown sort order %q", s)
}

// Filter narrows a product listing. Zero values match everything.
type Filter struct {
	Category string
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	Sort     SortOrder
}

// Matches reports whether p passes every criterion of the filter.
func (f Filter) Matches(p *model.Product) bool {
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(strings.TrimSpace(f.Search))
		if !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			return false
		}
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.InStock && p.Stock <= 0 {
		return false
	}
	return true
}

// Service lists and looks up products.
type Service struct {
	source ProductSource
	group  singleflight.Group
	logger zerolog.Logger
}

// NewService creates a catalog over source.
func NewService(source ProductSource, logger zerolog.Logger) *Service {
	return &Service{
		source: source,
		logger: logger.With().Str("service", "catalog").Logger(),
	}
}

// List returns the products matching filter in the requested order.
func (s *Service) List(ctx context.Context, filter Filter) ([]model.Product, error) {
	all, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.Product, 0, len(all))
	for i := range all {
		if filter.Matches(&all[i]) {
			out = append(out, all[i])
		}
	}

	sortProducts(out, filter.Sort)

	s.logger.Debug().
		Int("total", len(all)).
		Int("matched", len(out)).
		Str("category", filter.Category).
		Msg("listed products")

	return out, nil
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.source.Get(ctx, id)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return nil, model.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to fetch product %s: %w", id, err)
	}
	return p, nil
}

// Categories returns the distinct product categories, sorted.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	all, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	categories := []string{}
	for _, p := range all {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

// fetchAll collapses concurrent listings into one remote call. The shared call
// is detached from the caller that started it, so one client going away does
// not fail the others; the remote client still bounds it with its timeout.
// Callers get a private copy of the slice since filtering and sorting work in
// place.
func (s *Service) fetchAll(ctx context.Context) ([]model.Product, error) {
	shared := context.WithoutCancel(ctx)
	v, err, wasShared := s.group.Do("products", func() (interface{}, error) {
		return s.source.List(shared)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if wasShared {
		s.logger.Debug().Msg("product listing shared with concurrent caller")
	}

	products := v.([]model.Product)
	out := make([]model.Product, len(products))
	copy(out, products)
	return out, nil
}

func sortProducts(products []model.Product, order SortOrder) {
	var less func(a, b *model.Product) bool
	switch order {
	case SortPriceAsc:
		less = func(a, b *model.Product) bool { return a.Price.LessThan(b.Price) }
	case SortPriceDesc:
		less = func(a, b *model.Product) bool { return a.Price.GreaterThan(b.Price) }
	case SortNameAsc:
		less = func(a, b *model.Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortNameDesc:
		less = func(a, b *model.Product) bool { return strings.ToLower(a.Name) > strings.ToLower(b.Name) }
	default:
		return
	}
	sort.SliceStable(products, func(i, j int) bool { return less(&products[i], &products[j]) })
}
