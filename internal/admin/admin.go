// Package admin implements the back-office operations: the dashboard summary
// and CRUD over products, users and orders.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"storefront/internal/model"
	"storefront/internal/remote"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Collection is a remote CRUD collection.
type Collection[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, v *T) (*T, error)
	Replace(ctx context.Context, id string, v *T) (*T, error)
	Delete(ctx context.Context, id string) error
}

// OrderAdmin is the order read-model as seen by operators.
type OrderAdmin interface {
	All(ctx context.Context) ([]model.Order, error)
	Get(ctx context.Context, id string) (*model.Order, error)
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error)
	Delete(ctx context.Context, id string) error
}

// Summary is the dashboard overview.
type Summary struct {
	ProductCount    int              `json:"productCount"`
	LowStock        []model.Product  `json:"lowStock"`
	UserCount       int              `json:"userCount"`
	OrderCount      int              `json:"orderCount"`
	Revenue         decimal.Decimal  `json:"revenue"`
	StatusBreakdown model.OrderStats `json:"statusBreakdown"`
}

// Service implements the admin operations.
type Service struct {
	products          Collection[model.Product]
	users             Collection[model.User]
	orders            OrderAdmin
	lowStockThreshold int
	logger            zerolog.Logger
}

// NewService creates an admin service. Products at or below lowStockThreshold
// are reported on the dashboard.
func NewService(
	products Collection[model.Product],
	users Collection[model.User],
	orders OrderAdmin,
	lowStockThreshold int,
	logger zerolog.Logger,
) *Service {
	return &Service{
		products:          products,
		users:             users,
		orders:            orders,
		lowStockThreshold: lowStockThreshold,
		logger:            logger.With().Str("service", "admin").Logger(),
	}
}

// Summary gathers the dashboard figures. The three sources are read
// concurrently and any failure fails the whole summary.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var (
		products []model.Product
		users    []model.User
		orders   []model.Order
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.products.List(gctx)
		if err != nil {
			return fmt.Errorf("failed to list products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		users, err = s.users.List(gctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		orders, err = s.orders.All(gctx)
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("failed to build dashboard summary")
		return nil, err
	}

	summary := &Summary{
		ProductCount: len(products),
		LowStock:     []model.Product{},
		UserCount:    len(users),
		OrderCount:   len(orders),
		Revenue:      decimal.Zero,
	}

	for _, p := range products {
		if p.Stock <= s.lowStockThreshold {
			summary.LowStock = append(summary.LowStock, p)
		}
	}
	sort.SliceStable(summary.LowStock, func(i, j int) bool {
		return summary.LowStock[i].Stock < summary.LowStock[j].Stock
	})

	for i := range orders {
		summary.StatusBreakdown.Count(orders[i].Status)
		if orders[i].Status != model.StatusCancelled {
			summary.Revenue = summary.Revenue.Add(orders[i].AmountDue())
		}
	}

	return summary, nil
}

// Products lists every product.
func (s *Service) Products(ctx context.Context) ([]model.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// CreateProduct validates p, assigns an ID if it has none and stores it.
func (s *Service) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := p.Validate(); err != nil {
		return nil, invalid("product", err)
	}

	created, err := s.products.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info().Str("product_id", created.ID).Str("name", created.Name).Msg("product created")
	return created, nil
}

// UpdateProduct replaces the product with the given ID.
func (s *Service) UpdateProduct(ctx context.Context, id string, p *model.Product) (*model.Product, error) {
	p.ID = id
	if err := p.Validate(); err != nil {
		return nil, invalid("product", err)
	}

	updated, err := s.products.Replace(ctx, id, p)
	if err != nil {
		return nil, notFoundAs(err, model.ErrProductNotFound, "failed to update product")
	}

	s.logger.Info().Str("product_id", id).Int("stock", updated.Stock).Msg("product updated")
	return updated, nil
}

// DeleteProduct removes the product with the given ID.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return notFoundAs(err, model.ErrProductNotFound, "failed to delete product")
	}
	s.logger.Info().Str("product_id", id).Msg("product deleted")
	return nil
}

// Users lists every user.
func (s *Service) Users(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CreateUser validates u, assigns an ID if it has none and stores it.
func (s *Service) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := u.Validate(); err != nil {
		return nil, invalid("user", err)
	}

	created, err := s.users.Create(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info().Str("user_id", created.ID).Str("role", string(created.Role)).Msg("user created")
	return created, nil
}

// UpdateUser replaces the user with the given ID.
func (s *Service) UpdateUser(ctx context.Context, id string, u *model.User) (*model.User, error) {
	u.ID = id
	if err := u.Validate(); err != nil {
		return nil, invalid("user", err)
	}

	updated, err := s.users.Replace(ctx, id, u)
	if err != nil {
		return nil, notFoundAs(err, model.ErrUserNotFound, "failed to update user")
	}
	return updated, nil
}

// DeleteUser removes the user with the given ID.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return notFoundAs(err, model.ErrUserNotFound, "failed to delete user")
	}
	s.logger.Info().Str("user_id", id).Msg("user deleted")
	return nil
}

// Orders lists every order in the log.
func (s *Service) Orders(ctx context.Context) ([]model.Order, error) {
	return s.orders.All(ctx)
}

// UpdateOrderStatus parses status and applies it to the order.
func (s *Service) UpdateOrderStatus(ctx context.Context, id, status string) (*model.Order, error) {
	next, err := model.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	return s.orders.UpdateStatus(ctx, id, next)
}

// DeleteOrder removes an order regardless of its status.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	if _, err := s.orders.Get(ctx, id); err != nil {
		return err
	}
	return s.orders.Delete(ctx, id)
}

func invalid(field string, err error) error {
	v := &model.ValidationError{}
	v.Add(field, err.Error())
	return v
}

func notFoundAs(err error, sentinel *model.DomainError, msg string) error {
	if errors.Is(err, remote.ErrNotFound) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", msg, err)
}
