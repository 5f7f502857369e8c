package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/cart"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductStore is a mock implementation of ProductStore. Get returns a
// copy so the service cannot mutate the fixture between calls.
type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) Get(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	p := *args.Get(0).(*model.Product)
	return &p, args.Error(1)
}

func (m *MockProductStore) Replace(ctx context.Context, id string, p *model.Product) (*model.Product, error) {
	args := m.Called(ctx, id, p)
	return p, args.Error(0)
}

// MockOrderMirror is a mock implementation of OrderMirror.
type MockOrderMirror struct {
	mock.Mock
}

func (m *MockOrderMirror) Create(ctx context.Context, o *model.Order) (*model.Order, error) {
	args := m.Called(ctx, o)
	return o, args.Error(0)
}

// failingLog rejects every append.
type failingLog struct {
	repository.OrderLog
	err error
}

func (f failingLog) Append(context.Context, *model.Order) error { return f.err }

type fixture struct {
	svc      *Service
	products *MockProductStore
	mirror   *MockOrderMirror
	log      repository.OrderLog
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T, log repository.OrderLog) *fixture {
	t.Helper()
	if log == nil {
		log = repository.NewMemoryOrderLog()
	}
	f := &fixture{
		products: new(MockProductStore),
		mirror:   new(MockOrderMirror),
		log:      log,
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	cfg := Config{TaxRate: decimal.RequireFromString("0.1"), ShippingFee: decimal.Zero}
	f.svc = NewService(cfg, f.products, f.log, f.mirror, f.metrics, zerolog.Nop())
	return f
}

func validRequest() model.CheckoutRequest {
	return model.CheckoutRequest{
		CustomerName:  "Ada Lovelace",
		CustomerEmail: "ada@example.com",
		ShippingAddress: model.ShippingAddress{
			Street:     "12 Analytical Way",
			City:       "London",
			PostalCode: "N1 9GU",
			Country:    "UK",
		},
		PaymentMethod: model.PaymentCashOnDelivery,
	}
}

func product(id, name, price string, stock int) *model.Product {
	return &model.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Stock: stock, Category: "misc"}
}

func withStock(stock int) any {
	return mock.MatchedBy(func(p *model.Product) bool { return p.Stock == stock })
}

func TestService_Place_EndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	a := product("A", "Walnut Desk", "100", 10)
	f.products.On("Get", mock.Anything, "A").Return(a, nil)
	f.products.On("Replace", mock.Anything, "A", withStock(8)).Return(nil).Once()
	f.mirror.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	c := cart.New()
	c.AddItem(*a, 2, "", "")

	result, err := f.svc.Place(context.Background(), c, "user-1", validRequest())

	require.NoError(t, err)
	order := result.Order
	assert.Equal(t, "200", order.Subtotal.String())
	assert.Equal(t, "20", order.Tax.String())
	assert.Equal(t, "220", order.Total.String())
	assert.True(t, order.Total.Equal(order.Subtotal.Add(order.Tax)))
	assert.Equal(t, model.StatusPending, order.Status)
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, MirrorSynced, result.Mirror)
	assert.Empty(t, result.StockWarnings)
	assert.Equal(t, 0, c.Len())

	logged, err := f.log.List(context.Background())
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, order.ID, logged[0].ID)
	require.Len(t, logged[0].Items, 1)
	assert.Equal(t, "Walnut Desk", logged[0].Items[0].Name)
	assert.Equal(t, 2, logged[0].Items[0].Quantity)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CheckoutsTotal.WithLabelValues(metrics.OutcomePlaced)))
	f.products.AssertExpectations(t)
	f.mirror.AssertExpectations(t)
}

func TestService_Place_KeepsLinesAddedDuringCheckout(t *testing.T) {
	f := newFixture(t, nil)
	a := product("A", "Walnut Desk", "100", 10)
	b := product("B", "Lamp", "20", 10)

	c := cart.New()
	c.AddItem(*a, 2, "", "")

	// The stock check reads A first; the decrement re-reads it after the
	// order is logged, which is when the concurrent edits land.
	f.products.On("Get", mock.Anything, "A").Return(a, nil).Once()
	f.products.On("Get", mock.Anything, "A").Run(func(mock.Arguments) {
		c.AddItem(*a, 1, "", "")
		c.AddItem(*b, 1, "", "")
	}).Return(a, nil).Once()
	f.products.On("Replace", mock.Anything, "A", withStock(8)).Return(nil).Once()
	f.mirror.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	result, err := f.svc.Place(context.Background(), c, "user-1", validRequest())

	require.NoError(t, err)
	require.Len(t, result.Order.Items, 1)
	assert.Equal(t, 2, result.Order.Items[0].Quantity)

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].ProductID)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, "B", items[1].ProductID)
	assert.Equal(t, 1, items[1].Quantity)
	f.products.AssertExpectations(t)
}

func TestService_Place_ConcurrentCheckoutsOfOneCartPlaceOneOrder(t *testing.T) {
	f := newFixture(t, nil)
	a := product("A", "Walnut Desk", "100", 10)
	f.products.On("Get", mock.Anything, "A").Return(a, nil)
	f.products.On("Replace", mock.Anything, "A", mock.Anything).Return(nil)
	f.mirror.On("Create", mock.Anything, mock.Anything).Return(nil)

	c := cart.New()
	c.AddItem(*a, 1, "", "")

	const attempts = 4
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Place(context.Background(), c, "user-1", validRequest())
		}(i)
	}
	wg.Wait()

	placed := 0
	for _, err := range errs {
		if err == nil {
			placed++
			continue
		}
		assert.ErrorIs(t, err, model.ErrEmptyCart)
	}
	assert.Equal(t, 1, placed)

	logged, err := f.log.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, logged, 1)
	assert.Equal(t, 0, c.Len())
}

func TestService_Place_SnapshotIsolatedFromLaterProductEdits(t *testing.T) {
	f := newFixture(t, nil)
	a := product("A", "Lamp", "40", 5)
	f.products.On("Get", mock.Anything, "A").Return(a, nil)
	f.products.On("Replace", mock.Anything, "A", mock.Anything).Return(nil)
	f.mirror.On("Create", mock.Anything, mock.Anything).Return(nil)

	c := cart.New()
	c.AddItem(*a, 1, "", "white")
	result, err := f.svc.Place(context.Background(), c, "u", validRequest())
	require.NoError(t, err)

	a.Name = "Renamed Lamp"
	a.Price = decimal.RequireFromString("99")

	stored, err := f.log.Get(context.Background(), result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", stored.Items[0].Name)
	assert.Equal(t, "40", stored.Items[0].Price.String())
	assert.Equal(t, "white", stored.Items[0].Color)
}

func TestService_Place_OutOfStock(t *testing.T) {
	tests := []struct {
		name      string
		stock     int
		requested int
		message   string
	}{
		{name: "Insufficient stock", stock: 3, requested: 5, message: "Walnut Desk has only 3 left in stock (requested 5)"},
		{name: "Zero stock", stock: 0, requested: 1, message: "Walnut Desk is out of stock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			a := product("A", "Walnut Desk", "100", tt.stock)
			f.products.On("Get", mock.Anything, "A").Return(a, nil)

			c := cart.New()
			c.AddItem(*a, tt.requested, "", "")
			before := c.Items()

			result, err := f.svc.Place(context.Background(), c, "user-1", validRequest())

			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, model.ErrOutOfStock)
			assert.Equal(t, tt.message, err.Error())
			assert.Equal(t, before, c.Items())

			logged, _ := f.log.List(context.Background())
			assert.Empty(t, logged)
			f.products.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything, mock.Anything)
			f.mirror.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CheckoutsTotal.WithLabelValues(metrics.OutcomeOutOfStock)))
		})
	}
}

func TestService_Place_StopsAtFirstShortLine(t *testing.T) {
	f := newFixture(t, nil)
	a := product("A", "Mug", "5", 1)
	b := product("B", "Plate", "7", 9)
	f.products.On("Get", mock.Anything, "A").Return(a, nil).Once()

	c := cart.New()
	c.AddItem(*a, 2, "", "")
	c.AddItem(*b, 1, "", "")

	_, err := f.svc.Place(context.Background(), c, "", validRequest())

	assert.ErrorIs(t, err, model.ErrOutOfStock)
	assert.Contains(t, err.Error(), "Mug")
	f.products.AssertNotCalled(t, "Get", mock.Anything, "B")
}

func TestService_Place_StockFetchFailureSkipsCheck(t *testing.T) {
	f := newFixture(t, nil)
	a := product("A", "Mug", "5", 10)
	f.products.On("Get", mock.Anything, "A").Return(nil, errors.New("timeout")).Once()
	f.products.On("Get", mock.Anything, "A").Return(a, nil).Once()
	f.products.On("Replace", mock.Anything, "A", withStock(7)).Return(nil).Once()
	f.mirror.On("Create", mock.Anything, mock.Anything).Return(nil)

	c := cart.New()
	c.AddItem(*a, 3, "", "")

	result, err := f.svc.Place(context.Background(), c, "u", validRequest())

	require.NoError(t, err)
	assert.Equal(t, "15", result.Order.Subtotal.String())
	f.products.AssertExpectations(t)
}

func TestService_Place_MirrorFailureIsDegraded(t *testing.T) {
	f := newFixture(t, nil)
	a := product("A", "Mug", "5", 10)
	f.products.On("Get", mock.Anything, "A").Return(a, nil)
	f.products.On("Replace", mock.Anything, "A", withStock(9)).Return(nil)
	f.mirror.On("Create", mock.Anything, mock.Anything).Return(errors.New("503 service unavailable"))

	c := cart.New()
	c.AddItem(*a, 1, "", "")

	result, err := f.svc.Place(context.Background(), c, "u", validRequest())

	require.NoError(t, err)
	assert.Equal(t, MirrorDegraded, result.Mirror)
	assert.Equal(t, 0, c.Len())
	_, err = f.log.Get(context.Background(), result.Order.ID)
	assert.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.DegradedWritesTotal.WithLabelValues("order_mirror")))
	f.products.AssertCalled(t, "Replace", mock.Anything, "A", mock.Anything)
}

func TestService_Place_StockDecrementFailuresAreWarnings(t *testing.T) {
	f := newFixture(t, nil)
	a := product("A", "Mug", "5", 10)
	b := product("B", "Plate", "7", 4)
	f.products.On("Get", mock.Anything, "A").Return(a, nil)
	f.products.On("Get", mock.Anything, "B").Return(b, nil).Once()
	f.products.On("Get", mock.Anything, "B").Return(nil, errors.New("connection reset")).Once()
	f.products.On("Replace", mock.Anything, "A", withStock(8)).Return(errors.New("500 internal"))
	f.mirror.On("Create", mock.Anything, mock.Anything).Return(nil)

	c := cart.New()
	c.AddItem(*a, 2, "", "")
	c.AddItem(*b, 1, "", "")

	result, err := f.svc.Place(context.Background(), c, "u", validRequest())

	require.NoError(t, err)
	require.Len(t, result.StockWarnings, 2)
	assert.True(t, strings.Contains(result.StockWarnings[0], "Mug"))
	assert.True(t, strings.Contains(result.StockWarnings[1], "Plate"))
	assert.Equal(t, MirrorSynced, result.Mirror)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.DegradedWritesTotal.WithLabelValues("stock_decrement")))
}

func TestService_Place_DecrementClampsAtZero(t *testing.T) {
	f := newFixture(t, nil)
	a := product("A", "Mug", "5", 5)
	f.products.On("Get", mock.Anything, "A").Return(a, nil).Once()
	f.products.On("Get", mock.Anything, "A").Return(product("A", "Mug", "5", 1), nil).Once()
	f.products.On("Replace", mock.Anything, "A", withStock(0)).Return(nil).Once()
	f.mirror.On("Create", mock.Anything, mock.Anything).Return(nil)

	c := cart.New()
	c.AddItem(*a, 3, "", "")

	_, err := f.svc.Place(context.Background(), c, "u", validRequest())

	require.NoError(t, err)
	f.products.AssertExpectations(t)
}

func TestService_Place_PersistFailureKeepsCart(t *testing.T) {
	f := newFixture(t, failingLog{OrderLog: repository.NewMemoryOrderLog(), err: errors.New("disk full")})
	a := product("A", "Mug", "5", 10)
	f.products.On("Get", mock.Anything, "A").Return(a, nil)

	c := cart.New()
	c.AddItem(*a, 2, "M", "red")
	before := c.Items()

	result, err := f.svc.Place(context.Background(), c, "u", validRequest())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, model.ErrPersistOrder)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, before, c.Items())
	f.mirror.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.products.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CheckoutsTotal.WithLabelValues(metrics.OutcomePersistFailed)))
}

func TestService_Place_EmptyCart(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Place(context.Background(), cart.New(), "u", validRequest())

	assert.ErrorIs(t, err, model.ErrEmptyCart)
	f.products.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestService_Place_InvalidForm(t *testing.T) {
	f := newFixture(t, nil)
	c := cart.New()
	c.AddItem(*product("A", "Mug", "5", 10), 1, "", "")

	req := validRequest()
	req.CustomerEmail = "not-an-email"
	req.PaymentMethod = model.PaymentCard

	_, err := f.svc.Place(context.Background(), c, "u", req)

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "customerEmail")
	assert.Contains(t, verr.Fields, "card")
	assert.Equal(t, 1, c.Len())
	f.products.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestService_Place_GuestAndOrdering(t *testing.T) {
	f := newFixture(t, nil)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }
	a := product("A", "Mug", "5", 100)
	f.products.On("Get", mock.Anything, "A").Return(a, nil)
	f.products.On("Replace", mock.Anything, "A", mock.Anything).Return(nil)
	f.mirror.On("Create", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		c := cart.New()
		c.AddItem(*a, 1, "", "")
		result, err := f.svc.Place(ctx, c, "", validRequest())
		require.NoError(t, err)
		assert.Equal(t, "guest-1735787045000", result.Order.UserID)
		assert.Equal(t, fixed, result.Order.CreatedAt)
		ids = append(ids, result.Order.ID)
	}

	assert.Less(t, ids[0], ids[1])
	assert.Less(t, ids[1], ids[2])
}

func TestService_Place_TaxRounding(t *testing.T) {
	f := newFixture(t, nil)
	a := product("A", "Pencil", "0.99", 100)
	f.products.On("Get", mock.Anything, "A").Return(a, nil)
	f.products.On("Replace", mock.Anything, "A", mock.Anything).Return(nil)
	f.mirror.On("Create", mock.Anything, mock.Anything).Return(nil)

	c := cart.New()
	c.AddItem(*a, 3, "", "")

	result, err := f.svc.Place(context.Background(), c, "u", validRequest())

	require.NoError(t, err)
	assert.Equal(t, "2.97", result.Order.Subtotal.String())
	assert.Equal(t, "0.3", result.Order.Tax.String())
	assert.Equal(t, "3.27", result.Order.Total.String())
}
