package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder(id, userID string) *model.Order {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return &model.Order{
		ID:     id,
		UserID: userID,
		Items: []model.OrderItem{
			{ProductID: "p1", Name: "Mug", Price: decimal.RequireFromString("12.50"), Quantity: 2},
		},
		Subtotal:        decimal.RequireFromString("25"),
		Tax:             decimal.RequireFromString("2.5"),
		Total:           decimal.RequireFromString("27.5"),
		ShippingFee:     decimal.Zero,
		Status:          model.StatusPending,
		PaymentMethod:   model.PaymentCashOnDelivery,
		ShippingAddress: model.ShippingAddress{Street: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"},
		CustomerName:    "Ada",
		CustomerEmail:   "ada@example.com",
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

func seededLog(t *testing.T, orders ...*model.Order) repository.OrderLog {
	t.Helper()
	log := repository.NewMemoryOrderLog()
	for _, o := range orders {
		require.NoError(t, log.Append(context.Background(), o))
	}
	return log
}

func TestArchiver_ExportThenRestore(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir(), zerolog.Nop())
	m := metrics.New(prometheus.NewRegistry())

	source := NewArchiver(seededLog(t, sampleOrder("o1", "u1"), sampleOrder("o2", "u2")), store, m, zerolog.Nop())
	source.now = func() time.Time { return time.Date(2025, 3, 2, 8, 30, 0, 0, time.UTC) }

	exported, err := source.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "orders-20250302T083000Z.jsonl.gz", exported.Name)
	assert.Equal(t, 2, exported.Orders)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.OrdersArchivedTotal))

	// o1 is already present in the target and must be left alone.
	existing := sampleOrder("o1", "u1")
	existing.Status = model.StatusShipped
	target := seededLog(t, existing)
	restorer := NewArchiver(target, store, nil, zerolog.Nop())

	restored, err := restorer.Restore(ctx, exported.Name)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Restored)
	assert.Equal(t, 1, restored.Skipped)
	assert.Equal(t, 0, restored.Invalid)

	orders, err := target.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, model.StatusShipped, orders[0].Status)
	assert.Equal(t, "o2", orders[1].ID)
	assert.True(t, orders[1].Total.Equal(decimal.RequireFromString("27.5")))
	assert.Equal(t, "12.5", orders[1].Items[0].Price.String())
}

func TestArchiver_ExportEmptyLog(t *testing.T) {
	store := NewLocalStore(t.TempDir(), zerolog.Nop())
	a := NewArchiver(repository.NewMemoryOrderLog(), store, nil, zerolog.Nop())

	result, err := a.Export(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, result.Orders)

	restored, err := NewArchiver(repository.NewMemoryOrderLog(), store, nil, zerolog.Nop()).
		Restore(context.Background(), result.Name)
	require.NoError(t, err)
	assert.Equal(t, RestoreResult{Name: result.Name}, *restored)
}

func TestArchiver_RestoreCountsInvalidRecords(t *testing.T) {
	bad := sampleOrder("o2", "")
	var buf bytes.Buffer
	require.NoError(t, writeOrders(&buf, []model.Order{*sampleOrder("o1", "u1"), *bad}))

	store := &memStore{files: map[string][]byte{"orders.jsonl.gz": buf.Bytes()}}
	log := repository.NewMemoryOrderLog()

	result, err := NewArchiver(log, store, nil, zerolog.Nop()).Restore(context.Background(), "orders.jsonl.gz")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Restored)
	assert.Equal(t, 1, result.Invalid)
}

func TestArchiver_RestoreRejectsOrdersBreakingAmountsOrItems(t *testing.T) {
	wrongTotal := sampleOrder("o2", "u1")
	wrongTotal.Total = decimal.RequireFromString("30")
	noItems := sampleOrder("o3", "u1")
	noItems.Items = nil

	var buf bytes.Buffer
	require.NoError(t, writeOrders(&buf, []model.Order{*sampleOrder("o1", "u1"), *wrongTotal, *noItems}))
	store := &memStore{files: map[string][]byte{"orders.jsonl.gz": buf.Bytes()}}
	log := repository.NewMemoryOrderLog()

	result, err := NewArchiver(log, store, nil, zerolog.Nop()).Restore(context.Background(), "orders.jsonl.gz")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Restored)
	assert.Equal(t, 2, result.Invalid)

	logged, err := log.List(context.Background())
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, "o1", logged[0].ID)
}

func TestArchiver_RestoreCorruptArchive(t *testing.T) {
	store := &memStore{files: map[string][]byte{"broken.jsonl.gz": []byte("not gzip")}}

	_, err := NewArchiver(repository.NewMemoryOrderLog(), store, nil, zerolog.Nop()).
		Restore(context.Background(), "broken.jsonl.gz")

	assert.Error(t, err)
}

func TestArchiver_RestoreRejectsPathNames(t *testing.T) {
	a := NewArchiver(repository.NewMemoryOrderLog(), &memStore{}, nil, zerolog.Nop())

	for _, name := range []string{"", "..", "../orders.jsonl.gz", "nested/orders.jsonl.gz", `dir\orders.jsonl.gz`} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Restore(context.Background(), name)
			assert.ErrorIs(t, err, ErrInvalidName)
		})
	}
}

func TestArchiver_ExportSaveFailure(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	store := &memStore{saveErr: errors.New("disk full")}
	a := NewArchiver(seededLog(t, sampleOrder("o1", "u1")), store, m, zerolog.Nop())

	_, err := a.Export(context.Background())

	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, float64(0), testutil.ToFloat64(m.OrdersArchivedTotal))
}

func TestReadOrders_SkipsBlankLinesAndStopsOnCancel(t *testing.T) {
	orders := make([]model.Order, 0, 1500)
	for i := 0; i < 1500; i++ {
		orders = append(orders, *sampleOrder("o", "u"))
	}
	var buf bytes.Buffer
	require.NoError(t, writeOrders(&buf, orders))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seen := 0
	err := readOrders(ctx, bytes.NewReader(buf.Bytes()), func(model.Order) error {
		seen++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 999, seen)
}

// memStore keeps archives in a map.
type memStore struct {
	files   map[string][]byte
	saveErr error
}

func (s *memStore) Save(_ context.Context, name string, data []byte) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	s.files[name] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	data, ok := s.files[name]
	if !ok {
		return nil, errors.New("no such archive")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
