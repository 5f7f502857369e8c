package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL testcontainer with the order schema migrated.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres test")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))
	return pool
}

func TestOrderRepository(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	runOrderLogContract(t, func(t *testing.T) OrderLog {
		_, err := pool.Exec(ctx, `TRUNCATE orders`)
		require.NoError(t, err)
		return NewOrderRepository(pool, zerolog.Nop())
	})
}

func TestOrderRepository_MigrateIsIdempotent(t *testing.T) {
	pool := setupTestDB(t)

	assert.NoError(t, database.Migrate(context.Background(), pool, zerolog.Nop()))
}

func TestOrderRepository_PreservesExactAmounts(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	order := testOrder("o-precise", "u-1", model.StatusPending)
	order.Subtotal = decimal.RequireFromString("10.005")
	require.NoError(t, repo.Append(ctx, order))

	got, err := repo.Get(ctx, "o-precise")
	require.NoError(t, err)
	assert.Equal(t, order.Subtotal.String(), got.Subtotal.String())
}

func TestOrderRepository_ErrorPaths(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())

	pool.Close()
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{"Append", func() error { return repo.Append(ctx, testOrder("o-1", "u-1", model.StatusPending)) }},
		{"List", func() error { _, err := repo.List(ctx); return err }},
		{"Get", func() error { _, err := repo.Get(ctx, "o-1"); return err }},
		{"Replace", func() error { return repo.Replace(ctx, testOrder("o-1", "u-1", model.StatusPending)) }},
		{"Delete", func() error { return repo.Delete(ctx, "o-1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.NotErrorIs(t, err, model.ErrOrderNotFound)
		})
	}
}
