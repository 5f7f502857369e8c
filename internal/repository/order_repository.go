package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

const selectOrderColumns = `
	SELECT id, user_id, items, subtotal::text, tax::text, total::text, shipping_fee::text,
	       status, payment_method, shipping_address, customer_name, customer_email,
	       customer_phone, created_at, updated_at
	FROM orders`

// orderRepository implements OrderLog using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a PostgreSQL-backed order log. The schema must
// already be migrated.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderLog {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// Append inserts a new order row.
func (r *orderRepository) Append(ctx context.Context, order *model.Order) error {
	items, address, err := encodeOrderDocuments(order)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (
			id, user_id, items, subtotal, tax, total, shipping_fee, status, payment_method,
			shipping_address, customer_name, customer_email, customer_phone, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4::text::numeric, $5::text::numeric, $6::text::numeric, $7::text::numeric,
			$8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.pool.Exec(ctx, query,
		order.ID,
		order.UserID,
		items,
		order.Subtotal.String(),
		order.Tax.String(),
		order.Total.String(),
		order.ShippingFee.String(),
		string(order.Status),
		string(order.PaymentMethod),
		address,
		order.CustomerName,
		order.CustomerEmail,
		order.CustomerPhone,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateOrder
		}
		r.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to append order")
		return fmt.Errorf("failed to append order: %w", err)
	}

	r.logger.Debug().Str("order_id", order.ID).Str("user_id", order.UserID).Msg("order appended")
	return nil
}

// List returns all orders in insertion order.
func (r *orderRepository) List(ctx context.Context) ([]model.Order, error) {
	return r.query(ctx, selectOrderColumns+` ORDER BY seq`)
}

// ListByUser returns the orders of one user in insertion order.
func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return r.query(ctx, selectOrderColumns+` WHERE user_id = $1 ORDER BY seq`, userID)
}

// Get retrieves one order by ID.
func (r *orderRepository) Get(ctx context.Context, id string) (*model.Order, error) {
	row := r.pool.QueryRow(ctx, selectOrderColumns+` WHERE id = $1`, id)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		r.logger.Error().Err(err).Str("order_id", id).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	return order, nil
}

// Replace overwrites every column of an existing order.
func (r *orderRepository) Replace(ctx context.Context, order *model.Order) error {
	items, address, err := encodeOrderDocuments(order)
	if err != nil {
		return err
	}

	query := `
		UPDATE orders SET
			user_id = $2, items = $3,
			subtotal = $4::text::numeric, tax = $5::text::numeric,
			total = $6::text::numeric, shipping_fee = $7::text::numeric,
			status = $8, payment_method = $9, shipping_address = $10,
			customer_name = $11, customer_email = $12, customer_phone = $13,
			created_at = $14, updated_at = $15
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		order.ID,
		order.UserID,
		items,
		order.Subtotal.String(),
		order.Tax.String(),
		order.Total.String(),
		order.ShippingFee.String(),
		string(order.Status),
		string(order.PaymentMethod),
		address,
		order.CustomerName,
		order.CustomerEmail,
		order.CustomerPhone,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to replace order")
		return fmt.Errorf("failed to replace order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

// Delete removes an order row if present.
func (r *orderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id).Msg("failed to delete order")
		return fmt.Errorf("failed to delete order: %w", err)
	}

	r.logger.Debug().Str("order_id", id).Int64("rows", tag.RowsAffected()).Msg("order deleted")
	return nil
}

func (r *orderRepository) query(ctx context.Context, sql string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		order                             model.Order
		items, address                    []byte
		subtotal, tax, total, shippingFee string
		status, paymentMethod             string
	)

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&items,
		&subtotal,
		&tax,
		&total,
		&shippingFee,
		&status,
		&paymentMethod,
		&address,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.CustomerPhone,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items of order %s: %w", order.ID, err)
	}
	if err := json.Unmarshal(address, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to decode shipping address of order %s: %w", order.ID, err)
	}

	amounts := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{subtotal, &order.Subtotal},
		{tax, &order.Tax},
		{total, &order.Total},
		{shippingFee, &order.ShippingFee},
	}
	for _, a := range amounts {
		d, err := decimal.NewFromString(a.raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount of order %s: %w", order.ID, err)
		}
		*a.dst = d
	}

	order.Status = model.OrderStatus(status)
	order.PaymentMethod = model.PaymentMethod(paymentMethod)
	return &order, nil
}

func encodeOrderDocuments(order *model.Order) (items, address []byte, err error) {
	snapshot := order.Items
	if snapshot == nil {
		snapshot = []model.OrderItem{}
	}
	items, err = json.Marshal(snapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode order items: %w", err)
	}
	address, err = json.Marshal(order.ShippingAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode shipping address: %w", err)
	}
	return items, address, nil
}
