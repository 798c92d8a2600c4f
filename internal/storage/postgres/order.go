package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/dineease-pos/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders
	(id, customer_id, status, order_type, subtotal, discount, tax, total_amount, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	insertOrderItemSQL = `INSERT INTO order_items
	(id, order_id, menu_item_id, position, item_name, quantity, price_at_purchase)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	lockOrderStatusSQL = `SELECT status FROM orders WHERE id = $1 FOR UPDATE`

	markOrderPaidSQL = `UPDATE orders SET status = $2 WHERE id = $1`

	insertPaymentSQL = `INSERT INTO payment_transactions
	(id, order_id, payment_method, details, created_at)
	VALUES ($1, $2, $3, $4, $5)`

	getOrderSQL = `SELECT o.id, o.status, o.order_type,
		o.subtotal, o.discount, o.tax, o.total_amount, o.created_at,
		c.id, c.name, c.phone, c.created_at
	FROM orders o
	JOIN customers c ON c.id = o.customer_id
	WHERE o.id = $1`

	getOrderItemsSQL = `SELECT COALESCE(menu_item_id::text, ''), item_name, quantity, price_at_purchase
	FROM order_items WHERE order_id = $1 ORDER BY position`

	getPaymentSQL = `SELECT id, payment_method, details, created_at
	FROM payment_transactions WHERE order_id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and its items in a single transaction. A
// failure at any point rolls the whole write back; no order row ever
// commits without its items.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.Customer.ID, o.Status, o.Type,
		o.Subtotal, o.Discount, o.Tax, o.Total, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}

	for i, item := range o.Items {
		var menuItemID any
		if item.MenuItemID != "" {
			menuItemID = item.MenuItemID
		}
		_, err = tx.Exec(ctx, insertOrderItemSQL,
			newID(), o.ID, menuItemID, i, item.Name, item.Quantity, item.PriceAtPurchase,
		)
		if err != nil {
			return fmt.Errorf("inserting item %d of order %q: %w", i, o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// RecordPayment inserts the payment row and flips the order to paid as one
// atomic unit. The status row is locked first so concurrent payment
// attempts serialize; the loser observes 'paid' and gets ErrAlreadyPaid.
func (r *OrderRepository) RecordPayment(ctx context.Context, orderID string, p *order.Payment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin record payment: %w", err)
	}
	defer tx.Rollback(ctx)

	var status order.Status
	err = tx.QueryRow(ctx, lockOrderStatusSQL, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.ErrNotFound
		}
		return fmt.Errorf("locking order %q: %w", orderID, err)
	}
	if status == order.StatusPaid {
		return order.ErrAlreadyPaid
	}

	_, err = tx.Exec(ctx, insertPaymentSQL, p.ID, orderID, p.Method, p.Details, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting payment for order %q: %w", orderID, err)
	}

	_, err = tx.Exec(ctx, markOrderPaidSQL, orderID, order.StatusPaid)
	if err != nil {
		return fmt.Errorf("marking order %q paid: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing payment for order %q: %w", orderID, err)
	}
	return nil
}

// Get returns the order with items and payment eagerly loaded. All three
// reads run on one repeatable-read snapshot, so a payment committing midway
// can never surface as a pending order that already carries a payment.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("begin get order: %w", err)
	}
	defer tx.Rollback(ctx)

	var o order.Order
	err = tx.QueryRow(ctx, getOrderSQL, id).Scan(
		&o.ID, &o.Status, &o.Type,
		&o.Subtotal, &o.Discount, &o.Tax, &o.Total, &o.CreatedAt,
		&o.Customer.ID, &o.Customer.Name, &o.Customer.Phone, &o.Customer.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	rows, err := tx.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items of order %q: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.MenuItemID, &it.Name, &it.Quantity, &it.PriceAtPurchase)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning items of order %q: %w", id, err)
	}

	var p order.Payment
	err = tx.QueryRow(ctx, getPaymentSQL, id).Scan(&p.ID, &p.Method, &p.Details, &p.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// Unpaid order; no payment row yet.
	case err != nil:
		return nil, fmt.Errorf("getting payment of order %q: %w", id, err)
	default:
		o.Payment = &p
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing get order %q: %w", id, err)
	}
	return &o, nil
}
