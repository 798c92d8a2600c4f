//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/dineease-pos/internal/domain/order"
	"github.com/xenking/dineease-pos/internal/storage/postgres"
)

// Storage-level checks that deliberately go beneath the HTTP surface: they
// connect to the compose database directly to verify transactional
// guarantees the API alone cannot force.

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := postgres.NewPool(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("connect to database: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

// A row that violates the quantity check aborts the insert mid-batch; the
// already-inserted order row must roll back with it, leaving no trace.
func TestOrderCreate_RollsBackWholeOrderOnBadItem(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)

	customers := postgres.NewCustomerRepository(pool)
	cust, err := customers.FindOrCreate(ctx, "Rollback Check", "0009998887")
	if err != nil {
		t.Fatalf("find or create customer: %v", err)
	}

	repo := postgres.NewOrderRepository(pool)
	o := &order.Order{
		ID:       uuid.New().String(),
		Customer: *cust,
		Status:   order.StatusPending,
		Type:     order.TypeDineIn,
		Items: []order.Item{
			{Name: "Paneer Tikka", Quantity: 1, PriceAtPurchase: decimal.RequireFromString("180.00")},
			// Bypasses service validation on purpose to hit the DB constraint.
			{Name: "Garlic Naan", Quantity: 0, PriceAtPurchase: decimal.RequireFromString("45.00")},
		},
		Subtotal:  decimal.RequireFromString("180.00"),
		Discount:  decimal.Zero,
		Tax:       decimal.RequireFromString("9.00"),
		Total:     decimal.RequireFromString("189.00"),
		CreatedAt: time.Now().UTC(),
	}

	if err := repo.Create(ctx, o); err == nil {
		t.Fatal("expected create to fail on the zero-quantity item")
	}

	var orderRows int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE id = $1`, o.ID).Scan(&orderRows); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderRows != 0 {
		t.Fatalf("expected 0 order rows after rollback, got %d", orderRows)
	}

	var itemRows int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM order_items WHERE order_id = $1`, o.ID).Scan(&itemRows); err != nil {
		t.Fatalf("count order items: %v", err)
	}
	if itemRows != 0 {
		t.Fatalf("expected 0 item rows after rollback, got %d", itemRows)
	}

	if _, err := repo.Get(ctx, o.ID); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after rollback, got %v", err)
	}
}

// Status and payment always move together: a loaded paid order carries its
// payment, a loaded pending order carries none.
func TestOrderGet_StatusAndPaymentMoveTogether(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)

	customers := postgres.NewCustomerRepository(pool)
	cust, err := customers.FindOrCreate(ctx, "Snapshot Check", "0007776665")
	if err != nil {
		t.Fatalf("find or create customer: %v", err)
	}

	repo := postgres.NewOrderRepository(pool)
	o := &order.Order{
		ID:       uuid.New().String(),
		Customer: *cust,
		Status:   order.StatusPending,
		Type:     order.TypeTakeaway,
		Items: []order.Item{
			{Name: "Masala Chai", Quantity: 2, PriceAtPurchase: decimal.RequireFromString("30.00")},
		},
		Subtotal:  decimal.RequireFromString("60.00"),
		Discount:  decimal.Zero,
		Tax:       decimal.RequireFromString("3.00"),
		Total:     decimal.RequireFromString("63.00"),
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, o); err != nil {
		t.Fatalf("create order: %v", err)
	}

	loaded, err := repo.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get pending order: %v", err)
	}
	if loaded.Status != order.StatusPending || loaded.Payment != nil {
		t.Fatalf("pending order must carry no payment, got status %q payment %v", loaded.Status, loaded.Payment)
	}

	p := &order.Payment{
		ID:        uuid.New().String(),
		Method:    order.PaymentCash,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.RecordPayment(ctx, o.ID, p); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	loaded, err = repo.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get paid order: %v", err)
	}
	if loaded.Status != order.StatusPaid {
		t.Fatalf("expected status paid, got %q", loaded.Status)
	}
	if loaded.Payment == nil || loaded.Payment.ID != p.ID {
		t.Fatalf("paid order must carry its payment, got %v", loaded.Payment)
	}
}
