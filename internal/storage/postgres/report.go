package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/dineease-pos/internal/domain/order"
	"github.com/xenking/dineease-pos/internal/report"
)

const (
	salesBucketsSQL = `SELECT date_trunc($1, created_at AT TIME ZONE 'UTC') AS bucket,
		SUM(total_amount)
	FROM orders
	WHERE status = $2 AND created_at >= $3 AND created_at < $4
	GROUP BY bucket ORDER BY bucket`

	breakdownByOrderTypeSQL = `SELECT order_type, SUM(total_amount)
	FROM orders
	WHERE status = $1 AND created_at >= $2 AND created_at < $3
	GROUP BY order_type ORDER BY 2 DESC`

	breakdownByPaymentMethodSQL = `SELECT pt.payment_method, SUM(o.total_amount)
	FROM payment_transactions pt
	JOIN orders o ON o.id = pt.order_id
	WHERE o.status = $1 AND o.created_at >= $2 AND o.created_at < $3
	GROUP BY pt.payment_method ORDER BY 2 DESC`

	breakdownByItemNameSQL = `SELECT oi.item_name, SUM(oi.quantity * oi.price_at_purchase)
	FROM order_items oi
	JOIN orders o ON o.id = oi.order_id
	WHERE o.status = $1 AND o.created_at >= $2 AND o.created_at < $3
	GROUP BY oi.item_name ORDER BY 2 DESC`

	totalsSQL = `SELECT COALESCE(SUM(total_amount), 0), COUNT(*)
	FROM orders
	WHERE status = $1 AND created_at >= $2 AND created_at < $3`

	// LIMIT NULL means no limit, so a zero limit maps to "all items".
	itemSalesSQL = `SELECT oi.item_name, SUM(oi.quantity)
	FROM order_items oi
	JOIN orders o ON o.id = oi.order_id
	WHERE o.status = $1 AND o.created_at >= $2 AND o.created_at < $3
	GROUP BY oi.item_name ORDER BY 2 DESC
	LIMIT NULLIF($4, 0)`
)

var _ report.Store = (*ReportStore)(nil)

// ReportStore implements report.Store with read-only aggregate queries.
// Every query filters on paid orders; pending orders are invisible to
// reporting.
type ReportStore struct {
	pool *pgxpool.Pool
}

// NewReportStore returns a ReportStore that uses the given pool.
func NewReportStore(pool *pgxpool.Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

// SalesBuckets returns paid-order totals grouped by period start, sparse
// and ordered by time.
func (s *ReportStore) SalesBuckets(ctx context.Context, g report.Granularity, start, end time.Time) ([]report.Bucket, error) {
	rows, err := s.pool.Query(ctx, salesBucketsSQL, string(g), order.StatusPaid, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying sales buckets: %w", err)
	}

	buckets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.Bucket, error) {
		var b report.Bucket
		err := row.Scan(&b.Start, &b.Total)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning sales buckets: %w", err)
	}
	return buckets, nil
}

// Breakdown returns paid-order totals grouped by the given dimension,
// largest first.
func (s *ReportStore) Breakdown(ctx context.Context, dim report.Dimension, start, end time.Time) ([]report.Slice, error) {
	var sql string
	switch dim {
	case report.ByOrderType:
		sql = breakdownByOrderTypeSQL
	case report.ByPaymentMethod:
		sql = breakdownByPaymentMethodSQL
	case report.ByItemName:
		sql = breakdownByItemNameSQL
	default:
		return nil, report.ErrInvalidDimension
	}

	rows, err := s.pool.Query(ctx, sql, order.StatusPaid, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying breakdown by %s: %w", dim, err)
	}

	slices, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.Slice, error) {
		var sl report.Slice
		err := row.Scan(&sl.Label, &sl.Value)
		return sl, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning breakdown by %s: %w", dim, err)
	}
	return slices, nil
}

// Totals returns the sum and count of paid orders in the window.
func (s *ReportStore) Totals(ctx context.Context, start, end time.Time) (decimal.Decimal, int64, error) {
	var (
		total decimal.Decimal
		count int64
	)
	err := s.pool.QueryRow(ctx, totalsSQL, order.StatusPaid, start, end).Scan(&total, &count)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("querying totals: %w", err)
	}
	return total, count, nil
}

// ItemSales returns per-item sold quantities, descending.
func (s *ReportStore) ItemSales(ctx context.Context, start, end time.Time, limit int) ([]report.ItemSales, error) {
	rows, err := s.pool.Query(ctx, itemSalesSQL, order.StatusPaid, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("querying item sales: %w", err)
	}

	sales, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.ItemSales, error) {
		var is report.ItemSales
		err := row.Scan(&is.Name, &is.Quantity)
		return is, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning item sales: %w", err)
	}
	return sales, nil
}
