// Package report derives sales summaries from persisted orders. All reads
// are projections over paid orders only; pending orders never appear in any
// report. Every total comes from the store on each call, never from a
// process-local cache.
package report

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Granularity selects the bucket size of a sales time series.
type Granularity string

const (
	Hourly Granularity = "hour"
	Daily  Granularity = "day"
)

// Dimension selects the group-by axis of a sales breakdown.
type Dimension string

const (
	ByOrderType     Dimension = "order_type"
	ByPaymentMethod Dimension = "payment_method"
	ByItemName      Dimension = "item_name"
)

// ErrInvalidGranularity is returned for an unknown bucket size.
var ErrInvalidGranularity = errors.New("invalid granularity")

// ErrInvalidDimension is returned for an unknown breakdown dimension.
var ErrInvalidDimension = errors.New("invalid breakdown dimension")

// Series is a chart-ready label/value pairing. Labels and Values always
// have equal length.
type Series struct {
	Labels []string
	Values []decimal.Decimal
}

// Bucket is one sparse time-series row from the store: only periods with
// at least one paid order are present.
type Bucket struct {
	Start time.Time
	Total decimal.Decimal
}

// Slice is one row of a breakdown query.
type Slice struct {
	Label string
	Value decimal.Decimal
}

// ItemSales is the quantity sold of a single item.
type ItemSales struct {
	Name     string
	Quantity int64
}

// KPIs are the headline numbers of the analytics dashboard.
type KPIs struct {
	TotalSales    decimal.Decimal
	OrderCount    int64
	AvgOrderValue decimal.Decimal
}

// Store defines the read-only query surface the reports are built from.
type Store interface {
	// SalesBuckets returns paid-order totals grouped by period start,
	// sparse and ordered by time, within [start, end).
	SalesBuckets(ctx context.Context, g Granularity, start, end time.Time) ([]Bucket, error)
	// Breakdown returns paid-order totals grouped by the given dimension.
	Breakdown(ctx context.Context, dim Dimension, start, end time.Time) ([]Slice, error)
	// Totals returns the sum and count of paid orders in the window.
	Totals(ctx context.Context, start, end time.Time) (decimal.Decimal, int64, error)
	// ItemSales returns per-item sold quantities, descending. A limit of
	// zero returns all items.
	ItemSales(ctx context.Context, start, end time.Time, limit int) ([]ItemSales, error)
}

// Service assembles chart-ready series from the store.
type Service struct {
	store Store
}

// NewService creates a reporting Service backed by the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// SalesReport returns a gap-free time series of paid sales between start
// and end. Periods with no sales appear with a zero value rather than
// being omitted, so charts have no holes.
func (s *Service) SalesReport(ctx context.Context, g Granularity, start, end time.Time) (*Series, error) {
	step, label, err := bucketSpec(g)
	if err != nil {
		return nil, err
	}

	start = start.UTC().Truncate(step)
	end = end.UTC()

	buckets, err := s.store.SalesBuckets(ctx, g, start, end)
	if err != nil {
		return nil, errors.Wrap(err, "sales buckets")
	}

	totals := make(map[int64]decimal.Decimal, len(buckets))
	for _, b := range buckets {
		totals[b.Start.UTC().Truncate(step).Unix()] = b.Total
	}

	series := &Series{}
	for t := start; t.Before(end); t = t.Add(step) {
		v, ok := totals[t.Unix()]
		if !ok {
			v = decimal.Zero
		}
		series.Labels = append(series.Labels, t.Format(label))
		series.Values = append(series.Values, v)
	}

	return series, nil
}

// BreakdownBy returns paid sales grouped by order type, payment method, or
// item name.
func (s *Service) BreakdownBy(ctx context.Context, dim Dimension, start, end time.Time) (*Series, error) {
	switch dim {
	case ByOrderType, ByPaymentMethod, ByItemName:
	default:
		return nil, ErrInvalidDimension
	}

	slices, err := s.store.Breakdown(ctx, dim, start.UTC(), end.UTC())
	if err != nil {
		return nil, errors.Wrapf(err, "breakdown by %s", dim)
	}

	series := &Series{
		Labels: make([]string, len(slices)),
		Values: make([]decimal.Decimal, len(slices)),
	}
	for i, sl := range slices {
		series.Labels[i] = sl.Label
		series.Values[i] = sl.Value
	}

	return series, nil
}

// Dashboard bundles everything the analytics page renders.
type Dashboard struct {
	KPIs           KPIs
	SalesTrend     Series
	OrderTypes     Series
	PaymentMethods Series
	TopItems       []ItemSales
	AllItems       []ItemSales
}

// topItemsLimit caps the "top sellers" chart, matching the dashboard layout.
const topItemsLimit = 10

// DashboardReport assembles KPIs, the sales trend, both breakdowns, and the
// item leaderboards for the given window.
func (s *Service) DashboardReport(ctx context.Context, g Granularity, start, end time.Time) (*Dashboard, error) {
	total, count, err := s.store.Totals(ctx, start.UTC(), end.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "totals")
	}

	kpis := KPIs{TotalSales: total, OrderCount: count}
	if count > 0 {
		kpis.AvgOrderValue = total.Div(decimal.NewFromInt(count)).Round(2)
	} else {
		kpis.AvgOrderValue = decimal.Zero
	}

	trend, err := s.SalesReport(ctx, g, start, end)
	if err != nil {
		return nil, err
	}

	orderTypes, err := s.BreakdownBy(ctx, ByOrderType, start, end)
	if err != nil {
		return nil, err
	}

	paymentMethods, err := s.BreakdownBy(ctx, ByPaymentMethod, start, end)
	if err != nil {
		return nil, err
	}

	topItems, err := s.store.ItemSales(ctx, start.UTC(), end.UTC(), topItemsLimit)
	if err != nil {
		return nil, errors.Wrap(err, "top items")
	}

	allItems, err := s.store.ItemSales(ctx, start.UTC(), end.UTC(), 0)
	if err != nil {
		return nil, errors.Wrap(err, "all items")
	}

	return &Dashboard{
		KPIs:           kpis,
		SalesTrend:     *trend,
		OrderTypes:     *orderTypes,
		PaymentMethods: *paymentMethods,
		TopItems:       topItems,
		AllItems:       allItems,
	}, nil
}

// ItemSalesReport returns per-item sold quantities for CSV export.
func (s *Service) ItemSalesReport(ctx context.Context, start, end time.Time) ([]ItemSales, error) {
	return s.store.ItemSales(ctx, start.UTC(), end.UTC(), 0)
}

func bucketSpec(g Granularity) (time.Duration, string, error) {
	switch g {
	case Hourly:
		return time.Hour, "15:00", nil
	case Daily:
		return 24 * time.Hour, "Jan 02", nil
	default:
		return 0, "", ErrInvalidGranularity
	}
}
