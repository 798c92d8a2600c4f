package handler

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/dineease-pos/internal/report"
)

// dashboard serves the analytics page payload. The range parameter selects
// a rolling window ending now: 1d renders hourly buckets, 7d and 30d render
// daily buckets.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	var (
		window time.Duration
		gran   report.Granularity
	)
	switch r.URL.Query().Get("range") {
	case "", "7d":
		window, gran = 7*24*time.Hour, report.Daily
	case "1d":
		window, gran = 24*time.Hour, report.Hourly
	case "30d":
		window, gran = 30*24*time.Hour, report.Daily
	default:
		writeError(w, http.StatusBadRequest, "range must be 1d, 7d, or 30d")
		return
	}

	end := time.Now().UTC()
	dash, err := h.reports.DashboardReport(r.Context(), gran, end.Add(-window), end)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("kpis", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("totalSales", func(e *jx.Encoder) { e.Str(dash.KPIs.TotalSales.StringFixed(2)) })
					e.Field("orderCount", func(e *jx.Encoder) { e.Int64(dash.KPIs.OrderCount) })
					e.Field("avgOrderValue", func(e *jx.Encoder) { e.Str(dash.KPIs.AvgOrderValue.StringFixed(2)) })
				})
			})
			e.Field("salesTrend", func(e *jx.Encoder) { encodeSeries(e, dash.SalesTrend) })
			e.Field("orderTypes", func(e *jx.Encoder) { encodeSeries(e, dash.OrderTypes) })
			e.Field("paymentMethods", func(e *jx.Encoder) { encodeSeries(e, dash.PaymentMethods) })
			e.Field("topItems", func(e *jx.Encoder) { encodeItemSales(e, dash.TopItems) })
			e.Field("allItems", func(e *jx.Encoder) { encodeItemSales(e, dash.AllItems) })
		})
	})
}

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseWindow(w, r)
	if !ok {
		return
	}

	gran := report.Granularity(r.URL.Query().Get("granularity"))
	if gran == "" {
		gran = report.Daily
	}

	series, err := h.reports.SalesReport(r.Context(), gran, start, end)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSeries(e, *series)
	})
}

func (h *Handler) breakdownReport(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseWindow(w, r)
	if !ok {
		return
	}

	series, err := h.reports.BreakdownBy(r.Context(),
		report.Dimension(r.URL.Query().Get("by")), start, end)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSeries(e, *series)
	})
}

// exportItemSales streams per-item sold quantities as CSV.
func (h *Handler) exportItemSales(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseWindow(w, r)
	if !ok {
		return
	}

	items, err := h.reports.ItemSalesReport(r.Context(), start, end)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=item_sales.csv")

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"item_name", "quantity_sold"})
	for _, it := range items {
		_ = cw.Write([]string{it.Name, strconv.FormatInt(it.Quantity, 10)})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		zctx.From(r.Context()).Error("export item sales", zap.Error(err))
	}
}

// parseWindow reads from/to RFC 3339 query parameters, defaulting to the
// last seven days.
func parseWindow(w http.ResponseWriter, r *http.Request) (start, end time.Time, ok bool) {
	q := r.URL.Query()
	end = time.Now().UTC()
	start = end.Add(-7 * 24 * time.Hour)

	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be RFC 3339")
			return start, end, false
		}
		start = t
	}
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be RFC 3339")
			return start, end, false
		}
		end = t
	}
	if !start.Before(end) {
		writeError(w, http.StatusBadRequest, "from must precede to")
		return start, end, false
	}
	return start, end, true
}

func encodeSeries(e *jx.Encoder, s report.Series) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("labels", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range s.Labels {
					e.Str(l)
				}
			})
		})
		e.Field("values", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, v := range s.Values {
					e.Str(v.StringFixed(2))
				}
			})
		})
	})
}

func encodeItemSales(e *jx.Encoder, items []report.ItemSales) {
	e.Arr(func(e *jx.Encoder) {
		for _, it := range items {
			e.Obj(func(e *jx.Encoder) {
				e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
				e.Field("quantity", func(e *jx.Encoder) { e.Int64(it.Quantity) })
			})
		}
	})
}
