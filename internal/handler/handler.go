// Package handler exposes the billing core over HTTP. Handlers translate
// JSON requests into domain calls and map domain errors onto status codes;
// all pricing, persistence, and rendering rules live below this layer.
package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/xenking/dineease-pos/internal/domain/menu"
	"github.com/xenking/dineease-pos/internal/domain/order"
	"github.com/xenking/dineease-pos/internal/invoice"
	"github.com/xenking/dineease-pos/internal/report"
	"github.com/xenking/dineease-pos/pkg/httpmiddleware"
)

// Handler serves the POS API.
type Handler struct {
	orders   *order.Service
	menu     menu.Repository
	reports  *report.Service
	renderer *invoice.Renderer
	spool    *invoice.Spooler
	lg       *zap.Logger
}

// New creates a Handler over the domain services.
func New(
	orders *order.Service,
	menuRepo menu.Repository,
	reports *report.Service,
	renderer *invoice.Renderer,
	spool *invoice.Spooler,
	lg *zap.Logger,
) *Handler {
	return &Handler{
		orders:   orders,
		menu:     menuRepo,
		reports:  reports,
		renderer: renderer,
		spool:    spool,
		lg:       lg,
	}
}

// Register mounts all API routes on mux. Admin routes are wrapped with the
// given middleware, which is expected to enforce API key authentication.
func (h *Handler) Register(mux *http.ServeMux, admin httpmiddleware.Middleware) {
	// Public surface used by the ordering front end.
	mux.HandleFunc("GET /api/menu", h.listMenu)
	mux.HandleFunc("POST /api/order", h.createOrder)
	mux.HandleFunc("GET /api/order/{id}", h.getOrder)
	mux.HandleFunc("POST /api/order/{id}/pay", h.payOrder)
	mux.HandleFunc("GET /api/order/{id}/invoice", h.getInvoice)

	// Admin surface: menu management and analytics.
	mux.Handle("GET /api/admin/menu", admin(http.HandlerFunc(h.listMenuAdmin)))
	mux.Handle("PUT /api/admin/menu", admin(http.HandlerFunc(h.upsertMenuItem)))
	mux.Handle("POST /api/admin/menu/import", admin(http.HandlerFunc(h.importMenu)))
	mux.Handle("GET /api/admin/menu/export", admin(http.HandlerFunc(h.exportMenu)))
	mux.Handle("GET /api/admin/reports/dashboard", admin(http.HandlerFunc(h.dashboard)))
	mux.Handle("GET /api/admin/reports/sales", admin(http.HandlerFunc(h.salesReport)))
	mux.Handle("GET /api/admin/reports/breakdown", admin(http.HandlerFunc(h.breakdownReport)))
	mux.Handle("GET /api/admin/reports/items/export", admin(http.HandlerFunc(h.exportItemSales)))
}
