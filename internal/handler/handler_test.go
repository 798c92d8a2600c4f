package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/dineease-pos/internal/domain/auth"
	"github.com/xenking/dineease-pos/internal/domain/customer"
	"github.com/xenking/dineease-pos/internal/domain/menu"
	"github.com/xenking/dineease-pos/internal/domain/order"
	"github.com/xenking/dineease-pos/internal/invoice"
	"github.com/xenking/dineease-pos/internal/report"
)

const (
	testPepper = "test-pepper"
	adminKey   = "admin-secret"
)

type menuRepoStub struct {
	items       []menu.Item
	upserts     []menu.Item
	importCalls int
	importErr   error
}

func (m *menuRepoStub) ListAvailable(context.Context) ([]menu.Item, error) {
	var out []menu.Item
	for _, it := range m.items {
		if it.Available {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *menuRepoStub) ListAll(context.Context) ([]menu.Item, error) {
	return m.items, nil
}

func (m *menuRepoStub) GetByIDs(_ context.Context, ids []string) ([]menu.Item, error) {
	var out []menu.Item
	for _, id := range ids {
		for _, it := range m.items {
			if it.ID == id {
				out = append(out, it)
			}
		}
	}
	return out, nil
}

func (m *menuRepoStub) Upsert(_ context.Context, item menu.Item) error {
	m.upserts = append(m.upserts, item)
	return nil
}

func (m *menuRepoStub) ImportAll(_ context.Context, items []menu.Item) error {
	m.importCalls++
	if m.importErr != nil {
		return m.importErr
	}
	m.upserts = append(m.upserts, items...)
	return nil
}

type customerRepoStub struct{}

func (customerRepoStub) FindOrCreate(_ context.Context, name, phone string) (*customer.Customer, error) {
	return &customer.Customer{ID: "cust-1", Name: name, Phone: phone}, nil
}

type orderRepoStub struct {
	orders map[string]*order.Order
}

func (r *orderRepoStub) Create(_ context.Context, o *order.Order) error {
	r.orders[o.ID] = o
	return nil
}

func (r *orderRepoStub) RecordPayment(_ context.Context, orderID string, p *order.Payment) error {
	o, ok := r.orders[orderID]
	if !ok {
		return order.ErrNotFound
	}
	if o.Payment != nil {
		return order.ErrAlreadyPaid
	}
	o.Payment = p
	o.Status = order.StatusPaid
	return nil
}

func (r *orderRepoStub) Get(_ context.Context, id string) (*order.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

type reportStoreStub struct{}

func (reportStoreStub) SalesBuckets(context.Context, report.Granularity, time.Time, time.Time) ([]report.Bucket, error) {
	return nil, nil
}

func (reportStoreStub) Breakdown(context.Context, report.Dimension, time.Time, time.Time) ([]report.Slice, error) {
	return []report.Slice{{Label: "Dine-In", Value: decimal.RequireFromString("525.00")}}, nil
}

func (reportStoreStub) Totals(context.Context, time.Time, time.Time) (decimal.Decimal, int64, error) {
	return decimal.RequireFromString("525.00"), 1, nil
}

func (reportStoreStub) ItemSales(context.Context, time.Time, time.Time, int) ([]report.ItemSales, error) {
	return []report.ItemSales{{Name: "Margherita Pizza", Quantity: 2}}, nil
}

type keyRepoStub struct{}

func (keyRepoStub) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if hash == HashAPIKey(testPepper, adminKey) {
		return &auth.APIKeyInfo{ID: "key-1", Name: "admin", Scopes: []string{auth.ScopeAdmin}}, nil
	}
	if hash == HashAPIKey(testPepper, "reporter-key") {
		return &auth.APIKeyInfo{ID: "key-2", Name: "reporter", Scopes: []string{"reporting"}}, nil
	}
	return nil, order.ErrNotFound
}

func newTestServer(t *testing.T) (*http.ServeMux, *menuRepoStub, *orderRepoStub) {
	t.Helper()

	menuRepo := &menuRepoStub{items: []menu.Item{
		{ID: "m1", Name: "Margherita Pizza", Category: "Pizza", Price: decimal.RequireFromString("250.00"), Available: true},
		{ID: "m2", Name: "Secret Special", Category: "Special", Price: decimal.RequireFromString("999.00"), Available: false},
	}}
	orderRepo := &orderRepoStub{orders: make(map[string]*order.Order)}

	lg := zap.NewNop()
	orderSvc := order.NewService(menuRepo, customerRepoStub{}, orderRepo)
	reportSvc := report.NewService(reportStoreStub{})
	renderer := invoice.NewRenderer(invoice.Config{})
	spool := invoice.NewSpooler(renderer, orderSvc, t.TempDir(), lg)

	h := New(orderSvc, menuRepo, reportSvc, renderer, spool, lg)

	mux := http.NewServeMux()
	h.Register(mux, RequireAPIKey(keyRepoStub{}, testPepper, auth.ScopeAdmin))
	return mux, menuRepo, orderRepo
}

func createTestOrder(t *testing.T, mux *http.ServeMux) string {
	t.Helper()

	body := `{
		"customerName": "Asha",
		"customerPhone": "9876543210",
		"orderType": "Dine-In",
		"discount": "25.00",
		"items": [{"menuItemId": "m1", "quantity": 2}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp["orderId"].(string)
}

func TestCreateOrder(t *testing.T) {
	mux, _, orderRepo := newTestServer(t)

	body := `{
		"customerName": "Asha",
		"customerPhone": "9876543210",
		"orderType": "Dine-In",
		"discount": "25.00",
		"items": [{"menuItemId": "m1", "quantity": 2}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "500.00", resp["subtotal"])
	assert.Equal(t, "25.00", resp["discount"])
	assert.Equal(t, "23.75", resp["tax"])
	assert.Equal(t, "498.75", resp["total"])
	assert.Equal(t, "pending", resp["status"])
	assert.Len(t, orderRepo.orders, 1)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	mux, _, _ := newTestServer(t)

	body := `{"customerName": "Asha", "customerPhone": "9876543210", "items": []}`
	req := httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrder_UnknownItem(t *testing.T) {
	mux, _, _ := newTestServer(t)

	body := `{"customerName": "Asha", "customerPhone": "9876543210",
		"items": [{"menuItemId": "nope", "quantity": 1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not found")
}

func TestCreateOrder_UnavailableItem(t *testing.T) {
	mux, _, _ := newTestServer(t)

	body := `{"customerName": "Asha", "customerPhone": "9876543210",
		"items": [{"menuItemId": "m2", "quantity": 1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not available")
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	mux, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrder_NotFound(t *testing.T) {
	mux, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/order/missing", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPayOrder(t *testing.T) {
	mux, _, orderRepo := newTestServer(t)
	orderID := createTestOrder(t, mux)

	body := `{"method": "Card", "cardNumber": "4111111111111111"}`
	req := httptest.NewRequest(http.MethodPost, "/api/order/"+orderID+"/pay", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "paid", resp["status"])
	assert.Equal(t, "/api/order/"+orderID+"/invoice", resp["invoiceUrl"])

	stored := orderRepo.orders[orderID]
	require.NotNil(t, stored.Payment)
	assert.Equal(t, "Card ending in 1111", stored.Payment.Details)
}

func TestPayOrder_AlreadyPaid(t *testing.T) {
	mux, _, _ := newTestServer(t)
	orderID := createTestOrder(t, mux)

	body := `{"method": "Cash"}`
	req := httptest.NewRequest(http.MethodPost, "/api/order/"+orderID+"/pay", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/api/order/"+orderID+"/pay", strings.NewReader(body))
	w2 := httptest.NewRecorder()
	mux.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusConflict, w2.Code)
}

func TestPayOrder_InvalidMethod(t *testing.T) {
	mux, _, _ := newTestServer(t)
	orderID := createTestOrder(t, mux)

	body := `{"method": "Barter"}`
	req := httptest.NewRequest(http.MethodPost, "/api/order/"+orderID+"/pay", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetInvoice(t *testing.T) {
	mux, _, _ := newTestServer(t)
	orderID := createTestOrder(t, mux)

	req := httptest.NewRequest(http.MethodGet, "/api/order/"+orderID+"/invoice", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=invoice_"+orderID+".pdf",
		w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))
}

func TestGetInvoice_UnknownOrder(t *testing.T) {
	mux, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/order/missing/invoice", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListMenu_OnlyAvailable(t *testing.T) {
	mux, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var items []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, "Margherita Pizza", items[0]["name"])
	assert.Equal(t, "250.00", items[0]["price"])
}

func TestAdminMenu_RequiresAPIKey(t *testing.T) {
	mux, _, _ := newTestServer(t)

	// No key.
	req := httptest.NewRequest(http.MethodGet, "/api/admin/menu", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Wrong key.
	req = httptest.NewRequest(http.MethodGet, "/api/admin/menu", nil)
	req.Header.Set("X-API-Key", "bogus")
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid key without the admin scope.
	req = httptest.NewRequest(http.MethodGet, "/api/admin/menu", nil)
	req.Header.Set("X-API-Key", "reporter-key")
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Admin key sees the full catalogue including unavailable items.
	req = httptest.NewRequest(http.MethodGet, "/api/admin/menu", nil)
	req.Header.Set("X-API-Key", adminKey)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var items []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&items))
	assert.Len(t, items, 2)
}

func TestMenuImport(t *testing.T) {
	mux, menuRepo, _ := newTestServer(t)

	csvBody := "name,category,price,is_available\nPaneer Tikka,Starters,180.00,true\nLassi,Drinks,60.00,false\n"
	req := httptest.NewRequest(http.MethodPost, "/api/admin/menu/import", strings.NewReader(csvBody))
	req.Header.Set("X-API-Key", adminKey)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"imported":2`)
	require.Len(t, menuRepo.upserts, 2)
	assert.Equal(t, "Paneer Tikka", menuRepo.upserts[0].Name)
	assert.False(t, menuRepo.upserts[1].Available)

	// The whole file goes through the repository as one batch, not as
	// row-by-row upserts.
	assert.Equal(t, 1, menuRepo.importCalls)
}

func TestMenuImport_FailedBatchWritesNothing(t *testing.T) {
	mux, menuRepo, _ := newTestServer(t)
	menuRepo.importErr = errors.New("duplicate key value")

	csvBody := "name,category,price,is_available\nPaneer Tikka,Starters,180.00,true\nLassi,Drinks,60.00,false\n"
	req := httptest.NewRequest(http.MethodPost, "/api/admin/menu/import", strings.NewReader(csvBody))
	req.Header.Set("X-API-Key", adminKey)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, menuRepo.upserts)
}

func TestMenuImport_BadRowRejectsUpload(t *testing.T) {
	mux, menuRepo, _ := newTestServer(t)

	csvBody := "name,category,price,is_available\nPaneer Tikka,Starters,not-a-price,true\n"
	req := httptest.NewRequest(http.MethodPost, "/api/admin/menu/import", strings.NewReader(csvBody))
	req.Header.Set("X-API-Key", adminKey)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, menuRepo.upserts)
}

func TestMenuExport(t *testing.T) {
	mux, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/menu/export", nil)
	req.Header.Set("X-API-Key", adminKey)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "name,category,price,is_available")
	assert.Contains(t, w.Body.String(), "Margherita Pizza,Pizza,250.00,true")
}

func TestUpsertMenuItem(t *testing.T) {
	mux, menuRepo, _ := newTestServer(t)

	body := `{"name": "Garlic Bread", "category": "Sides", "price": "90.00", "isAvailable": true}`
	req := httptest.NewRequest(http.MethodPut, "/api/admin/menu", strings.NewReader(body))
	req.Header.Set("X-API-Key", adminKey)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, menuRepo.upserts, 1)
	assert.Equal(t, "Garlic Bread", menuRepo.upserts[0].Name)
	assert.Equal(t, "90.00", menuRepo.upserts[0].Price.StringFixed(2))
}

func TestUpsertMenuItem_Invalid(t *testing.T) {
	mux, _, _ := newTestServer(t)

	body := `{"name": "", "price": "90.00"}`
	req := httptest.NewRequest(http.MethodPut, "/api/admin/menu", strings.NewReader(body))
	req.Header.Set("X-API-Key", adminKey)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboard(t *testing.T) {
	mux, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/reports/dashboard?range=7d", nil)
	req.Header.Set("X-API-Key", adminKey)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	kpis := resp["kpis"].(map[string]any)
	assert.Equal(t, "525.00", kpis["totalSales"])
	assert.Equal(t, float64(1), kpis["orderCount"])
	assert.Equal(t, "525.00", kpis["avgOrderValue"])

	// The start of the window is truncated to a day boundary, so the series
	// spans seven or eight daily buckets depending on the time of day.
	trend := resp["salesTrend"].(map[string]any)
	labels := trend["labels"].([]any)
	assert.GreaterOrEqual(t, len(labels), 7)
	assert.LessOrEqual(t, len(labels), 8)
}

func TestDashboard_InvalidRange(t *testing.T) {
	mux, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/reports/dashboard?range=90d", nil)
	req.Header.Set("X-API-Key", adminKey)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBreakdown_InvalidDimension(t *testing.T) {
	mux, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/reports/breakdown?by=waiter", nil)
	req.Header.Set("X-API-Key", adminKey)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestItemSalesExport(t *testing.T) {
	mux, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/reports/items/export", nil)
	req.Header.Set("X-API-Key", adminKey)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "item_name,quantity_sold")
	assert.Contains(t, w.Body.String(), "Margherita Pizza,2")
}
