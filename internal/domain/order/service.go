package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/dineease-pos/internal/domain/billing"
	"github.com/xenking/dineease-pos/internal/domain/customer"
	"github.com/xenking/dineease-pos/internal/domain/menu"
)

// CartLine is one entry of the caller-owned cart: an item reference plus a
// quantity. Prices are looked up and captured by the service, never trusted
// from the caller.
type CartLine struct {
	MenuItemID string
	Quantity   int
}

// CreateOrderRequest holds the input for creating an order.
type CreateOrderRequest struct {
	CustomerName  string
	CustomerPhone string
	Type          Type
	Lines         []CartLine
	Discount      decimal.Decimal
}

// Service encapsulates order creation, payment recording, and lookup.
type Service struct {
	menu      menu.Repository
	customers customer.Repository
	orders    Repository
	now       func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(m menu.Repository, customers customer.Repository, orders Repository) *Service {
	return &Service{
		menu:      m,
		customers: customers,
		orders:    orders,
		now:       time.Now,
	}
}

// CreateOrder validates the cart, snapshots current menu prices, computes
// the bill, and persists the order with its items in a single transaction.
//
// The find-or-create of the customer happens before that transaction; an
// orphan customer row left behind by a failed order write is harmless and
// deliberately not rolled back.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	if req.CustomerName == "" || req.CustomerPhone == "" {
		return nil, ErrMissingCustomer
	}
	if req.Type == "" {
		req.Type = TypeDineIn
	}
	if !ValidType(req.Type) {
		return nil, ErrInvalidOrderType
	}

	ids := make([]string, len(req.Lines))
	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{MenuItemID: line.MenuItemID}
		}
		ids[i] = line.MenuItemID
	}

	fetched, err := s.menu.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get menu items")
	}
	itemsByID := make(map[string]menu.Item, len(fetched))
	for _, it := range fetched {
		itemsByID[it.ID] = it
	}

	// Snapshot name and unit price per line, preserving cart order.
	orderItems := make([]Item, len(req.Lines))
	priced := make([]billing.Line, len(req.Lines))
	for i, line := range req.Lines {
		it, ok := itemsByID[line.MenuItemID]
		if !ok {
			return nil, &MenuItemNotFoundError{MenuItemID: line.MenuItemID}
		}
		if !it.Available {
			return nil, &ItemUnavailableError{Name: it.Name}
		}
		orderItems[i] = Item{
			MenuItemID:      it.ID,
			Name:            it.Name,
			Quantity:        line.Quantity,
			PriceAtPurchase: it.Price,
		}
		priced[i] = billing.Line{
			Name:      it.Name,
			UnitPrice: it.Price,
			Quantity:  line.Quantity,
		}
	}

	cust, err := s.customers.FindOrCreate(ctx, req.CustomerName, req.CustomerPhone)
	if err != nil {
		return nil, errors.Wrap(err, "find or create customer")
	}

	bill := billing.ComputeBill(priced, req.Discount)

	o := &Order{
		ID:        uuid.New().String(),
		Customer:  *cust,
		Status:    StatusPending,
		Type:      req.Type,
		Items:     orderItems,
		Subtotal:  bill.Subtotal,
		Discount:  bill.Discount,
		Tax:       bill.Tax,
		Total:     bill.Total,
		CreatedAt: s.now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// RecordPayment marks the order as paid and records the payment. Paying an
// already-paid order returns ErrAlreadyPaid and leaves the stored payment
// untouched.
func (s *Service) RecordPayment(ctx context.Context, orderID string, method PaymentMethod, details string) (*Payment, error) {
	if !ValidPaymentMethod(method) {
		return nil, ErrInvalidMethod
	}

	p := &Payment{
		ID:        uuid.New().String(),
		Method:    method,
		Details:   details,
		CreatedAt: s.now().UTC(),
	}
	if err := s.orders.RecordPayment(ctx, orderID, p); err != nil {
		return nil, err
	}

	return p, nil
}

// GetOrder returns the fully populated order for invoice rendering.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}
