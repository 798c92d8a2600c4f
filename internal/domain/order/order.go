// Package order implements the bill computation and persistence pipeline:
// a cart of line items becomes a priced, taxed, discounted order that is
// financially frozen from the moment it is created. Only the status and the
// presence of a payment change afterwards.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/dineease-pos/internal/domain/customer"
)

// Status is the order lifecycle state. The only transition is
// pending -> paid, and paid is terminal.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Type classifies how the order is fulfilled.
type Type string

const (
	TypeDineIn   Type = "Dine-In"
	TypeTakeaway Type = "Takeaway"
	TypeDelivery Type = "Delivery"
)

// ValidType reports whether t is a known order type.
func ValidType(t Type) bool {
	switch t {
	case TypeDineIn, TypeTakeaway, TypeDelivery:
		return true
	}
	return false
}

// PaymentMethod enumerates the accepted payment instruments.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "Cash"
	PaymentCard PaymentMethod = "Card"
	PaymentUPI  PaymentMethod = "UPI"
)

// ValidPaymentMethod reports whether m is a known payment method.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI:
		return true
	}
	return false
}

// Sentinel errors surfaced by the service and repositories.
var (
	ErrEmptyCart        = errors.New("cart items required")
	ErrMissingCustomer  = errors.New("customer name and phone required")
	ErrNotFound         = errors.New("order not found")
	ErrAlreadyPaid      = errors.New("order already paid")
	ErrInvalidOrderType = errors.New("invalid order type")
	ErrInvalidMethod    = errors.New("invalid payment method")
)

// InvalidQuantityError indicates a cart line with a non-positive quantity.
type InvalidQuantityError struct {
	MenuItemID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for item %s", e.MenuItemID)
}

// MenuItemNotFoundError indicates a cart line referencing an unknown item.
type MenuItemNotFoundError struct {
	MenuItemID string
}

func (e *MenuItemNotFoundError) Error() string {
	return fmt.Sprintf("menu item %s not found", e.MenuItemID)
}

// ItemUnavailableError indicates a cart line for an item that is currently
// not offered for sale.
type ItemUnavailableError struct {
	Name string
}

func (e *ItemUnavailableError) Error() string {
	return fmt.Sprintf("menu item %q is not available", e.Name)
}

// Order is a persisted, priced order. The monetary fields always satisfy
// total = max(subtotal - discount, 0) plus tax on that amount, computed
// once at creation time and never edited independently.
type Order struct {
	ID        string
	Customer  customer.Customer
	Status    Status
	Type      Type
	Items     []Item
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
	Payment   *Payment
	CreatedAt time.Time
}

// Item is one line of an order. Name and PriceAtPurchase are captured from
// the menu at creation time and are immutable afterwards; MenuItemID is an
// informational back-reference only.
type Item struct {
	MenuItemID      string
	Name            string
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// LineTotal is quantity times the captured unit price.
func (i Item) LineTotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Payment records the single payment made against an order.
type Payment struct {
	ID        string
	Method    PaymentMethod
	Details   string
	CreatedAt time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order and all of its items as one atomic unit:
	// either every row commits or none do.
	Create(ctx context.Context, o *Order) error
	// RecordPayment inserts the payment row and flips the order status to
	// paid atomically. It returns ErrNotFound for an unknown order and
	// ErrAlreadyPaid when the order has already been paid.
	RecordPayment(ctx context.Context, orderID string, p *Payment) error
	// Get returns the order with its items and payment eagerly loaded.
	// It returns ErrNotFound when no such order exists.
	Get(ctx context.Context, id string) (*Order, error)
}
