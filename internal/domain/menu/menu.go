// Package menu defines the catalogue of purchasable items. Menu prices are
// read when building a new cart; orders capture their own price snapshot,
// so editing or disabling an item never touches historical records.
package menu

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested menu item does not exist.
var ErrNotFound = errors.New("menu item not found")

// Item is a single catalogue entry, identified by its unique name.
type Item struct {
	ID        string
	Name      string
	Category  string
	Price     decimal.Decimal
	Available bool
	ImagePath string
}

// Repository defines persistence operations for the menu catalogue.
type Repository interface {
	// ListAvailable returns items currently offered for sale.
	ListAvailable(ctx context.Context) ([]Item, error)
	// ListAll returns every item including unavailable ones (admin view).
	ListAll(ctx context.Context) ([]Item, error)
	// GetByIDs fetches items by id in a single batch. Missing ids are
	// simply absent from the result; the caller decides whether that is
	// an error.
	GetByIDs(ctx context.Context, ids []string) ([]Item, error)
	// Upsert inserts the item or, when an item with the same name exists,
	// updates its category, price, and availability.
	Upsert(ctx context.Context, item Item) error
	// ImportAll upserts the whole batch atomically: either every row is
	// written or none are.
	ImportAll(ctx context.Context, items []Item) error
}
