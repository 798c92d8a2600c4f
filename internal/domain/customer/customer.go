// Package customer holds the customer identity model. Customers are keyed
// by phone number and created implicitly on their first order.
package customer

import (
	"context"
	"time"
)

// Customer is a billing identity. The phone number is unique; the display
// name recorded on the first order is kept on later orders.
type Customer struct {
	ID        string
	Name      string
	Phone     string
	CreatedAt time.Time
}

// Repository defines persistence operations for customers.
type Repository interface {
	// FindOrCreate returns the customer with the given phone, creating one
	// with the supplied name when absent. The write is not part of the
	// order transaction: an orphan customer row left behind by a failed
	// order write is harmless and deliberately tolerated.
	FindOrCreate(ctx context.Context, name, phone string) (*Customer, error)
}
