package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/dineease-pos/internal/domain/customer"
)

// The no-op update on conflict makes RETURNING yield the existing row, so a
// returning customer keeps the name recorded on their first order.
const findOrCreateCustomerSQL = `INSERT INTO customers (id, name, phone)
	VALUES ($1, $2, $3)
	ON CONFLICT (phone) DO UPDATE SET name = customers.name
	RETURNING id, name, phone, created_at`

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// FindOrCreate returns the customer with the given phone, creating one when
// absent.
func (r *CustomerRepository) FindOrCreate(ctx context.Context, name, phone string) (*customer.Customer, error) {
	var c customer.Customer
	err := r.pool.QueryRow(ctx, findOrCreateCustomerSQL, uuid.New().String(), name, phone).
		Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("find or create customer %q: %w", phone, err)
	}
	return &c, nil
}
