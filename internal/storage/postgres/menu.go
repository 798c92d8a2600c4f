package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/dineease-pos/internal/domain/menu"
)

const (
	listAvailableMenuSQL = `SELECT id, name, category, price, is_available, image_path
	FROM menu_items WHERE is_available ORDER BY category, name`

	listAllMenuSQL = `SELECT id, name, category, price, is_available, image_path
	FROM menu_items ORDER BY name`

	getMenuByIDsSQL = `SELECT id, name, category, price, is_available, image_path
	FROM menu_items WHERE id = ANY($1)`

	upsertMenuSQL = `INSERT INTO menu_items (id, name, category, price, is_available, image_path)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (name) DO UPDATE
	SET category = EXCLUDED.category,
	    price = EXCLUDED.price,
	    is_available = EXCLUDED.is_available,
	    updated_at = now()`
)

var _ menu.Repository = (*MenuRepository)(nil)

// MenuRepository implements menu.Repository backed by PostgreSQL.
type MenuRepository struct {
	pool *pgxpool.Pool
}

// NewMenuRepository returns a MenuRepository that uses the given pool.
func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

// ListAvailable returns items currently offered for sale, ordered by
// category then name.
func (r *MenuRepository) ListAvailable(ctx context.Context) ([]menu.Item, error) {
	return r.list(ctx, listAvailableMenuSQL)
}

// ListAll returns every catalogue item including unavailable ones.
func (r *MenuRepository) ListAll(ctx context.Context) ([]menu.Item, error) {
	return r.list(ctx, listAllMenuSQL)
}

func (r *MenuRepository) list(ctx context.Context, sql string) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("listing menu items: %w", err)
	}

	items, err := pgx.CollectRows(rows, scanMenuItem)
	if err != nil {
		return nil, fmt.Errorf("scanning menu items: %w", err)
	}
	return items, nil
}

// GetByIDs fetches items by id in a single batch. Ids with no matching row
// are simply absent from the result.
func (r *MenuRepository) GetByIDs(ctx context.Context, ids []string) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx, getMenuByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting menu items: %w", err)
	}

	items, err := pgx.CollectRows(rows, scanMenuItem)
	if err != nil {
		return nil, fmt.Errorf("scanning menu items: %w", err)
	}
	return items, nil
}

// Upsert inserts the item or updates the existing item with the same name.
func (r *MenuRepository) Upsert(ctx context.Context, item menu.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.ImagePath == "" {
		item.ImagePath = "default.jpg"
	}

	_, err := r.pool.Exec(ctx, upsertMenuSQL,
		item.ID, item.Name, item.Category, item.Price, item.Available, item.ImagePath,
	)
	if err != nil {
		return fmt.Errorf("upserting menu item %q: %w", item.Name, err)
	}
	return nil
}

// ImportAll upserts the batch inside a single transaction, so a bad row
// rolls back everything written before it.
func (r *MenuRepository) ImportAll(ctx context.Context, items []menu.Item) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin menu import: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		if item.ImagePath == "" {
			item.ImagePath = "default.jpg"
		}

		_, err := tx.Exec(ctx, upsertMenuSQL,
			item.ID, item.Name, item.Category, item.Price, item.Available, item.ImagePath,
		)
		if err != nil {
			return fmt.Errorf("importing menu item %q: %w", item.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing menu import: %w", err)
	}
	return nil
}

func scanMenuItem(row pgx.CollectableRow) (menu.Item, error) {
	var it menu.Item
	err := row.Scan(&it.ID, &it.Name, &it.Category, &it.Price, &it.Available, &it.ImagePath)
	return it, err
}
