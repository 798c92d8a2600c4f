// Command seed-db provisions a fresh database with a demo menu and an admin
// API key so a new deployment is usable immediately.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/dineease-pos/internal/domain/auth"
	"github.com/xenking/dineease-pos/internal/domain/menu"
	"github.com/xenking/dineease-pos/internal/handler"
	"github.com/xenking/dineease-pos/internal/storage/postgres"
)

type seedItem struct {
	name      string
	category  string
	price     string
	available bool
}

var demoMenu = []seedItem{
	{"Margherita Pizza", "Pizza", "250.00", true},
	{"Farmhouse Pizza", "Pizza", "320.00", true},
	{"Paneer Tikka", "Starters", "180.00", true},
	{"Veg Spring Rolls", "Starters", "140.00", true},
	{"Butter Chicken", "Mains", "290.00", true},
	{"Dal Makhani", "Mains", "210.00", true},
	{"Garlic Naan", "Breads", "45.00", true},
	{"Masala Chai", "Drinks", "30.00", true},
	{"Fresh Lime Soda", "Drinks", "50.00", true},
	{"Gulab Jamun", "Desserts", "80.00", true},
	{"Seasonal Special", "Specials", "350.00", false},
}

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or POS_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or POS_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("POS_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or POS_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("POS_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedMenu(ctx, postgres.NewMenuRepository(pool)); err != nil {
		return errors.Wrap(err, "seed menu")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedMenu(ctx context.Context, repo *postgres.MenuRepository) error {
	slog.Info("upserting demo menu", slog.Int("count", len(demoMenu)))

	for _, s := range demoMenu {
		price, err := decimal.NewFromString(s.price)
		if err != nil {
			return errors.Wrapf(err, "parse price for %q", s.name)
		}

		if err := repo.Upsert(ctx, menu.Item{
			Name:      s.name,
			Category:  s.category,
			Price:     price,
			Available: s.available,
		}); err != nil {
			return errors.Wrapf(err, "upsert menu item %q", s.name)
		}

		slog.Info("upserted menu item", slog.String("name", s.name), slog.String("price", s.price))
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	// No explicit ID: the repository mints a UUID, matching the column type.
	// Re-seeding stays idempotent through the key_hash conflict target.
	if err := repo.Upsert(ctx, auth.APIKeyInfo{
		KeyHash: handler.HashAPIKey(pepper, apiKey),
		Name:    "Default admin key",
		Scopes:  []string{auth.ScopeAdmin},
	}); err != nil {
		return errors.Wrap(err, "upsert admin API key")
	}

	slog.Info("upserted API key", slog.String("name", "Default admin key"))

	return nil
}
