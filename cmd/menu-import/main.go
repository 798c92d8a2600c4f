// Command menu-import bulk-loads catalogue exports from multiple branches
// into one database. Each branch exports its menu as CSV (optionally
// gzipped); items are deduplicated by name across files, first occurrence
// wins.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/dineease-pos/internal/domain/menu"
	"github.com/xenking/dineease-pos/internal/storage/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing menu CSV exports (.csv or .csv.gz)")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("menu import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("menu import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := findExports(dataDir)
	if err != nil {
		return errors.Wrap(err, "scan data dir")
	}
	if len(files) == 0 {
		return errors.Errorf("no .csv or .csv.gz files in %s", dataDir)
	}

	slog.Info("parsing export files", slog.Int("files", len(files)))

	items, err := parseExports(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse exports")
	}

	slog.Info("unique items parsed", slog.Int("count", len(items)))

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewMenuRepository(pool)
	for i, item := range items {
		if err := repo.Upsert(ctx, item); err != nil {
			return errors.Wrapf(err, "upsert item %q", item.Name)
		}
		if (i+1)%100 == 0 || i+1 == len(items) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(items)))
		}
	}

	return nil
}

// findExports lists CSV exports in dir, sorted by name so deduplication
// order is stable across runs.
func findExports(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".csv.gz") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	return files, nil
}

// dedup tracks item names already accepted. The bloom filter answers the
// common "never seen" case without touching the map; a bloom hit is
// confirmed against the exact set so false positives never drop items.
type dedup struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	names  map[string]struct{}
}

func newDedup() *dedup {
	return &dedup{
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		names:  make(map[string]struct{}),
	}
}

// accept reports whether name is new, and records it when so.
func (d *dedup) accept(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.filter.TestString(name) {
		if _, seen := d.names[name]; seen {
			return false
		}
	}
	d.filter.AddString(name)
	d.names[name] = struct{}{}
	return true
}

// parseExports reads all files concurrently and merges their rows,
// deduplicated by item name. File order decides which duplicate survives
// only between files parsed at different speeds; within a file the first
// row wins.
func parseExports(ctx context.Context, files []string) ([]menu.Item, error) {
	var (
		mu     sync.Mutex
		merged []menu.Item
	)
	seen := newDedup()

	g, ctx := errgroup.WithContext(ctx)
	for _, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			items, err := parseFile(path)
			if err != nil {
				return errors.Wrapf(err, "parse %s", path)
			}

			var kept int
			mu.Lock()
			for _, item := range items {
				if seen.accept(item.Name) {
					merged = append(merged, item)
					kept++
				}
			}
			mu.Unlock()

			slog.Info("parsed export",
				slog.String("file", filepath.Base(path)),
				slog.Int("rows", len(items)),
				slog.Int("kept", kept),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merged, nil
}

// parseFile reads one export, transparently decompressing .gz files.
func parseFile(path string) ([]menu.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "create gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	return menu.ReadCSV(r)
}
