package invoice

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/dineease-pos/internal/domain/order"
)

// OrderGetter loads a fully populated order for rendering.
type OrderGetter interface {
	GetOrder(ctx context.Context, id string) (*order.Order, error)
}

// Spooler renders invoices off the request path. Payment handlers enqueue
// an order id and a small worker pool writes invoice_<id>.pdf into the
// spool directory; downloads fall back to an on-demand render when the
// spooled file is not there yet.
type Spooler struct {
	renderer *Renderer
	orders   OrderGetter
	dir      string
	lg       *zap.Logger

	jobs chan string
	g    *errgroup.Group
}

// NewSpooler creates a Spooler writing into dir. The queue holds a bounded
// backlog; Enqueue drops (and reports) when it is full rather than blocking
// order intake.
func NewSpooler(renderer *Renderer, orders OrderGetter, dir string, lg *zap.Logger) *Spooler {
	return &Spooler{
		renderer: renderer,
		orders:   orders,
		dir:      dir,
		lg:       lg,
		jobs:     make(chan string, 128),
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled or
// Close is called.
func (s *Spooler) Start(ctx context.Context, workers int) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "create spool dir")
	}

	g, ctx := errgroup.WithContext(ctx)
	s.g = g
	for range workers {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case id, ok := <-s.jobs:
					if !ok {
						return nil
					}
					if err := s.render(ctx, id); err != nil {
						// A render failure means the order was saved in an
						// invalid state. Log loudly; the download endpoint
						// still renders on demand and surfaces the error.
						s.lg.Error("spool invoice",
							zap.String("order_id", id),
							zap.Error(err),
						)
					}
				}
			}
		})
	}
	return nil
}

// Enqueue schedules an invoice render. It reports whether the job was
// accepted.
func (s *Spooler) Enqueue(orderID string) bool {
	select {
	case s.jobs <- orderID:
		return true
	default:
		s.lg.Warn("invoice spool queue full, dropping job", zap.String("order_id", orderID))
		return false
	}
}

// Close stops accepting jobs and waits for in-flight renders to finish.
func (s *Spooler) Close() error {
	close(s.jobs)
	if s.g == nil {
		return nil
	}
	return s.g.Wait()
}

// Path returns the spool file location for an order, whether or not it has
// been rendered yet.
func (s *Spooler) Path(orderID string) string {
	return filepath.Join(s.dir, Filename(orderID))
}

func (s *Spooler) render(ctx context.Context, orderID string) error {
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return errors.Wrap(err, "load order")
	}

	data, err := s.renderer.Render(o)
	if err != nil {
		return errors.Wrap(err, "render")
	}

	// Write via temp file + rename so a concurrent download never reads a
	// partially written PDF.
	tmp, err := os.CreateTemp(s.dir, "invoice-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmp.Name(), s.Path(orderID)); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "publish spool file")
	}

	return nil
}
