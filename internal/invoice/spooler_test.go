package invoice

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/dineease-pos/internal/domain/order"
)

type stubGetter struct {
	order *order.Order
	err   error
}

func (s *stubGetter) GetOrder(_ context.Context, _ string) (*order.Order, error) {
	return s.order, s.err
}

func TestSpooler_RendersToDisk(t *testing.T) {
	dir := t.TempDir()
	o := sampleOrder()

	sp := NewSpooler(NewRenderer(Config{}), &stubGetter{order: o}, dir, zap.NewNop())
	require.NoError(t, sp.Start(context.Background(), 2))

	require.True(t, sp.Enqueue(o.ID))
	require.NoError(t, sp.Close())

	data, err := os.ReadFile(sp.Path(o.ID))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestSpooler_EnqueueAfterCancelStillAccepted(t *testing.T) {
	// Cancellation stops workers; the queue itself keeps accepting until
	// Close. The job is simply never rendered.
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	sp := NewSpooler(NewRenderer(Config{}), &stubGetter{order: sampleOrder()}, dir, zap.NewNop())
	require.NoError(t, sp.Start(ctx, 1))

	cancel()
	// Give the worker a moment to observe cancellation.
	time.Sleep(10 * time.Millisecond)
	assert.True(t, sp.Enqueue("some-order"))
	require.NoError(t, sp.Close())
}

func TestSpooler_Path(t *testing.T) {
	sp := NewSpooler(NewRenderer(Config{}), &stubGetter{}, "/tmp/spool", zap.NewNop())
	assert.Equal(t, "/tmp/spool/invoice_o1.pdf", sp.Path("o1"))
}
