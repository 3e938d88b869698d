package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/orderflow/fulfillment/internal/inventory/domain"
)

// Sink persists batches of committed adjustments.
type Sink interface {
	Write(ctx context.Context, entries []domain.Adjustment) error
}

// Relay decouples the inventory ledger from durable persistence: Append is a
// non-blocking enqueue called while a product lock is held, and the run loop
// flushes batches to the sink after the fact. Persistence is fire and
// forget; the in-memory ledger stays authoritative.
type Relay struct {
	log      *slog.Logger
	sink     Sink
	entries  chan domain.Adjustment
	batch    int
	interval time.Duration
}

func NewRelay(log *slog.Logger, sink Sink) *Relay {
	return &Relay{
		log:      log,
		sink:     sink,
		entries:  make(chan domain.Adjustment, 1024),
		batch:    100,
		interval: 500 * time.Millisecond,
	}
}

// Append enqueues one adjustment. When the buffer is full the entry is
// dropped with a warning rather than stalling the ledger.
func (r *Relay) Append(a domain.Adjustment) {
	select {
	case r.entries <- a:
	default:
		r.log.Warn("journal buffer full, entry dropped", "product_id", a.ProductID)
	}
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.flush(context.WithoutCancel(ctx))
			r.log.Info("journal relay stopping")
			return nil
		case <-t.C:
			r.flush(ctx)
		}
	}
}

func (r *Relay) flush(ctx context.Context) {
	for {
		batch := r.drain()
		if len(batch) == 0 {
			return
		}
		if err := r.sink.Write(ctx, batch); err != nil {
			r.log.Error("journal write failed", "entries", len(batch), "err", err)
			return
		}
		r.log.Debug("journal batch written", "entries", len(batch))
	}
}

func (r *Relay) drain() []domain.Adjustment {
	var batch []domain.Adjustment
	for len(batch) < r.batch {
		select {
		case a := <-r.entries:
			batch = append(batch, a)
		default:
			return batch
		}
	}
	return batch
}
