package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderflow/fulfillment/internal/inventory/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS inventory_adjustments (
    id           BIGSERIAL PRIMARY KEY,
    product_id   TEXT NOT NULL,
    old_quantity INT NOT NULL,
    new_quantity INT NOT NULL,
    delta        INT NOT NULL,
    reason       TEXT NOT NULL,
    order_id     TEXT NOT NULL DEFAULT '',
    adjusted_at  TIMESTAMPTZ NOT NULL
)`

// Sink writes adjustment batches into the inventory_adjustments table. The
// table is append-only and never read back by the core.
type Sink struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewSink(log *slog.Logger, pool *pgxpool.Pool) *Sink {
	return &Sink{log: log, pool: pool}
}

// EnsureSchema creates the journal table when it does not exist yet.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *Sink) Write(ctx context.Context, entries []domain.Adjustment) error {
	batch := &pgx.Batch{}
	for _, a := range entries {
		batch.Queue(`INSERT INTO inventory_adjustments
            (product_id, old_quantity, new_quantity, delta, reason, order_id, adjusted_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			a.ProductID, a.OldQuantity, a.NewQuantity, a.Delta, string(a.Reason), a.OrderID, a.At)
	}
	return s.pool.SendBatch(ctx, batch).Close()
}
