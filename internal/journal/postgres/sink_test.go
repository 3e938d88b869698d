package postgres

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/orderflow/fulfillment/internal/inventory/domain"
)

// Spins up a throwaway postgres via testcontainers. Set JOURNAL_IT=1 to run;
// the test is skipped where Docker is unavailable.
func TestSinkWritesAdjustments(t *testing.T) {
	if os.Getenv("JOURNAL_IT") == "" {
		t.Skip("set JOURNAL_IT=1 to run the journal integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("fulfillment"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	defer func() { _ = pgC.Terminate(context.Background()) }()

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	pool, err := pgxpool.New(ctx, pgURL)
	if err != nil {
		t.Fatalf("pg connect: %v", err)
	}
	defer pool.Close()

	sink := NewSink(slog.New(slog.DiscardHandler), pool)
	if err := sink.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}

	now := time.Now().UTC()
	entries := []domain.Adjustment{
		{ProductID: "p1", OldQuantity: 10, NewQuantity: 7, Delta: -3, Reason: domain.ReasonReservation, OrderID: "o1", At: now},
		{ProductID: "p1", OldQuantity: 7, NewQuantity: 10, Delta: 3, Reason: domain.ReasonOrderCancellation, OrderID: "o1", At: now},
		{ProductID: "p2", OldQuantity: 0, NewQuantity: 5, Delta: 5, Reason: domain.ReasonRestock, At: now},
	}
	if err := sink.Write(ctx, entries); err != nil {
		t.Fatalf("write: %v", err)
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM inventory_adjustments`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != len(entries) {
		t.Errorf("expected %d rows, got %d", len(entries), count)
	}

	var delta int
	var reason, orderID string
	err = pool.QueryRow(ctx,
		`SELECT delta, reason, order_id FROM inventory_adjustments WHERE product_id='p1' ORDER BY id LIMIT 1`,
	).Scan(&delta, &reason, &orderID)
	if err != nil {
		t.Fatalf("row: %v", err)
	}
	if delta != -3 || reason != string(domain.ReasonReservation) || orderID != "o1" {
		t.Errorf("unexpected row: delta=%d reason=%s order=%s", delta, reason, orderID)
	}
}
