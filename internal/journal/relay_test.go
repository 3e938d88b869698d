package journal

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/orderflow/fulfillment/internal/inventory/domain"
)

type memorySink struct {
	mu      sync.Mutex
	entries []domain.Adjustment
	fail    bool
}

func (s *memorySink) Write(_ context.Context, entries []domain.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return context.DeadlineExceeded
	}
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func TestRelayFlushesAppendedEntries(t *testing.T) {
	sink := &memorySink{}
	r := NewRelay(slog.New(slog.DiscardHandler), sink)
	r.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()

	for i := 0; i < 250; i++ {
		r.Append(domain.Adjustment{ProductID: "p1", Delta: 1, Reason: domain.ReasonRestock})
	}

	deadline := time.After(2 * time.Second)
	for sink.count() < 250 {
		select {
		case <-deadline:
			t.Fatalf("expected 250 entries, got %d", sink.count())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestRelayFlushesRemainderOnShutdown(t *testing.T) {
	sink := &memorySink{}
	r := NewRelay(slog.New(slog.DiscardHandler), sink)
	r.interval = time.Hour // never ticks; only the shutdown flush runs

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()

	r.Append(domain.Adjustment{ProductID: "p1", Delta: 1, Reason: domain.ReasonRestock})
	r.Append(domain.Adjustment{ProductID: "p2", Delta: -1, Reason: domain.ReasonSale})
	cancel()
	<-done

	if sink.count() != 2 {
		t.Errorf("expected 2 entries flushed on shutdown, got %d", sink.count())
	}
}

func TestAppendNeverBlocksWhenFull(t *testing.T) {
	sink := &memorySink{fail: true}
	r := NewRelay(slog.New(slog.DiscardHandler), sink)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5000; i++ {
			r.Append(domain.Adjustment{ProductID: "p1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Append must not block when the buffer is full")
	}
}
