package application

import (
	"log/slog"
	"sync"
	"time"

	"github.com/orderflow/fulfillment/internal/inventory/domain"
)

// Appender receives committed adjustments for asynchronous persistence. It
// must not block: it is called after the quantity change is committed but
// while the product's lock is still held.
type Appender interface {
	Append(domain.Adjustment)
}

// Ledger holds the authoritative stock quantity per product. Adjustments to
// one product serialize on that product's lock; distinct products proceed
// independently.
type Ledger struct {
	log     *slog.Logger
	journal Appender

	mu    sync.RWMutex
	stock map[string]*stockEntry
}

type stockEntry struct {
	mu          sync.Mutex
	quantity    int
	available   bool
	adjustments []domain.Adjustment
}

// NewLedger builds an empty ledger. journal may be nil when no durable
// adjustment journal is attached.
func NewLedger(log *slog.Logger, journal Appender) *Ledger {
	return &Ledger{
		log:     log,
		journal: journal,
		stock:   make(map[string]*stockEntry),
	}
}

func (l *Ledger) lookup(productID string) (*stockEntry, bool) {
	l.mu.RLock()
	e, ok := l.stock[productID]
	l.mu.RUnlock()
	return e, ok
}

// entry returns the stock record for productID, materializing a zero-quantity
// record when none exists.
func (l *Ledger) entry(productID string) *stockEntry {
	if e, ok := l.lookup(productID); ok {
		return e
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.stock[productID]; ok {
		return e
	}
	e := &stockEntry{}
	l.stock[productID] = e
	return e
}

// CheckAvailability reports whether productID is known, available and holds
// at least requested units. Unknown products fail closed.
func (l *Ledger) CheckAvailability(productID string, requested int) bool {
	e, ok := l.lookup(productID)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available && e.quantity >= requested
}

// Adjust applies a signed quantity change and appends a log entry. A change
// that would drive the quantity below zero is rejected whole with
// InsufficientStockError. An unknown product is materialized as a
// zero-quantity record first; a direct inventory event may legitimately
// arrive before the catalog event for the same product.
func (l *Ledger) Adjust(productID string, delta int, reason domain.Reason) (int, int, error) {
	return l.adjustFor(productID, delta, reason, "")
}

// Reserve decrements stock for one order line. It is Adjust with a negative
// delta and the reservation reason, tagged with the order for traceability.
// The availability check and the decrement happen under one lock, so a
// successful reservation can never oversell.
func (l *Ledger) Reserve(productID string, qty int, orderID string) (int, int, error) {
	return l.adjustFor(productID, -qty, domain.ReasonReservation, orderID)
}

// Release returns previously reserved stock when an order is cancelled.
func (l *Ledger) Release(productID string, qty int, orderID string) (int, int, error) {
	return l.adjustFor(productID, qty, domain.ReasonOrderCancellation, orderID)
}

func (l *Ledger) adjustFor(productID string, delta int, reason domain.Reason, orderID string) (int, int, error) {
	e := l.entry(productID)
	e.mu.Lock()
	defer e.mu.Unlock()

	old := e.quantity
	next := old + delta
	if next < 0 {
		return old, old, &domain.InsufficientStockError{ProductID: productID, Current: old, Delta: delta}
	}

	e.quantity = next
	e.available = next > 0

	adj := domain.Adjustment{
		ProductID:   productID,
		OldQuantity: old,
		NewQuantity: next,
		Delta:       delta,
		Reason:      reason,
		OrderID:     orderID,
		At:          time.Now().UTC(),
	}
	e.adjustments = append(e.adjustments, adj)
	if l.journal != nil {
		l.journal.Append(adj)
	}

	l.log.Debug("stock adjusted",
		"product_id", productID, "old", old, "new", next, "reason", string(reason))
	return old, next, nil
}

// SetQuantity replaces a product's on-hand quantity. Creating the stock
// record establishes its initial quantity without a log entry; replacing an
// existing record logs the difference as a plain adjustment so the delta sum
// stays consistent with the running quantity.
func (l *Ledger) SetQuantity(productID string, qty int) (int, int) {
	if _, ok := l.lookup(productID); !ok {
		l.mu.Lock()
		if _, ok := l.stock[productID]; !ok {
			l.stock[productID] = &stockEntry{quantity: qty, available: qty > 0}
			l.mu.Unlock()
			return 0, qty
		}
		l.mu.Unlock()
	}

	e := l.entry(productID)
	e.mu.Lock()
	defer e.mu.Unlock()

	old := e.quantity
	if old != qty {
		adj := domain.Adjustment{
			ProductID:   productID,
			OldQuantity: old,
			NewQuantity: qty,
			Delta:       qty - old,
			Reason:      domain.ReasonAdjustment,
			At:          time.Now().UTC(),
		}
		e.adjustments = append(e.adjustments, adj)
		if l.journal != nil {
			l.journal.Append(adj)
		}
	}
	e.quantity = qty
	e.available = qty > 0
	return old, qty
}

// Quantity returns the current on-hand quantity, failing with ErrNotFound for
// an unknown product rather than reporting a zero record.
func (l *Ledger) Quantity(productID string) (int, error) {
	e, ok := l.lookup(productID)
	if !ok {
		return 0, domain.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quantity, nil
}

// Log returns a copy of the adjustment history for one product, oldest first.
func (l *Ledger) Log(productID string) []domain.Adjustment {
	e, ok := l.lookup(productID)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Adjustment, len(e.adjustments))
	copy(out, e.adjustments)
	return out
}
