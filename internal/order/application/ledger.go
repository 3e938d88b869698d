package application

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/fulfillment/internal/order/domain"
)

// Ledger stores order records keyed by order id. Mutations to one order
// serialize on that order's lock.
type Ledger struct {
	log *slog.Logger

	mu     sync.RWMutex
	orders map[string]*orderEntry
}

type orderEntry struct {
	mu sync.Mutex
	o  domain.Order
}

func NewLedger(log *slog.Logger) *Ledger {
	return &Ledger{
		log:    log,
		orders: make(map[string]*orderEntry),
	}
}

// Create records a new pending order under a fresh identifier. The total is
// computed from the line-item price snapshots supplied by the caller.
func (l *Ledger) Create(customerID string, items []domain.Item, shippingAddress, notes string) domain.Order {
	now := time.Now().UTC()
	o := domain.Order{
		ID:              uuid.NewString(),
		CustomerID:      customerID,
		Items:           append([]domain.Item(nil), items...),
		ShippingAddress: shippingAddress,
		Notes:           notes,
		TotalAmount:     domain.Total(items),
		Status:          domain.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	l.mu.Lock()
	l.orders[o.ID] = &orderEntry{o: o}
	l.mu.Unlock()

	l.log.Info("order created", "order_id", o.ID, "customer_id", customerID,
		"total_amount", o.TotalAmount.String())
	return o
}

// Update carries the fields an order-update may change. Nil pointers mean
// the field was absent from the request and stays untouched.
type Update struct {
	ShippingAddress *string
	Notes           *string
	Status          *domain.Status
}

// Update applies the present fields to an existing order. A status change
// through this path obeys the same terminal-state rule as TransitionStatus.
func (l *Ledger) Update(orderID string, u Update) (domain.Order, error) {
	e, err := l.lookup(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if u.Status != nil && e.o.Status.Terminal() {
		return domain.Order{}, &domain.InvalidTransitionError{OrderID: orderID, From: e.o.Status, To: *u.Status}
	}
	if u.ShippingAddress != nil {
		e.o.ShippingAddress = *u.ShippingAddress
	}
	if u.Notes != nil {
		e.o.Notes = *u.Notes
	}
	if u.Status != nil {
		e.o.Status = *u.Status
	}
	e.o.UpdatedAt = time.Now().UTC()

	l.log.Info("order updated", "order_id", orderID)
	return e.o, nil
}

// TransitionStatus moves an order to a new lifecycle status, rejecting any
// transition out of a terminal state.
func (l *Ledger) TransitionStatus(orderID string, next domain.Status, trackingNumber, notes string) (domain.Order, error) {
	e, err := l.lookup(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.o.Status.Terminal() {
		return domain.Order{}, &domain.InvalidTransitionError{OrderID: orderID, From: e.o.Status, To: next}
	}

	e.o.Status = next
	if trackingNumber != "" {
		e.o.TrackingNumber = trackingNumber
	}
	if notes != "" {
		e.o.Notes = notes
	}
	e.o.UpdatedAt = time.Now().UTC()

	l.log.Info("order status changed", "order_id", orderID, "status", string(next))
	return e.o, nil
}

func (l *Ledger) Get(orderID string) (domain.Order, error) {
	e, err := l.lookup(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	o := e.o
	o.Items = append([]domain.Item(nil), e.o.Items...)
	return o, nil
}

func (l *Ledger) lookup(orderID string) (*orderEntry, error) {
	l.mu.RLock()
	e, ok := l.orders[orderID]
	l.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}
