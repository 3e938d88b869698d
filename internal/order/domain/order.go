package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

func ParseStatus(v string) (Status, error) {
	switch Status(v) {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return Status(v), nil
	default:
		return "", fmt.Errorf("invalid order status %q", v)
	}
}

// Terminal reports whether no further transition is permitted out of s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Item is one order line with the unit price snapshotted at order time.
// Later catalog price changes never touch it.
type Item struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

type Order struct {
	ID              string
	CustomerID      string
	Items           []Item
	ShippingAddress string
	Notes           string
	TotalAmount     decimal.Decimal
	Status          Status
	TrackingNumber  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Total sums price times quantity across the line-item snapshots.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

var ErrNotFound = errors.New("order not found")

// InvalidTransitionError reports a status change attempted out of a terminal
// state. The order is left unchanged.
type InvalidTransitionError struct {
	OrderID string
	From    Status
	To      Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: invalid transition %s -> %s", e.OrderID, e.From, e.To)
}
