package domain

import (
	"errors"
	"fmt"
	"time"
)

// Reason classifies why a stock quantity changed. The set is fixed; direct
// inventory events carrying anything else are rejected before they reach the
// ledger.
type Reason string

const (
	ReasonRestock           Reason = "restock"
	ReasonSale              Reason = "sale"
	ReasonDamage            Reason = "damage"
	ReasonAdjustment        Reason = "adjustment"
	ReasonOrderCancellation Reason = "order_cancellation"
	ReasonReservation       Reason = "reservation"
)

func ParseReason(v string) (Reason, error) {
	switch Reason(v) {
	case ReasonRestock, ReasonSale, ReasonDamage, ReasonAdjustment,
		ReasonOrderCancellation, ReasonReservation:
		return Reason(v), nil
	default:
		return "", fmt.Errorf("invalid adjustment reason %q", v)
	}
}

// Adjustment is one append-only log entry recording a committed quantity
// change. OrderID is set when the change was made on behalf of an order
// (reservation or cancellation compensation).
type Adjustment struct {
	ProductID   string
	OldQuantity int
	NewQuantity int
	Delta       int
	Reason      Reason
	OrderID     string
	At          time.Time
}

var ErrNotFound = errors.New("product stock not found")

// InsufficientStockError reports an adjustment that would have driven a
// product's quantity below zero. It is a normal business outcome, not a
// fault; the quantity is left untouched.
type InsufficientStockError struct {
	ProductID string
	Current   int
	Delta     int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: current %d, change %d",
		e.ProductID, e.Current, e.Delta)
}
