package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog view of one sellable item. Quantity and Available
// are owned by the inventory ledger and composed in on read; everything else
// is catalog metadata.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	Available   bool
	Category    string
	SKU         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Spec carries the mutable fields of a product for create and upsert.
type Spec struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	Category    string
	SKU         string
}

var (
	ErrNotFound      = errors.New("product not found")
	ErrNegativePrice = errors.New("product price must not be negative")
	ErrNegativeStock = errors.New("product quantity must not be negative")
)

func (s Spec) Validate() error {
	if s.Price.IsNegative() {
		return ErrNegativePrice
	}
	if s.Quantity < 0 {
		return ErrNegativeStock
	}
	return nil
}
