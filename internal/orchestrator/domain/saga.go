package domain

import (
	"fmt"
	"strings"
)

// StockUnavailableError rejects an order whole: at least one line item
// failed the availability check, so no order was created and nothing was
// reserved.
type StockUnavailableError struct {
	ProductIDs []string
}

func (e *StockUnavailableError) Error() string {
	return fmt.Sprintf("products out of stock: %s", strings.Join(e.ProductIDs, ", "))
}

// ItemFailure describes one line item whose reservation failed.
type ItemFailure struct {
	ProductID string
	Quantity  int
	Reason    string
}

// PartialReservationError reports that some but not all line items were
// reserved after order creation. RolledBack is set when the already-reserved
// siblings were released again and the order cancelled.
type PartialReservationError struct {
	OrderID    string
	Failures   []ItemFailure
	RolledBack bool
}

func (e *PartialReservationError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.ProductID)
	}
	return fmt.Sprintf("order %s: reservation failed for %s", e.OrderID, strings.Join(ids, ", "))
}
