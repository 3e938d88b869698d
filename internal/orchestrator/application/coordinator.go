package application

import (
	"context"
	"log/slog"

	"github.com/orderflow/fulfillment/internal/orchestrator/domain"
	orderapp "github.com/orderflow/fulfillment/internal/order/application"
	orderdom "github.com/orderflow/fulfillment/internal/order/domain"

	invdom "github.com/orderflow/fulfillment/internal/inventory/domain"
	"github.com/orderflow/fulfillment/pkg/idempotency"
)

// Coordinator binds the order ledger and the stock ledger together: it
// decides order acceptance, reserves stock per line item and reverses those
// reservations when an order is cancelled.
type Coordinator struct {
	log     *slog.Logger
	orders  OrderLedger
	stock   StockLedger
	applied idempotency.Store
}

func NewCoordinator(log *slog.Logger, orders OrderLedger, stock StockLedger, applied idempotency.Store) *Coordinator {
	return &Coordinator{log: log, orders: orders, stock: stock, applied: applied}
}

// OrderRequest carries a decoded order event with no order id: a request to
// accept a new order.
type OrderRequest struct {
	CustomerID      string
	Items           []orderdom.Item
	ShippingAddress string
	Notes           string
}

// PlaceOrder runs the acceptance saga. Every line item is checked first; any
// failure rejects the whole order with StockUnavailableError before an order
// record exists. When all checks pass the order is created and each line is
// reserved atomically against its product. A reservation that still fails
// (stock drained concurrently since the check) releases the already-reserved
// siblings, cancels the order and reports PartialReservationError.
func (c *Coordinator) PlaceOrder(ctx context.Context, req OrderRequest) (orderdom.Order, error) {
	var unavailable []string
	for _, it := range req.Items {
		if !c.stock.CheckAvailability(it.ProductID, it.Quantity) {
			unavailable = append(unavailable, it.ProductID)
		}
	}
	if len(unavailable) > 0 {
		c.log.Info("order rejected", "unavailable_items", unavailable)
		return orderdom.Order{}, &domain.StockUnavailableError{ProductIDs: unavailable}
	}

	o := c.orders.Create(req.CustomerID, req.Items, req.ShippingAddress, req.Notes)

	var reserved []orderdom.Item
	var failures []domain.ItemFailure
	for _, it := range req.Items {
		if _, _, err := c.stock.Reserve(it.ProductID, it.Quantity, o.ID); err != nil {
			failures = append(failures, domain.ItemFailure{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Reason:    err.Error(),
			})
			continue
		}
		reserved = append(reserved, it)
	}
	if len(failures) == 0 {
		return o, nil
	}

	for _, it := range reserved {
		if _, _, err := c.stock.Release(it.ProductID, it.Quantity, o.ID); err != nil {
			c.log.Error("rollback release failed", "order_id", o.ID, "product_id", it.ProductID, "err", err)
		}
	}
	if _, err := c.orders.TransitionStatus(o.ID, orderdom.StatusCancelled, "", "cancelled: reservation failed"); err != nil {
		c.log.Error("rollback cancel failed", "order_id", o.ID, "err", err)
	}
	c.log.Warn("order rolled back after partial reservation", "order_id", o.ID, "failed_items", len(failures))
	return o, &domain.PartialReservationError{OrderID: o.ID, Failures: failures, RolledBack: true}
}

// UpdateOrder mutates the fields present in an order-update event. Inventory
// is never touched on this path; only the status channel compensates.
func (c *Coordinator) UpdateOrder(ctx context.Context, orderID string, u orderapp.Update) (orderdom.Order, error) {
	return c.orders.Update(orderID, u)
}

// ChangeStatus transitions an order and, on a transition to cancelled,
// restores the reserved stock of every line item exactly once. The applied
// marker keys on the order id, so a cancellation delivered twice compensates
// once; the second delivery still reports the (now terminal) order state.
func (c *Coordinator) ChangeStatus(ctx context.Context, orderID string, next orderdom.Status, trackingNumber, notes string) (orderdom.Order, bool, error) {
	o, err := c.orders.TransitionStatus(orderID, next, trackingNumber, notes)
	if err != nil {
		return orderdom.Order{}, false, err
	}
	if next != orderdom.StatusCancelled {
		return o, false, nil
	}

	first, err := c.applied.First(ctx, idempotency.OperationKey("compensation", orderID))
	if err != nil {
		// Marker store unreachable. Compensating twice inflates stock but
		// never compensating strands it; the adjustment log keeps the trail.
		c.log.Error("compensation marker check failed", "order_id", orderID, "err", err)
		first = true
	}
	if !first {
		c.log.Info("compensation already applied", "order_id", orderID)
		return o, false, nil
	}

	for _, it := range o.Items {
		if _, _, err := c.stock.Release(it.ProductID, it.Quantity, orderID); err != nil {
			c.log.Error("compensation release failed", "order_id", orderID, "product_id", it.ProductID, "err", err)
		}
	}
	c.log.Info("order cancellation compensated", "order_id", orderID, "items", len(o.Items))
	return o, true, nil
}

// AdjustStock applies a direct inventory event. The reason has already been
// validated against the enumeration by the router.
func (c *Coordinator) AdjustStock(ctx context.Context, productID string, delta int, reason invdom.Reason) (int, int, error) {
	return c.stock.Adjust(productID, delta, reason)
}
