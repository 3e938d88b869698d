package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	catalogapp "github.com/orderflow/fulfillment/internal/catalog/application"
	catdom "github.com/orderflow/fulfillment/internal/catalog/domain"
	orchapp "github.com/orderflow/fulfillment/internal/orchestrator/application"
	orchdom "github.com/orderflow/fulfillment/internal/orchestrator/domain"
	orderapp "github.com/orderflow/fulfillment/internal/order/application"
	orderdom "github.com/orderflow/fulfillment/internal/order/domain"
)

// Router decodes each channel's payload into its typed event and dispatches
// to the matching handler. Handlers never panic across the channel boundary;
// every outcome, including malformed payloads, comes back as a Result.
type Router struct {
	log     *slog.Logger
	catalog *catalogapp.Register
	coord   *orchapp.Coordinator
}

func New(log *slog.Logger, catalog *catalogapp.Register, coord *orchapp.Coordinator) *Router {
	return &Router{log: log, catalog: catalog, coord: coord}
}

// HandleOrder serves the order channel: creation when no order id is
// present, partial update when one is.
func (r *Router) HandleOrder(ctx context.Context, payload []byte) Result {
	var ev OrderEvent
	if err := decode(payload, &ev); err != nil {
		return r.rejected("order", payload, err)
	}
	if err := ev.Validate(); err != nil {
		return r.rejected("order", payload, err)
	}

	if ev.OrderID != "" {
		return r.updateOrder(ctx, &ev)
	}
	return r.placeOrder(ctx, &ev)
}

func (r *Router) placeOrder(ctx context.Context, ev *OrderEvent) Result {
	req := orchapp.OrderRequest{
		CustomerID:      ev.CustomerID,
		Items:           ev.items(),
		ShippingAddress: ev.ShippingAddress,
	}
	if ev.Notes != nil {
		req.Notes = *ev.Notes
	}

	o, err := r.coord.PlaceOrder(ctx, req)
	if err != nil {
		var unavailable *orchdom.StockUnavailableError
		if errors.As(err, &unavailable) {
			res := failure(err)
			res.UnavailableItems = unavailable.ProductIDs
			return res
		}
		var partial *orchdom.PartialReservationError
		if errors.As(err, &partial) {
			res := failure(err)
			res.OrderID = partial.OrderID
			return res
		}
		res := failure(err)
		res.OrderID = o.ID
		return res
	}

	total := o.TotalAmount
	return Result{
		Success:     true,
		Message:     "Order created successfully",
		OrderID:     o.ID,
		Status:      string(o.Status),
		TotalAmount: &total,
	}
}

func (r *Router) updateOrder(ctx context.Context, ev *OrderEvent) Result {
	var u orderapp.Update
	if ev.ShippingAddress != "" {
		u.ShippingAddress = &ev.ShippingAddress
	}
	if ev.Notes != nil {
		u.Notes = ev.Notes
	}
	if ev.Status != nil {
		status, _ := orderdom.ParseStatus(*ev.Status)
		u.Status = &status
	}

	o, err := r.coord.UpdateOrder(ctx, ev.OrderID, u)
	if err != nil {
		res := failure(err)
		res.OrderID = ev.OrderID
		return res
	}
	return Result{
		Success: true,
		Message: "Order updated successfully",
		OrderID: o.ID,
		Status:  string(o.Status),
	}
}

// HandleProduct serves the product channel: catalog creation when no
// product id is present, full replace when one is.
func (r *Router) HandleProduct(ctx context.Context, payload []byte) Result {
	var ev ProductEvent
	if err := decode(payload, &ev); err != nil {
		return r.rejected("product", payload, err)
	}
	if err := ev.Validate(); err != nil {
		return r.rejected("product", payload, err)
	}

	spec := catdom.Spec{
		Name:        ev.Name,
		Description: ev.Description,
		Price:       ev.Price,
		Quantity:    ev.Quantity,
		Category:    ev.Category,
		SKU:         ev.SKU,
	}

	var p catdom.Product
	var err error
	var message string
	if ev.ProductID != "" {
		p, err = r.catalog.Upsert(ev.ProductID, spec)
		message = "Product updated successfully"
	} else {
		p, err = r.catalog.Create(spec)
		message = "Product created successfully"
	}
	if err != nil {
		res := failure(err)
		res.ProductID = ev.ProductID
		return res
	}

	return Result{
		Success:     true,
		Message:     message,
		ProductID:   p.ID,
		Name:        p.Name,
		Quantity:    intp(p.Quantity),
		IsAvailable: boolp(p.Available),
	}
}

// HandleInventory serves the inventory channel: a direct signed stock
// adjustment with a validated reason.
func (r *Router) HandleInventory(ctx context.Context, payload []byte) Result {
	var ev InventoryEvent
	if err := decode(payload, &ev); err != nil {
		return r.rejected("inventory", payload, err)
	}
	reason, err := ev.Validate()
	if err != nil {
		return r.rejected("inventory", payload, err)
	}

	old, now, err := r.coord.AdjustStock(ctx, ev.ProductID, ev.QuantityChange, reason)
	if err != nil {
		res := failure(err)
		res.ProductID = ev.ProductID
		return res
	}

	return Result{
		Success:     true,
		Message:     "Inventory updated",
		ProductID:   ev.ProductID,
		OldQuantity: intp(old),
		NewQuantity: intp(now),
		Change:      intp(ev.QuantityChange),
		Reason:      string(reason),
	}
}

// HandleOrderStatus serves the order-status channel, including the
// cancellation compensation path.
func (r *Router) HandleOrderStatus(ctx context.Context, payload []byte) Result {
	var ev StatusEvent
	if err := decode(payload, &ev); err != nil {
		return r.rejected("order-status", payload, err)
	}
	status, err := ev.Validate()
	if err != nil {
		return r.rejected("order-status", payload, err)
	}

	o, compensated, err := r.coord.ChangeStatus(ctx, ev.OrderID, status, ev.TrackingNumber, ev.Notes)
	if err != nil {
		res := failure(err)
		res.OrderID = ev.OrderID
		return res
	}

	message := "Order status updated successfully"
	if compensated {
		message = "Order status updated successfully, inventory restored"
	}
	return Result{
		Success: true,
		Message: message,
		OrderID: o.ID,
		Status:  string(o.Status),
	}
}

// rejected folds a validation failure into a Result, recovering whatever
// correlating identifier the raw payload happens to carry.
func (r *Router) rejected(channel string, payload []byte, err error) Result {
	res := failure(err)
	var ids struct {
		OrderID   string `json:"order_id"`
		ProductID string `json:"product_id"`
	}
	_ = json.Unmarshal(payload, &ids)
	res.OrderID = ids.OrderID
	res.ProductID = ids.ProductID
	r.log.Warn("event rejected", "channel", channel, "err", err)
	return res
}
