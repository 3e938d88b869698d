package router

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	invdom "github.com/orderflow/fulfillment/internal/inventory/domain"
	orderdom "github.com/orderflow/fulfillment/internal/order/domain"
)

// ValidationError reports a malformed event payload. The message is not
// retried by this core; retry policy belongs to the broker.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid event: " + e.Reason
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// decode unmarshals a channel payload failing closed: unknown fields are a
// ValidationError, not something to trust at runtime.
func decode(payload []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}

type OrderItemPayload struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderEvent covers both order creation (no order_id) and order update
// (order_id present). Pointer fields distinguish absent from empty on the
// update path.
type OrderEvent struct {
	OrderID         string             `json:"order_id"`
	CustomerID      string             `json:"user_id"`
	Items           []OrderItemPayload `json:"items"`
	ShippingAddress string             `json:"shipping_address"`
	Status          *string            `json:"status"`
	TotalAmount     *decimal.Decimal   `json:"total_amount"`
	Notes           *string            `json:"notes"`
}

func (e *OrderEvent) Validate() error {
	if e.CustomerID == "" {
		return invalidf("user_id is required")
	}
	if len(e.Items) == 0 {
		return invalidf("items must not be empty")
	}
	for i, it := range e.Items {
		if it.ProductID == "" {
			return invalidf("items[%d].product_id is required", i)
		}
		if it.Quantity <= 0 {
			return invalidf("items[%d].quantity must be positive", i)
		}
		if it.Price.IsNegative() {
			return invalidf("items[%d].price must not be negative", i)
		}
	}
	if e.OrderID == "" && e.ShippingAddress == "" {
		return invalidf("shipping_address is required")
	}
	if e.Status != nil {
		if _, err := orderdom.ParseStatus(*e.Status); err != nil {
			return invalidf("%v", err)
		}
	}
	return nil
}

func (e *OrderEvent) items() []orderdom.Item {
	items := make([]orderdom.Item, 0, len(e.Items))
	for _, it := range e.Items {
		items = append(items, orderdom.Item{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	return items
}

// ProductEvent creates a catalog entry when product_id is absent and
// replaces one when it is present. is_available is accepted for wire
// compatibility but always derived from quantity server-side.
type ProductEvent struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category"`
	SKU         string          `json:"sku"`
	IsAvailable *bool           `json:"is_available"`
}

func (e *ProductEvent) Validate() error {
	if e.Name == "" {
		return invalidf("name is required")
	}
	if e.Description == "" {
		return invalidf("description is required")
	}
	if e.Price.IsNegative() {
		return invalidf("price must not be negative")
	}
	if e.Quantity < 0 {
		return invalidf("quantity must not be negative")
	}
	return nil
}

// InventoryEvent is a direct stock adjustment outside any order.
type InventoryEvent struct {
	ProductID      string `json:"product_id"`
	QuantityChange int    `json:"quantity_change"`
	Reason         string `json:"reason"`
}

func (e *InventoryEvent) Validate() (invdom.Reason, error) {
	if e.ProductID == "" {
		return "", invalidf("product_id is required")
	}
	reason, err := invdom.ParseReason(e.Reason)
	if err != nil {
		return "", invalidf("%v", err)
	}
	return reason, nil
}

// StatusEvent transitions an order's lifecycle status.
type StatusEvent struct {
	OrderID        string `json:"order_id"`
	NewStatus      string `json:"new_status"`
	TrackingNumber string `json:"tracking_number"`
	Notes          string `json:"notes"`
}

func (e *StatusEvent) Validate() (orderdom.Status, error) {
	if e.OrderID == "" {
		return "", invalidf("order_id is required")
	}
	status, err := orderdom.ParseStatus(e.NewStatus)
	if err != nil {
		return "", invalidf("%v", err)
	}
	return status, nil
}
