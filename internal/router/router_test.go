package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	catalogapp "github.com/orderflow/fulfillment/internal/catalog/application"
	invapp "github.com/orderflow/fulfillment/internal/inventory/application"
	orchapp "github.com/orderflow/fulfillment/internal/orchestrator/application"
	orderapp "github.com/orderflow/fulfillment/internal/order/application"
	"github.com/orderflow/fulfillment/pkg/idempotency"
)

func newRouter() (*Router, *invapp.Ledger) {
	log := slog.New(slog.DiscardHandler)
	stock := invapp.NewLedger(log, nil)
	orders := orderapp.NewLedger(log)
	catalog := catalogapp.NewRegister(log, stock)
	coord := orchapp.NewCoordinator(log, orders, stock, idempotency.NewMemoryStore())
	return New(log, catalog, coord), stock
}

func createProduct(t *testing.T, r *Router, name string, price float64, qty int) string {
	t.Helper()
	payload := fmt.Sprintf(`{"name":%q,"description":"test product","price":%v,"quantity":%d,"category":"electronics","sku":"SKU-1"}`,
		name, price, qty)
	res := r.HandleProduct(context.Background(), []byte(payload))
	if !res.Success {
		t.Fatalf("product creation failed: %s", res.Error)
	}
	return res.ProductID
}

func TestHandleProductCreateAndUpdate(t *testing.T) {
	r, stock := newRouter()
	ctx := context.Background()

	id := createProduct(t, r, "laptop", 1299.99, 15)
	if id == "" {
		t.Fatal("expected generated product id")
	}

	update := fmt.Sprintf(`{"product_id":%q,"name":"laptop v2","description":"updated","price":1199.99,"quantity":0}`, id)
	res := r.HandleProduct(ctx, []byte(update))
	if !res.Success || res.Name != "laptop v2" {
		t.Fatalf("update failed: %+v", res)
	}
	if res.IsAvailable == nil || *res.IsAvailable {
		t.Errorf("zero quantity must flip availability")
	}
	if qty, _ := stock.Quantity(id); qty != 0 {
		t.Errorf("ledger quantity not replaced: %d", qty)
	}

	res = r.HandleProduct(ctx, []byte(`{"product_id":"missing","name":"x","description":"y","price":1,"quantity":1}`))
	if res.Success {
		t.Error("unknown product id must fail, not create")
	}
}

func TestDecodeFailsClosed(t *testing.T) {
	r, _ := newRouter()
	ctx := context.Background()

	cases := []struct {
		name    string
		handler func(context.Context, []byte) Result
		payload string
	}{
		{"malformed json", r.HandleProduct, `{"name":`},
		{"unknown field", r.HandleProduct, `{"name":"x","description":"y","price":1,"quantity":1,"surprise":true}`},
		{"missing name", r.HandleProduct, `{"description":"y","price":1,"quantity":1}`},
		{"negative price", r.HandleProduct, `{"name":"x","description":"y","price":-1,"quantity":1}`},
		{"missing user", r.HandleOrder, `{"items":[{"product_id":"p","quantity":1,"price":1}],"shipping_address":"a"}`},
		{"empty items", r.HandleOrder, `{"user_id":"u","items":[],"shipping_address":"a"}`},
		{"zero quantity item", r.HandleOrder, `{"user_id":"u","items":[{"product_id":"p","quantity":0,"price":1}],"shipping_address":"a"}`},
		{"bad reason", r.HandleInventory, `{"product_id":"p","quantity_change":1,"reason":"shrinkage"}`},
		{"bad status", r.HandleOrderStatus, `{"order_id":"o","new_status":"archived"}`},
	}
	for _, c := range cases {
		res := c.handler(ctx, []byte(c.payload))
		if res.Success {
			t.Errorf("%s: expected failure", c.name)
		}
		if res.Error == "" {
			t.Errorf("%s: expected error detail", c.name)
		}
	}
}

func TestRejectedEventKeepsCorrelationID(t *testing.T) {
	r, _ := newRouter()
	res := r.HandleOrderStatus(context.Background(), []byte(`{"order_id":"order-7","new_status":"archived"}`))
	if res.Success || res.OrderID != "order-7" {
		t.Errorf("expected correlating id on rejection, got %+v", res)
	}
}

func TestOrderLifecycleThroughChannels(t *testing.T) {
	r, stock := newRouter()
	ctx := context.Background()

	p1 := createProduct(t, r, "laptop", 1299.99, 35)
	p2 := createProduct(t, r, "phone", 999.99, 40)

	// Over-ask rejects without touching stock.
	over := fmt.Sprintf(`{"user_id":"u1","items":[{"product_id":%q,"quantity":40,"price":1299.99}],"shipping_address":"1 Main St"}`, p1)
	res := r.HandleOrder(ctx, []byte(over))
	if res.Success {
		t.Fatal("expected rejection")
	}
	if len(res.UnavailableItems) != 1 || res.UnavailableItems[0] != p1 {
		t.Errorf("expected unavailable [%s], got %v", p1, res.UnavailableItems)
	}
	if qty, _ := stock.Quantity(p1); qty != 35 {
		t.Errorf("p1 expected 35, got %d", qty)
	}

	// Acceptance reserves both lines.
	accept := fmt.Sprintf(`{"user_id":"u1","items":[{"product_id":%q,"quantity":5,"price":1299.99},{"product_id":%q,"quantity":2,"price":999.99}],"shipping_address":"1 Main St","notes":"ring bell"}`, p1, p2)
	res = r.HandleOrder(ctx, []byte(accept))
	if !res.Success {
		t.Fatalf("acceptance failed: %s", res.Error)
	}
	if res.Status != "pending" || res.OrderID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.TotalAmount == nil || res.TotalAmount.String() != "8499.93" {
		t.Errorf("unexpected total: %v", res.TotalAmount)
	}
	if qty, _ := stock.Quantity(p1); qty != 30 {
		t.Errorf("p1 expected 30, got %d", qty)
	}
	if qty, _ := stock.Quantity(p2); qty != 38 {
		t.Errorf("p2 expected 38, got %d", qty)
	}
	orderID := res.OrderID

	// Update path leaves inventory alone.
	update := fmt.Sprintf(`{"order_id":%q,"user_id":"u1","items":[{"product_id":%q,"quantity":5,"price":1299.99}],"shipping_address":"2 Elm St"}`, orderID, p1)
	res = r.HandleOrder(ctx, []byte(update))
	if !res.Success {
		t.Fatalf("update failed: %s", res.Error)
	}
	if qty, _ := stock.Quantity(p1); qty != 30 {
		t.Errorf("update touched inventory: %d", qty)
	}

	// Cancellation restores both lines.
	cancel := fmt.Sprintf(`{"order_id":%q,"new_status":"cancelled","notes":"customer request"}`, orderID)
	res = r.HandleOrderStatus(ctx, []byte(cancel))
	if !res.Success || res.Status != "cancelled" {
		t.Fatalf("cancellation failed: %+v", res)
	}
	if qty, _ := stock.Quantity(p1); qty != 35 {
		t.Errorf("p1 expected restored 35, got %d", qty)
	}
	if qty, _ := stock.Quantity(p2); qty != 40 {
		t.Errorf("p2 expected restored 40, got %d", qty)
	}

	// Redelivered cancellation is rejected at the terminal state and must
	// not restock twice.
	res = r.HandleOrderStatus(ctx, []byte(cancel))
	if res.Success {
		t.Fatal("expected terminal-state rejection")
	}
	if qty, _ := stock.Quantity(p1); qty != 35 {
		t.Errorf("double compensation: p1 is %d", qty)
	}
}

func TestHandleOrderUnknownOrder(t *testing.T) {
	r, _ := newRouter()
	payload := `{"order_id":"missing","user_id":"u1","items":[{"product_id":"p","quantity":1,"price":1}],"shipping_address":"a"}`
	res := r.HandleOrder(context.Background(), []byte(payload))
	if res.Success || res.OrderID != "missing" {
		t.Errorf("expected not-found failure keyed by order id, got %+v", res)
	}
}

func TestHandleInventoryAdjustment(t *testing.T) {
	r, stock := newRouter()
	ctx := context.Background()
	id := createProduct(t, r, "widget", 5, 10)

	res := r.HandleInventory(ctx, []byte(fmt.Sprintf(`{"product_id":%q,"quantity_change":-4,"reason":"damage"}`, id)))
	if !res.Success {
		t.Fatalf("adjustment failed: %s", res.Error)
	}
	if *res.OldQuantity != 10 || *res.NewQuantity != 6 || *res.Change != -4 {
		t.Errorf("unexpected quantities: %+v", res)
	}

	res = r.HandleInventory(ctx, []byte(fmt.Sprintf(`{"product_id":%q,"quantity_change":-100,"reason":"sale"}`, id)))
	if res.Success {
		t.Fatal("expected insufficient stock failure")
	}
	if res.ProductID != id {
		t.Errorf("failure must carry the product id")
	}
	if qty, _ := stock.Quantity(id); qty != 6 {
		t.Errorf("failed adjustment must not apply, got %d", qty)
	}
}

func TestResultWireShape(t *testing.T) {
	r, _ := newRouter()
	res := r.HandleProduct(context.Background(), []byte(`{"name":"x","description":"y","price":1.5,"quantity":3}`))

	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["success"] != true || m["product_id"] == "" {
		t.Errorf("unexpected wire form: %s", raw)
	}
	if _, ok := m["order_id"]; ok {
		t.Errorf("empty optional fields must be omitted: %s", raw)
	}
}
