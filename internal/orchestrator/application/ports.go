package application

import (
	invdom "github.com/orderflow/fulfillment/internal/inventory/domain"
	orderapp "github.com/orderflow/fulfillment/internal/order/application"
	orderdom "github.com/orderflow/fulfillment/internal/order/domain"
)

type OrderLedger interface {
	Create(customerID string, items []orderdom.Item, shippingAddress, notes string) orderdom.Order
	Update(orderID string, u orderapp.Update) (orderdom.Order, error)
	TransitionStatus(orderID string, next orderdom.Status, trackingNumber, notes string) (orderdom.Order, error)
	Get(orderID string) (orderdom.Order, error)
}

type StockLedger interface {
	CheckAvailability(productID string, requested int) bool
	Reserve(productID string, qty int, orderID string) (int, int, error)
	Release(productID string, qty int, orderID string) (int, int, error)
	Adjust(productID string, delta int, reason invdom.Reason) (int, int, error)
}
