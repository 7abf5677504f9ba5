package main

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// CartProvider is the view of the catalog store the checkout flow
// needs: read the cached cart and clear it after a placed order.
type CartProvider interface {
	Cart() *Cart
	ClearCart(ctx context.Context) error
}

// OrdersStoreProvider defines the operations of the orders store.
type OrdersStoreProvider interface {
	Orders() []Order
	Load(ctx context.Context) error
	Checkout(ctx context.Context) (Order, error)
	Cancel(ctx context.Context, id int64) (Order, error)
}

var _ OrdersStoreProvider = (*OrdersStore)(nil)

// OrdersStore holds the order history and owns the checkout flow:
// it guards order creation behind a non-empty cart, clears the cart
// once the order is placed and leaves it untouched on failure so the
// user can retry.
type OrdersStore struct {
	logger *zap.Logger
	api    OrderAPIProvider
	cart   CartProvider

	mu     sync.Mutex
	orders []Order
}

// NewOrdersStore provides an orders store with an empty history.
func NewOrdersStore(logger *zap.Logger, api OrderAPIProvider, cart CartProvider) *OrdersStore {
	return &OrdersStore{
		logger: logger,
		api:    api,
		cart:   cart,
		orders: []Order{},
	}
}

// Orders provides a copy of the cached order history.
func (ors *OrdersStore) Orders() []Order {
	ors.mu.Lock()
	defer ors.mu.Unlock()
	orders := make([]Order, len(ors.orders))
	copy(orders, ors.orders)
	return orders
}

// Load fetches the order history of the authenticated user.
func (ors *OrdersStore) Load(ctx context.Context) error {
	orders, err := ors.api.ListOrders(ctx)
	if err != nil {
		return err
	}
	ors.mu.Lock()
	defer ors.mu.Unlock()
	ors.orders = orders
	return nil
}

// Checkout places an order from the current cart. An empty or absent
// cart is rejected locally without any network call. On failure the
// cart stays untouched. On success the cart is cleared and the new
// order lands on top of the local history.
func (ors *OrdersStore) Checkout(ctx context.Context) (Order, error) {
	if !ors.cart.Cart().HasItems() {
		return Order{}, NewFailure(FailureValidation, "your cart is empty", nil)
	}
	order, err := ors.api.CreateOrder(ctx)
	if err != nil {
		return Order{}, err
	}
	if err := ors.cart.ClearCart(ctx); err != nil {
		// The order exists either way, the stale cart only needs
		// another explicit clear from the user.
		ors.logger.Error("orders: failed to clear cart after checkout", zap.Int64("order.id", order.ID), zap.Error(err))
	}
	ors.mu.Lock()
	defer ors.mu.Unlock()
	ors.orders = append([]Order{order}, ors.orders...)
	return order, nil
}

// Cancel requests the cancellation of an order. An order already in a
// terminal state is rejected locally without any network call. On
// success the server copy replaces the cached one.
func (ors *OrdersStore) Cancel(ctx context.Context, id int64) (Order, error) {
	ors.mu.Lock()
	for i := range ors.orders {
		if ors.orders[i].ID == id && ors.orders[i].Status.Terminal() {
			status := ors.orders[i].Status
			ors.mu.Unlock()
			return Order{}, NewFailure(FailureValidation, "order is already "+string(status), nil)
		}
	}
	ors.mu.Unlock()

	order, err := ors.api.CancelOrder(ctx, id)
	if err != nil {
		return Order{}, err
	}
	ors.mu.Lock()
	defer ors.mu.Unlock()
	for i := range ors.orders {
		if ors.orders[i].ID == order.ID {
			ors.orders[i] = order
			break
		}
	}
	return order, nil
}
