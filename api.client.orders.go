package main

import (
	"context"
	"fmt"
	"net/http"
)

// ListOrders fetches the order history of the authenticated user.
func (api *APIClient) ListOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := api.do(ctx, http.MethodGet, "/orders/", nil, nil, &orders); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

// CreateOrder places an order from the current cart content.
func (api *APIClient) CreateOrder(ctx context.Context) (Order, error) {
	var order Order
	if err := api.do(ctx, http.MethodPost, "/orders/", nil, nil, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// CancelOrder requests the cancellation of an order and returns
// the server copy with its refreshed status.
func (api *APIClient) CancelOrder(ctx context.Context, id int64) (Order, error) {
	var order Order
	if err := api.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/cancel_order/", id), nil, nil, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}
