package main

import (
	"context"
	"fmt"
	"net/http"
)

// cartItemPayload is the body of cart item creation and update calls.
type cartItemPayload struct {
	BookID   int64 `json:"book_id,omitempty"`
	Quantity int   `json:"quantity"`
}

// GetCart fetches the cart of the authenticated user. A NotFound
// failure means the backend did not create the cart yet, callers
// treat it as a valid empty state.
func (api *APIClient) GetCart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := api.do(ctx, http.MethodGet, "/carts/", nil, nil, &cart); err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []CartItem{}
	}
	return &cart, nil
}

// AddCartItem inserts a book into the cart with the given quantity.
func (api *APIClient) AddCartItem(ctx context.Context, bookID int64, quantity int) (CartItem, error) {
	var item CartItem
	payload := cartItemPayload{BookID: bookID, Quantity: quantity}
	if err := api.do(ctx, http.MethodPost, "/cart-items/", nil, payload, &item); err != nil {
		return CartItem{}, err
	}
	return item, nil
}

// UpdateCartItem changes the quantity of a cart item and returns
// the server copy of the updated item.
func (api *APIClient) UpdateCartItem(ctx context.Context, itemID int64, quantity int) (CartItem, error) {
	var item CartItem
	payload := cartItemPayload{Quantity: quantity}
	if err := api.do(ctx, http.MethodPatch, fmt.Sprintf("/cart-items/%d/", itemID), nil, payload, &item); err != nil {
		return CartItem{}, err
	}
	return item, nil
}

// RemoveCartItem deletes a cart item.
func (api *APIClient) RemoveCartItem(ctx context.Context, itemID int64) error {
	return api.do(ctx, http.MethodDelete, fmt.Sprintf("/cart-items/%d/", itemID), nil, nil, nil)
}

// ClearCart removes every item of the cart, the cart itself survives.
func (api *APIClient) ClearCart(ctx context.Context) error {
	return api.do(ctx, http.MethodPost, "/cart-items/clear_cart/", nil, nil, nil)
}
