package main

import (
	"fmt"
	"net/url"
	"strconv"
)

// User represents the authenticated account owning the session.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Book represents a book entity as served by the storefront api.
// Books are read-only from the client perspective, only the remote
// backend mutates their stock.
type Book struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Description   string `json:"description"`
	Price         string `json:"price"`
	Stock         int    `json:"stock"`
	ISBN          string `json:"isbn,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
}

// CartItem represents one book line inside the cart. The total price
// is computed by the backend, the client only falls back to a local
// computation when the value is missing.
type CartItem struct {
	ID         int64  `json:"id"`
	Book       Book   `json:"book"`
	Quantity   int    `json:"quantity"`
	TotalPrice string `json:"total_price"`
}

// Cart represents the server-tracked cart of the authenticated user.
// The ID stays null until the backend creates the cart on first insertion.
type Cart struct {
	ID         *int64     `json:"id"`
	Items      []CartItem `json:"items"`
	TotalPrice string     `json:"total_price"`
	TotalItems int        `json:"total_items"`
}

// NewEmptyCart provides the local cart shell which models the valid
// `no cart yet` state of a freshly authenticated user.
func NewEmptyCart() *Cart {
	return &Cart{
		ID:         nil,
		Items:      []CartItem{},
		TotalPrice: "0.00",
		TotalItems: 0,
	}
}

// HasItems tells if the cart holds at least one item.
func (c *Cart) HasItems() bool {
	return c != nil && len(c.Items) > 0
}

// RecomputeTotals refreshes the cart totals from its items. The backend
// values stay authoritative, this is only used after a local items splice
// when no full cart was re-fetched.
func (c *Cart) RecomputeTotals() {
	var total float64
	items := 0
	for i := range c.Items {
		items += c.Items[i].Quantity
		total += c.Items[i].totalPrice()
	}
	c.TotalItems = items
	c.TotalPrice = fmt.Sprintf("%.2f", total)
}

// totalPrice provides the item total, recomputed from the unit
// price when the backend-provided value is absent or malformed.
func (ci *CartItem) totalPrice() float64 {
	if v, err := strconv.ParseFloat(ci.TotalPrice, 64); err == nil {
		return v
	}
	unit, err := strconv.ParseFloat(ci.Book.Price, 64)
	if err != nil {
		return 0
	}
	return unit * float64(ci.Quantity)
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Terminal tells if the order reached a final state.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// OrderItem represents one book line of a placed order with
// the unit price captured at ordering time.
type OrderItem struct {
	Book     Book   `json:"book"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// Order represents a placed order as served by the storefront api.
type Order struct {
	ID         int64       `json:"id"`
	Status     OrderStatus `json:"status"`
	Items      []OrderItem `json:"items"`
	TotalPrice string      `json:"total_price"`
	CreatedAt  string      `json:"created_at"`
}

// RegisterRequest is the payload to create a new account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the payload to open a session.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SortKey represents a supported books ordering value.
type SortKey string

const (
	SortByTitle     SortKey = "title"
	SortByPriceAsc  SortKey = "price"
	SortByPriceDesc SortKey = "-price"
	SortByNewest    SortKey = "-created_at"
)

// IsValid tells if the sort key is one of the supported orderings.
func (s SortKey) IsValid() bool {
	switch s {
	case SortByTitle, SortByPriceAsc, SortByPriceDesc, SortByNewest:
		return true
	}
	return false
}

// BookQuery holds the full books listing query state: free-text search,
// filters and ordering. The zero value means an unfiltered listing.
type BookQuery struct {
	Search      string
	Author      string
	InStockOnly bool
	Ordering    SortKey
}

// Values encodes the query state as the api listing parameters.
// Empty slices of the query are not sent at all.
func (q BookQuery) Values() url.Values {
	values := url.Values{}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.Author != "" {
		values.Set("author", q.Author)
	}
	if q.InStockOnly {
		values.Set("inStockOnly", "true")
	}
	if q.Ordering != "" {
		values.Set("ordering", string(q.Ordering))
	}
	return values
}

// FilterOverrides carries a partial filters update. Nil fields
// leave the matching slice of the query state untouched.
type FilterOverrides struct {
	Author      *string
	InStockOnly *bool
}
