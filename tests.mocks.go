package main

import (
	"context"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

// MockAuthAPI mocks the behavior of the auth endpoints group.
type MockAuthAPI struct {
	RegisterFunc    func(ctx context.Context, req RegisterRequest) (User, error)
	LoginFunc       func(ctx context.Context, req LoginRequest) (User, error)
	LogoutFunc      func(ctx context.Context) error
	CurrentUserFunc func(ctx context.Context) (User, error)
}

func (m *MockAuthAPI) Register(ctx context.Context, req RegisterRequest) (User, error) {
	return m.RegisterFunc(ctx, req)
}

func (m *MockAuthAPI) Login(ctx context.Context, req LoginRequest) (User, error) {
	return m.LoginFunc(ctx, req)
}

func (m *MockAuthAPI) Logout(ctx context.Context) error {
	return m.LogoutFunc(ctx)
}

func (m *MockAuthAPI) CurrentUser(ctx context.Context) (User, error) {
	return m.CurrentUserFunc(ctx)
}

// MockCatalogAPI mocks the behavior of the books and cart endpoints group.
type MockCatalogAPI struct {
	ListBooksFunc      func(ctx context.Context, query BookQuery) ([]Book, error)
	GetBookFunc        func(ctx context.Context, id int64) (Book, error)
	GetCartFunc        func(ctx context.Context) (*Cart, error)
	AddCartItemFunc    func(ctx context.Context, bookID int64, quantity int) (CartItem, error)
	UpdateCartItemFunc func(ctx context.Context, itemID int64, quantity int) (CartItem, error)
	RemoveCartItemFunc func(ctx context.Context, itemID int64) error
	ClearCartFunc      func(ctx context.Context) error
}

func (m *MockCatalogAPI) ListBooks(ctx context.Context, query BookQuery) ([]Book, error) {
	return m.ListBooksFunc(ctx, query)
}

func (m *MockCatalogAPI) GetBook(ctx context.Context, id int64) (Book, error) {
	return m.GetBookFunc(ctx, id)
}

func (m *MockCatalogAPI) GetCart(ctx context.Context) (*Cart, error) {
	return m.GetCartFunc(ctx)
}

func (m *MockCatalogAPI) AddCartItem(ctx context.Context, bookID int64, quantity int) (CartItem, error) {
	return m.AddCartItemFunc(ctx, bookID, quantity)
}

func (m *MockCatalogAPI) UpdateCartItem(ctx context.Context, itemID int64, quantity int) (CartItem, error) {
	return m.UpdateCartItemFunc(ctx, itemID, quantity)
}

func (m *MockCatalogAPI) RemoveCartItem(ctx context.Context, itemID int64) error {
	return m.RemoveCartItemFunc(ctx, itemID)
}

func (m *MockCatalogAPI) ClearCart(ctx context.Context) error {
	return m.ClearCartFunc(ctx)
}

// MockOrderAPI mocks the behavior of the orders endpoints group.
type MockOrderAPI struct {
	ListOrdersFunc  func(ctx context.Context) ([]Order, error)
	CreateOrderFunc func(ctx context.Context) (Order, error)
	CancelOrderFunc func(ctx context.Context, id int64) (Order, error)
}

func (m *MockOrderAPI) ListOrders(ctx context.Context) ([]Order, error) {
	return m.ListOrdersFunc(ctx)
}

func (m *MockOrderAPI) CreateOrder(ctx context.Context) (Order, error) {
	return m.CreateOrderFunc(ctx)
}

func (m *MockOrderAPI) CancelOrder(ctx context.Context, id int64) (Order, error) {
	return m.CancelOrderFunc(ctx, id)
}

// MockSessionInformer reports a fixed session status to the catalog store.
type MockSessionInformer struct {
	MockStatus SessionStatus
}

func (m *MockSessionInformer) Status() SessionStatus {
	return m.MockStatus
}

// MockCartProvider mocks the catalog view used by the checkout flow.
type MockCartProvider struct {
	CartFunc      func() *Cart
	ClearCartFunc func(ctx context.Context) error
}

func (m *MockCartProvider) Cart() *Cart {
	return m.CartFunc()
}

func (m *MockCartProvider) ClearCart(ctx context.Context) error {
	return m.ClearCartFunc(ctx)
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// newTestConfig provides a config suitable for stores unit tests,
// with a short debounce interval to keep tests fast.
func newTestConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8000/api",
			RequestTimeout: 5 * time.Second,
			CSRFCookieName: "csrftoken",
			CSRFHeaderName: "X-CSRFToken",
		},
		Search: SearchConfig{DebounceInterval: 30 * time.Millisecond},
		BoltDB: BoltDBConfig{Timeout: time.Second, BucketName: "cookies"},
	}
}
