package main

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// SessionInformer is the view of the session store the catalog needs:
// cart operations only care about the current machine state.
type SessionInformer interface {
	Status() SessionStatus
}

// CatalogStoreProvider defines the operations of the catalog/cart store.
type CatalogStoreProvider interface {
	Books() []Book
	Cart() *Cart
	Loading() bool
	Query() BookQuery
	LoadBooks(ctx context.Context) error
	GetBook(ctx context.Context, id int64) (Book, error)
	SearchBooks(text string)
	ApplyFilters(ctx context.Context, overrides FilterOverrides) error
	SortBooks(ctx context.Context, key SortKey) error
	LoadCart(ctx context.Context) error
	AddToCart(ctx context.Context, bookID int64, quantity int) error
	UpdateCartItem(ctx context.Context, itemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context) error
}

var _ CatalogStoreProvider = (*CatalogStore)(nil)

// CatalogStore maintains the books listing, the active query state and
// the cart of the authenticated user. It is a thin cache over backend
// responses: reads degrade to empty state on failure, cart mutations
// are confirmed by server data before touching local state, and there
// is no sequencing of concurrent mutations: whichever server response
// is applied last wins.
type CatalogStore struct {
	logger   *zap.Logger
	api      CatalogAPIProvider
	session  SessionInformer
	debounce *Debouncer

	mu      sync.Mutex
	books   []Book
	cart    *Cart
	loading bool
	query   BookQuery
}

// NewCatalogStore provides a catalog store with an empty listing,
// no cart and the default ordering by title.
func NewCatalogStore(logger *zap.Logger, config *Config, api CatalogAPIProvider, session SessionInformer) *CatalogStore {
	return &CatalogStore{
		logger:   logger,
		api:      api,
		session:  session,
		debounce: NewDebouncer(config.Search.DebounceInterval),
		books:    []Book{},
		query:    BookQuery{Ordering: SortByTitle},
	}
}

// WatchSessions subscribes the store to session transitions: an opened
// session triggers a cart fetch, a closed one drops the cart locally.
func (cs *CatalogStore) WatchSessions(bus *SessionBus) error {
	return bus.Subscribe("catalog-store", cs.onSessionEvent)
}

func (cs *CatalogStore) onSessionEvent(evt SessionEvent) {
	switch evt.To {
	case SessionAuthenticated:
		if err := cs.LoadCart(context.Background()); err != nil {
			cs.logger.Error("catalog: failed to load cart after sign-in", zap.Error(err))
		}
	case SessionAnonymous:
		// No network call here: the session is gone, the cached cart
		// simply stops existing.
		cs.setCart(nil)
	}
}

// Books provides a copy of the current listing.
func (cs *CatalogStore) Books() []Book {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	books := make([]Book, len(cs.books))
	copy(books, cs.books)
	return books
}

// Cart provides a copy of the cached cart, nil for anonymous sessions.
func (cs *CatalogStore) Cart() *Cart {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.cart == nil {
		return nil
	}
	cart := *cs.cart
	cart.Items = make([]CartItem, len(cs.cart.Items))
	copy(cart.Items, cs.cart.Items)
	return &cart
}

// Loading tells if a books listing call is in flight.
func (cs *CatalogStore) Loading() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.loading
}

// Query provides the active search/filter/sort state.
func (cs *CatalogStore) Query() BookQuery {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.query
}

func (cs *CatalogStore) setCart(cart *Cart) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.cart = cart
}

// LoadBooks fetches the listing for the current query state. On failure
// the listing resets to empty so stale results never survive an errored
// reload, and the failure comes back as a non-fatal condition.
func (cs *CatalogStore) LoadBooks(ctx context.Context) error {
	cs.mu.Lock()
	cs.loading = true
	query := cs.query
	cs.mu.Unlock()

	books, err := cs.api.ListBooks(ctx, query)

	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.loading = false
	if err != nil {
		cs.books = []Book{}
		return err
	}
	cs.books = books
	return nil
}

// GetBook fetches the detail view of one book. The result is not
// cached, a detail read is always fresh.
func (cs *CatalogStore) GetBook(ctx context.Context, id int64) (Book, error) {
	return cs.api.GetBook(ctx, id)
}

// SearchBooks records the free-text term and schedules a reload once
// typing pauses for the configured interval. Each call supersedes the
// pending one, so a burst of keystrokes costs a single listing call
// carrying the final term. Failures of the deferred reload surface as
// an empty listing.
func (cs *CatalogStore) SearchBooks(text string) {
	cs.mu.Lock()
	cs.query.Search = text
	cs.mu.Unlock()
	cs.debounce.Trigger(func() {
		if err := cs.LoadBooks(context.Background()); err != nil {
			cs.logger.Error("catalog: debounced search reload failed", zap.Error(err))
		}
	})
}

// ApplyFilters merges a partial filters update into the query state and
// reloads the listing. The in-flight search term and ordering survive.
func (cs *CatalogStore) ApplyFilters(ctx context.Context, overrides FilterOverrides) error {
	cs.mu.Lock()
	if overrides.Author != nil {
		cs.query.Author = *overrides.Author
	}
	if overrides.InStockOnly != nil {
		cs.query.InStockOnly = *overrides.InStockOnly
	}
	cs.mu.Unlock()
	return cs.LoadBooks(ctx)
}

// SortBooks records the ordering and reloads the listing.
func (cs *CatalogStore) SortBooks(ctx context.Context, key SortKey) error {
	if !key.IsValid() {
		return NewFailure(FailureValidation, "unsupported sort key: "+string(key), nil)
	}
	cs.mu.Lock()
	cs.query.Ordering = key
	cs.mu.Unlock()
	return cs.LoadBooks(ctx)
}

// LoadCart fetches the backend cart. For an anonymous session it is a
// no-op which guarantees a nil cart. A NotFound answer models the valid
// `no cart yet` state and yields the local empty shell. Any other
// failure drops the cached cart and surfaces.
func (cs *CatalogStore) LoadCart(ctx context.Context) error {
	if cs.session.Status() != SessionAuthenticated {
		cs.setCart(nil)
		return nil
	}
	cart, err := cs.api.GetCart(ctx)
	if err != nil {
		if IsFailure(err, FailureNotFound) {
			cs.setCart(NewEmptyCart())
			return nil
		}
		cs.setCart(nil)
		return err
	}
	cs.setCart(cart)
	return nil
}

// AddToCart inserts a book into the cart. It fails fast without any
// network call for anonymous sessions and non-positive quantities.
// On success the whole cart is re-fetched instead of spliced locally,
// so totals and stock constraints stay server-authoritative.
func (cs *CatalogStore) AddToCart(ctx context.Context, bookID int64, quantity int) error {
	if cs.session.Status() != SessionAuthenticated {
		return NewFailure(FailureUnauthenticated, "please sign in to add books to your cart", nil)
	}
	if quantity < 1 {
		return NewFailure(FailureValidation, "quantity must be at least 1", nil)
	}
	if _, err := cs.api.AddCartItem(ctx, bookID, quantity); err != nil {
		return err
	}
	return cs.LoadCart(ctx)
}

// UpdateCartItem changes the quantity of one cart item. The quantity
// precondition is checked locally, removal goes through RemoveCartItem,
// never a zero quantity. On success only the matching item is replaced,
// with the server copy rather than the local guess.
func (cs *CatalogStore) UpdateCartItem(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 1 {
		return NewFailure(FailureValidation, "quantity must be at least 1", nil)
	}
	item, err := cs.api.UpdateCartItem(ctx, itemID, quantity)
	if err != nil {
		return err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.cart == nil {
		return nil
	}
	for i := range cs.cart.Items {
		if cs.cart.Items[i].ID == item.ID {
			cs.cart.Items[i] = item
			break
		}
	}
	cs.cart.RecomputeTotals()
	return nil
}

// RemoveCartItem deletes one cart item and splices it out of the
// cached cart on success.
func (cs *CatalogStore) RemoveCartItem(ctx context.Context, itemID int64) error {
	if err := cs.api.RemoveCartItem(ctx, itemID); err != nil {
		return err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.cart == nil {
		return nil
	}
	items := cs.cart.Items[:0]
	for _, item := range cs.cart.Items {
		if item.ID != itemID {
			items = append(items, item)
		}
	}
	cs.cart.Items = items
	cs.cart.RecomputeTotals()
	return nil
}

// ClearCart empties the cart items in place on success. The cart
// identifier is preserved, only its content goes away.
func (cs *CatalogStore) ClearCart(ctx context.Context) error {
	if err := cs.api.ClearCart(ctx); err != nil {
		return err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.cart == nil {
		return nil
	}
	cs.cart.Items = []CartItem{}
	cs.cart.TotalPrice = "0.00"
	cs.cart.TotalItems = 0
	return nil
}

// StopPending cancels any scheduled debounced reload, used at shutdown.
func (cs *CatalogStore) StopPending() {
	cs.debounce.Stop()
}
