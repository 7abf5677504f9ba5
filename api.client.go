package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// AuthAPIProvider defines the authentication operations of the storefront api.
type AuthAPIProvider interface {
	Register(ctx context.Context, req RegisterRequest) (User, error)
	Login(ctx context.Context, req LoginRequest) (User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (User, error)
}

// CatalogAPIProvider defines the books and cart operations of the storefront api.
type CatalogAPIProvider interface {
	ListBooks(ctx context.Context, query BookQuery) ([]Book, error)
	GetBook(ctx context.Context, id int64) (Book, error)
	GetCart(ctx context.Context) (*Cart, error)
	AddCartItem(ctx context.Context, bookID int64, quantity int) (CartItem, error)
	UpdateCartItem(ctx context.Context, itemID int64, quantity int) (CartItem, error)
	RemoveCartItem(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context) error
}

// OrderAPIProvider defines the orders operations of the storefront api.
type OrderAPIProvider interface {
	ListOrders(ctx context.Context) ([]Order, error)
	CreateOrder(ctx context.Context) (Order, error)
	CancelOrder(ctx context.Context, id int64) (Order, error)
}

var (
	_ AuthAPIProvider    = (*APIClient)(nil)
	_ CatalogAPIProvider = (*APIClient)(nil)
	_ OrderAPIProvider   = (*APIClient)(nil)
)

// apiMessage is the error payload shape served by the backend.
type apiMessage struct {
	Error   string `json:"error"`
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

// APIClient is the single point of outbound http communication with the
// storefront backend. It attaches the csrf token from the cookie jar on
// every mutating request, tags each request with a generated id and
// normalizes transport and status failures into the Failure taxonomy.
type APIClient struct {
	logger *zap.Logger
	config *Config
	client *http.Client
	jar    *BoltCookieJar
	ids    UIDHandler
	base   *url.URL

	mu             sync.Mutex
	onUnauthorized func()
}

// NewAPIClient provides a ready to use APIClient bound to the configured base url.
func NewAPIClient(logger *zap.Logger, config *Config, jar *BoltCookieJar, ids UIDHandler) (*APIClient, error) {
	base, err := url.Parse(config.API.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid storefront api base url")
	}
	return &APIClient{
		logger: logger,
		config: config,
		client: &http.Client{
			Timeout: config.API.RequestTimeout,
			Jar:     jar,
		},
		jar:  jar,
		ids:  ids,
		base: base,
	}, nil
}

// SetUnauthorizedHook registers the process-wide reaction to a 401
// response. The hook runs at most once per failing call, before the
// Unauthorized failure is returned to the caller.
func (api *APIClient) SetUnauthorizedHook(fn func()) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.onUnauthorized = fn
}

func (api *APIClient) unauthorizedHook() func() {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.onUnauthorized
}

// endpoint joins the base url with a resource path and optional query values.
func (api *APIClient) endpoint(path string, query url.Values) string {
	u := *api.base
	u.Path, _ = url.JoinPath(u.Path, path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// isMutating tells if the http method requires the csrf header.
func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// do performs one call against the storefront api. A nil payload sends no
// body and a nil out skips response decoding. Every failure comes back as
// a *Failure so callers can decide between retry prompt and inline render.
func (api *APIClient) do(ctx context.Context, method, path string, query url.Values, payload, out interface{}) error {
	requestID := api.ids.Generate(RequestIDPrefix)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return NewFailure(FailureUnknown, "failed to encode request payload", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, api.endpoint(path, query), body)
	if err != nil {
		return NewFailure(FailureUnknown, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// The csrf token is a soft contract: when the cookie is absent the
	// request goes out without the header and the backend decides.
	if isMutating(method) {
		if token := api.jar.CookieValue(api.base, api.config.API.CSRFCookieName); token != "" {
			req.Header.Set(api.config.API.CSRFHeaderName, token)
		}
	}

	resp, err := api.client.Do(req)
	if err != nil {
		api.logger.Error("api: transport failure",
			zap.String("request.id", requestID),
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return NewFailure(FailureNetwork, "network issue. please check your connection and try again.", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewFailure(FailureNetwork, "network issue. please check your connection and try again.", err)
	}

	api.logger.Debug("api: call completed",
		zap.String("request.id", requestID),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return NewFailure(FailureUnknown, "failed to decode response payload", err)
		}
		return nil
	}

	return api.failureFromResponse(requestID, method, path, resp.StatusCode, data)
}

// failureFromResponse maps a non-2xx response to the failure taxonomy.
func (api *APIClient) failureFromResponse(requestID, method, path string, status int, data []byte) error {
	api.logger.Error("api: call rejected",
		zap.String("request.id", requestID),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status))

	switch {
	case status == http.StatusUnauthorized:
		// A 401 is a process-wide session invalidation signal,
		// not a per-call concern.
		if hook := api.unauthorizedHook(); hook != nil {
			hook()
		}
		return NewFailure(FailureUnauthorized, "your session has expired. please sign in again.", nil)
	case status == http.StatusForbidden:
		return NewFailure(FailureForbidden, serverMessage(data, "request was rejected. please refresh and try again."), nil)
	case status == http.StatusNotFound:
		return NewFailure(FailureNotFound, serverMessage(data, "requested resource does not exist."), nil)
	case status >= 400 && status < 500:
		return NewFailure(FailureValidation, serverMessage(data, "request was rejected."), nil)
	default:
		return NewFailure(FailureServer, "something went wrong on our side. please try again.", nil)
	}
}

// serverMessage extracts the backend-supplied message to pass it through
// verbatim to the caller, falling back to a generic one.
func serverMessage(data []byte, fallback string) string {
	var msg apiMessage
	if err := json.Unmarshal(data, &msg); err == nil {
		switch {
		case msg.Error != "":
			return msg.Error
		case msg.Detail != "":
			return msg.Detail
		case msg.Message != "":
			return msg.Message
		}
	}
	return fallback
}
