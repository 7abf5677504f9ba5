package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestAPIClient builds an api client against the given stub backend,
// backed by a real cookie jar persisted in a throwaway bolt file.
func newTestAPIClient(t *testing.T, server *httptest.Server) *APIClient {
	t.Helper()
	config := newTestConfig()
	config.API.BaseURL = server.URL + "/api"
	config.BoltDB.FilePath = filepath.Join(t.TempDir(), "cookies.db")

	db, err := GetBoltDBClient(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	base, err := url.Parse(config.API.BaseURL)
	require.NoError(t, err)
	jar, err := NewBoltCookieJar(zap.NewNop(), &config.BoltDB, db, NewMockClocker(), base)
	require.NoError(t, err)

	client, err := NewAPIClient(zap.NewNop(), config, jar, NewIDsHandler())
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestAPIClientLoginThenCSRFOnMutation(t *testing.T) {
	var csrfHeader string
	router := httprouter.New()
	router.POST("/api/auth/login/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok-123", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "sess-456", Path: "/"})
		writeJSON(w, http.StatusOK, `{"user":{"id":1,"username":"jerome","email":"jerome@example.com"}}`)
	})
	router.POST("/api/cart-items/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		csrfHeader = r.Header.Get("X-CSRFToken")
		writeJSON(w, http.StatusCreated, `{"id":10,"book":{"id":1,"title":"Dune","price":"10.00"},"quantity":2,"total_price":"20.00"}`)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	api := newTestAPIClient(t, server)

	user, err := api.Login(context.Background(), LoginRequest{Username: "jerome", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "jerome", user.Username)

	item, err := api.AddCartItem(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(10), item.ID)
	assert.Equal(t, 2, item.Quantity)
	// The csrf cookie set at login travels back as a header.
	assert.Equal(t, "tok-123", csrfHeader)
}

func TestAPIClientNoCSRFHeaderWithoutCookie(t *testing.T) {
	sawHeader := false
	router := httprouter.New()
	router.POST("/api/auth/logout/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		_, sawHeader = r.Header["X-Csrftoken"]
		writeJSON(w, http.StatusOK, `{}`)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	api := newTestAPIClient(t, server)
	require.NoError(t, api.Logout(context.Background()))
	assert.False(t, sawHeader)
}

func TestAPIClientCookiesSurviveRestart(t *testing.T) {
	router := httprouter.New()
	router.POST("/api/auth/login/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "sess-456", Path: "/"})
		writeJSON(w, http.StatusOK, `{"user":{"id":1,"username":"jerome"}}`)
	})
	var sessionCookie string
	router.GET("/api/auth/current-user/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if c, err := r.Cookie("sessionid"); err == nil {
			sessionCookie = c.Value
		}
		writeJSON(w, http.StatusOK, `{"user":{"id":1,"username":"jerome"}}`)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	config := newTestConfig()
	config.API.BaseURL = server.URL + "/api"
	config.BoltDB.FilePath = filepath.Join(t.TempDir(), "cookies.db")
	base, err := url.Parse(config.API.BaseURL)
	require.NoError(t, err)

	db, err := GetBoltDBClient(config)
	require.NoError(t, err)
	jar, err := NewBoltCookieJar(zap.NewNop(), &config.BoltDB, db, NewMockClocker(), base)
	require.NoError(t, err)
	first, err := NewAPIClient(zap.NewNop(), config, jar, NewIDsHandler())
	require.NoError(t, err)
	_, err = first.Login(context.Background(), LoginRequest{Username: "jerome", Password: "secret"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// A fresh client on the same bolt file starts with the session cookie.
	db, err = GetBoltDBClient(config)
	require.NoError(t, err)
	defer db.Close()
	jar, err = NewBoltCookieJar(zap.NewNop(), &config.BoltDB, db, NewMockClocker(), base)
	require.NoError(t, err)
	second, err := NewAPIClient(zap.NewNop(), config, jar, NewIDsHandler())
	require.NoError(t, err)

	_, err = second.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-456", sessionCookie)
}

func TestAPIClientFailureMapping(t *testing.T) {
	router := httprouter.New()
	router.POST("/api/auth/register/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusBadRequest, `{"error":"Username already exists"}`)
	})
	router.GET("/api/books/9999/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusNotFound, `{"detail":"Not found."}`)
	})
	router.POST("/api/orders/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusForbidden, `{"detail":"CSRF Failed"}`)
	})
	router.GET("/api/orders/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusInternalServerError, `{"error":"boom"}`)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	api := newTestAPIClient(t, server)
	ctx := context.Background()

	_, err := api.Register(ctx, RegisterRequest{Username: "jerome", Email: "jerome@example.com", Password: "longenough"})
	require.Error(t, err)
	assert.True(t, IsFailure(err, FailureValidation))
	// 4xx reasons come back verbatim so the surface can render them inline.
	assert.Equal(t, "Username already exists", FailureMessage(err))

	_, err = api.GetBook(ctx, 9999)
	require.Error(t, err)
	assert.True(t, IsFailure(err, FailureNotFound))
	assert.Equal(t, "Not found.", FailureMessage(err))

	_, err = api.CreateOrder(ctx)
	require.Error(t, err)
	assert.True(t, IsFailure(err, FailureForbidden))

	_, err = api.ListOrders(ctx)
	require.Error(t, err)
	assert.True(t, IsFailure(err, FailureServer))
	// 5xx internals never leak to the user.
	assert.Equal(t, "something went wrong on our side. please try again.", FailureMessage(err))
}

func TestAPIClientNetworkFailure(t *testing.T) {
	server := httptest.NewServer(httprouter.New())
	api := newTestAPIClient(t, server)
	server.Close()

	_, err := api.CurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, IsFailure(err, FailureNetwork))
	assert.Equal(t, "network issue. please check your connection and try again.", FailureMessage(err))
}

func TestAPIClientUnauthorizedInvokesHook(t *testing.T) {
	router := httprouter.New()
	router.GET("/api/auth/current-user/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusUnauthorized, `{"detail":"Authentication credentials were not provided."}`)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	api := newTestAPIClient(t, server)
	hooked := 0
	api.SetUnauthorizedHook(func() { hooked++ })

	_, err := api.CurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, IsFailure(err, FailureUnauthorized))
	assert.Equal(t, "your session has expired. please sign in again.", FailureMessage(err))
	assert.Equal(t, 1, hooked)
}

func TestAPIClientListBooksQueryAndEnvelope(t *testing.T) {
	var query url.Values
	router := httprouter.New()
	router.GET("/api/books/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		query = r.URL.Query()
		writeJSON(w, http.StatusOK, `{"results":[{"id":1,"title":"Dune","author":"Herbert","price":"10.00","stock":3}],"count":1}`)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	api := newTestAPIClient(t, server)
	books, err := api.ListBooks(context.Background(), BookQuery{
		Search:      "dune",
		Author:      "Herbert",
		InStockOnly: true,
		Ordering:    SortByPriceDesc,
	})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)

	assert.Equal(t, "dune", query.Get("search"))
	assert.Equal(t, "Herbert", query.Get("author"))
	assert.Equal(t, "true", query.Get("inStockOnly"))
	assert.Equal(t, "-price", query.Get("ordering"))
}

func TestAPIClientGetCartEnsuresItems(t *testing.T) {
	router := httprouter.New()
	router.GET("/api/carts/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, `{"id":7,"total_price":"0.00","total_items":0}`)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	api := newTestAPIClient(t, server)
	cart, err := api.GetCart(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cart)
	require.NotNil(t, cart.ID)
	assert.Equal(t, int64(7), *cart.ID)
	assert.NotNil(t, cart.Items)
	assert.Empty(t, cart.Items)
}

func TestAPIClientRequestTimeout(t *testing.T) {
	router := httprouter.New()
	router.GET("/api/books/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, http.StatusOK, `[]`)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	api := newTestAPIClient(t, server)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := api.ListBooks(ctx, BookQuery{})
	require.Error(t, err)
	assert.True(t, IsFailure(err, FailureNetwork))
}
