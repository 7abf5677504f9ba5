package main

import (
	"context"
	"net/http"
)

// authPayload is the envelope used by the auth endpoints.
type authPayload struct {
	User User `json:"user"`
}

// Register creates a new account. A successful registration
// also opens the session for the created user.
func (api *APIClient) Register(ctx context.Context, req RegisterRequest) (User, error) {
	var payload authPayload
	if err := api.do(ctx, http.MethodPost, "/auth/register/", nil, req, &payload); err != nil {
		return User{}, err
	}
	return payload.User, nil
}

// Login opens a session for the given credentials. The backend sets
// the session and csrf cookies on success, the jar keeps them.
func (api *APIClient) Login(ctx context.Context, req LoginRequest) (User, error) {
	var payload authPayload
	if err := api.do(ctx, http.MethodPost, "/auth/login/", nil, req, &payload); err != nil {
		return User{}, err
	}
	return payload.User, nil
}

// Logout closes the current session on the backend side.
func (api *APIClient) Logout(ctx context.Context) error {
	return api.do(ctx, http.MethodPost, "/auth/logout/", nil, nil, nil)
}

// CurrentUser provides the user attached to the session cookies if any.
func (api *APIClient) CurrentUser(ctx context.Context) (User, error) {
	var payload authPayload
	if err := api.do(ctx, http.MethodGet, "/auth/current-user/", nil, nil, &payload); err != nil {
		return User{}, err
	}
	return payload.User, nil
}
