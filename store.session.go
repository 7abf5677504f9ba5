package main

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// SessionStatus represents the state of the auth session machine.
type SessionStatus int

const (
	// SessionUnchecked is the initial state, before the first backend probe.
	SessionUnchecked SessionStatus = iota
	// SessionChecking covers the in-flight startup probe.
	SessionChecking
	// SessionAuthenticated means a user owns the session.
	SessionAuthenticated
	// SessionAnonymous means no user is attached to the session.
	SessionAnonymous
)

// String provides the human readable name of the session status.
func (s SessionStatus) String() string {
	switch s {
	case SessionChecking:
		return "checking"
	case SessionAuthenticated:
		return "authenticated"
	case SessionAnonymous:
		return "anonymous"
	}
	return "unchecked"
}

// SessionStoreProvider defines the operations of the auth session store.
type SessionStoreProvider interface {
	Status() SessionStatus
	User() (User, bool)
	Check(ctx context.Context)
	Login(ctx context.Context, req LoginRequest) (User, error)
	Register(ctx context.Context, req RegisterRequest) (User, error)
	Logout(ctx context.Context)
}

var _ SessionStoreProvider = (*SessionStore)(nil)

// SessionStore holds the current authenticated user if any and drives
// the Unchecked -> Checking -> {Authenticated, Anonymous} machine.
// Every transition is published on the session bus so dependent stores
// can react in a deterministic order.
type SessionStore struct {
	logger   *zap.Logger
	api      AuthAPIProvider
	bus      *SessionBus
	validate *validator.Validate

	mu     sync.Mutex
	status SessionStatus
	user   *User
}

// NewSessionStore provides a session store in the unchecked state.
func NewSessionStore(logger *zap.Logger, api AuthAPIProvider, bus *SessionBus) *SessionStore {
	return &SessionStore{
		logger:   logger,
		api:      api,
		bus:      bus,
		validate: validator.New(),
		status:   SessionUnchecked,
	}
}

// Status provides the current state of the session machine.
func (ss *SessionStore) Status() SessionStatus {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.status
}

// User provides the authenticated user when the session holds one.
func (ss *SessionStore) User() (User, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.user == nil {
		return User{}, false
	}
	return *ss.user, true
}

// transition moves the machine to a new state and returns the event to
// publish. Publishing happens outside the store lock so subscribers can
// freely query the store while handling the event.
func (ss *SessionStore) transition(to SessionStatus, user *User) (SessionEvent, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.status == to {
		return SessionEvent{}, false
	}
	evt := SessionEvent{From: ss.status, To: to, User: user}
	ss.status = to
	ss.user = user
	return evt, true
}

func (ss *SessionStore) apply(to SessionStatus, user *User) {
	if evt, ok := ss.transition(to, user); ok {
		ss.logger.Info("session: transition",
			zap.String("from", evt.From.String()),
			zap.String("to", evt.To.String()))
		ss.bus.Publish(evt)
	}
}

// Check probes the backend for the user attached to the persisted
// session cookies. Any failure lands on anonymous, the startup probe
// never surfaces an error.
func (ss *SessionStore) Check(ctx context.Context) {
	ss.apply(SessionChecking, nil)
	user, err := ss.api.CurrentUser(ctx)
	if err != nil {
		ss.logger.Info("session: no active session", zap.String("reason", FailureMessage(err)))
		ss.apply(SessionAnonymous, nil)
		return
	}
	ss.apply(SessionAuthenticated, &user)
}

// Login opens a session with the given credentials. On failure the
// machine keeps its prior state and the returned failure carries a
// reason the caller can render inline.
func (ss *SessionStore) Login(ctx context.Context, req LoginRequest) (User, error) {
	if err := ss.validate.Struct(req); err != nil {
		return User{}, NewFailure(FailureValidation, "username and password are required", err)
	}
	user, err := ss.api.Login(ctx, req)
	if err != nil {
		ss.logger.Info("session: login rejected", zap.String("username", req.Username), zap.String("reason", FailureMessage(err)))
		return User{}, err
	}
	ss.apply(SessionAuthenticated, &user)
	return user, nil
}

// Register creates an account and opens its session. Same failure
// contract as Login.
func (ss *SessionStore) Register(ctx context.Context, req RegisterRequest) (User, error) {
	if err := ss.validate.Struct(req); err != nil {
		return User{}, NewFailure(FailureValidation, registrationReason(err), err)
	}
	user, err := ss.api.Register(ctx, req)
	if err != nil {
		ss.logger.Info("session: registration rejected", zap.String("username", req.Username), zap.String("reason", FailureMessage(err)))
		return User{}, err
	}
	ss.apply(SessionAuthenticated, &user)
	return user, nil
}

// Logout closes the session. The remote call is best-effort: whatever
// its outcome, the local state ends anonymous because an explicit user
// logout is authoritative for the UI.
func (ss *SessionStore) Logout(ctx context.Context) {
	if err := ss.api.Logout(ctx); err != nil {
		ss.logger.Error("session: remote logout failed", zap.Error(err))
	}
	ss.apply(SessionAnonymous, nil)
}

// Invalidate forces the session to anonymous without any network call.
// It is the process-wide reaction wired to 401 responses.
func (ss *SessionStore) Invalidate() {
	ss.apply(SessionAnonymous, nil)
}

// registrationReason maps a local validation error to a renderable message.
func registrationReason(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return "registration data is invalid"
	}
	switch errs[0].Field() {
	case "Username":
		return "username must be between 3 and 150 characters"
	case "Email":
		return "a valid email address is required"
	case "Password":
		return "password must be at least 8 characters"
	}
	return "registration data is invalid"
}
