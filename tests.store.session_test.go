package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordTransitions subscribes a recorder on the bus and returns the
// slice the published events land into.
func recordTransitions(t *testing.T, bus *SessionBus) *[]SessionEvent {
	t.Helper()
	events := &[]SessionEvent{}
	require.NoError(t, bus.Subscribe("recorder", func(evt SessionEvent) {
		*events = append(*events, evt)
	}))
	return events
}

func TestSessionCheckSuccess(t *testing.T) {
	api := &MockAuthAPI{
		CurrentUserFunc: func(ctx context.Context) (User, error) {
			return User{ID: 1, Username: "jerome"}, nil
		},
	}
	bus := NewSessionBus()
	ss := NewSessionStore(zap.NewNop(), api, bus)
	events := recordTransitions(t, bus)

	ss.Check(context.Background())

	assert.Equal(t, SessionAuthenticated, ss.Status())
	user, ok := ss.User()
	require.True(t, ok)
	assert.Equal(t, "jerome", user.Username)

	require.Len(t, *events, 2)
	assert.Equal(t, SessionUnchecked, (*events)[0].From)
	assert.Equal(t, SessionChecking, (*events)[0].To)
	assert.Equal(t, SessionChecking, (*events)[1].From)
	assert.Equal(t, SessionAuthenticated, (*events)[1].To)
	require.NotNil(t, (*events)[1].User)
	assert.Equal(t, int64(1), (*events)[1].User.ID)
}

func TestSessionCheckFailureLandsAnonymous(t *testing.T) {
	api := &MockAuthAPI{
		CurrentUserFunc: func(ctx context.Context) (User, error) {
			return User{}, NewFailure(FailureUnauthorized, "your session has expired. please sign in again.", nil)
		},
	}
	bus := NewSessionBus()
	ss := NewSessionStore(zap.NewNop(), api, bus)
	events := recordTransitions(t, bus)

	ss.Check(context.Background())

	assert.Equal(t, SessionAnonymous, ss.Status())
	_, ok := ss.User()
	assert.False(t, ok)
	require.Len(t, *events, 2)
	assert.Equal(t, SessionAnonymous, (*events)[1].To)
	assert.Nil(t, (*events)[1].User)
}

func TestSessionLoginValidationFailsWithoutNetwork(t *testing.T) {
	api := &MockAuthAPI{
		LoginFunc: func(ctx context.Context, req LoginRequest) (User, error) {
			t.Fatal("login call should not happen")
			return User{}, nil
		},
	}
	ss := NewSessionStore(zap.NewNop(), api, NewSessionBus())

	_, err := ss.Login(context.Background(), LoginRequest{Username: "", Password: ""})
	require.Error(t, err)
	assert.True(t, IsFailure(err, FailureValidation))
	assert.Equal(t, "username and password are required", FailureMessage(err))
	assert.Equal(t, SessionUnchecked, ss.Status())
}

func TestSessionLoginFailureKeepsPriorState(t *testing.T) {
	api := &MockAuthAPI{
		CurrentUserFunc: func(ctx context.Context) (User, error) {
			return User{}, NewFailure(FailureUnauthorized, "no session", nil)
		},
		LoginFunc: func(ctx context.Context, req LoginRequest) (User, error) {
			return User{}, NewFailure(FailureValidation, "Invalid credentials", nil)
		},
	}
	ss := NewSessionStore(zap.NewNop(), api, NewSessionBus())
	ss.Check(context.Background())
	require.Equal(t, SessionAnonymous, ss.Status())

	_, err := ss.Login(context.Background(), LoginRequest{Username: "jerome", Password: "wrong"})
	require.Error(t, err)
	// The server reason is surfaced verbatim for inline rendering.
	assert.Equal(t, "Invalid credentials", FailureMessage(err))
	assert.Equal(t, SessionAnonymous, ss.Status())
}

func TestSessionRegisterValidationReasons(t *testing.T) {
	api := &MockAuthAPI{
		RegisterFunc: func(ctx context.Context, req RegisterRequest) (User, error) {
			t.Fatal("register call should not happen")
			return User{}, nil
		},
	}
	ss := NewSessionStore(zap.NewNop(), api, NewSessionBus())

	testCases := []struct {
		name     string
		req      RegisterRequest
		expected string
	}{
		{
			name:     "short username",
			req:      RegisterRequest{Username: "jo", Email: "jo@example.com", Password: "longenough"},
			expected: "username must be between 3 and 150 characters",
		},
		{
			name:     "bad email",
			req:      RegisterRequest{Username: "jerome", Email: "not-an-email", Password: "longenough"},
			expected: "a valid email address is required",
		},
		{
			name:     "short password",
			req:      RegisterRequest{Username: "jerome", Email: "jerome@example.com", Password: "short"},
			expected: "password must be at least 8 characters",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ss.Register(context.Background(), tc.req)
			require.Error(t, err)
			assert.True(t, IsFailure(err, FailureValidation))
			assert.Equal(t, tc.expected, FailureMessage(err))
		})
	}
}

func TestSessionRegisterSuccessOpensSession(t *testing.T) {
	api := &MockAuthAPI{
		RegisterFunc: func(ctx context.Context, req RegisterRequest) (User, error) {
			return User{ID: 2, Username: req.Username, Email: req.Email}, nil
		},
	}
	ss := NewSessionStore(zap.NewNop(), api, NewSessionBus())

	user, err := ss.Register(context.Background(), RegisterRequest{Username: "jerome", Email: "jerome@example.com", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, "jerome", user.Username)
	assert.Equal(t, SessionAuthenticated, ss.Status())
}

func TestSessionLogoutIsBestEffort(t *testing.T) {
	api := &MockAuthAPI{
		LoginFunc: func(ctx context.Context, req LoginRequest) (User, error) {
			return User{ID: 1, Username: req.Username}, nil
		},
		LogoutFunc: func(ctx context.Context) error {
			return NewFailure(FailureNetwork, "network issue. please check your connection and try again.", nil)
		},
	}
	ss := NewSessionStore(zap.NewNop(), api, NewSessionBus())
	_, err := ss.Login(context.Background(), LoginRequest{Username: "jerome", Password: "secret"})
	require.NoError(t, err)

	// The remote call fails but the local session still closes.
	ss.Logout(context.Background())
	assert.Equal(t, SessionAnonymous, ss.Status())
	_, ok := ss.User()
	assert.False(t, ok)
}

func TestSessionInvalidateIsIdempotent(t *testing.T) {
	bus := NewSessionBus()
	ss := NewSessionStore(zap.NewNop(), &MockAuthAPI{}, bus)
	events := recordTransitions(t, bus)

	ss.Invalidate()
	ss.Invalidate()

	assert.Equal(t, SessionAnonymous, ss.Status())
	// The second call is a no-op: no extra event hits the bus, so
	// dependents never loop on repeated 401 reactions.
	require.Len(t, *events, 1)
	assert.Equal(t, SessionAnonymous, (*events)[0].To)
}

func TestSessionBusSubscribeRules(t *testing.T) {
	bus := NewSessionBus()
	require.NoError(t, bus.Subscribe("one", func(SessionEvent) {}))
	assert.ErrorIs(t, bus.Subscribe("one", func(SessionEvent) {}), ErrSubscriberExists)
	assert.ErrorIs(t, bus.Unsubscribe("two"), ErrSubscriberNotFound)
	require.NoError(t, bus.Unsubscribe("one"))
	require.NoError(t, bus.Subscribe("one", func(SessionEvent) {}))
}

func TestSessionBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewSessionBus()
	var order []string
	require.NoError(t, bus.Subscribe("first", func(SessionEvent) { order = append(order, "first") }))
	require.NoError(t, bus.Subscribe("second", func(SessionEvent) { order = append(order, "second") }))

	bus.Publish(SessionEvent{From: SessionUnchecked, To: SessionChecking})

	assert.Equal(t, []string{"first", "second"}, order)
}
