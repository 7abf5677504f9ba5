package main

import (
	"errors"
	"sync"
)

var (
	// ErrSubscriberExists is returned when Subscribe is called with a duplicate id.
	ErrSubscriberExists = errors.New("subscriber id already exists")
	// ErrSubscriberNotFound is returned when Unsubscribe is called with unknown id.
	ErrSubscriberNotFound = errors.New("subscriber id not found")
)

// SessionEvent describes one transition of the session store state machine.
// The user pointer is only set when the target state is authenticated.
type SessionEvent struct {
	From SessionStatus
	To   SessionStatus
	User *User
}

type sessionSubscriber struct {
	id string
	fn func(SessionEvent)
}

// SessionBus distributes session transitions to registered subscribers.
// Delivery is synchronous and in subscription order: when Publish returns,
// every subscriber has observed the transition, so a cart must already be
// cleared when a logout call completes.
type SessionBus struct {
	mu   sync.Mutex
	subs []sessionSubscriber
}

// NewSessionBus provides a ready to use SessionBus.
func NewSessionBus() *SessionBus {
	return &SessionBus{}
}

// Subscribe registers a callback under a unique id.
func (b *SessionBus) Subscribe(id string, fn func(SessionEvent)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if sub.id == id {
			return ErrSubscriberExists
		}
	}
	b.subs = append(b.subs, sessionSubscriber{id: id, fn: fn})
	return nil
}

// Unsubscribe removes a subscriber by id.
func (b *SessionBus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriberNotFound
}

// Publish delivers the event to all subscribers before returning.
// Callbacks run outside the bus lock so a subscriber can subscribe
// or unsubscribe while handling an event.
func (b *SessionBus) Publish(evt SessionEvent) {
	b.mu.Lock()
	subs := make([]sessionSubscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()
	for _, sub := range subs {
		sub.fn(evt)
	}
}
