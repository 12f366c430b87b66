// Package dispatch provides a small synchronous pub-sub primitive used to
// fan events out to registered callbacks in subscription order.
package dispatch

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTarget is returned when a subscription or cancellation names a
// callback the feed cannot accept.
var ErrInvalidTarget = errors.New("dispatch: invalid subscription target")

// SubscriptionID identifies a single registration on a Feed.
type SubscriptionID int64

// Feed delivers values of type T to its subscribers. Delivery is synchronous
// and follows subscription order, so a single-goroutine event loop observes
// callbacks in a stable sequence. All methods are safe for concurrent use.
type Feed[T any] struct {
	mu     sync.Mutex
	nextID SubscriptionID
	order  []SubscriptionID
	subs   map[SubscriptionID]func(T)
}

// NewFeed returns an empty feed.
func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{
		nextID: 1,
		subs:   make(map[SubscriptionID]func(T)),
	}
}

// Subscribe registers fn and returns its subscription id.
func (f *Feed[T]) Subscribe(fn func(T)) (SubscriptionID, error) {
	if fn == nil {
		return 0, fmt.Errorf("%w: nil callback", ErrInvalidTarget)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	f.order = append(f.order, id)
	return id, nil
}

// Unsubscribe removes a registration. Unknown ids fail with ErrInvalidTarget.
func (f *Feed[T]) Unsubscribe(id SubscriptionID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[id]; !ok {
		return fmt.Errorf("%w: unknown subscription %d", ErrInvalidTarget, id)
	}
	delete(f.subs, id)
	for i, sid := range f.order {
		if sid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

// Emit invokes every subscriber with v, in subscription order. Callbacks run
// on the caller's goroutine; a snapshot is taken first so a callback may
// subscribe or unsubscribe without affecting the current emission.
func (f *Feed[T]) Emit(v T) {
	f.mu.Lock()
	fns := make([]func(T), 0, len(f.order))
	for _, id := range f.order {
		fns = append(fns, f.subs[id])
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of active subscriptions.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
