// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package broadcast implements per-session bounded fan-out channels
// with an overwrite-oldest-on-lag policy, simplified from the general
// pattern-matching pub/sub in internal/events down to the single-topic
// per-session model used by the PTY and chat supervisors.
package broadcast

import (
	"sync"
	"sync/atomic"
)

// Hub fans a sequence of values of type T out to any number of
// subscribers. When a subscriber falls behind capacity, the oldest
// buffered item is dropped and the subscriber observes a Lagged
// marker on its next receive instead of blocking the publisher.
type Hub[T any] struct {
	mu       sync.Mutex
	subs     map[*subscriber[T]]struct{}
	capacity int
	closed   atomic.Bool
}

type subscriber[T any] struct {
	mu      sync.Mutex
	buf     []T
	lagged  bool
	notify  chan struct{}
	closed  bool
}

// New creates a Hub with the given per-subscriber buffer capacity.
func New[T any](capacity int) *Hub[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Hub[T]{
		subs:     make(map[*subscriber[T]]struct{}),
		capacity: capacity,
	}
}

// Send delivers value to every current subscriber. A subscriber at
// capacity has its oldest buffered item overwritten rather than
// blocking the sender.
func (h *Hub[T]) Send(value T) {
	if h.closed.Load() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		s.push(value, h.capacity)
	}
}

func (s *subscriber[T]) push(value T, capacity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if len(s.buf) >= capacity {
		s.buf = s.buf[1:]
		s.lagged = true
	}
	s.buf = append(s.buf, value)
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Receiver is a per-subscriber handle returned by Subscribe.
type Receiver[T any] struct {
	hub *Hub[T]
	sub *subscriber[T]
}

// Recv blocks until a value is available, the hub is closed, or done
// is closed. The second return value is false once the subscription is
// exhausted (hub closed with no buffered values remaining). lagged
// reports whether one or more values were dropped before this one.
func (r *Receiver[T]) Recv(done <-chan struct{}) (value T, lagged bool, ok bool) {
	for {
		r.sub.mu.Lock()
		if len(r.sub.buf) > 0 {
			value = r.sub.buf[0]
			r.sub.buf = r.sub.buf[1:]
			lagged = r.sub.lagged
			r.sub.lagged = false
			r.sub.mu.Unlock()
			return value, lagged, true
		}
		closed := r.sub.closed
		r.sub.mu.Unlock()
		if closed {
			var zero T
			return zero, false, false
		}
		select {
		case <-r.sub.notify:
		case <-done:
			var zero T
			return zero, false, false
		}
	}
}

// Close unsubscribes the receiver from its hub.
func (r *Receiver[T]) Close() {
	r.hub.mu.Lock()
	delete(r.hub.subs, r.sub)
	r.hub.mu.Unlock()
	r.sub.mu.Lock()
	r.sub.closed = true
	r.sub.mu.Unlock()
}

// Subscribe registers a new receiver. Panics are not possible here;
// callers that need a bound on total subscribers enforce it themselves.
func (h *Hub[T]) Subscribe() *Receiver[T] {
	s := &subscriber[T]{notify: make(chan struct{}, 1)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return &Receiver[T]{hub: h, sub: s}
}

// Close marks the hub closed, rejecting further Send calls, and wakes
// every blocked subscriber so it observes end-of-stream once its
// buffer drains.
func (h *Hub[T]) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		s.mu.Lock()
		s.closed = true
		select {
		case s.notify <- struct{}{}:
		default:
		}
		s.mu.Unlock()
	}
}

// SubscriberCount reports the current number of live subscribers.
func (h *Hub[T]) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
