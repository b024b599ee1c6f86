// Package notify is an in-process observer registry. Each topic is typed by
// its payload so listeners and emitters are checked at compile time.
package notify

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Subscription identifies one registration on a topic. Off removes exactly
// that registration, even when the same callback was registered twice.
type Subscription uint64

type listener[T any] struct {
	id Subscription
	fn func(T)
}

type Topic[T any] struct {
	name string

	mu        sync.Mutex
	nextID    Subscription
	listeners []listener[T]
}

func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{name: name}
}

func (t *Topic[T]) Name() string { return t.name }

func (t *Topic[T]) On(fn func(T)) Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.listeners = append(t.listeners, listener[T]{id: t.nextID, fn: fn})
	return t.nextID
}

func (t *Topic[T]) Off(sub Subscription) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, l := range t.listeners {
		if l.id == sub {
			t.listeners = append(t.listeners[:i:i], t.listeners[i+1:]...)
			return
		}
	}
}

func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.listeners)
}

// Emit calls every current listener in registration order on the calling
// goroutine. A panicking listener is logged and skipped.
func (t *Topic[T]) Emit(v T) {
	t.mu.Lock()
	current := make([]listener[T], len(t.listeners))
	copy(current, t.listeners)
	t.mu.Unlock()

	for _, l := range current {
		t.invoke(l, v)
	}
}

func (t *Topic[T]) invoke(l listener[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			metricListenerPanics.Add(1)
			log.Error().
				Str("topic", t.name).
				Uint64("subscription", uint64(l.id)).
				Str("panic", fmt.Sprint(r)).
				Msg("notification listener failed")
		}
	}()
	l.fn(v)
}
