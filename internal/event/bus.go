// Package event provides the typed observer bus the engine publishes on.
// Subscribers and message shapes are statically known; there is no ambient
// document-level pub/sub.
package event

import (
	"reflect"
	"sync"
)

// Bus dispatches events synchronously to typed handlers. Subscription is
// goroutine-safe; dispatch runs on the emitter's goroutine, so handlers
// must be quick and must not re-enter the emitter.
type Bus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[reflect.Type][]any)}
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// Emit delivers event to every handler subscribed for T, in subscription
// order.
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.RLock()
	handlers := b.handlers[t]
	b.mu.RUnlock()
	for _, h := range handlers {
		h.(func(T))(event)
	}
}
