package events

import (
	"fmt"
	"sync"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
)

// Handler receives published events
type Handler[E any] func(E)

// Subscription identifies a registered handler for Unsubscribe
type Subscription uint64

type subscriber[E any] struct {
	id      Subscription
	name    string
	handler Handler[E]
}

// Bus is a typed publish/subscribe channel for one family of events.
//
// Handlers run synchronously in subscription order on the publisher's
// goroutine. A failing or panicking handler is logged and skipped; the
// remaining handlers still receive the event.
type Bus[E any] struct {
	mu     sync.RWMutex
	name   string
	nextID Subscription
	subs   []subscriber[E]
	logger common.Logger
}

// NewBus creates an empty bus. name is used in log output.
func NewBus[E any](name string, logger common.Logger) *Bus[E] {
	return &Bus[E]{
		name:   name,
		logger: common.OrNoOp(logger),
	}
}

// Subscribe registers handler under a descriptive name
func (b *Bus[E]) Subscribe(name string, handler Handler[E]) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs = append(b.subs, subscriber[E]{id: b.nextID, name: name, handler: handler})
	return b.nextID
}

// Unsubscribe removes a handler; it reports whether the subscription existed
func (b *Bus[E]) Unsubscribe(id Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers event to every handler registered at call time.
// Handlers may subscribe or unsubscribe during delivery.
func (b *Bus[E]) Publish(event E) {
	b.mu.RLock()
	subs := make([]subscriber[E], len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s := s
		common.Guard(b.logger, b.name+"/"+s.name, map[string]interface{}{
			"event": fmt.Sprintf("%T", event),
		}, func() error {
			s.handler(event)
			return nil
		})
	}
}

// Len returns the number of registered handlers
func (b *Bus[E]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
