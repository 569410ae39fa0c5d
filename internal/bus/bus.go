// Package bus provides the in-process notification channel connecting
// resolvers to their surrounding surfaces (variant pickers, cart UI).
//
// Dispatch is synchronous: Publish invokes every handler inline before it
// returns, so notifications from one publisher are observed in publish
// order, and a handler that must act "before the next event" (e.g. the
// variant:changing control-disable) gets that guarantee for free.
package bus

import (
	"sync"

	"github.com/google/uuid"
)

// Topic names a notification channel.
type Topic string

// Topics used by the pre-order flow.
const (
	// TopicVariantUpdate carries model.VariantUpdate payloads.
	TopicVariantUpdate Topic = "variant:update"

	// TopicVariantChanging announces that a new selection is in flight.
	// No payload.
	TopicVariantChanging Topic = "variant:changing"

	// TopicCartAdd carries model.CartAdded payloads after a successful add.
	TopicCartAdd Topic = "cart:add"

	// TopicCartError carries model.CartError payloads.
	TopicCartError Topic = "cart:error"
)

// Handler receives a published payload. Handlers run inline on the
// publisher's goroutine and must not block.
type Handler func(payload any)

type subscription struct {
	id string
	fn Handler
}

// Bus is a topic-scoped publish/subscribe hub. Safe for concurrent use.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]subscription
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[Topic][]subscription)}
}

// Subscribe registers a handler on a topic and returns its subscription ID.
// Handlers on the same topic run in registration order.
// Prefer Token.Subscribe so teardown stays a single call.
func (b *Bus) Subscribe(topic Topic, fn Handler) string {
	id := uuid.NewString()
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], subscription{id: id, fn: fn})
	b.mu.Unlock()
	return id
}

// Unsubscribe removes a subscription. Unknown IDs are a no-op.
func (b *Bus) Unsubscribe(topic Topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	for i := range subs {
		if subs[i].id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every handler on the topic, inline and in
// registration order.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(payload)
	}
}

// Token groups an owner's subscriptions so teardown is one Cancel call.
// A resolver instance holds exactly one token; component detach cancels it.
type Token struct {
	bus *Bus

	mu       sync.Mutex
	canceled bool
	entries  []tokenEntry
}

type tokenEntry struct {
	topic Topic
	id    string
}

// NewToken creates a cancellation token bound to this bus.
func (b *Bus) NewToken() *Token {
	return &Token{bus: b}
}

// Subscribe registers a handler and records it against the token.
// Subscribing on a canceled token is a no-op.
func (t *Token) Subscribe(topic Topic, fn Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.canceled {
		return
	}
	id := t.bus.Subscribe(topic, fn)
	t.entries = append(t.entries, tokenEntry{topic: topic, id: id})
}

// Cancel detaches every subscription registered through this token.
// Idempotent. After Cancel, no handler registered via the token runs again.
func (t *Token) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.canceled {
		return
	}
	t.canceled = true
	for _, e := range t.entries {
		t.bus.Unsubscribe(e.topic, e.id)
	}
	t.entries = nil
}

// Canceled reports whether Cancel has been called.
func (t *Token) Canceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canceled
}
