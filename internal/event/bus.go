// Package event provides the publish/subscribe bus that connects the
// workbench, the plugin system, and the UI shell. Topics are hierarchical
// dot-separated strings; subscription patterns may use "*" (one segment)
// and "**" (any number of segments) wildcards.
//
// The bus dispatches synchronously on the caller's goroutine. Polyglot's
// managers all live on the UI goroutine, so emission order is subscription
// order and handlers never race. Handlers that panic are recovered and
// logged; they never take down the emitter.
package event

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/polyglot/internal/logging"
)

// Event is a single occurrence delivered to subscribers.
type Event struct {
	// Topic identifies what happened.
	Topic Topic

	// Source identifies the emitter, e.g. "workbench" or "plugin:spellcheck".
	Source string

	// Time is when the event was emitted.
	Time time.Time

	// Data carries event payload as loosely-typed key/value pairs.
	Data map[string]any
}

// Handler receives events whose topic matches the subscription pattern.
type Handler func(Event)

// subscription is one registered handler.
type subscription struct {
	id      string
	pattern Topic
	handler Handler
}

// Stats reports bus counters.
type Stats struct {
	Subscriptions int
	Published     uint64
	Delivered     uint64
	Panics        uint64
}

// Bus is a synchronous topic-matched publish/subscribe bus.
type Bus struct {
	mu    sync.RWMutex
	subs  map[string]*subscription
	order []string // subscription ids in registration order

	logger *logging.Logger

	published uint64
	delivered uint64
	panics    uint64
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for handler panic reports.
func WithLogger(l *logging.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[string]*subscription),
		logger: logging.Null,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for topics matching pattern and returns the
// subscription id.
func (b *Bus) Subscribe(pattern Topic, handler Handler) (string, error) {
	if handler == nil {
		return "", ErrNilHandler
	}
	if !pattern.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTopic, pattern)
	}

	sub := &subscription{
		id:      uuid.NewString(),
		pattern: pattern,
		handler: handler,
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.order = append(b.order, sub.id)
	b.mu.Unlock()

	return sub.id, nil
}

// Unsubscribe removes a subscription by id.
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
	}
	delete(b.subs, id)
	for i, oid := range b.order {
		if oid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return nil
}

// Emit publishes an event to all matching subscribers in subscription
// order. Handlers run synchronously on the caller's goroutine.
func (b *Bus) Emit(t Topic, source string, data map[string]any) error {
	if !t.IsValid() || t.IsWildcard() {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, t)
	}

	ev := Event{
		Topic:  t,
		Source: source,
		Time:   time.Now(),
		Data:   data,
	}

	// Snapshot matching handlers so subscribers may unsubscribe (or
	// subscribe) from within a handler without corrupting iteration.
	b.mu.Lock()
	b.published++
	matched := make([]*subscription, 0, len(b.order))
	for _, id := range b.order {
		sub := b.subs[id]
		if sub != nil && t.Matches(sub.pattern) {
			matched = append(matched, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range matched {
		b.dispatch(sub, ev)
	}
	return nil
}

// dispatch invokes one handler with panic recovery.
func (b *Bus) dispatch(sub *subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.mu.Lock()
			b.panics++
			b.mu.Unlock()
			b.logger.WithComponent("event").Error("handler panic on %s: %v", ev.Topic, r)
		}
	}()

	sub.handler(ev)

	b.mu.Lock()
	b.delivered++
	b.mu.Unlock()
}

// Stats returns bus counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		Subscriptions: len(b.subs),
		Published:     b.published,
		Delivered:     b.delivered,
		Panics:        b.panics,
	}
}
