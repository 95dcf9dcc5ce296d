package bus

import (
	"strings"
	"sync"
)

// DefaultBuffer is the subscription buffer used when callers pass a
// non-positive size.
const DefaultBuffer = 64

// Bus is an in-process publish/subscribe bus for best-effort daemon events:
// presence changes, message observability, and enchantment counter pushes.
// Delivery is lossy under backpressure — a slow subscriber loses events, so
// anything that must survive goes through the store, never the bus.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	namespace string
	ch        chan Event
}

// deliver hands evt to the subscriber without blocking. A full buffer means
// the subscriber is too slow and the event is dropped.
func (s *subscription) deliver(evt Event) bool {
	select {
	case s.ch <- evt:
		return true
	default:
		return false
	}
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
	}
}

// Publish fans evt out to every subscriber whose namespace is a prefix of
// evt.Kind. Never blocks.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !strings.HasPrefix(evt.Kind, sub.namespace) {
			continue
		}
		sub.deliver(evt)
	}
}

// Subscribe returns a channel receiving events matching the given namespace
// prefix, and an unsubscribe function. A non-positive bufSize falls back to
// DefaultBuffer.
func (b *Bus) Subscribe(namespace string, bufSize int) (<-chan Event, func()) {
	if bufSize <= 0 {
		bufSize = DefaultBuffer
	}
	ch := make(chan Event, bufSize)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscription{namespace: namespace, ch: ch}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}
