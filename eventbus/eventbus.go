// Package eventbus provides the explicit publish/subscribe channel between
// the session controller and its UI listeners (editor widget, command log).
// Listeners register for a session topic instead of being discovered through
// ambient lookups.
package eventbus

import (
	"sync"

	"github.com/codestream-dev/codestream/model"
)

// Bus delivers session updates to registered subscribers.
type Bus interface {
	// Publish sends an update to all subscribers of topic. Slow subscribers
	// miss updates rather than blocking the publisher.
	Publish(topic string, u *model.Update)
	// Subscribe registers a new subscriber channel for topic.
	Subscribe(topic string) <-chan *model.Update
	// Unsubscribe removes and closes a subscriber channel.
	Unsubscribe(topic string, ch <-chan *model.Update)
}

// subscriberBuffer sizes each subscriber channel. File updates arrive per
// append, so the buffer absorbs short render stalls.
const subscriberBuffer = 256

// InMemoryBus is a process-local Bus.
type InMemoryBus struct {
	mu   sync.RWMutex
	subs map[string][]chan *model.Update
}

// NewInMemoryBus creates an empty bus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[string][]chan *model.Update)}
}

// Publish implements Bus.
func (b *InMemoryBus) Publish(topic string, u *model.Update) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- u:
		default:
		}
	}
}

// Subscribe implements Bus.
func (b *InMemoryBus) Subscribe(topic string) <-chan *model.Update {
	ch := make(chan *model.Update, subscriberBuffer)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe implements Bus.
func (b *InMemoryBus) Unsubscribe(topic string, ch <-chan *model.Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	for i, c := range subs {
		if c == ch {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			close(c)
			break
		}
	}
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
}
