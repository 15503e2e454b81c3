// Package events fans manager events out to WebSocket and SSE subscribers.
package events

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/voxlate/internal/service/recording"
)

const subscriberBuffer = 32

// Subscriber receives events on C until it is removed.
type Subscriber struct {
	ID string
	C  <-chan recording.Event

	ch      chan recording.Event
	dropped int
}

// Broadcaster implements recording.Notifier. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[string]*Subscriber
	nextID int
	closed bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]*Subscriber)}
}

// Subscribe registers a new subscriber.
func (b *Broadcaster) Subscribe() *Subscriber {
	ch := make(chan recording.Event, subscriberBuffer)

	b.mu.Lock()
	b.nextID++
	sub := &Subscriber{ID: fmt.Sprintf("client-%d", b.nextID), C: ch, ch: ch}
	if b.closed {
		close(ch)
	} else {
		b.subs[sub.ID] = sub
	}
	count := len(b.subs)
	b.mu.Unlock()

	log.Debug().Str("component", "events").Str("client_id", sub.ID).Int("clients", count).Msg("subscriber connected")
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call twice.
func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	_, ok := b.subs[sub.ID]
	if ok {
		delete(b.subs, sub.ID)
		close(sub.ch)
	}
	count := len(b.subs)
	b.mu.Unlock()

	if ok {
		log.Debug().Str("component", "events").Str("client_id", sub.ID).Int("clients", count).Msg("subscriber disconnected")
	}
}

// Publish delivers ev to every subscriber with room in its buffer.
func (b *Broadcaster) Publish(ev recording.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			sub.dropped++
			log.Warn().Str("component", "events").Str("client_id", sub.ID).Int("dropped", sub.dropped).Msg("slow subscriber, event dropped")
		}
	}
}

// Count reports connected subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close disconnects every subscriber.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
