package notify

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// EventType represents the kind of ledger notification.
type EventType string

const (
	BlockCreated EventType = "block_created"
	TierChanged  EventType = "tier_changed"
)

// Event is delivered to every subscriber.
type Event struct {
	Type         EventType
	BlockIndex   uint64
	BlockHash    string
	TxCount      int
	Tier         int
	PreviousTier int
	Consensus    string
	Timestamp    time.Time
}

type subscriber struct {
	ch chan Event
}

// Bus fans events out over bounded channels. Publish never blocks: an event
// for a subscriber whose buffer is full is dropped and counted.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]*subscriber
	nextID  int
	closed  bool
	dropped atomic.Uint64
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// cancel func unsubscribes and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = &subscriber{ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if s, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(s.ch)
			}
		})
	}
}

// Publish delivers ev to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		select {
		case s.ch <- ev:
		default:
			b.dropped.Add(1)
			log.Printf("[NOTIFY] subscriber buffer full, dropped %s event for block %d", ev.Type, ev.BlockIndex)
		}
	}
}

// Dropped reports how many deliveries were dropped.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close unsubscribes and closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
}
