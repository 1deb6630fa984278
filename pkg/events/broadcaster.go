package events

import (
	"encoding/json"
	"sync"

	"lagoonstay/pkg/logger"
	"lagoonstay/pkg/model"
)

// Broadcaster fans events out to in-process subscribers. Publishing never
// blocks; a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
	bufferSize  int
	log         *logger.Logger
	closed      bool
}

func NewBroadcaster(bufferSize int, log *logger.Logger) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan []byte]struct{}),
		bufferSize:  bufferSize,
		log:         log,
	}
}

// Subscribe registers a new listener. The returned cancel func must be
// called when the listener goes away.
func (b *Broadcaster) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, b.bufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}

	return ch, cancel
}

// Publish delivers the event to every subscriber that has buffer space.
func (b *Broadcaster) Publish(event model.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.log.Error("Failed to encode event", "event", event.Name, "error", err)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for ch := range b.subscribers {
		select {
		case ch <- payload:
		default:
			b.log.Warn("Dropping event for slow subscriber", "event", event.Name)
		}
	}
}

// SubscriberCount reports the number of active listeners.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close shuts down all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for ch := range b.subscribers {
		delete(b.subscribers, ch)
		close(ch)
	}
}
