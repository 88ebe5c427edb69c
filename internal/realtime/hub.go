// Package realtime fans committed change events out to subscribers. The
// in-memory store and the backend's gRPC stream both sit on top of Hub.
package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/socialhub/internal/models"
)

// DefaultBuffer is the per-subscriber queue length used when none is given.
const DefaultBuffer = 64

// Hub delivers published events to every subscriber whose collection and
// event filter match. Publish never blocks: events for a subscriber whose
// queue is full are dropped and counted.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[*Subscriber]struct{})}
}

// Subscriber is one registration on a Hub.
type Subscriber struct {
	hub        *Hub
	collection string
	event      models.EventType
	ch         chan models.ChangeEvent
	dropped    atomic.Int64
	closeOnce  sync.Once
}

// Subscribe registers a subscriber for collection and event. buffer <= 0
// means DefaultBuffer.
func (h *Hub) Subscribe(collection string, event models.EventType, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &Subscriber{
		hub:        h,
		collection: collection,
		event:      event,
		ch:         make(chan models.ChangeEvent, buffer),
	}

	h.mu.Lock()
	h.subscribers[s] = struct{}{}
	h.mu.Unlock()

	return s
}

// Publish hands ev to all matching subscribers and returns how many got it.
func (h *Hub) Publish(ev models.ChangeEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.subscribers {
		if s.collection != ev.Collection || !s.event.Matches(ev.Type) {
			continue
		}
		select {
		case s.ch <- ev:
			delivered++
		default:
			s.dropped.Add(1)
		}
	}
	return delivered
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Events is closed once the subscriber is closed.
func (s *Subscriber) Events() <-chan models.ChangeEvent {
	return s.ch
}

// Dropped reports how many events were lost to a full queue.
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

// Close unregisters the subscriber and closes its channel. Safe to call
// more than once.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subscribers, s)
		close(s.ch)
		s.hub.mu.Unlock()
	})
}
