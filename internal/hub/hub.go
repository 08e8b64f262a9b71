// Package hub fans lfsdesk events out to every connected client.
package hub

import (
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lfsdesk/internal/domain"
	"github.com/brianly1003/lfsdesk/internal/domain/events"
	"github.com/brianly1003/lfsdesk/internal/domain/ports"
	"github.com/brianly1003/lfsdesk/internal/sync"
)

// DefaultBufferSize is the number of events queued before Publish drops.
const DefaultBufferSize = 256

// Hub is the central event dispatcher.
type Hub struct {
	subscribers map[string]ports.Subscriber

	broadcast  chan events.Event
	register   chan ports.Subscriber
	unregister chan string

	mu      sync.RWMutex
	done    chan struct{}
	running bool
	stopped bool
}

// Option configures a Hub.
type Option func(*Hub)

// WithBufferSize sets the broadcast queue length.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.broadcast = make(chan events.Event, n)
		}
	}
}

// New creates a new Hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		subscribers: make(map[string]ports.Subscriber),
		broadcast:   make(chan events.Event, DefaultBufferSize),
		register:    make(chan ports.Subscriber),
		unregister:  make(chan string),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start begins the hub's main loop. Starting a stopped hub returns
// domain.ErrHubNotRunning.
func (h *Hub) Start() error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	if h.stopped {
		h.mu.Unlock()
		return domain.ErrHubNotRunning
	}
	h.running = true
	h.mu.Unlock()

	log.Debug().Int("buffer", cap(h.broadcast)).Msg("event hub started")

	go h.run()
	return nil
}

// Stop closes every subscriber and ends the main loop. A stopped hub cannot
// be restarted.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	h.stopped = true
	close(h.done)

	for _, sub := range h.subscribers {
		_ = sub.Close()
	}
	h.subscribers = make(map[string]ports.Subscriber)
	h.mu.Unlock()

	log.Debug().Msg("event hub stopped")
	return nil
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return

		case sub := <-h.register:
			h.mu.Lock()
			h.subscribers[sub.ID()] = sub
			h.mu.Unlock()
			log.Debug().Str("subscriber_id", sub.ID()).Msg("subscriber registered")

		case id := <-h.unregister:
			h.remove(id)

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	delete(h.subscribers, id)
	h.mu.Unlock()

	if ok {
		_ = sub.Close()
		log.Debug().Str("subscriber_id", id).Msg("subscriber unregistered")
	}
}

func (h *Hub) deliver(event events.Event) {
	h.mu.RLock()
	var failed []string
	for id, sub := range h.subscribers {
		if err := sub.Send(event); err != nil {
			log.Warn().
				Str("subscriber_id", id).
				Str("event_type", string(event.Type())).
				Err(err).
				Msg("failed to send event to subscriber")
			failed = append(failed, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range failed {
		h.remove(id)
	}
}

// Publish queues an event for every subscriber. It never blocks; when the
// queue is full the event is dropped.
func (h *Hub) Publish(event events.Event) {
	select {
	case h.broadcast <- event:
		log.Trace().Str("event_type", string(event.Type())).Msg("event published")
	default:
		log.Warn().Str("event_type", string(event.Type())).Msg("event dropped: broadcast queue full")
	}
}

// Subscribe adds a new subscriber.
func (h *Hub) Subscribe(sub ports.Subscriber) {
	select {
	case h.register <- sub:
	case <-h.done:
	}
}

// Unsubscribe removes a subscriber by ID and closes it.
func (h *Hub) Unsubscribe(id string) {
	select {
	case h.unregister <- id:
	case <-h.done:
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// IsRunning returns true if the hub is running.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

var _ ports.EventHub = (*Hub)(nil)
