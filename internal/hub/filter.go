package hub

import (
	"sort"

	"github.com/brianly1003/lfsdesk/internal/domain/events"
	"github.com/brianly1003/lfsdesk/internal/domain/ports"
	"github.com/brianly1003/lfsdesk/internal/sync"
)

// FilteredSubscriber wraps a subscriber and forwards only the event types it
// has been asked for. An empty filter forwards everything.
type FilteredSubscriber struct {
	inner ports.Subscriber
	types map[events.EventType]bool
	mu    sync.RWMutex
}

// NewFilteredSubscriber creates a new filtered subscriber wrapping inner.
func NewFilteredSubscriber(inner ports.Subscriber) *FilteredSubscriber {
	return &FilteredSubscriber{
		inner: inner,
		types: make(map[events.EventType]bool),
	}
}

// ID returns the subscriber's unique identifier.
func (f *FilteredSubscriber) ID() string {
	return f.inner.ID()
}

// Send forwards the event if it passes the filter.
func (f *FilteredSubscriber) Send(event events.Event) error {
	if !f.shouldForward(event) {
		return nil
	}
	return f.inner.Send(event)
}

// Close closes the subscriber.
func (f *FilteredSubscriber) Close() error {
	return f.inner.Close()
}

// Done returns a channel that's closed when the subscriber is done.
func (f *FilteredSubscriber) Done() <-chan struct{} {
	return f.inner.Done()
}

// Include adds event types to the filter.
func (f *FilteredSubscriber) Include(types ...events.EventType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range types {
		f.types[t] = true
	}
}

// Exclude removes event types from the filter. Removing the last type turns
// filtering off again.
func (f *FilteredSubscriber) Exclude(types ...events.EventType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range types {
		delete(f.types, t)
	}
}

// IncludeAll clears the filter.
func (f *FilteredSubscriber) IncludeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = make(map[events.EventType]bool)
}

// Types returns the filtered event types, sorted.
func (f *FilteredSubscriber) Types() []events.EventType {
	f.mu.RLock()
	defer f.mu.RUnlock()

	result := make([]events.EventType, 0, len(f.types))
	for t := range f.types {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// IsFiltering returns true if only some event types are forwarded.
func (f *FilteredSubscriber) IsFiltering() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.types) > 0
}

func (f *FilteredSubscriber) shouldForward(event events.Event) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.types) == 0 {
		return true
	}
	return f.types[event.Type()]
}
