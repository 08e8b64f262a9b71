package watcher

import (
	"time"

	"github.com/brianly1003/lfsdesk/internal/sync"
)

// Debouncer coalesces bursts of events per key into a single callback fired
// once the key has been quiet for the window.
type Debouncer struct {
	window   time.Duration
	callback func(key string)

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
}

// NewDebouncer creates a new debouncer with the given window and callback.
func NewDebouncer(window time.Duration, callback func(key string)) *Debouncer {
	return &Debouncer{
		window:   window,
		callback: callback,
		pending:  make(map[string]*time.Timer),
	}
}

// Add queues key, restarting its window if it is already pending.
func (d *Debouncer) Add(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if timer, ok := d.pending[key]; ok {
		timer.Stop()
	}
	d.pending[key] = time.AfterFunc(d.window, func() {
		d.fire(key)
	})
}

func (d *Debouncer) fire(key string) {
	d.mu.Lock()
	if _, ok := d.pending[key]; !ok {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	stopped := d.stopped
	d.mu.Unlock()

	if !stopped && d.callback != nil {
		d.callback(key)
	}
}

// Pending returns the number of keys waiting to fire.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels all pending timers. Later Adds are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for _, timer := range d.pending {
		timer.Stop()
	}
	d.pending = make(map[string]*time.Timer)
}
