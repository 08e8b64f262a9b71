// Package locks holds the in-memory view of which LFS paths are locked and by whom.
package locks

import (
	"sort"

	"github.com/samber/lo"

	"github.com/brianly1003/lfsdesk/internal/sync"
)

// Entry is what the registry knows about one locked path.
type Entry struct {
	Owner string `json:"owner"`
	ID    uint64 `json:"id"`
}

// Lock is an Entry together with its path.
type Lock struct {
	Path string `json:"path"`
	Entry
}

// Registry maps repository-relative paths to lock metadata.
//
// A full refresh replaces the whole map; lock and unlock apply single inserts and
// removals that stay provisional until the next refresh. Every mutation is tagged
// with the generation it was started under, and mutations from an older generation
// are dropped so a previous repository's results never land in the current one.
type Registry struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	trusted    bool
	generation uint64
}

// NewRegistry creates an empty, untrusted registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Entry),
	}
}

// Generation returns the current generation.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Invalidate empties the registry, marks it untrusted and starts a new generation.
// It returns the new generation.
func (r *Registry) Invalidate() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	r.entries = make(map[string]Entry)
	r.trusted = false
	return r.generation
}

// Replace swaps in a freshly parsed listing and marks the registry trusted.
// It reports false, leaving the registry untouched, when gen is stale.
func (r *Registry) Replace(gen uint64, entries map[string]Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation {
		return false
	}

	fresh := make(map[string]Entry, len(entries))
	for path, e := range entries {
		fresh[path] = e
	}
	r.entries = fresh
	r.trusted = true
	return true
}

// Insert records a lock confirmed by the LFS server.
// It reports false when gen is stale.
func (r *Registry) Insert(gen uint64, path string, e Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation {
		return false
	}
	r.entries[path] = e
	return true
}

// RemoveByID drops the entry holding id and returns its path.
// removed is false when gen is stale or no entry holds id.
func (r *Registry) RemoveByID(gen uint64, id uint64) (path string, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation {
		return "", false
	}
	for p, e := range r.entries {
		if e.ID == id {
			delete(r.entries, p)
			return p, true
		}
	}
	return "", false
}

// Lookup returns the entry for path.
func (r *Registry) Lookup(path string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[path]
	return e, ok
}

// FindByID returns the lock holding id.
func (r *Registry) FindByID(id uint64) (Lock, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for p, e := range r.entries {
		if e.ID == id {
			return Lock{Path: p, Entry: e}, true
		}
	}
	return Lock{}, false
}

// Snapshot returns every lock sorted by path.
func (r *Registry) Snapshot() []Lock {
	r.mu.RLock()
	locks := lo.MapToSlice(r.entries, func(p string, e Entry) Lock {
		return Lock{Path: p, Entry: e}
	})
	r.mu.RUnlock()

	sort.Slice(locks, func(i, j int) bool { return locks[i].Path < locks[j].Path })
	return locks
}

// Len returns the number of registered locks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Trusted reports whether the registry reflects a full refresh of the current generation.
func (r *Registry) Trusted() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trusted
}
