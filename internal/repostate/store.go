// Package repostate holds the active repository and its cached LFS file index.
package repostate

import (
	"github.com/brianly1003/lfsdesk/internal/sync"
)

// Snapshot is a consistent view of the repository state.
type Snapshot struct {
	Path         string
	TrackedFiles []string
}

// Selected reports whether a repository is active.
func (s Snapshot) Selected() bool {
	return s.Path != ""
}

// Store holds the active repository path and its tracked files.
// The tracked-files slice is replaced wholesale, never mutated in place, so a
// snapshot handed to a reader stays valid after a later selection.
type Store struct {
	mu           sync.RWMutex
	path         string
	trackedFiles []string
}

// NewStore creates a store with no repository selected.
func NewStore() *Store {
	return &Store{trackedFiles: []string{}}
}

// Replace sets the active repository and its tracked files in one step.
func (s *Store) Replace(path string, trackedFiles []string) {
	files := make([]string, len(trackedFiles))
	copy(files, trackedFiles)

	s.mu.Lock()
	s.path = path
	s.trackedFiles = files
	s.mu.Unlock()
}

// Snapshot returns the current path and tracked files.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Path: s.path, TrackedFiles: s.trackedFiles}
}

// Path returns the active repository path, or "" when none is selected.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// TrackedFiles returns the cached tracked files. Callers must not modify the slice.
func (s *Store) TrackedFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trackedFiles
}
