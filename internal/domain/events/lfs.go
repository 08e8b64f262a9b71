package events

// RepositorySelectedPayload is the payload for repository_selected events.
type RepositorySelectedPayload struct {
	Path         string `json:"path"`
	TrackedFiles int    `json:"tracked_files"`
}

// RepositoryChangedPayload is the payload for repository_changed events.
type RepositoryChangedPayload struct {
	File string `json:"file"`
}

// LocksRefreshedPayload is the payload for locks_refreshed events.
type LocksRefreshedPayload struct {
	Count   int `json:"count"`
	Skipped int `json:"skipped,omitempty"` // malformed lines dropped by the parser
}

// LockPayload is the payload for lock_acquired and lock_released events.
type LockPayload struct {
	Path  string `json:"path"`
	ID    uint64 `json:"id"`
	Owner string `json:"owner,omitempty"`
}

// EchoPayload is the payload for echo events.
type EchoPayload struct {
	Message string `json:"message"`
}

// NewRepositorySelectedEvent creates a new repository_selected event.
func NewRepositorySelectedEvent(path string, trackedFiles int) *BaseEvent {
	return NewRepositoryEvent(EventTypeRepositorySelected, path, RepositorySelectedPayload{
		Path:         path,
		TrackedFiles: trackedFiles,
	})
}

// NewRepositoryChangedEvent creates a new repository_changed event.
func NewRepositoryChangedEvent(repo, file string) *BaseEvent {
	return NewRepositoryEvent(EventTypeRepositoryChanged, repo, RepositoryChangedPayload{File: file})
}

// NewLocksRefreshedEvent creates a new locks_refreshed event.
func NewLocksRefreshedEvent(repo string, count, skipped int) *BaseEvent {
	return NewRepositoryEvent(EventTypeLocksRefreshed, repo, LocksRefreshedPayload{
		Count:   count,
		Skipped: skipped,
	})
}

// NewLockAcquiredEvent creates a new lock_acquired event.
func NewLockAcquiredEvent(repo, path string, id uint64, owner string) *BaseEvent {
	return NewRepositoryEvent(EventTypeLockAcquired, repo, LockPayload{
		Path:  path,
		ID:    id,
		Owner: owner,
	})
}

// NewLockReleasedEvent creates a new lock_released event.
func NewLockReleasedEvent(repo, path string, id uint64) *BaseEvent {
	return NewRepositoryEvent(EventTypeLockReleased, repo, LockPayload{
		Path: path,
		ID:   id,
	})
}

// NewEchoEvent creates a new echo event.
func NewEchoEvent(message string) *BaseEvent {
	return NewEvent(EventTypeEcho, EchoPayload{Message: message})
}
