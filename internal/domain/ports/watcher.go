package ports

import "context"

// RepositoryWatcher watches the active repository for changes to LFS tracking rules.
type RepositoryWatcher interface {
	// Watch switches the watcher to repo, dropping any previous watch.
	Watch(repo string) error

	// Start begins processing filesystem events.
	Start(ctx context.Context) error

	// Stop terminates watching.
	Stop() error

	// IsRunning returns true if the watcher is active.
	IsRunning() bool
}
