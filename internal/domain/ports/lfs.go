// Package ports defines the interfaces (ports) for the hexagonal architecture.
package ports

import (
	"context"

	"github.com/brianly1003/lfsdesk/internal/domain"
)

// LFSAdapter runs git lfs against a repository directory.
// Implementations never hold repository state; the repo path is passed on every call.
type LFSAdapter interface {
	// ListTrackedFiles returns the paths of files tracked by LFS (`git lfs ls-files -n`).
	ListTrackedFiles(ctx context.Context, repo string) ([]string, error)

	// ListLocks returns the raw lines of `git lfs locks`, one lock per line.
	ListLocks(ctx context.Context, repo string) ([]string, error)

	// AcquireLock locks path on the LFS server (`git lfs lock <path> --json`).
	AcquireLock(ctx context.Context, repo, path string) (domain.LockEntry, error)

	// ReleaseLock releases the lock with the given id (`git lfs unlock -i <id>`).
	ReleaseLock(ctx context.Context, repo string, id uint64) error

	// IsRepository reports whether dir carries a .git marker.
	IsRepository(dir string) bool
}

// FolderPicker asks the user for a repository folder.
type FolderPicker interface {
	// Pick returns the chosen folder. ok is false when the user cancelled.
	Pick(ctx context.Context) (path string, ok bool, err error)
}
