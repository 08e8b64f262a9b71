// Package commands defines the request discriminators and the tagged responses of lfsdesk.
package commands

import "github.com/brianly1003/lfsdesk/internal/domain"

// CommandType is the JSON-RPC method name that selects a command.
type CommandType string

const (
	CommandEcho             CommandType = "echo"
	CommandSelectRepository CommandType = "repository/select"
	CommandRepositoryStatus CommandType = "repository/status"
	CommandListLockedFiles  CommandType = "locks/list"
	CommandGetLocks         CommandType = "locks/get"
	CommandLockFile         CommandType = "locks/acquire"
	CommandUnlockFile       CommandType = "locks/release"
	CommandUnlockAll        CommandType = "locks/release_all"
	CommandFilterFiles      CommandType = "files/filter"
	CommandListHistory      CommandType = "history/list"
)

// Kind discriminates a response payload.
type Kind string

const (
	KindPickRepo         Kind = "pickRepo"
	KindLockedFiles      Kind = "lockedFiles"
	KindFilteredFiles    Kind = "filteredFiles"
	KindLockFile         Kind = "lockFile"
	KindUnlockFile       Kind = "unlockFile"
	KindUnlockAll        Kind = "unlockAll"
	KindRepositoryStatus Kind = "repositoryStatus"
	KindLockRegistry     Kind = "lockRegistry"
	KindHistory          Kind = "history"
	KindAccepted         Kind = "accepted"
)

// Completion carries the optional opaque handles a client attaches to a request
// that triggers external work. When either is set the request is acknowledged
// immediately and the outcome is delivered later as a notification.
type Completion struct {
	Callback string `json:"callback,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Deferred reports whether the caller asked for out-of-band delivery.
func (c Completion) Deferred() bool {
	return c.Callback != "" || c.Error != ""
}

// PickRepoResult answers repository/select. Path is empty when the selection was
// cancelled or the folder was not a repository.
type PickRepoResult struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path"`
}

// LockedFilesResult answers locks/list with the raw lines of the lock listing.
type LockedFilesResult struct {
	Kind        Kind     `json:"kind"`
	LockedFiles []string `json:"locked_files"`
}

// FilteredFilesResult answers files/filter.
type FilteredFilesResult struct {
	Kind          Kind     `json:"kind"`
	FilteredFiles []string `json:"filtered_files"`
}

// LockFileResult answers locks/acquire.
type LockFileResult struct {
	Kind      Kind             `json:"kind"`
	LockEntry domain.LockEntry `json:"lock_entry"`
}

// UnlockFileResult answers locks/release.
type UnlockFileResult struct {
	Kind Kind   `json:"kind"`
	ID   uint64 `json:"id"`
}

// ReleaseFailure is one lock that could not be released by locks/release_all.
type ReleaseFailure struct {
	ID    uint64 `json:"id"`
	Path  string `json:"path"`
	Error string `json:"error"`
}

// UnlockAllResult answers locks/release_all.
type UnlockAllResult struct {
	Kind     Kind             `json:"kind"`
	Released []uint64         `json:"released"`
	Failed   []ReleaseFailure `json:"failed,omitempty"`
}

// RepositoryStatusResult answers repository/status.
type RepositoryStatusResult struct {
	Kind            Kind   `json:"kind"`
	Path            string `json:"path"`
	TrackedFiles    int    `json:"tracked_files"`
	Locks           int    `json:"locks"`
	RegistryTrusted bool   `json:"registry_trusted"`
	Generation      uint64 `json:"generation"`
}

// LockInfo is one registry entry as exposed by locks/get.
type LockInfo struct {
	Path  string `json:"path"`
	Owner string `json:"owner"`
	ID    uint64 `json:"id"`
}

// LockRegistryResult answers locks/get.
type LockRegistryResult struct {
	Kind    Kind       `json:"kind"`
	Trusted bool       `json:"trusted"`
	Locks   []LockInfo `json:"locks"`
}

// HistoryRecord is one journal row returned by history/list.
type HistoryRecord struct {
	ID         int64  `json:"id"`
	Repository string `json:"repository"`
	Action     string `json:"action"`
	Path       string `json:"path,omitempty"`
	LockID     uint64 `json:"lock_id,omitempty"`
	Outcome    string `json:"outcome"`
	Detail     string `json:"detail,omitempty"`
	RecordedAt string `json:"recorded_at"`
}

// HistoryResult answers history/list.
type HistoryResult struct {
	Kind    Kind            `json:"kind"`
	Records []HistoryRecord `json:"records"`
}

// AcceptedResult acknowledges a deferred request.
type AcceptedResult struct {
	Kind        Kind   `json:"kind"`
	OperationID string `json:"operation_id"`
}
