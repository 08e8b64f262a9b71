package domain

import (
	"strconv"
	"strings"
)

// LockOwner identifies who holds a lock on the LFS server.
type LockOwner struct {
	Name string `json:"name"`
}

// LockEntry is a single lock as reported by `git lfs lock --json`.
// Values are immutable once decoded.
type LockEntry struct {
	ID       string    `json:"id"`
	Path     string    `json:"path"`
	Owner    LockOwner `json:"owner"`
	LockedAt string    `json:"locked_at"`
}

// NumericID parses the lock id as an unsigned integer.
// The LFS server reports ids as strings; the registry and unlock requests use numbers.
func (e LockEntry) NumericID() (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(e.ID), 10, 64)
	if err != nil {
		return 0, NewValidationError("id", "lock id is not numeric: "+e.ID)
	}
	return id, nil
}
