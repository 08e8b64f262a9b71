//go:build deadlock

// Package sync provides the mutex types guarding repository state and the lock registry.
// This build wraps go-deadlock so lock-order inversions between the state store and
// the registry are reported instead of hanging.
package sync

import (
	"os"
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Mutex is a go-deadlock mutex.
type Mutex = deadlock.Mutex

// RWMutex is a go-deadlock reader/writer mutex.
type RWMutex = deadlock.RWMutex

// Once is the standard sync.Once.
type Once = sync.Once

// WaitGroup is the standard sync.WaitGroup.
type WaitGroup = sync.WaitGroup

// DetectionEnabled reports whether mutexes are instrumented for deadlock detection.
func DetectionEnabled() bool { return !deadlock.Opts.Disable }

func init() {
	// git lfs calls never run under a lock, so anything held this long is a bug.
	deadlock.Opts.DeadlockTimeout = 30 * time.Second

	if os.Getenv("LFSDESK_NO_DEADLOCK_DETECT") != "" {
		deadlock.Opts.Disable = true
		return
	}

	deadlock.Opts.PrintAllCurrentGoroutines = true

	println("[DEADLOCK DETECTION ENABLED] Using go-deadlock for mutex operations")
}
