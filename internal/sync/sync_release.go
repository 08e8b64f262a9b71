//go:build !deadlock

// Package sync provides the mutex types guarding repository state and the lock registry.
// Release builds alias the standard library; build with -tags deadlock to swap in go-deadlock.
package sync

import "sync"

// Mutex is the standard sync.Mutex.
type Mutex = sync.Mutex

// RWMutex is the standard sync.RWMutex.
type RWMutex = sync.RWMutex

// Once is the standard sync.Once.
type Once = sync.Once

// WaitGroup is the standard sync.WaitGroup.
type WaitGroup = sync.WaitGroup

// DetectionEnabled reports whether mutexes are instrumented for deadlock detection.
func DetectionEnabled() bool { return false }
