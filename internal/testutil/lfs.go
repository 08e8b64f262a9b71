package testutil

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/brianly1003/lfsdesk/internal/domain"
	"github.com/brianly1003/lfsdesk/internal/domain/ports"
)

// FakeLFS is an in-memory ports.LFSAdapter. Locks it grants are reflected in
// the listing it returns, so a lock followed by a list behaves like a server.
type FakeLFS struct {
	mu sync.Mutex

	// Repos holds directories that count as repositories.
	Repos map[string]bool
	// Tracked is returned by ListTrackedFiles.
	Tracked []string
	// ExtraLines are appended to every ListLocks result.
	ExtraLines []string
	// Owner is reported on acquired locks.
	Owner string

	// Per-operation failures.
	TrackedErr error
	ListErr    error
	AcquireErr error
	ReleaseErr map[uint64]error

	// Gate, when non-nil, blocks AcquireLock and ReleaseLock until it's closed.
	Gate chan struct{}

	nextID uint64
	held   map[string]uint64 // path -> id
	calls  []string
}

// NewFakeLFS returns a fake that treats each of repos as a repository.
func NewFakeLFS(repos ...string) *FakeLFS {
	f := &FakeLFS{
		Repos:      make(map[string]bool),
		Owner:      "alice",
		ReleaseErr: make(map[uint64]error),
		nextID:     1,
		held:       make(map[string]uint64),
	}
	for _, r := range repos {
		f.Repos[r] = true
	}
	return f
}

func (f *FakeLFS) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *FakeLFS) wait(ctx context.Context) error {
	f.mu.Lock()
	gate := f.Gate
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListTrackedFiles returns Tracked.
func (f *FakeLFS) ListTrackedFiles(_ context.Context, repo string) ([]string, error) {
	f.record("ls-files " + repo)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TrackedErr != nil {
		return nil, f.TrackedErr
	}
	return append([]string(nil), f.Tracked...), nil
}

// ListLocks renders held locks as `git lfs locks` lines, then ExtraLines.
func (f *FakeLFS) ListLocks(_ context.Context, repo string) ([]string, error) {
	f.record("locks " + repo)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	lines := make([]string, 0, len(f.held)+len(f.ExtraLines))
	for path, id := range f.held {
		lines = append(lines, fmt.Sprintf("%s\t%s\tID:%d", path, f.Owner, id))
	}
	return append(lines, f.ExtraLines...), nil
}

// AcquireLock grants a lock with the next id.
func (f *FakeLFS) AcquireLock(ctx context.Context, repo, path string) (domain.LockEntry, error) {
	f.record("lock " + path)
	if err := f.wait(ctx); err != nil {
		return domain.LockEntry{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AcquireErr != nil {
		return domain.LockEntry{}, f.AcquireErr
	}
	if _, ok := f.held[path]; ok {
		return domain.LockEntry{}, domain.NewAdapterError("lock", errors.New("exit status 2"), "Lock exists")
	}
	id := f.nextID
	f.nextID++
	f.held[path] = id
	return domain.LockEntry{
		ID:       strconv.FormatUint(id, 10),
		Path:     path,
		Owner:    domain.LockOwner{Name: f.Owner},
		LockedAt: "2024-01-01T00:00:00Z",
	}, nil
}

// ReleaseLock drops the lock with id. Unknown ids fail like the real CLI.
func (f *FakeLFS) ReleaseLock(ctx context.Context, repo string, id uint64) error {
	f.record("unlock " + strconv.FormatUint(id, 10))
	if err := f.wait(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ReleaseErr[id]; err != nil {
		return err
	}
	for path, held := range f.held {
		if held == id {
			delete(f.held, path)
			return nil
		}
	}
	return domain.NewAdapterError("unlock", errors.New("exit status 2"), "unable to find lock")
}

// IsRepository reports whether dir is in Repos.
func (f *FakeLFS) IsRepository(dir string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Repos[dir]
}

// Hold pre-registers a lock on the fake server and returns its id.
func (f *FakeLFS) Hold(path string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.held[path] = id
	return id
}

// Held returns the ids currently held, by path.
func (f *FakeLFS) Held() map[string]uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]uint64, len(f.held))
	for k, v := range f.held {
		out[k] = v
	}
	return out
}

// Calls returns the operations invoked so far.
func (f *FakeLFS) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// SetGate installs or clears the gate.
func (f *FakeLFS) SetGate(gate chan struct{}) {
	f.mu.Lock()
	f.Gate = gate
	f.mu.Unlock()
}

var _ ports.LFSAdapter = (*FakeLFS)(nil)

// FakePicker returns scripted picker results in order. After the script runs
// out every pick is a cancel.
type FakePicker struct {
	mu      sync.Mutex
	results []PickResult
}

// PickResult is one scripted outcome of FakePicker.Pick.
type PickResult struct {
	Path string
	OK   bool
	Err  error
}

// NewFakePicker creates a picker that yields results in order.
func NewFakePicker(results ...PickResult) *FakePicker {
	return &FakePicker{results: results}
}

// Pick pops the next scripted result.
func (p *FakePicker) Pick(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.results) == 0 {
		return "", false, nil
	}
	r := p.results[0]
	p.results = p.results[1:]
	return r.Path, r.OK, r.Err
}

// Queue appends more scripted results.
func (p *FakePicker) Queue(results ...PickResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, results...)
}

var _ ports.FolderPicker = (*FakePicker)(nil)
