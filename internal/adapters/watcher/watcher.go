// Package watcher notices edits to the active repository's LFS configuration
// files and tells clients their tracked-file list may be out of date.
package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lfsdesk/internal/domain/events"
	"github.com/brianly1003/lfsdesk/internal/domain/ports"
	"github.com/brianly1003/lfsdesk/internal/sync"
)

// DefaultFiles are the repository-root files whose changes affect what LFS tracks.
var DefaultFiles = []string{".gitattributes", ".lfsconfig"}

// DefaultDebounceMS is used when no debounce window is configured.
const DefaultDebounceMS = 250

// Watcher implements ports.RepositoryWatcher. It watches the root directory of
// one repository at a time rather than the files themselves, since editors
// commonly save by renaming a temp file over the original.
type Watcher struct {
	publisher  ports.EventPublisher
	debounceMS int
	files      map[string]bool

	mu        sync.RWMutex
	fsw       *fsnotify.Watcher
	repo      string
	running   bool
	cancel    context.CancelFunc
	debouncer *Debouncer
}

// NewWatcher creates a watcher that publishes repository_changed events.
// With no files given, DefaultFiles are watched.
func NewWatcher(publisher ports.EventPublisher, debounceMS int, files ...string) *Watcher {
	if debounceMS <= 0 {
		debounceMS = DefaultDebounceMS
	}
	if len(files) == 0 {
		files = DefaultFiles
	}
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[f] = true
	}
	return &Watcher{
		publisher:  publisher,
		debounceMS: debounceMS,
		files:      set,
	}
}

// Watch switches to repo. Before Start it only records the path.
func (w *Watcher) Watch(repo string) error {
	repo = filepath.Clean(repo)

	w.mu.Lock()
	defer w.mu.Unlock()

	if repo == w.repo {
		return nil
	}
	old := w.repo
	w.repo = repo

	if !w.running {
		return nil
	}
	if old != "" {
		_ = w.fsw.Remove(old)
	}
	if err := w.fsw.Add(repo); err != nil {
		return err
	}

	log.Debug().Str("repo", repo).Msg("watching repository")
	return nil
}

// Start begins processing filesystem events.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if w.repo != "" {
		if err := fsw.Add(w.repo); err != nil {
			_ = fsw.Close()
			return err
		}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.debouncer = NewDebouncer(time.Duration(w.debounceMS)*time.Millisecond, w.handleDebounced)
	w.running = true

	go w.eventLoop(watchCtx, fsw)

	log.Info().
		Str("repo", w.repo).
		Int("debounce_ms", w.debounceMS).
		Msg("repository watcher started")

	return nil
}

// Stop terminates watching.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	w.cancel()
	w.debouncer.Stop()

	err := w.fsw.Close()
	w.fsw = nil
	log.Info().Msg("repository watcher stopped")
	return err
}

// IsRunning returns true if the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Repository returns the directory currently watched.
func (w *Watcher) Repository() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.repo
}

func (w *Watcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}

	w.mu.RLock()
	relevant := w.running && w.matches(event.Name)
	debouncer := w.debouncer
	w.mu.RUnlock()

	if relevant {
		debouncer.Add(event.Name)
	}
}

// matches reports whether name is a watched file in the current repo.
// Callers hold w.mu.
func (w *Watcher) matches(name string) bool {
	return filepath.Dir(name) == w.repo && w.files[filepath.Base(name)]
}

func (w *Watcher) handleDebounced(name string) {
	w.mu.RLock()
	current := w.matches(name)
	repo := w.repo
	w.mu.RUnlock()

	// The repository was switched while the event was pending.
	if !current {
		return
	}

	file := filepath.Base(name)
	log.Debug().Str("repo", repo).Str("file", file).Msg("repository configuration changed")
	w.publisher.Publish(events.NewRepositoryChangedEvent(repo, file))
}

var _ ports.RepositoryWatcher = (*Watcher)(nil)
