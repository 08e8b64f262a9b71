// Package lfsdesk is the core of the lock dispatcher. Service is the single
// owner of the repository state and the lock registry; everything else reaches
// them through its methods.
package lfsdesk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lfsdesk/internal/domain"
	"github.com/brianly1003/lfsdesk/internal/domain/commands"
	"github.com/brianly1003/lfsdesk/internal/domain/events"
	"github.com/brianly1003/lfsdesk/internal/domain/ports"
	"github.com/brianly1003/lfsdesk/internal/history"
	"github.com/brianly1003/lfsdesk/internal/locks"
	"github.com/brianly1003/lfsdesk/internal/pathutil"
	"github.com/brianly1003/lfsdesk/internal/repostate"
	"github.com/brianly1003/lfsdesk/internal/search"
	"github.com/brianly1003/lfsdesk/internal/sync"
)

// Journal records lock activity. *history.Journal implements it.
type Journal interface {
	Record(ctx context.Context, r history.Record) error
	List(ctx context.Context, limit int) ([]history.Record, error)
}

// Options configures a Service. Adapter and Picker are required.
type Options struct {
	Adapter   ports.LFSAdapter
	Picker    ports.FolderPicker
	Publisher ports.EventPublisher    // optional
	Watcher   ports.RepositoryWatcher // optional
	Journal   Journal                 // optional; nil disables history
	// SearchLimit caps filter results. Zero means search.DefaultLimit.
	SearchLimit int
}

// Service runs lfsdesk commands.
//
// stateMu pairs the active repository with the registry generation: selection
// swaps both under the write lock, and every command captures both under the
// read lock before calling out. No lock is held while git runs.
type Service struct {
	adapter     ports.LFSAdapter
	picker      ports.FolderPicker
	publisher   ports.EventPublisher
	watcher     ports.RepositoryWatcher
	journal     Journal
	searchLimit int

	stateMu  sync.RWMutex
	store    *repostate.Store
	registry *locks.Registry
}

// NewService creates a Service with no repository selected.
func NewService(opts Options) (*Service, error) {
	if opts.Adapter == nil {
		return nil, errors.New("lfsdesk: adapter is required")
	}
	if opts.Picker == nil {
		return nil, errors.New("lfsdesk: folder picker is required")
	}
	limit := opts.SearchLimit
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	return &Service{
		adapter:     opts.Adapter,
		picker:      opts.Picker,
		publisher:   opts.Publisher,
		watcher:     opts.Watcher,
		journal:     opts.Journal,
		searchLimit: limit,
		store:       repostate.NewStore(),
		registry:    locks.NewRegistry(),
	}, nil
}

// current returns the active repository and the registry generation it owns.
func (s *Service) current() (string, uint64) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.store.Path(), s.registry.Generation()
}

// SelectRepository asks the picker for a folder and makes it the active
// repository. A cancelled pick or a folder without a .git marker yields an
// empty path and leaves the current state alone.
func (s *Service) SelectRepository(ctx context.Context) (commands.PickRepoResult, error) {
	ctx = context.WithoutCancel(ctx)
	cancelled := commands.PickRepoResult{Kind: commands.KindPickRepo}

	path, ok, err := s.picker.Pick(ctx)
	if err != nil {
		return cancelled, fmt.Errorf("pick repository: %w", err)
	}
	if !ok || path == "" {
		log.Debug().Err(domain.ErrSelectionCancelled).Msg("repository selection cancelled")
		return cancelled, nil
	}
	if !s.adapter.IsRepository(path) {
		log.Warn().Err(domain.ErrInvalidRepository).Str("path", path).Msg("selected folder is not a repository")
		return cancelled, nil
	}

	files, err := s.adapter.ListTrackedFiles(ctx, path)
	if err != nil {
		s.record(ctx, history.Record{Repository: path, Action: history.ActionSelect, Outcome: history.OutcomeFailed, Detail: err.Error()})
		return cancelled, err
	}

	s.stateMu.Lock()
	s.store.Replace(path, files)
	gen := s.registry.Invalidate()
	s.stateMu.Unlock()

	log.Info().
		Str("repo", path).
		Int("tracked_files", len(files)).
		Uint64("generation", gen).
		Msg("repository selected")

	if s.watcher != nil {
		if err := s.watcher.Watch(path); err != nil {
			log.Warn().Err(err).Str("repo", path).Msg("failed to watch repository")
		}
	}
	s.publish(events.NewRepositorySelectedEvent(path, len(files)))
	s.record(ctx, history.Record{
		Repository: path,
		Action:     history.ActionSelect,
		Outcome:    history.OutcomeOK,
		Detail:     fmt.Sprintf("%d tracked files", len(files)),
	})

	return commands.PickRepoResult{Kind: commands.KindPickRepo, Path: path}, nil
}

// ListLockedFiles refreshes the registry from the lock listing and returns the
// raw lines. With no repository selected the result is empty.
func (s *Service) ListLockedFiles(ctx context.Context) (commands.LockedFilesResult, error) {
	ctx = context.WithoutCancel(ctx)
	result := commands.LockedFilesResult{Kind: commands.KindLockedFiles, LockedFiles: []string{}}

	repo, gen := s.current()
	if repo == "" {
		return result, nil
	}

	lines, err := s.adapter.ListLocks(ctx, repo)
	if err != nil {
		s.record(ctx, history.Record{Repository: repo, Action: history.ActionRefresh, Outcome: history.OutcomeFailed, Detail: err.Error()})
		return result, err
	}

	entries, skipped := locks.ParseListing(lines)
	for _, line := range skipped {
		log.Warn().Str("repo", repo).Str("line", line).Msg("skipping malformed lock line")
	}

	if s.registry.Replace(gen, entries) {
		log.Debug().Str("repo", repo).Int("locks", len(entries)).Msg("lock registry refreshed")
		s.publish(events.NewLocksRefreshedEvent(repo, len(entries), len(skipped)))
	} else {
		log.Debug().Str("repo", repo).Msg("discarding lock refresh for a previous repository")
	}
	s.record(ctx, history.Record{
		Repository: repo,
		Action:     history.ActionRefresh,
		Outcome:    history.OutcomeOK,
		Detail:     fmt.Sprintf("%d locks, %d skipped", len(entries), len(skipped)),
	})

	if lines != nil {
		result.LockedFiles = lines
	}
	return result, nil
}

// FilterFiles fuzzy-matches query against the tracked files.
func (s *Service) FilterFiles(_ context.Context, query string) commands.FilteredFilesResult {
	files := s.store.TrackedFiles()
	return commands.FilteredFilesResult{
		Kind:          commands.KindFilteredFiles,
		FilteredFiles: search.Filter(files, query, s.searchLimit),
	}
}

// LockFile acquires a lock on path. A path the registry already holds is
// refused without calling git; the caller should refresh and retry.
func (s *Service) LockFile(ctx context.Context, path string) (commands.LockFileResult, error) {
	ctx = context.WithoutCancel(ctx)
	result := commands.LockFileResult{Kind: commands.KindLockFile}

	path = strings.TrimSpace(path)
	if path == "" {
		return result, domain.NewValidationError("path", domain.ErrEmptyPath.Error())
	}

	repo, gen := s.current()
	if repo == "" {
		return result, domain.ErrNoRepository
	}
	rel, err := pathutil.RepoRelative(repo, path)
	if err != nil {
		return result, domain.NewValidationError("path", err.Error())
	}
	path = rel
	if held, ok := s.registry.Lookup(path); ok {
		return result, &domain.StaleRegistryError{Path: path, Owner: held.Owner, ID: held.ID}
	}

	entry, err := s.adapter.AcquireLock(ctx, repo, path)
	if err != nil {
		s.record(ctx, history.Record{Repository: repo, Action: history.ActionAcquire, Path: path, Outcome: history.OutcomeFailed, Detail: err.Error()})
		return result, err
	}
	if entry.Path == "" {
		entry.Path = path
	}
	id, err := entry.NumericID()
	if err != nil {
		return result, domain.NewAdapterError("lock", domain.ErrMalformedLockJSON, err.Error())
	}

	if !s.registry.Insert(gen, entry.Path, locks.Entry{Owner: entry.Owner.Name, ID: id}) {
		log.Debug().Str("path", entry.Path).Uint64("id", id).Msg("lock acquired for a previous repository, not registered")
	}

	log.Info().Str("repo", repo).Str("path", entry.Path).Uint64("id", id).Msg("lock acquired")
	s.publish(events.NewLockAcquiredEvent(repo, entry.Path, id, entry.Owner.Name))
	s.record(ctx, history.Record{Repository: repo, Action: history.ActionAcquire, Path: entry.Path, LockID: id, Outcome: history.OutcomeOK})

	result.LockEntry = entry
	return result, nil
}

// UnlockFile releases the lock with id. An id the registry does not know, or
// a call made before any repository is selected, is a successful no-op.
func (s *Service) UnlockFile(ctx context.Context, id uint64) (commands.UnlockFileResult, error) {
	ctx = context.WithoutCancel(ctx)
	result := commands.UnlockFileResult{Kind: commands.KindUnlockFile, ID: id}

	repo, gen := s.current()
	if repo == "" {
		log.Debug().Uint64("id", id).Msg("unlock without a repository ignored")
		return result, nil
	}

	held, ok := s.registry.FindByID(id)
	if !ok {
		log.Debug().Uint64("id", id).Msg("unlock of unknown lock id ignored")
		return result, nil
	}

	if err := s.release(ctx, repo, gen, held); err != nil {
		return result, err
	}
	return result, nil
}

// UnlockAll releases every lock in the registry, one git call per lock.
// Failures are collected rather than stopping the sweep.
func (s *Service) UnlockAll(ctx context.Context) (commands.UnlockAllResult, error) {
	ctx = context.WithoutCancel(ctx)
	result := commands.UnlockAllResult{Kind: commands.KindUnlockAll, Released: []uint64{}}

	repo, gen := s.current()
	if repo == "" {
		return result, domain.ErrNoRepository
	}

	for _, held := range s.registry.Snapshot() {
		if err := s.release(ctx, repo, gen, held); err != nil {
			result.Failed = append(result.Failed, commands.ReleaseFailure{
				ID:    held.ID,
				Path:  held.Path,
				Error: err.Error(),
			})
			continue
		}
		result.Released = append(result.Released, held.ID)
	}

	log.Info().
		Str("repo", repo).
		Int("released", len(result.Released)).
		Int("failed", len(result.Failed)).
		Msg("released all locks")
	return result, nil
}

func (s *Service) release(ctx context.Context, repo string, gen uint64, held locks.Lock) error {
	if err := s.adapter.ReleaseLock(ctx, repo, held.ID); err != nil {
		s.record(ctx, history.Record{Repository: repo, Action: history.ActionRelease, Path: held.Path, LockID: held.ID, Outcome: history.OutcomeFailed, Detail: err.Error()})
		return err
	}

	s.registry.RemoveByID(gen, held.ID)

	log.Info().Str("repo", repo).Str("path", held.Path).Uint64("id", held.ID).Msg("lock released")
	s.publish(events.NewLockReleasedEvent(repo, held.Path, held.ID))
	s.record(ctx, history.Record{Repository: repo, Action: history.ActionRelease, Path: held.Path, LockID: held.ID, Outcome: history.OutcomeOK})
	return nil
}

// Status reports the active repository and registry state.
func (s *Service) Status(_ context.Context) commands.RepositoryStatusResult {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	snap := s.store.Snapshot()
	return commands.RepositoryStatusResult{
		Kind:            commands.KindRepositoryStatus,
		Path:            snap.Path,
		TrackedFiles:    len(snap.TrackedFiles),
		Locks:           s.registry.Len(),
		RegistryTrusted: s.registry.Trusted(),
		Generation:      s.registry.Generation(),
	}
}

// Locks returns the registry contents without calling git.
func (s *Service) Locks(_ context.Context) commands.LockRegistryResult {
	snapshot := s.registry.Snapshot()
	infos := make([]commands.LockInfo, len(snapshot))
	for i, l := range snapshot {
		infos[i] = commands.LockInfo{Path: l.Path, Owner: l.Owner, ID: l.ID}
	}
	return commands.LockRegistryResult{
		Kind:    commands.KindLockRegistry,
		Trusted: s.registry.Trusted(),
		Locks:   infos,
	}
}

// History returns up to limit journal records, newest first.
func (s *Service) History(ctx context.Context, limit int) (commands.HistoryResult, error) {
	result := commands.HistoryResult{Kind: commands.KindHistory, Records: []commands.HistoryRecord{}}
	if s.journal == nil {
		return result, domain.ErrHistoryDisabled
	}

	records, err := s.journal.List(ctx, limit)
	if err != nil {
		return result, err
	}
	for _, r := range records {
		result.Records = append(result.Records, commands.HistoryRecord{
			ID:         r.ID,
			Repository: r.Repository,
			Action:     r.Action,
			Path:       r.Path,
			LockID:     r.LockID,
			Outcome:    r.Outcome,
			Detail:     r.Detail,
			RecordedAt: r.RecordedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	return result, nil
}

// Echo logs message and republishes it to connected clients.
func (s *Service) Echo(_ context.Context, message string) {
	log.Info().Str("message", message).Msg("echo")
	s.publish(events.NewEchoEvent(message))
}

func (s *Service) publish(e events.Event) {
	if s.publisher != nil {
		s.publisher.Publish(e)
	}
}

func (s *Service) record(ctx context.Context, r history.Record) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, r); err != nil {
		log.Warn().Err(err).Str("action", r.Action).Msg("failed to record history")
	}
}
