package methods

import (
	"context"
	"encoding/json"

	"github.com/brianly1003/lfsdesk/internal/domain/commands"
	"github.com/brianly1003/lfsdesk/internal/pending"
	"github.com/brianly1003/lfsdesk/internal/rpc/handler"
	"github.com/brianly1003/lfsdesk/internal/rpc/message"
)

// LockDispatcher is the core command surface. *lfsdesk.Service implements it.
type LockDispatcher interface {
	SelectRepository(ctx context.Context) (commands.PickRepoResult, error)
	ListLockedFiles(ctx context.Context) (commands.LockedFilesResult, error)
	FilterFiles(ctx context.Context, query string) commands.FilteredFilesResult
	LockFile(ctx context.Context, path string) (commands.LockFileResult, error)
	UnlockFile(ctx context.Context, id uint64) (commands.UnlockFileResult, error)
	UnlockAll(ctx context.Context) (commands.UnlockAllResult, error)
	Status(ctx context.Context) commands.RepositoryStatusResult
	Locks(ctx context.Context) commands.LockRegistryResult
	History(ctx context.Context, limit int) (commands.HistoryResult, error)
	Echo(ctx context.Context, message string)
}

// OperationsMethod lists in-flight deferred commands.
const OperationsMethod = "operations/list"

// LFSService exposes the lock commands over JSON-RPC.
type LFSService struct {
	core    LockDispatcher
	tracker *pending.Tracker
}

// NewLFSService creates the lock command service.
func NewLFSService(core LockDispatcher, tracker *pending.Tracker) *LFSService {
	if tracker == nil {
		tracker = pending.NewTracker()
	}
	return &LFSService{core: core, tracker: tracker}
}

// RegisterMethods registers every lock command with the registry.
func (s *LFSService) RegisterMethods(r *handler.Registry) {
	completion := []handler.OpenRPCParam{
		{Name: "callback", Description: "Notification method for the result; makes the call return immediately", Schema: map[string]interface{}{"type": "string"}},
		{Name: "error", Description: "Notification method for a failure", Schema: map[string]interface{}{"type": "string"}},
	}
	object := func(name string) *handler.OpenRPCResult {
		return &handler.OpenRPCResult{Name: name, Schema: map[string]interface{}{"type": "object"}}
	}

	r.RegisterWithMeta(string(commands.CommandEcho), s.Echo, handler.MethodMeta{
		Summary:     "Log a message",
		Description: "Diagnostic pass-through. Usually sent as a notification; the message is logged and broadcast as an echo event.",
		Params: []handler.OpenRPCParam{
			{Name: "message", Required: true, Schema: map[string]interface{}{"type": "string"}},
		},
	})

	r.RegisterWithMeta(string(commands.CommandSelectRepository), s.SelectRepository, handler.MethodMeta{
		Summary:     "Pick the active repository",
		Description: "Opens the folder picker. A cancelled pick or a folder without a .git marker returns an empty path and changes nothing.",
		Params:      completion,
		Result:      object("PickRepo"),
		Errors:      []string{"LFSOperationFailed"},
	})

	r.RegisterWithMeta(string(commands.CommandListLockedFiles), s.ListLockedFiles, handler.MethodMeta{
		Summary:     "List locks and refresh the registry",
		Description: "Runs git lfs locks, replaces the lock registry with the parsed listing and returns the raw lines.",
		Params:      completion,
		Result:      object("LockedFiles"),
		Errors:      []string{"LFSOperationFailed"},
	})

	r.RegisterWithMeta(string(commands.CommandFilterFiles), s.FilterFiles, handler.MethodMeta{
		Summary:     "Fuzzy-filter tracked files",
		Description: "Ranks the tracked files against the query and returns at most 50. An empty query matches nothing.",
		Params: []handler.OpenRPCParam{
			{Name: "filter", Required: true, Schema: map[string]interface{}{"type": "string"}},
		},
		Result: object("FilteredFiles"),
		Errors: []string{"InvalidParams"},
	})

	r.RegisterWithMeta(string(commands.CommandLockFile), s.LockFile, handler.MethodMeta{
		Summary: "Lock a file",
		Params: append([]handler.OpenRPCParam{
			{Name: "path", Description: "Repository-relative path", Required: true, Schema: map[string]interface{}{"type": "string"}},
		}, completion...),
		Result: object("LockFile"),
		Errors: []string{"InvalidParams", "NoRepository", "StaleRegistry", "LFSOperationFailed"},
	})

	r.RegisterWithMeta(string(commands.CommandUnlockFile), s.UnlockFile, handler.MethodMeta{
		Summary:     "Unlock a file by lock id",
		Description: "Unknown ids, or calls made before a repository is selected, succeed without calling git.",
		Params: append([]handler.OpenRPCParam{
			{Name: "id", Required: true, Schema: map[string]interface{}{"type": "integer", "minimum": 0}},
		}, completion...),
		Result: object("UnlockFile"),
		Errors: []string{"InvalidParams", "LFSOperationFailed"},
	})

	r.RegisterWithMeta(string(commands.CommandUnlockAll), s.UnlockAll, handler.MethodMeta{
		Summary:     "Release every registered lock",
		Description: "Releases each registry entry with its own git call and reports per-lock failures.",
		Params:      completion,
		Result:      object("UnlockAll"),
		Errors:      []string{"NoRepository"},
	})

	r.RegisterWithMeta(string(commands.CommandRepositoryStatus), s.Status, handler.MethodMeta{
		Summary: "Describe the active repository and registry",
		Result:  object("RepositoryStatus"),
	})

	r.RegisterWithMeta(string(commands.CommandGetLocks), s.Locks, handler.MethodMeta{
		Summary:     "Read the lock registry",
		Description: "Returns the cached registry without calling git. trusted is false until the first refresh after a selection.",
		Result:      object("LockRegistry"),
	})

	r.RegisterWithMeta(string(commands.CommandListHistory), s.History, handler.MethodMeta{
		Summary: "List recent lock activity",
		Params: []handler.OpenRPCParam{
			{Name: "limit", Schema: map[string]interface{}{"type": "integer", "minimum": 0}},
		},
		Result: object("History"),
		Errors: []string{"HistoryDisabled"},
	})

	r.RegisterWithMeta(OperationsMethod, s.Operations, handler.MethodMeta{
		Summary: "List deferred commands still running",
		Result:  object("Operations"),
	})
}

// run executes work in-band, or through the tracker when completion handles
// were supplied.
func (s *LFSService) run(ctx context.Context, method commands.CommandType, c commands.Completion, work pending.Work) (interface{}, *message.Error) {
	if !c.Deferred() {
		return work(ctx)
	}
	n, ok := handler.NotifierFrom(ctx)
	if !ok {
		return nil, message.ErrInvalidRequest("completion handles require a connected client")
	}
	return s.tracker.Start(ctx, n, string(method), c, work), nil
}

// Echo logs the message. It has no result.
func (s *LFSService) Echo(ctx context.Context, params json.RawMessage) (interface{}, *message.Error) {
	var p echoParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	s.core.Echo(ctx, *p.Message)
	return nil, nil
}

// SelectRepository handles repository/select.
func (s *LFSService) SelectRepository(ctx context.Context, params json.RawMessage) (interface{}, *message.Error) {
	var p selectParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return s.run(ctx, commands.CommandSelectRepository, p.Completion, func(ctx context.Context) (interface{}, *message.Error) {
		res, err := s.core.SelectRepository(ctx)
		if err != nil {
			return nil, toRPCError(err)
		}
		return res, nil
	})
}

// ListLockedFiles handles locks/list.
func (s *LFSService) ListLockedFiles(ctx context.Context, params json.RawMessage) (interface{}, *message.Error) {
	var p listParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return s.run(ctx, commands.CommandListLockedFiles, p.Completion, func(ctx context.Context) (interface{}, *message.Error) {
		res, err := s.core.ListLockedFiles(ctx)
		if err != nil {
			return nil, toRPCError(err)
		}
		return res, nil
	})
}

// FilterFiles handles files/filter.
func (s *LFSService) FilterFiles(ctx context.Context, params json.RawMessage) (interface{}, *message.Error) {
	var p filterParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return s.core.FilterFiles(ctx, *p.Filter), nil
}

// LockFile handles locks/acquire.
func (s *LFSService) LockFile(ctx context.Context, params json.RawMessage) (interface{}, *message.Error) {
	var p lockParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return s.run(ctx, commands.CommandLockFile, p.Completion, func(ctx context.Context) (interface{}, *message.Error) {
		res, err := s.core.LockFile(ctx, p.Path)
		if err != nil {
			return nil, toRPCError(err)
		}
		return res, nil
	})
}

// UnlockFile handles locks/release.
func (s *LFSService) UnlockFile(ctx context.Context, params json.RawMessage) (interface{}, *message.Error) {
	var p unlockParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	id := *p.ID
	return s.run(ctx, commands.CommandUnlockFile, p.Completion, func(ctx context.Context) (interface{}, *message.Error) {
		res, err := s.core.UnlockFile(ctx, id)
		if err != nil {
			return nil, toRPCError(err)
		}
		return res, nil
	})
}

// UnlockAll handles locks/release_all.
func (s *LFSService) UnlockAll(ctx context.Context, params json.RawMessage) (interface{}, *message.Error) {
	var p releaseAllParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return s.run(ctx, commands.CommandUnlockAll, p.Completion, func(ctx context.Context) (interface{}, *message.Error) {
		res, err := s.core.UnlockAll(ctx)
		if err != nil {
			return nil, toRPCError(err)
		}
		return res, nil
	})
}

// Status handles repository/status.
func (s *LFSService) Status(ctx context.Context, _ json.RawMessage) (interface{}, *message.Error) {
	return s.core.Status(ctx), nil
}

// Locks handles locks/get.
func (s *LFSService) Locks(ctx context.Context, _ json.RawMessage) (interface{}, *message.Error) {
	return s.core.Locks(ctx), nil
}

// History handles history/list.
func (s *LFSService) History(ctx context.Context, params json.RawMessage) (interface{}, *message.Error) {
	var p historyParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	res, err := s.core.History(ctx, p.Limit)
	if err != nil {
		return nil, toRPCError(err)
	}
	return res, nil
}

// OperationsResult answers operations/list.
type OperationsResult struct {
	Operations []pending.Operation `json:"operations"`
}

// Operations handles operations/list.
func (s *LFSService) Operations(_ context.Context, _ json.RawMessage) (interface{}, *message.Error) {
	return OperationsResult{Operations: s.tracker.List()}, nil
}
