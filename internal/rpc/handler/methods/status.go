package methods

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/brianly1003/lfsdesk/internal/rpc/handler"
	"github.com/brianly1003/lfsdesk/internal/rpc/message"
)

// StatusProvider provides server status information.
type StatusProvider interface {
	// ConnectedClients returns the number of connected clients.
	ConnectedClients() int

	// RepoPath returns the active repository path, empty when none is selected.
	RepoPath() string

	// UptimeSeconds returns the uptime in seconds.
	UptimeSeconds() int64

	// Version returns the server version.
	Version() string

	// WatcherEnabled returns whether the repository watcher is enabled.
	WatcherEnabled() bool

	// HistoryEnabled returns whether the lock history journal is enabled.
	HistoryEnabled() bool

	// PendingOperations returns the number of deferred commands still running.
	PendingOperations() int
}

// StatusService provides status-related RPC methods.
type StatusService struct {
	provider StatusProvider
}

// NewStatusService creates a new status service.
func NewStatusService(provider StatusProvider) *StatusService {
	return &StatusService{provider: provider}
}

// RegisterMethods registers all status methods with the registry.
func (s *StatusService) RegisterMethods(r *handler.Registry) {
	r.RegisterWithMeta("status/get", s.GetStatus, handler.MethodMeta{
		Summary:     "Get server status",
		Description: "Returns the server version, uptime, connected clients and the active repository.",
		Result:      &handler.OpenRPCResult{Name: "StatusResult", Schema: map[string]interface{}{"type": "object"}},
	})

	r.RegisterWithMeta("status/health", s.Health, handler.MethodMeta{
		Summary: "Health check",
		Result:  &handler.OpenRPCResult{Name: "HealthResult", Schema: map[string]interface{}{"type": "object"}},
	})
}

// GetStatusResult for status/get method.
type GetStatusResult struct {
	ConnectedClients  int    `json:"connectedClients"`
	RepoPath          string `json:"repoPath"`
	RepoName          string `json:"repoName,omitempty"`
	UptimeSeconds     int64  `json:"uptimeSeconds"`
	Version           string `json:"version"`
	WatcherEnabled    bool   `json:"watcherEnabled"`
	HistoryEnabled    bool   `json:"historyEnabled"`
	PendingOperations int    `json:"pendingOperations"`
}

// GetStatus returns the current server status.
func (s *StatusService) GetStatus(_ context.Context, _ json.RawMessage) (interface{}, *message.Error) {
	if s.provider == nil {
		return nil, message.ErrInternalError("status provider not available")
	}

	repoPath := s.provider.RepoPath()
	result := GetStatusResult{
		ConnectedClients:  s.provider.ConnectedClients(),
		RepoPath:          repoPath,
		UptimeSeconds:     s.provider.UptimeSeconds(),
		Version:           s.provider.Version(),
		WatcherEnabled:    s.provider.WatcherEnabled(),
		HistoryEnabled:    s.provider.HistoryEnabled(),
		PendingOperations: s.provider.PendingOperations(),
	}
	if repoPath != "" {
		result.RepoName = filepath.Base(repoPath)
	}
	return result, nil
}

// HealthResult for status/health method.
type HealthResult struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

// Health returns a simple health check response.
func (s *StatusService) Health(_ context.Context, _ json.RawMessage) (interface{}, *message.Error) {
	var uptime int64
	if s.provider != nil {
		uptime = s.provider.UptimeSeconds()
	}
	return HealthResult{Status: "ok", UptimeSeconds: uptime}, nil
}
