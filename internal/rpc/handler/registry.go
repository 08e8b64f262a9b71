// Package handler provides JSON-RPC request handling infrastructure.
package handler

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/brianly1003/lfsdesk/internal/domain/events"
	"github.com/brianly1003/lfsdesk/internal/rpc/message"
	"github.com/brianly1003/lfsdesk/internal/sync"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// ClientIDKey is the context key for the client ID.
	ClientIDKey ContextKey = "client_id"
	// NotifierKey is the context key for the requesting client's notifier.
	NotifierKey ContextKey = "notifier"
	// RequestIDKey is the context key for the JSON-RPC request id.
	RequestIDKey ContextKey = "request_id"
	// EventFilterKey is the context key for the requesting client's event filter.
	EventFilterKey ContextKey = "event_filter"
)

// Notifier sends a JSON-RPC notification back to the requesting client.
type Notifier interface {
	SendNotification(method string, params interface{}) error
}

// WithClient attaches the requesting client's id and notifier to ctx.
func WithClient(ctx context.Context, id string, n Notifier) context.Context {
	ctx = context.WithValue(ctx, ClientIDKey, id)
	return context.WithValue(ctx, NotifierKey, n)
}

// NotifierFrom returns the notifier attached by WithClient, if any.
func NotifierFrom(ctx context.Context) (Notifier, bool) {
	n, ok := ctx.Value(NotifierKey).(Notifier)
	return n, ok && n != nil
}

// ClientIDFrom returns the client id attached by WithClient.
func ClientIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ClientIDKey).(string)
	return id
}

// EventFilter narrows which hub events reach a client.
type EventFilter interface {
	Include(types ...events.EventType)
	Exclude(types ...events.EventType)
	IncludeAll()
	Types() []events.EventType
}

// WithEventFilter attaches the requesting client's event filter to ctx.
func WithEventFilter(ctx context.Context, f EventFilter) context.Context {
	return context.WithValue(ctx, EventFilterKey, f)
}

// EventFilterFrom returns the filter attached by WithEventFilter, if any.
func EventFilterFrom(ctx context.Context) (EventFilter, bool) {
	f, ok := ctx.Value(EventFilterKey).(EventFilter)
	return f, ok && f != nil
}

// HandlerFunc is the signature for RPC method handlers.
// It receives the context and raw params, and returns either a result or an error.
// If the result is nil and error is nil, an empty successful response is sent.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, *message.Error)

// MiddlewareFunc is a function that wraps a HandlerFunc.
type MiddlewareFunc func(method string, next HandlerFunc) HandlerFunc

// Registry holds registered RPC methods and provides lookup functionality.
type Registry struct {
	mu         sync.RWMutex
	handlers   map[string]HandlerFunc
	meta       map[string]MethodMeta
	middleware []MiddlewareFunc
}

// NewRegistry creates a new method registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]HandlerFunc),
		meta:     make(map[string]MethodMeta),
	}
}

// Register registers a handler for a method.
// If a handler is already registered for the method, it will be replaced.
func (r *Registry) Register(method string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[method] = handler
}

// RegisterWithMeta registers a handler with OpenRPC metadata.
func (r *Registry) RegisterWithMeta(method string, handler HandlerFunc, meta MethodMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[method] = handler
	r.meta[method] = meta
}

// GetMeta returns the metadata for a method.
// If no metadata is registered, returns a default MethodMeta with just the method name.
func (r *Registry) GetMeta(method string) MethodMeta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if meta, ok := r.meta[method]; ok {
		return meta
	}
	return MethodMeta{Summary: method}
}

// Use adds middleware to the registry.
// Middleware is applied in the order it is added: the first added is outermost.
func (r *Registry) Use(mw MiddlewareFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw)
}

// Get returns the handler for a method wrapped in all registered middleware.
// Returns nil if the method is not registered.
func (r *Registry) Get(method string) HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[method]
	if !ok {
		return nil
	}

	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](method, handler)
	}

	return handler
}

// Has returns true if a handler is registered for the method.
func (r *Registry) Has(method string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[method]
	return ok
}

// Methods returns the registered method names in sorted order.
func (r *Registry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := make([]string, 0, len(r.handlers))
	for method := range r.handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}

// MethodService is an interface for services that register multiple methods.
type MethodService interface {
	// RegisterMethods registers all methods provided by this service.
	RegisterMethods(r *Registry)
}

// RegisterService registers all methods from a MethodService.
func (r *Registry) RegisterService(svc MethodService) {
	svc.RegisterMethods(r)
}
