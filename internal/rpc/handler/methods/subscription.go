package methods

import (
	"context"
	"encoding/json"

	"github.com/samber/lo"

	"github.com/brianly1003/lfsdesk/internal/domain/events"
	"github.com/brianly1003/lfsdesk/internal/rpc/handler"
	"github.com/brianly1003/lfsdesk/internal/rpc/message"
)

// knownEventTypes are the event types a client may subscribe to.
var knownEventTypes = []events.EventType{
	events.EventTypeRepositorySelected,
	events.EventTypeRepositoryChanged,
	events.EventTypeLocksRefreshed,
	events.EventTypeLockAcquired,
	events.EventTypeLockReleased,
	events.EventTypeEcho,
}

// SubscriptionService lets a client narrow the events pushed to it.
// By default every client receives every event.
type SubscriptionService struct{}

// NewSubscriptionService creates a new subscription service.
func NewSubscriptionService() *SubscriptionService {
	return &SubscriptionService{}
}

// RegisterMethods registers all subscription methods with the registry.
func (s *SubscriptionService) RegisterMethods(r *handler.Registry) {
	typesParam := []handler.OpenRPCParam{{
		Name:     "types",
		Required: true,
		Schema: map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
	}}
	result := &handler.OpenRPCResult{Name: "Subscriptions", Schema: map[string]interface{}{"type": "object"}}

	r.RegisterWithMeta("events/subscribe", s.Subscribe, handler.MethodMeta{
		Summary:     "Receive only the given event types",
		Description: "Adds event types to this client's filter. Once any type is subscribed, other event types are no longer pushed.",
		Params:      typesParam,
		Result:      result,
		Errors:      []string{"InvalidParams"},
	})

	r.RegisterWithMeta("events/unsubscribe", s.Unsubscribe, handler.MethodMeta{
		Summary:     "Stop filtering on the given event types",
		Description: "Removing the last subscribed type restores delivery of every event.",
		Params:      typesParam,
		Result:      result,
		Errors:      []string{"InvalidParams"},
	})

	r.RegisterWithMeta("events/subscribeAll", s.SubscribeAll, handler.MethodMeta{
		Summary: "Receive every event (default)",
		Result:  result,
	})

	r.RegisterWithMeta("events/subscriptions", s.Subscriptions, handler.MethodMeta{
		Summary:     "List this client's event filter",
		Description: "An empty list means every event is delivered.",
		Result:      result,
	})
}

// SubscriptionsResult reports a client's filter.
type SubscriptionsResult struct {
	Types []events.EventType `json:"types"`
}

func filterFrom(ctx context.Context) (handler.EventFilter, *message.Error) {
	f, ok := handler.EventFilterFrom(ctx)
	if !ok {
		return nil, message.ErrInternalError("event filter not found for client")
	}
	return f, nil
}

func parseTypes(params json.RawMessage) ([]events.EventType, *message.Error) {
	var p subscribeParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	types := lo.Map(p.Types, func(t string, _ int) events.EventType { return events.EventType(t) })
	if unknown, _ := lo.Difference(types, knownEventTypes); len(unknown) > 0 {
		return nil, message.ErrInvalidParams("unknown event type: " + string(unknown[0]))
	}
	return lo.Uniq(types), nil
}

// Subscribe handles events/subscribe.
func (s *SubscriptionService) Subscribe(ctx context.Context, params json.RawMessage) (interface{}, *message.Error) {
	f, rpcErr := filterFrom(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}
	types, rpcErr := parseTypes(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	f.Include(types...)
	return SubscriptionsResult{Types: f.Types()}, nil
}

// Unsubscribe handles events/unsubscribe.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, params json.RawMessage) (interface{}, *message.Error) {
	f, rpcErr := filterFrom(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}
	types, rpcErr := parseTypes(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	f.Exclude(types...)
	return SubscriptionsResult{Types: f.Types()}, nil
}

// SubscribeAll handles events/subscribeAll.
func (s *SubscriptionService) SubscribeAll(ctx context.Context, _ json.RawMessage) (interface{}, *message.Error) {
	f, rpcErr := filterFrom(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}
	f.IncludeAll()
	return SubscriptionsResult{Types: f.Types()}, nil
}

// Subscriptions handles events/subscriptions.
func (s *SubscriptionService) Subscriptions(ctx context.Context, _ json.RawMessage) (interface{}, *message.Error) {
	f, rpcErr := filterFrom(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return SubscriptionsResult{Types: f.Types()}, nil
}
