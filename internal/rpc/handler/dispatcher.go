package handler

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lfsdesk/internal/rpc/message"
)

// Dispatcher routes JSON-RPC requests to registered handlers.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher creates a new dispatcher with the given registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch handles a JSON-RPC request and returns a response.
// Returns nil for notifications (requests without ID).
func (d *Dispatcher) Dispatch(ctx context.Context, req *message.Request) *message.Response {
	log.Debug().
		Str("method", req.Method).
		Str("id", req.ID.String()).
		Bool("notification", req.IsNotification()).
		Msg("dispatching request")

	handler := d.registry.Get(req.Method)
	if handler == nil {
		log.Warn().Str("method", req.Method).Msg("method not found")

		if req.IsNotification() {
			return nil
		}
		return message.NewErrorResponse(req.ID, message.ErrMethodNotFound(req.Method))
	}

	ctx = context.WithValue(ctx, RequestIDKey, req.ID.String())
	result, rpcErr := handler(ctx, req.Params)

	if req.IsNotification() {
		if rpcErr != nil {
			log.Warn().
				Str("method", req.Method).
				Int("code", rpcErr.Code).
				Str("error", rpcErr.Message).
				Msg("notification handler error (not sent to client)")
		}
		return nil
	}

	if rpcErr != nil {
		return message.NewErrorResponse(req.ID, rpcErr)
	}

	resp, err := message.NewSuccessResponse(req.ID, result)
	if err != nil {
		log.Error().
			Str("method", req.Method).
			Err(err).
			Msg("failed to marshal response")

		return message.NewErrorResponse(req.ID, message.ErrInternalError("failed to marshal response"))
	}

	return resp
}

// HandleMessage handles an incoming message, determining if it's a single
// request or a batch, and returns the encoded response(s). It returns nil
// bytes when nothing should be written back.
func (d *Dispatcher) HandleMessage(ctx context.Context, data []byte) ([]byte, error) {
	if len(data) > 0 && data[0] == '[' {
		return d.handleBatch(ctx, data)
	}

	req, err := message.ParseRequest(data)
	if err != nil {
		log.Debug().Err(err).Msg("failed to parse request")
		return json.Marshal(message.NewErrorResponse(nil, parseFailure(data, err)))
	}

	resp := d.Dispatch(ctx, req)
	if resp == nil {
		return nil, nil
	}
	return json.Marshal(resp)
}

// handleBatch handles a batch request. Members run in order.
func (d *Dispatcher) handleBatch(ctx context.Context, data []byte) ([]byte, error) {
	var rawRequests []json.RawMessage
	if err := json.Unmarshal(data, &rawRequests); err != nil {
		return json.Marshal(message.NewErrorResponse(nil, message.ErrParseError("Invalid batch request")))
	}

	if len(rawRequests) == 0 {
		return json.Marshal(message.NewErrorResponse(nil, message.ErrInvalidRequest("Empty batch")))
	}

	responses := make([]*message.Response, 0, len(rawRequests))
	for _, raw := range rawRequests {
		req, err := message.ParseRequest(raw)
		if err != nil {
			responses = append(responses, message.NewErrorResponse(nil, parseFailure(raw, err)))
			continue
		}
		if resp := d.Dispatch(ctx, req); resp != nil {
			responses = append(responses, resp)
		}
	}

	if len(responses) == 0 {
		return nil, nil
	}
	return json.Marshal(responses)
}

// parseFailure distinguishes broken JSON from a well-formed object that is not a request.
func parseFailure(data []byte, err error) *message.Error {
	if !json.Valid(data) {
		return message.ErrParseError(err.Error())
	}
	return message.ErrInvalidRequest(err.Error())
}

// Registry returns the underlying registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}
