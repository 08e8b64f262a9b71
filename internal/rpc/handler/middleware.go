package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lfsdesk/internal/rpc/message"
)

// Recover turns a panicking handler into an InternalError response so one bad
// request never takes the process down.
func Recover() MiddlewareFunc {
	return func(method string, next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, params json.RawMessage) (result interface{}, rpcErr *message.Error) {
			defer func() {
				if p := recover(); p != nil {
					log.Error().
						Str("method", method).
						Str("client_id", ClientIDFrom(ctx)).
						Str("panic", fmt.Sprint(p)).
						Bytes("stack", debug.Stack()).
						Msg("handler panicked")
					result = nil
					rpcErr = message.ErrInternalError(fmt.Sprintf("handler panicked: %v", p))
				}
			}()
			return next(ctx, params)
		}
	}
}

// Logging records every call with its duration and outcome at debug level.
func Logging() MiddlewareFunc {
	return func(method string, next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, params json.RawMessage) (interface{}, *message.Error) {
			start := time.Now()
			result, rpcErr := next(ctx, params)

			evt := log.Debug().
				Str("method", method).
				Str("client_id", ClientIDFrom(ctx)).
				Dur("duration", time.Since(start))
			if rpcErr != nil {
				evt = evt.Int("code", rpcErr.Code).Str("code_name", message.ErrorCodeName(rpcErr.Code))
			}
			evt.Msg("handled")

			return result, rpcErr
		}
	}
}
