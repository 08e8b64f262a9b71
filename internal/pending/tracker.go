// Package pending tracks commands whose outcome is delivered after the request returns.
//
// A client that attaches completion handles to a request gets an immediate
// acknowledgement carrying an operation id. When the work finishes, the outcome is
// sent to that client as a JSON-RPC notification whose method is the handle:
// the callback handle for success, the error handle for failure.
package pending

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lfsdesk/internal/domain/commands"
	"github.com/brianly1003/lfsdesk/internal/rpc/message"
	"github.com/brianly1003/lfsdesk/internal/sync"
)

// Notifier delivers a notification to the client that issued the request.
type Notifier interface {
	SendNotification(method string, params interface{}) error
}

// Work is the deferred part of a command.
type Work func(ctx context.Context) (interface{}, *message.Error)

// Operation is one in-flight deferred command.
type Operation struct {
	ID         string              `json:"operation_id"`
	Method     string              `json:"method"`
	Completion commands.Completion `json:"completion"`
	StartedAt  time.Time           `json:"started_at"`
}

// SuccessParams is the notification payload for a completed operation.
type SuccessParams struct {
	OperationID string      `json:"operation_id"`
	Result      interface{} `json:"result"`
}

// FailureParams is the notification payload for a failed operation.
type FailureParams struct {
	OperationID string         `json:"operation_id"`
	Error       *message.Error `json:"error"`
}

// Tracker owns the set of in-flight deferred operations.
type Tracker struct {
	mu  sync.Mutex
	ops map[string]Operation
	wg  sync.WaitGroup
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{ops: make(map[string]Operation)}
}

// Start registers an operation and runs work on its own goroutine. The outcome is
// delivered through n. The returned acknowledgement is what the request answers with.
//
// work runs on a context detached from ctx: a client hanging up does not cancel
// an external tool call that is already under way.
func (t *Tracker) Start(ctx context.Context, n Notifier, method string, c commands.Completion, work Work) commands.AcceptedResult {
	op := Operation{
		ID:         uuid.NewString(),
		Method:     method,
		Completion: c,
		StartedAt:  time.Now().UTC(),
	}

	t.mu.Lock()
	t.ops[op.ID] = op
	t.mu.Unlock()

	detached := context.WithoutCancel(ctx)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		result, rpcErr := work(detached)
		t.finish(op, n, result, rpcErr)
	}()

	return commands.AcceptedResult{Kind: commands.KindAccepted, OperationID: op.ID}
}

func (t *Tracker) finish(op Operation, n Notifier, result interface{}, rpcErr *message.Error) {
	t.mu.Lock()
	delete(t.ops, op.ID)
	t.mu.Unlock()

	method, params := route(op, result, rpcErr)
	if method == "" {
		log.Debug().
			Str("operation_id", op.ID).
			Str("method", op.Method).
			Bool("failed", rpcErr != nil).
			Msg("no completion handle for outcome, dropping")
		return
	}

	if err := n.SendNotification(method, params); err != nil {
		log.Warn().
			Str("operation_id", op.ID).
			Str("handle", method).
			Err(err).
			Msg("failed to deliver completion")
		return
	}

	log.Debug().
		Str("operation_id", op.ID).
		Str("method", op.Method).
		Str("handle", method).
		Dur("elapsed", time.Since(op.StartedAt)).
		Msg("completion delivered")
}

// route picks the handle and payload for an outcome. Failures fall back to the
// callback handle when no error handle was given; successes need a callback handle.
func route(op Operation, result interface{}, rpcErr *message.Error) (string, interface{}) {
	if rpcErr != nil {
		handle := op.Completion.Error
		if handle == "" {
			handle = op.Completion.Callback
		}
		return handle, FailureParams{OperationID: op.ID, Error: rpcErr}
	}
	return op.Completion.Callback, SuccessParams{OperationID: op.ID, Result: result}
}

// List returns the in-flight operations, oldest first.
func (t *Tracker) List() []Operation {
	t.mu.Lock()
	ops := make([]Operation, 0, len(t.ops))
	for _, op := range t.ops {
		ops = append(ops, op)
	}
	t.mu.Unlock()

	sort.Slice(ops, func(i, j int) bool { return ops[i].StartedAt.Before(ops[j].StartedAt) })
	return ops
}

// Len returns the number of in-flight operations.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ops)
}

// Wait blocks until every started operation has delivered its outcome.
func (t *Tracker) Wait() {
	t.wg.Wait()
}
