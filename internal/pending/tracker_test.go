package pending

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/brianly1003/lfsdesk/internal/domain/commands"
	"github.com/brianly1003/lfsdesk/internal/rpc/message"
)

type sent struct {
	method string
	params interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (r *recordingNotifier) SendNotification(method string, params interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{method, params})
	return r.err
}

func (r *recordingNotifier) all() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sent(nil), r.sent...)
}

func TestTracker_SuccessGoesToCallback(t *testing.T) {
	tr := NewTracker()
	n := &recordingNotifier{}
	release := make(chan struct{})

	ack := tr.Start(context.Background(), n, "locks/acquire",
		commands.Completion{Callback: "cb_1", Error: "err_1"},
		func(ctx context.Context) (interface{}, *message.Error) {
			<-release
			return "done", nil
		})

	if ack.Kind != commands.KindAccepted {
		t.Errorf("ack.Kind = %q, want accepted", ack.Kind)
	}
	if ack.OperationID == "" {
		t.Error("ack.OperationID is empty")
	}
	if tr.Len() != 1 {
		t.Errorf("Len() = %d while running, want 1", tr.Len())
	}

	close(release)
	tr.Wait()

	if tr.Len() != 0 {
		t.Errorf("Len() = %d after finish, want 0", tr.Len())
	}

	got := n.all()
	if len(got) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(got))
	}
	if got[0].method != "cb_1" {
		t.Errorf("method = %q, want cb_1", got[0].method)
	}
	params, ok := got[0].params.(SuccessParams)
	if !ok {
		t.Fatalf("params = %T, want SuccessParams", got[0].params)
	}
	if params.OperationID != ack.OperationID || params.Result != "done" {
		t.Errorf("params = %+v", params)
	}
}

func TestTracker_FailureRouting(t *testing.T) {
	tests := []struct {
		name       string
		completion commands.Completion
		wantMethod string
	}{
		{"error handle", commands.Completion{Callback: "cb", Error: "err"}, "err"},
		{"falls back to callback", commands.Completion{Callback: "cb"}, "cb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			n := &recordingNotifier{}

			tr.Start(context.Background(), n, "locks/release", tt.completion,
				func(ctx context.Context) (interface{}, *message.Error) {
					return nil, message.ErrLFSOperationFailed("unlock", "boom")
				})
			tr.Wait()

			got := n.all()
			if len(got) != 1 {
				t.Fatalf("sent %d notifications, want 1", len(got))
			}
			if got[0].method != tt.wantMethod {
				t.Errorf("method = %q, want %q", got[0].method, tt.wantMethod)
			}
			params, ok := got[0].params.(FailureParams)
			if !ok {
				t.Fatalf("params = %T, want FailureParams", got[0].params)
			}
			if params.Error.Code != message.LFSOperationFailed {
				t.Errorf("code = %d, want %d", params.Error.Code, message.LFSOperationFailed)
			}
		})
	}
}

func TestTracker_SuccessWithoutCallbackIsDropped(t *testing.T) {
	tr := NewTracker()
	n := &recordingNotifier{}

	tr.Start(context.Background(), n, "locks/list", commands.Completion{Error: "err"},
		func(ctx context.Context) (interface{}, *message.Error) { return 1, nil })
	tr.Wait()

	if got := n.all(); len(got) != 0 {
		t.Errorf("sent %v, want nothing", got)
	}
}

func TestTracker_WorkSurvivesCancelledRequest(t *testing.T) {
	tr := NewTracker()
	n := &recordingNotifier{}
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	var workErr error
	tr.Start(ctx, n, "locks/acquire", commands.Completion{Callback: "cb"},
		func(ctx context.Context) (interface{}, *message.Error) {
			<-release
			workErr = ctx.Err()
			return nil, nil
		})

	cancel()
	close(release)
	tr.Wait()

	if workErr != nil {
		t.Errorf("work context error = %v, want detached context", workErr)
	}
	if len(n.all()) != 1 {
		t.Error("completion should still be delivered after the request context is cancelled")
	}
}

func TestTracker_NotifierErrorIsSwallowed(t *testing.T) {
	tr := NewTracker()
	n := &recordingNotifier{err: errors.New("client closed")}

	tr.Start(context.Background(), n, "echo", commands.Completion{Callback: "cb"},
		func(ctx context.Context) (interface{}, *message.Error) { return nil, nil })
	tr.Wait()

	if tr.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tr.Len())
	}
}

func TestTracker_List(t *testing.T) {
	tr := NewTracker()
	n := &recordingNotifier{}
	release := make(chan struct{})
	block := func(ctx context.Context) (interface{}, *message.Error) {
		<-release
		return nil, nil
	}

	a := tr.Start(context.Background(), n, "locks/acquire", commands.Completion{Callback: "a"}, block)
	b := tr.Start(context.Background(), n, "locks/release", commands.Completion{Callback: "b"}, block)

	ops := tr.List()
	if len(ops) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(ops))
	}
	ids := map[string]bool{ops[0].ID: true, ops[1].ID: true}
	if !ids[a.OperationID] || !ids[b.OperationID] {
		t.Errorf("List() ids = %v, want %s and %s", ids, a.OperationID, b.OperationID)
	}

	close(release)
	tr.Wait()
}
