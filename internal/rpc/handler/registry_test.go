package handler

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/brianly1003/lfsdesk/internal/rpc/message"
)

func okHandler(ctx context.Context, params json.RawMessage) (interface{}, *message.Error) {
	return "ok", nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register("a", okHandler)

	if !r.Has("a") {
		t.Error("Has(a) = false")
	}
	if r.Get("a") == nil {
		t.Error("Get(a) = nil")
	}
	if r.Get("missing") != nil {
		t.Error("Get(missing) should be nil")
	}
}

func TestRegistry_MethodsSorted(t *testing.T) {
	r := NewRegistry()
	for _, m := range []string{"locks/list", "echo", "files/filter"} {
		r.Register(m, okHandler)
	}

	got := strings.Join(r.Methods(), ",")
	if got != "echo,files/filter,locks/list" {
		t.Errorf("Methods() = %s", got)
	}
}

func TestRegistry_GetMeta(t *testing.T) {
	r := NewRegistry()
	r.RegisterWithMeta("locks/acquire", okHandler, MethodMeta{Summary: "Lock a file"})

	if got := r.GetMeta("locks/acquire").Summary; got != "Lock a file" {
		t.Errorf("GetMeta().Summary = %q", got)
	}
	if got := r.GetMeta("unknown").Summary; got != "unknown" {
		t.Errorf("default GetMeta().Summary = %q, want method name", got)
	}
}

func TestRegistry_MiddlewareOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	mw := func(name string) MiddlewareFunc {
		return func(method string, next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, params json.RawMessage) (interface{}, *message.Error) {
				order = append(order, name+":"+method)
				return next(ctx, params)
			}
		}
	}
	r.Use(mw("outer"))
	r.Use(mw("inner"))
	r.Register("m", okHandler)

	if _, err := r.Get("m")(context.Background(), nil); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if strings.Join(order, ",") != "outer:m,inner:m" {
		t.Errorf("order = %v", order)
	}
}

func TestRecover(t *testing.T) {
	r := NewRegistry()
	r.Use(Recover())
	r.Register("boom", func(ctx context.Context, params json.RawMessage) (interface{}, *message.Error) {
		panic("kaboom")
	})

	result, rpcErr := r.Get("boom")(context.Background(), nil)
	if result != nil {
		t.Errorf("result = %v, want nil", result)
	}
	if rpcErr == nil || rpcErr.Code != message.InternalError {
		t.Fatalf("rpcErr = %+v, want InternalError", rpcErr)
	}
	if !strings.Contains(rpcErr.Message, "kaboom") {
		t.Errorf("Message = %q, want panic value", rpcErr.Message)
	}
}

func TestLogging_PassesThrough(t *testing.T) {
	r := NewRegistry()
	r.Use(Logging())
	r.Register("fail", func(ctx context.Context, params json.RawMessage) (interface{}, *message.Error) {
		return nil, message.ErrNoRepository()
	})

	_, rpcErr := r.Get("fail")(context.Background(), nil)
	if rpcErr == nil || rpcErr.Code != message.NoRepository {
		t.Errorf("rpcErr = %+v, want NoRepository", rpcErr)
	}
}

type stubNotifier struct{ methods []string }

func (s *stubNotifier) SendNotification(method string, params interface{}) error {
	s.methods = append(s.methods, method)
	return nil
}

func TestWithClient(t *testing.T) {
	n := &stubNotifier{}
	ctx := WithClient(context.Background(), "client-1", n)

	if got := ClientIDFrom(ctx); got != "client-1" {
		t.Errorf("ClientIDFrom() = %q", got)
	}
	got, ok := NotifierFrom(ctx)
	if !ok || got != n {
		t.Errorf("NotifierFrom() = %v, %v", got, ok)
	}

	if _, ok := NotifierFrom(context.Background()); ok {
		t.Error("NotifierFrom(empty) should report false")
	}
}

func TestRegisterDiscover(t *testing.T) {
	r := NewRegistry()
	r.RegisterWithMeta("locks/list", okHandler, MethodMeta{Summary: "List locks", Errors: []string{"LFSOperationFailed"}})
	r.RegisterDiscover(OpenRPCInfo{Title: "lfsdesk", Version: "test"})

	result, rpcErr := r.Get(DiscoverMethod)(context.Background(), nil)
	if rpcErr != nil {
		t.Fatalf("rpc.discover error = %v", rpcErr)
	}
	spec, ok := result.(*OpenRPCSpec)
	if !ok {
		t.Fatalf("result = %T, want *OpenRPCSpec", result)
	}
	if len(spec.Methods) != 2 {
		t.Fatalf("len(Methods) = %d, want 2", len(spec.Methods))
	}

	var list OpenRPCMethod
	for _, m := range spec.Methods {
		if m.Name == "locks/list" {
			list = m
		}
	}
	if len(list.Errors) != 1 || list.Errors[0].Ref != "#/components/errors/LFSOperationFailed" {
		t.Errorf("locks/list errors = %+v", list.Errors)
	}
	if _, ok := spec.Components.Errors["LFSOperationFailed"]; !ok {
		t.Error("components missing LFSOperationFailed")
	}

	if _, err := spec.ToJSON(); err != nil {
		t.Errorf("ToJSON() error = %v", err)
	}
}
