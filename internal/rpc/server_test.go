package rpc

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/brianly1003/lfsdesk/internal/domain/events"
	"github.com/brianly1003/lfsdesk/internal/rpc/handler"
	"github.com/brianly1003/lfsdesk/internal/rpc/message"
	"github.com/brianly1003/lfsdesk/internal/rpc/transport"
)

type stubTransport struct {
	id string
}

func (s *stubTransport) ID() string { return s.id }

func (s *stubTransport) Read(context.Context) ([]byte, error) {
	return nil, transport.ErrTransportClosed
}

func (s *stubTransport) Write(context.Context, []byte) error {
	return nil
}

func (s *stubTransport) Close() error { return nil }

func (s *stubTransport) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// pipeTransport feeds scripted inbound frames and collects outbound ones.
type pipeTransport struct {
	in   chan []byte
	out  chan []byte
	done chan struct{}
}

func newPipeTransport() *pipeTransport {
	return &pipeTransport{
		in:   make(chan []byte, 8),
		out:  make(chan []byte, 8),
		done: make(chan struct{}),
	}
}

func (p *pipeTransport) ID() string { return "pipe" }

func (p *pipeTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case data, ok := <-p.in:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeTransport) Write(_ context.Context, data []byte) error {
	p.out <- data
	return nil
}

func (p *pipeTransport) Close() error { return nil }

func (p *pipeTransport) Done() <-chan struct{} { return p.done }

func decodeNotification(t *testing.T, data []byte) (string, map[string]interface{}) {
	t.Helper()
	var notif struct {
		Method string                 `json:"method"`
		Params map[string]interface{} `json:"params"`
	}
	if err := json.Unmarshal(data, &notif); err != nil {
		t.Fatalf("failed to decode notification: %v", err)
	}
	return notif.Method, notif.Params
}

func TestClientSendEvent_FlattensPayloadAndRepository(t *testing.T) {
	client := NewClient(&stubTransport{id: "test-client"}, nil)

	event := events.NewLockAcquiredEvent("/repo", "art/tex.png", 17, "alice")
	if err := client.SendEvent(event); err != nil {
		t.Fatalf("SendEvent returned error: %v", err)
	}

	select {
	case data := <-client.send:
		method, params := decodeNotification(t, data)
		if method != "event/lock_acquired" {
			t.Fatalf("method = %q, want event/lock_acquired", method)
		}
		if params["path"] != "art/tex.png" {
			t.Errorf("path = %v", params["path"])
		}
		if params["id"] != float64(17) {
			t.Errorf("id = %v", params["id"])
		}
		if params["repository"] != "/repo" {
			t.Errorf("repository = %v", params["repository"])
		}
		if _, ok := params["timestamp"]; !ok {
			t.Error("timestamp missing in params")
		}
	default:
		t.Fatal("expected notification queued in client.send")
	}
}

func TestClientSendEvent_NoRepository(t *testing.T) {
	client := NewClient(&stubTransport{id: "c"}, nil)

	if err := client.SendEvent(events.NewEchoEvent("hi")); err != nil {
		t.Fatalf("SendEvent returned error: %v", err)
	}

	data := <-client.send
	method, params := decodeNotification(t, data)
	if method != "event/echo" {
		t.Fatalf("method = %q", method)
	}
	if _, ok := params["repository"]; ok {
		t.Error("repository should be absent for unscoped events")
	}
}

func TestClientSend_AfterClose(t *testing.T) {
	client := NewClient(&stubTransport{id: "c"}, nil)
	_ = client.Close()

	if err := client.Send([]byte("{}")); err != ErrClientClosed {
		t.Fatalf("Send after close = %v, want ErrClientClosed", err)
	}
	// Second close is a no-op.
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestServer_ServeTransport_RoundTrip(t *testing.T) {
	registry := handler.NewRegistry()
	registry.Register("ping", func(ctx context.Context, _ json.RawMessage) (interface{}, *message.Error) {
		n, ok := handler.NotifierFrom(ctx)
		if !ok {
			return nil, message.NewError(message.InternalError, "no notifier")
		}
		_ = n.SendNotification("pinged", map[string]string{"client": handler.ClientIDFrom(ctx)})
		return "pong", nil
	})
	server := NewServer(handler.NewDispatcher(registry), nil)

	tp := newPipeTransport()
	errCh := make(chan error, 1)
	go func() { errCh <- server.ServeTransport(context.Background(), tp) }()

	tp.in <- []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)

	var gotResponse, gotNotification bool
	timeout := time.After(2 * time.Second)
	for !(gotResponse && gotNotification) {
		select {
		case data := <-tp.out:
			var probe struct {
				Method string          `json:"method"`
				Result json.RawMessage `json:"result"`
				Params json.RawMessage `json:"params"`
			}
			if err := json.Unmarshal(data, &probe); err != nil {
				t.Fatalf("bad frame %s: %v", data, err)
			}
			switch {
			case probe.Method == "pinged":
				gotNotification = true
				if string(probe.Params) != `{"client":"pipe"}` {
					t.Errorf("params = %s", probe.Params)
				}
			case string(probe.Result) == `"pong"`:
				gotResponse = true
			default:
				t.Fatalf("unexpected frame %s", data)
			}
		case <-timeout:
			t.Fatalf("timed out; response=%v notification=%v", gotResponse, gotNotification)
		}
	}

	if server.ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", server.ClientCount())
	}

	close(tp.in)
	select {
	case err := <-errCh:
		if err != io.EOF {
			t.Errorf("ServeTransport returned %v, want io.EOF", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ServeTransport did not return after EOF")
	}
	if server.ClientCount() != 0 {
		t.Errorf("ClientCount after disconnect = %d, want 0", server.ClientCount())
	}
}
