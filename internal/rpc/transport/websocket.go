package transport

import (
	"context"
	"io"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brianly1003/lfsdesk/internal/sync"
)

const (
	// Default timeouts for WebSocket operations.
	DefaultWriteTimeout = 15 * time.Second
	DefaultPongTimeout  = 60 * time.Second

	// DefaultPingInterval must stay below DefaultPongTimeout.
	DefaultPingInterval = 30 * time.Second

	// DefaultMaxMessageSize bounds a single request. Lock listings travel the
	// other way, so requests stay small.
	DefaultMaxMessageSize = 512 * 1024
)

// WebSocketTransport implements Transport over a WebSocket connection.
type WebSocketTransport struct {
	id   string
	conn *websocket.Conn

	writeTimeout time.Duration
	pingInterval time.Duration

	done   chan struct{}
	mu     sync.Mutex // serializes writes; gorilla allows one concurrent writer
	closed bool
}

// WebSocketOption configures a WebSocketTransport.
type WebSocketOption func(*WebSocketTransport)

// WithWriteTimeout sets the write timeout for the WebSocket transport.
func WithWriteTimeout(d time.Duration) WebSocketOption {
	return func(t *WebSocketTransport) {
		t.writeTimeout = d
	}
}

// WithPingInterval sets the keepalive ping interval.
func WithPingInterval(d time.Duration) WebSocketOption {
	return func(t *WebSocketTransport) {
		t.pingInterval = d
	}
}

// NewWebSocketTransport wraps an upgraded connection and starts its keepalive.
func NewWebSocketTransport(conn *websocket.Conn, opts ...WebSocketOption) *WebSocketTransport {
	t := &WebSocketTransport{
		id:           GenerateID(),
		conn:         conn,
		writeTimeout: DefaultWriteTimeout,
		pingInterval: DefaultPingInterval,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	conn.SetReadLimit(DefaultMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(DefaultPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(DefaultPongTimeout))
	})

	go t.pingLoop()

	return t
}

func (t *WebSocketTransport) pingLoop() {
	ticker := time.NewTicker(t.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.closed {
				t.mu.Unlock()
				return
			}
			_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
			err := t.conn.WriteMessage(websocket.PingMessage, nil)
			t.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// ID returns the unique identifier for this transport.
func (t *WebSocketTransport) ID() string {
	return t.id
}

// Read reads the next text frame. Binary frames are skipped.
func (t *WebSocketTransport) Read(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-t.done:
			return nil, ErrTransportClosed
		default:
		}

		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		_ = t.conn.SetReadDeadline(time.Now().Add(DefaultPongTimeout))

		if messageType == websocket.TextMessage {
			return data, nil
		}
	}
}

// Write sends a text frame.
func (t *WebSocketTransport) Write(ctx context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}

	deadline := time.Now().Add(t.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = t.conn.SetWriteDeadline(deadline)

	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and closes the connection.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	close(t.done)

	_ = t.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	return t.conn.Close()
}

// Done returns a channel that's closed when the transport is closed.
func (t *WebSocketTransport) Done() <-chan struct{} {
	return t.done
}

// Info returns metadata about the WebSocket transport.
func (t *WebSocketTransport) Info() Info {
	return Info{
		Type:       "websocket",
		RemoteAddr: t.conn.RemoteAddr().String(),
	}
}
