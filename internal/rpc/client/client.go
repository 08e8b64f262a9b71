// Package client is a small JSON-RPC 2.0 client for a running lfsdesk
// WebSocket server. The CLI uses it for one-shot calls and event tailing.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brianly1003/lfsdesk/internal/rpc/message"
	"github.com/brianly1003/lfsdesk/internal/sync"
)

// notificationBuffer bounds undelivered notifications; extra ones are dropped.
const notificationBuffer = 64

// ErrClosed is returned by Call once the connection has gone away.
var ErrClosed = errors.New("connection closed")

// Client is a JSON-RPC 2.0 client for WebSocket communication.
type Client struct {
	conn          *websocket.Conn
	mu            sync.Mutex
	nextID        int64
	pending       map[int64]chan *message.Response
	pendingMu     sync.RWMutex
	notifications chan *message.Notification
	closeCh       chan struct{}
}

// NewClient creates a new JSON-RPC client connected to the given WebSocket URL.
func NewClient(url string) (*Client, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return newClient(conn), nil
}

func newClient(conn *websocket.Conn) *Client {
	c := &Client{
		conn:          conn,
		nextID:        1,
		pending:       make(map[int64]chan *message.Response),
		notifications: make(chan *message.Notification, notificationBuffer),
		closeCh:       make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Notifications delivers server notifications: events and deferred
// completions. The channel is closed when the connection ends.
func (c *Client) Notifications() <-chan *message.Notification {
	return c.notifications
}

// Call makes a JSON-RPC call and waits for the response.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (*message.Response, error) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.mu.Unlock()

	req, err := message.NewRequest(message.NumberID(id), method, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	respCh := make(chan *message.Response, 1)
	c.pendingMu.Lock()
	c.pending[id] = respCh
	c.pendingMu.Unlock()

	c.mu.Lock()
	err = c.conn.WriteJSON(req)
	c.mu.Unlock()
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return nil, ErrClosed
		}
		return resp, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	case <-c.closeCh:
		return nil, ErrClosed
	}
}

// CallResult makes a call and decodes a successful result into out.
// A JSON-RPC error comes back as *message.Error.
func (c *Client) CallResult(ctx context.Context, method string, params, out interface{}) error {
	resp, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return resp.Error
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Result, out)
}

func (c *Client) forget(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// frame is the union of a response and a notification.
type frame struct {
	ID     *message.ID     `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *message.Error  `json:"error"`
}

func (c *Client) readLoop() {
	defer close(c.closeCh)
	defer close(c.notifications)

	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			c.pendingMu.Lock()
			for _, ch := range c.pending {
				close(ch)
			}
			c.pending = make(map[int64]chan *message.Response)
			c.pendingMu.Unlock()
			return
		}

		if f.ID == nil {
			if f.Method == "" {
				continue
			}
			n := &message.Notification{JSONRPC: message.Version, Method: f.Method, Params: f.Params}
			select {
			case c.notifications <- n:
			default:
			}
			continue
		}

		id := idToInt64(f.ID)
		if id < 0 {
			continue
		}
		c.pendingMu.Lock()
		ch, ok := c.pending[id]
		delete(c.pending, id)
		c.pendingMu.Unlock()
		if ok {
			ch <- &message.Response{JSONRPC: message.Version, ID: f.ID, Result: f.Result, Error: f.Error}
		}
	}
}

// idToInt64 extracts the int64 value from an ID.
// Returns -1 if the ID is not a number.
func idToInt64(id *message.ID) int64 {
	if id == nil || !id.IsNumber() {
		return -1
	}
	var n int64
	if _, err := fmt.Sscanf(id.String(), "%d", &n); err != nil {
		return -1
	}
	return n
}

// Close closes the WebSocket connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}
