// Package rpc serves the lfsdesk command dispatcher over a transport.
package rpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lfsdesk/internal/domain/events"
	"github.com/brianly1003/lfsdesk/internal/domain/ports"
	"github.com/brianly1003/lfsdesk/internal/hub"
	"github.com/brianly1003/lfsdesk/internal/rpc/handler"
	"github.com/brianly1003/lfsdesk/internal/rpc/message"
	"github.com/brianly1003/lfsdesk/internal/rpc/transport"
	"github.com/brianly1003/lfsdesk/internal/sync"
)

// sendBufferSize bounds queued outbound frames per client.
const sendBufferSize = 256

// Errors returned by Client.Send.
var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull  = errors.New("send buffer full")
)

// Server handles JSON-RPC communication over any number of transports.
type Server struct {
	dispatcher *handler.Dispatcher
	hub        ports.EventHub

	clients   map[string]*Client
	clientsMu sync.RWMutex
}

// NewServer creates a new RPC server. hub may be nil.
func NewServer(dispatcher *handler.Dispatcher, hub ports.EventHub) *Server {
	return &Server{
		dispatcher: dispatcher,
		hub:        hub,
		clients:    make(map[string]*Client),
	}
}

// ServeTransport handles a single transport connection.
// It blocks until the transport is closed or ctx is cancelled.
func (s *Server) ServeTransport(ctx context.Context, t transport.Transport) error {
	client := NewClient(t, s.dispatcher)

	s.clientsMu.Lock()
	s.clients[client.ID()] = client
	s.clientsMu.Unlock()

	if s.hub != nil {
		s.hub.Subscribe(client.filter)
	}

	log.Debug().Str("client_id", client.ID()).Msg("rpc client connected")

	err := client.Serve(ctx)

	s.clientsMu.Lock()
	delete(s.clients, client.ID())
	s.clientsMu.Unlock()

	if s.hub != nil {
		s.hub.Unsubscribe(client.ID())
	}
	_ = client.Close()

	log.Debug().Str("client_id", client.ID()).Err(err).Msg("rpc client disconnected")

	return err
}

// Stop closes every connected client.
func (s *Server) Stop() error {
	s.clientsMu.Lock()
	clients := s.clients
	s.clients = make(map[string]*Client)
	s.clientsMu.Unlock()

	for _, client := range clients {
		_ = client.Close()
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Broadcast sends a notification to all connected clients.
func (s *Server) Broadcast(method string, params interface{}) error {
	data, err := encodeNotification(method, params)
	if err != nil {
		return err
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		if err := client.Send(data); err != nil {
			log.Warn().Str("client_id", client.ID()).Err(err).Msg("failed to send notification")
		}
	}
	return nil
}

// Client is one connected peer. It also serves as the handler.Notifier that
// deferred operations report completion through.
type Client struct {
	transport  transport.Transport
	dispatcher *handler.Dispatcher

	send   chan []byte
	filter *hub.FilteredSubscriber

	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// NewClient creates a new RPC client.
func NewClient(t transport.Transport, dispatcher *handler.Dispatcher) *Client {
	c := &Client{
		transport:  t,
		dispatcher: dispatcher,
		send:       make(chan []byte, sendBufferSize),
		done:       make(chan struct{}),
	}
	c.filter = hub.NewFilteredSubscriber(NewEventAdapter(c))
	return c
}

// Filter returns the event filter this client is subscribed to the hub with.
func (c *Client) Filter() *hub.FilteredSubscriber {
	return c.filter
}

// ID returns the client's unique identifier.
func (c *Client) ID() string {
	return c.transport.ID()
}

// Serve runs the client's read and write loops until the peer disconnects.
func (c *Client) Serve(ctx context.Context) error {
	go c.writeLoop(ctx)
	return c.readLoop(ctx)
}

func (c *Client) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-c.transport.Done():
			return nil
		default:
		}

		data, err := c.transport.Read(ctx)
		if err != nil {
			if errors.Is(err, transport.ErrTransportClosed) {
				return nil
			}
			return err
		}

		// Requests run concurrently; a slow lock call must not block the next read.
		go c.handleRequest(ctx, data)
	}
}

func (c *Client) handleRequest(ctx context.Context, data []byte) {
	ctx = handler.WithClient(ctx, c.ID(), c)
	ctx = handler.WithEventFilter(ctx, c.filter)

	response, err := c.dispatcher.HandleMessage(ctx, data)
	if err != nil {
		log.Warn().Str("client_id", c.ID()).Err(err).Msg("failed to handle message")
		return
	}
	if len(response) == 0 {
		return
	}

	if err := c.Send(response); err != nil {
		log.Warn().Str("client_id", c.ID()).Err(err).Msg("failed to send response")
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.transport.Write(ctx, data); err != nil {
				log.Warn().Str("client_id", c.ID()).Err(err).Msg("write error")
				return
			}
		}
	}
}

// Send queues a frame for the write loop.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendNotification sends a JSON-RPC notification to this client.
func (c *Client) SendNotification(method string, params interface{}) error {
	data, err := encodeNotification(method, params)
	if err != nil {
		return err
	}
	return c.Send(data)
}

// SendEvent delivers a hub event as the notification "event/<type>". The
// event's payload becomes params, with the repository path added when set.
func (c *Client) SendEvent(event events.Event) error {
	data, err := event.ToJSON()
	if err != nil {
		return err
	}

	var envelope struct {
		Timestamp string          `json:"timestamp"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	params := map[string]interface{}{}
	if len(envelope.Payload) > 0 && string(envelope.Payload) != "null" {
		if err := json.Unmarshal(envelope.Payload, &params); err != nil {
			// Non-object payloads are wrapped rather than flattened.
			params = map[string]interface{}{"payload": envelope.Payload}
		}
	}
	params["timestamp"] = envelope.Timestamp
	if repo := event.GetRepository(); repo != "" {
		params["repository"] = repo
	}

	return c.SendNotification("event/"+string(event.Type()), params)
}

// Close closes the client connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	return c.transport.Close()
}

// Done returns a channel that's closed when the client is done.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func encodeNotification(method string, params interface{}) ([]byte, error) {
	notification, err := message.NewNotification(method, params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(notification)
}

// EventAdapter wraps a Client to implement ports.Subscriber.
type EventAdapter struct {
	client *Client
}

// NewEventAdapter creates a new event adapter.
func NewEventAdapter(client *Client) *EventAdapter {
	return &EventAdapter{client: client}
}

// ID implements ports.Subscriber.
func (a *EventAdapter) ID() string {
	return a.client.ID()
}

// Send implements ports.Subscriber.
func (a *EventAdapter) Send(event events.Event) error {
	return a.client.SendEvent(event)
}

// Close implements ports.Subscriber.
func (a *EventAdapter) Close() error {
	return a.client.Close()
}

// Done implements ports.Subscriber.
func (a *EventAdapter) Done() <-chan struct{} {
	return a.client.Done()
}

var (
	_ ports.Subscriber = (*EventAdapter)(nil)
	_ handler.Notifier = (*Client)(nil)
)
