// Package transport carries JSON-RPC frames between lfsdesk and a UI client.
package transport

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Common transport errors.
var (
	ErrTransportClosed = errors.New("transport is closed")
)

// Transport is a bidirectional message channel to one client.
type Transport interface {
	// ID returns a unique identifier for this transport instance.
	ID() string

	// Read blocks until the next complete message arrives.
	// Returns io.EOF when the peer goes away cleanly.
	Read(ctx context.Context) ([]byte, error)

	// Write sends one complete message.
	Write(ctx context.Context, data []byte) error

	// Close closes the transport. Safe to call more than once.
	Close() error

	// Done returns a channel that's closed when the transport is closed.
	Done() <-chan struct{}
}

// Info contains metadata about a transport connection.
type Info struct {
	Type       string `json:"type"` // "websocket" or "stdio"
	RemoteAddr string `json:"remote_addr,omitempty"`
}

// GenerateID generates a unique transport/client ID.
func GenerateID() string {
	return uuid.NewString()
}
