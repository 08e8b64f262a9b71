package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/brianly1003/lfsdesk/internal/sync"
)

// StdioMode defines how messages are framed over stdio.
type StdioMode int

const (
	// StdioModeNewline uses newline-delimited JSON.
	StdioModeNewline StdioMode = iota

	// StdioModeLSP frames each message with a Content-Length header:
	// Content-Length: 123\r\n\r\n{"jsonrpc":"2.0",...}
	StdioModeLSP
)

// ParseStdioMode maps a config value to a StdioMode.
func ParseStdioMode(s string) (StdioMode, error) {
	switch strings.ToLower(s) {
	case "", "newline", "ndjson":
		return StdioModeNewline, nil
	case "lsp", "content-length":
		return StdioModeLSP, nil
	default:
		return 0, fmt.Errorf("unknown stdio framing: %s", s)
	}
}

// StdioTransport implements Transport over a reader/writer pair, normally the
// process's stdin and stdout when lfsdesk is spawned by a desktop shell.
type StdioTransport struct {
	id     string
	reader *bufio.Reader
	writer io.Writer
	mode   StdioMode

	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// StdioOption configures a StdioTransport.
type StdioOption func(*StdioTransport)

// WithStdioMode sets the message framing mode.
func WithStdioMode(mode StdioMode) StdioOption {
	return func(t *StdioTransport) {
		t.mode = mode
	}
}

// NewStdioTransport creates a transport on os.Stdin and os.Stdout.
func NewStdioTransport(opts ...StdioOption) *StdioTransport {
	return NewStdioTransportWithIO(os.Stdin, os.Stdout, opts...)
}

// NewStdioTransportWithIO creates a stdio transport with a custom reader and writer.
func NewStdioTransportWithIO(r io.Reader, w io.Writer, opts ...StdioOption) *StdioTransport {
	t := &StdioTransport{
		id:     "stdio",
		reader: bufio.NewReader(r),
		writer: w,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ID returns the unique identifier for this transport.
func (t *StdioTransport) ID() string {
	return t.id
}

// Read reads the next framed message.
func (t *StdioTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-t.done:
		return nil, ErrTransportClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if t.mode == StdioModeLSP {
		return t.readLSP()
	}
	return t.readNewline()
}

// readNewline returns the next non-blank line. A final line without a
// trailing newline is still delivered before io.EOF.
func (t *StdioTransport) readNewline() ([]byte, error) {
	for {
		line, err := t.reader.ReadBytes('\n')
		line = trimCRLF(line)
		if len(line) > 0 {
			return line, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (t *StdioTransport) readLSP() ([]byte, error) {
	length := -1

	for {
		header, err := t.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		header = strings.TrimSpace(header)
		if header == "" {
			if length < 0 {
				continue // stray blank line between messages
			}
			break
		}

		name, value, ok := strings.Cut(header, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		length, err = strconv.Atoi(strings.TrimSpace(value))
		if err != nil || length < 0 {
			return nil, fmt.Errorf("invalid Content-Length: %q", value)
		}
	}

	if length == 0 {
		return nil, errors.New("empty message body")
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(t.reader, body); err != nil {
		return nil, err
	}
	return body, nil
}

// Write sends one framed message.
func (t *StdioTransport) Write(ctx context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if t.mode == StdioModeLSP {
		if _, err := fmt.Fprintf(t.writer, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
			return err
		}
		_, err := t.writer.Write(data)
		return err
	}

	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, data...)
	_, err := t.writer.Write(append(buf, '\n'))
	return err
}

// Close marks the transport closed. stdin and stdout are left open.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	close(t.done)
	return nil
}

// Done returns a channel that's closed when the transport is closed.
func (t *StdioTransport) Done() <-chan struct{} {
	return t.done
}

// Info returns metadata about the stdio transport.
func (t *StdioTransport) Info() Info {
	return Info{Type: "stdio"}
}

func trimCRLF(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}
	if len(data) > 0 && data[len(data)-1] == '\r' {
		data = data[:len(data)-1]
	}
	return data
}
