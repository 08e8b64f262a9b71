package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestStdioTransport_NewlineRead(t *testing.T) {
	in := strings.NewReader("{\"a\":1}\r\n\n{\"b\":2}\n{\"c\":3}")
	tp := NewStdioTransportWithIO(in, io.Discard)
	ctx := context.Background()

	for _, want := range []string{`{"a":1}`, `{"b":2}`, `{"c":3}`} {
		got, err := tp.Read(ctx)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if string(got) != want {
			t.Errorf("Read = %q, want %q", got, want)
		}
	}

	if _, err := tp.Read(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("Read at end = %v, want io.EOF", err)
	}
}

func TestStdioTransport_NewlineWrite(t *testing.T) {
	var out bytes.Buffer
	tp := NewStdioTransportWithIO(strings.NewReader(""), &out)

	if err := tp.Write(context.Background(), []byte(`{"x":1}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if out.String() != "{\"x\":1}\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestStdioTransport_LSPFraming(t *testing.T) {
	body := `{"jsonrpc":"2.0","method":"echo"}`
	frame := fmt.Sprintf("Content-Length: %d\r\nContent-Type: application/json\r\n\r\n%s", len(body), body)

	var out bytes.Buffer
	tp := NewStdioTransportWithIO(strings.NewReader(frame), &out, WithStdioMode(StdioModeLSP))

	got, err := tp.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != body {
		t.Errorf("Read = %q", got)
	}

	if err := tp.Write(context.Background(), []byte("{}")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if out.String() != "Content-Length: 2\r\n\r\n{}" {
		t.Errorf("output = %q", out.String())
	}
}

func TestStdioTransport_LSPBadLength(t *testing.T) {
	tp := NewStdioTransportWithIO(strings.NewReader("Content-Length: abc\r\n\r\n"), io.Discard,
		WithStdioMode(StdioModeLSP))

	if _, err := tp.Read(context.Background()); err == nil {
		t.Fatal("expected error for invalid Content-Length")
	}
}

func TestStdioTransport_Close(t *testing.T) {
	tp := NewStdioTransportWithIO(strings.NewReader("{}\n"), io.Discard)

	if err := tp.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := tp.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	select {
	case <-tp.Done():
	default:
		t.Fatal("Done not closed")
	}
	if _, err := tp.Read(context.Background()); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Read after close = %v", err)
	}
	if err := tp.Write(context.Background(), []byte("{}")); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Write after close = %v", err)
	}
}

func TestParseStdioMode(t *testing.T) {
	tests := []struct {
		in      string
		want    StdioMode
		wantErr bool
	}{
		{"", StdioModeNewline, false},
		{"newline", StdioModeNewline, false},
		{"LSP", StdioModeLSP, false},
		{"xml", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseStdioMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStdioMode(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStdioMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
