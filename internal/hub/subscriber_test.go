package hub

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/brianly1003/lfsdesk/internal/domain"
	"github.com/brianly1003/lfsdesk/internal/domain/events"
)

func TestChannelSubscriber_SendReceive(t *testing.T) {
	sub := NewChannelSubscriber("test", 2)

	if err := sub.Send(events.NewEchoEvent("one")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case e := <-sub.Events():
		if e.Type() != events.EventTypeEcho {
			t.Errorf("event type = %v", e.Type())
		}
	default:
		t.Fatal("expected an event on the channel")
	}
}

func TestChannelSubscriber_FullBuffer(t *testing.T) {
	sub := NewChannelSubscriber("test", 1)

	_ = sub.Send(events.NewEchoEvent("one"))
	err := sub.Send(events.NewEchoEvent("two"))
	if !errors.Is(err, domain.ErrSubscriberClosed) {
		t.Errorf("Send() on full buffer = %v, want ErrSubscriberClosed", err)
	}
}

func TestChannelSubscriber_Close(t *testing.T) {
	sub := NewChannelSubscriber("test", 1)

	if err := sub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	select {
	case <-sub.Done():
	default:
		t.Error("Done() should be closed")
	}
	if _, ok := <-sub.Events(); ok {
		t.Error("Events() should be closed")
	}
	if err := sub.Send(events.NewEchoEvent("x")); !errors.Is(err, domain.ErrSubscriberClosed) {
		t.Errorf("Send() after close = %v", err)
	}
}

func TestLogSubscriber_WritesEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	sub := NewLogSubscriber("log", logger, zerolog.InfoLevel)

	if err := sub.Send(events.NewLockReleasedEvent("/repo", "a.psd", 3)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"event_type":"lock_released"`, `"repository":"/repo"`, `"path":"a.psd"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %s", out, want)
		}
	}

	_ = sub.Close()
	if err := sub.Send(events.NewEchoEvent("x")); !errors.Is(err, domain.ErrSubscriberClosed) {
		t.Errorf("Send() after close = %v", err)
	}
}
