package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/brianly1003/lfsdesk/internal/domain/events"
)

func TestMockSubscriber_SendAndClose(t *testing.T) {
	sub := NewMockSubscriber("test-sub")

	if err := sub.Send(events.NewEchoEvent("hi")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.EventCount() != 1 {
		t.Errorf("expected 1 event, got %d", sub.EventCount())
	}

	sub.SetSendError(errors.New("send failed"))
	if err := sub.Send(events.NewEchoEvent("again")); err == nil {
		t.Error("expected configured send error")
	}

	_ = sub.Close()
	_ = sub.Close()
	if !sub.IsClosed() {
		t.Error("expected closed")
	}
}

func TestFakeLFS_LockRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := NewFakeLFS("/repo")

	entry, err := f.AcquireLock(ctx, "/repo", "art/tex.png")
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if entry.ID != "1" || entry.Owner.Name != "alice" {
		t.Errorf("entry = %+v", entry)
	}

	if _, err := f.AcquireLock(ctx, "/repo", "art/tex.png"); err == nil {
		t.Error("second lock on the same path should fail")
	}

	lines, _ := f.ListLocks(ctx, "/repo")
	if len(lines) != 1 || lines[0] != "art/tex.png\talice\tID:1" {
		t.Errorf("lines = %q", lines)
	}

	if err := f.ReleaseLock(ctx, "/repo", 1); err != nil {
		t.Fatalf("ReleaseLock: %v", err)
	}
	if err := f.ReleaseLock(ctx, "/repo", 1); err == nil {
		t.Error("releasing an unknown id should fail")
	}
}

func TestFakePicker_Script(t *testing.T) {
	p := NewFakePicker(PickResult{Path: "/a", OK: true})

	path, ok, err := p.Pick(context.Background())
	if err != nil || !ok || path != "/a" {
		t.Fatalf("first pick = %q %v %v", path, ok, err)
	}
	if _, ok, _ := p.Pick(context.Background()); ok {
		t.Error("exhausted picker should cancel")
	}
}
