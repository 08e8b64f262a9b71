package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/brianly1003/lfsdesk/internal/config"
	"github.com/brianly1003/lfsdesk/internal/testutil"
)

type frame struct {
	ID     *int            `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type stdioHarness struct {
	t      *testing.T
	in     *io.PipeWriter
	frames chan frame
	notes  []frame
	done   chan error
	nextID int
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Repository.Path = ""
	cfg.Watcher.Enabled = false
	return cfg
}

func startStdio(t *testing.T, cfg *config.Config, lfs *testutil.FakeLFS, picker *testutil.FakePicker) *stdioHarness {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	a, err := New(cfg, "test", WithStdio(inR, outW), WithAdapter(lfs), WithPicker(picker))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	h := &stdioHarness{t: t, in: inW, frames: make(chan frame, 64), done: make(chan error, 1)}

	go func() {
		scanner := bufio.NewScanner(outR)
		for scanner.Scan() {
			var f frame
			if err := json.Unmarshal(scanner.Bytes(), &f); err == nil {
				h.frames <- f
			}
		}
		close(h.frames)
	}()

	go func() {
		h.done <- a.Start(context.Background())
		_ = outW.Close()
	}()

	t.Cleanup(func() { _ = inW.Close() })
	return h
}

// call sends a request and returns its response, keeping notifications that arrive first.
func (h *stdioHarness) call(method, params string) frame {
	h.t.Helper()
	h.nextID++
	id := h.nextID

	req := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":%q`, id, method)
	if params != "" {
		req += `,"params":` + params
	}
	req += "}\n"
	if _, err := io.WriteString(h.in, req); err != nil {
		h.t.Fatalf("write %s: %v", method, err)
	}

	for {
		f := h.next()
		if f.ID != nil && *f.ID == id {
			return f
		}
		h.notes = append(h.notes, f)
	}
}

func (h *stdioHarness) next() frame {
	h.t.Helper()
	select {
	case f, ok := <-h.frames:
		if !ok {
			h.t.Fatal("output closed")
		}
		return f
	case <-time.After(5 * time.Second):
		h.t.Fatal("timed out waiting for output")
	}
	return frame{}
}

// notification waits for a notification with the given method.
func (h *stdioHarness) notification(method string) frame {
	h.t.Helper()
	for i, f := range h.notes {
		if f.Method == method {
			h.notes = append(h.notes[:i], h.notes[i+1:]...)
			return f
		}
	}
	for {
		f := h.next()
		if f.ID == nil && f.Method == method {
			return f
		}
		h.notes = append(h.notes, f)
	}
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func TestApp_StdioSession(t *testing.T) {
	lfs := testutil.NewFakeLFS("/repo")
	lfs.Tracked = []string{"art/tex.png", "docs/spec.pdf"}
	picker := testutil.NewFakePicker(testutil.PickResult{Path: "/repo", OK: true})

	h := startStdio(t, testConfig(), lfs, picker)

	resp := h.call("repository/select", "")
	if resp.Error != nil {
		t.Fatalf("select: %+v", resp.Error)
	}
	var pick struct {
		Kind string `json:"kind"`
		Path string `json:"path"`
	}
	decode(t, resp.Result, &pick)
	if pick.Kind != "pickRepo" || pick.Path != "/repo" {
		t.Fatalf("select = %+v", pick)
	}

	resp = h.call("locks/acquire", `{"path":"art/tex.png"}`)
	if resp.Error != nil {
		t.Fatalf("acquire: %+v", resp.Error)
	}

	resp = h.call("locks/list", "")
	var listed struct {
		LockedFiles []string `json:"locked_files"`
	}
	decode(t, resp.Result, &listed)
	if len(listed.LockedFiles) != 1 || listed.LockedFiles[0] != "art/tex.png\talice\tID:1" {
		t.Errorf("locked_files = %q", listed.LockedFiles)
	}

	resp = h.call("files/filter", `{"filter":"spec"}`)
	var filtered struct {
		FilteredFiles []string `json:"filtered_files"`
	}
	decode(t, resp.Result, &filtered)
	if len(filtered.FilteredFiles) != 1 || filtered.FilteredFiles[0] != "docs/spec.pdf" {
		t.Errorf("filtered_files = %q", filtered.FilteredFiles)
	}

	// Completion handles defer the outcome to a notification.
	resp = h.call("locks/acquire", `{"path":"docs/spec.pdf","callback":"cb_7"}`)
	var ack struct {
		Kind        string `json:"kind"`
		OperationID string `json:"operation_id"`
	}
	decode(t, resp.Result, &ack)
	if ack.Kind != "accepted" || ack.OperationID == "" {
		t.Fatalf("ack = %+v", ack)
	}
	note := h.notification("cb_7")
	var done struct {
		OperationID string `json:"operation_id"`
		Result      struct {
			Kind string `json:"kind"`
		} `json:"result"`
	}
	decode(t, note.Params, &done)
	if done.OperationID != ack.OperationID || done.Result.Kind != "lockFile" {
		t.Errorf("completion = %+v", done)
	}

	resp = h.call("status/get", "")
	var status struct {
		RepoPath       string `json:"repoPath"`
		HistoryEnabled bool   `json:"historyEnabled"`
		Version        string `json:"version"`
	}
	decode(t, resp.Result, &status)
	if status.RepoPath != "/repo" || !status.HistoryEnabled || status.Version != "test" {
		t.Errorf("status = %+v", status)
	}

	resp = h.call("history/list", `{"limit":10}`)
	var hist struct {
		Records []struct {
			Action string `json:"action"`
		} `json:"records"`
	}
	decode(t, resp.Result, &hist)
	if len(hist.Records) < 3 {
		t.Errorf("history records = %d, want at least 3", len(hist.Records))
	}

	resp = h.call("no/such/method", "")
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Errorf("unknown method error = %+v", resp.Error)
	}

	h.notification("event/lock_acquired")

	_ = h.in.Close()
	select {
	case err := <-h.done:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after stdin closed")
	}
}

func TestApp_HistoryDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.History.Enabled = false

	h := startStdio(t, cfg, testutil.NewFakeLFS(), testutil.NewFakePicker())

	resp := h.call("history/list", "")
	if resp.Error == nil || resp.Error.Code != -32053 {
		t.Errorf("error = %+v, want HistoryDisabled", resp.Error)
	}
}

func TestApp_StopsOnContextCancel(t *testing.T) {
	inR, _ := io.Pipe()
	a, err := New(testConfig(), "test", WithStdio(inR, io.Discard),
		WithAdapter(testutil.NewFakeLFS()), WithPicker(testutil.NewFakePicker()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop on cancel")
	}
}

func TestApp_StatusProvider(t *testing.T) {
	cfg := testConfig()
	cfg.History.Enabled = false

	a, err := New(cfg, "1.0.0", WithAdapter(testutil.NewFakeLFS()), WithPicker(testutil.NewFakePicker()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if a.Version() != "1.0.0" {
		t.Errorf("Version = %q", a.Version())
	}
	if a.UptimeSeconds() != 0 {
		t.Errorf("UptimeSeconds before start = %d", a.UptimeSeconds())
	}
	if a.RepoPath() != "" || a.ConnectedClients() != 0 || a.PendingOperations() != 0 {
		t.Error("fresh app should have no repository, clients or operations")
	}
	if a.WatcherEnabled() || a.HistoryEnabled() {
		t.Error("watcher and history are disabled in this config")
	}
	for _, m := range []string{"locks/acquire", "events/subscribe", "status/get", "rpc.discover", "operations/list"} {
		if !a.Registry().Has(m) {
			t.Errorf("method %q not registered", m)
		}
	}
}

func TestApp_UnknownPicker(t *testing.T) {
	cfg := testConfig()
	cfg.Repository.Picker = "finder"

	if _, err := New(cfg, "test", WithAdapter(testutil.NewFakeLFS())); err == nil {
		t.Fatal("expected error for unknown picker kind")
	}
}
