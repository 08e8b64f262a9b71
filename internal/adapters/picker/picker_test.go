package picker

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestStatic(t *testing.T) {
	dir := t.TempDir()

	path, ok, err := NewStatic(dir).Pick(context.Background())
	if err != nil || !ok || path != dir {
		t.Errorf("Pick() = %q, %v, %v; want %q, true, nil", path, ok, err, dir)
	}

	path, ok, err = NewStatic("").Pick(context.Background())
	if err != nil || ok || path != "" {
		t.Errorf("empty Static Pick() = %q, %v, %v; want cancel", path, ok, err)
	}
}

func TestPrompt(t *testing.T) {
	dir := t.TempDir()
	in := strings.NewReader(dir + "\n\n")
	var out bytes.Buffer
	p := NewPrompt(in, &out)

	path, ok, err := p.Pick(context.Background())
	if err != nil || !ok || path != dir {
		t.Errorf("first Pick() = %q, %v, %v", path, ok, err)
	}
	if !strings.Contains(out.String(), "Repository folder:") {
		t.Errorf("prompt not written: %q", out.String())
	}

	// blank line cancels
	if _, ok, err := p.Pick(context.Background()); ok || err != nil {
		t.Errorf("blank line Pick() ok = %v, err = %v; want cancel", ok, err)
	}

	// end of input cancels
	if _, ok, err := p.Pick(context.Background()); ok || err != nil {
		t.Errorf("EOF Pick() ok = %v, err = %v; want cancel", ok, err)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "dialog")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDialog(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		body    string
		want    string
		wantOK  bool
		wantErr bool
	}{
		{"selected", "echo '" + dir + "'", dir, true, false},
		{"cancelled", "exit 1", "", false, false},
		{"empty output", "true", "", false, false},
		{"failure", "echo boom >&2; exit 5", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDialog(writeScript(t, tt.body))

			path, ok, err := d.Pick(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Pick() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.wantOK || path != tt.want {
				t.Errorf("Pick() = %q, %v; want %q, %v", path, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"default static", Options{}, false},
		{"static", Options{Kind: KindStatic, Path: "/tmp"}, false},
		{"prompt", Options{Kind: KindPrompt, In: strings.NewReader("")}, false},
		{"prompt without input", Options{Kind: KindPrompt}, true},
		{"dialog", Options{Kind: KindDialog}, false},
		{"unknown", Options{Kind: "carrier-pigeon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p == nil {
				t.Error("New() returned nil picker")
			}
		})
	}
}
