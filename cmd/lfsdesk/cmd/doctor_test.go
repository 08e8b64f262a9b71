package cmd

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/brianly1003/lfsdesk/internal/config"
	"github.com/brianly1003/lfsdesk/internal/testutil"
)

func TestExtractCommandName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantCmd string
	}{
		{name: "empty", input: "", wantCmd: ""},
		{name: "simple", input: "git", wantCmd: "git"},
		{name: "with flags", input: "git -c core.quotepath=off", wantCmd: "git"},
		{name: "with spaces", input: "  zenity   --file-selection  ", wantCmd: "zenity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractCommandName(tt.input)
			if got != tt.wantCmd {
				t.Fatalf("extractCommandName(%q) = %q, want %q", tt.input, got, tt.wantCmd)
			}
		})
	}
}

func TestSummarizeDoctorChecks(t *testing.T) {
	checks := []doctorCheck{
		{ID: "a", Status: doctorStatusOK},
		{ID: "b", Status: doctorStatusWarn},
		{ID: "c", Status: doctorStatusFail},
		{ID: "d", Status: doctorStatusOK},
	}

	summary := summarizeDoctorChecks(checks)
	if summary.Total != 4 || summary.OK != 2 || summary.Warn != 1 || summary.Fail != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		summary doctorSummary
		want    doctorStatus
	}{
		{name: "all ok", summary: doctorSummary{Total: 2, OK: 2}, want: doctorStatusOK},
		{name: "warn only", summary: doctorSummary{Total: 2, OK: 1, Warn: 1}, want: doctorStatusWarn},
		{name: "fail takes precedence", summary: doctorSummary{Total: 3, OK: 1, Warn: 1, Fail: 1}, want: doctorStatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := overallStatus(tt.summary)
			if got != tt.want {
				t.Fatalf("overallStatus(%+v) = %q, want %q", tt.summary, got, tt.want)
			}
		})
	}
}

func TestCheckRepositoryPath(t *testing.T) {
	plain := t.TempDir()
	repo := t.TempDir()
	if err := os.Mkdir(filepath.Join(repo, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(plain, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		picker string
		path   string
		want   doctorStatus
	}{
		{"static without path", config.PickerStatic, "", doctorStatusFail},
		{"prompt without path", config.PickerPrompt, "", doctorStatusOK},
		{"missing", config.PickerStatic, filepath.Join(plain, "nope"), doctorStatusFail},
		{"file", config.PickerStatic, file, doctorStatusFail},
		{"not a repository", config.PickerStatic, plain, doctorStatusWarn},
		{"repository", config.PickerStatic, repo, doctorStatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkRepositoryPath(tt.picker, tt.path)
			if got.Status != tt.want {
				t.Errorf("status = %q, want %q (%s)", got.Status, tt.want, got.Message)
			}
		})
	}
}

type stubVersioner struct {
	version string
	err     error
}

func (s stubVersioner) Version(context.Context) (string, error) { return s.version, s.err }

func TestCheckLFSVersion(t *testing.T) {
	ok := checkLFSVersion(context.Background(), stubVersioner{version: "git-lfs/3.4.0"})
	if ok.Status != doctorStatusOK || ok.Details["version"] != "git-lfs/3.4.0" {
		t.Errorf("ok check = %+v", ok)
	}

	failed := checkLFSVersion(context.Background(), stubVersioner{err: errors.New("git: 'lfs' is not a git command")})
	if failed.Status != doctorStatusFail || failed.Remediation == "" {
		t.Errorf("failed check = %+v", failed)
	}
}

func TestCheckCommandBinary_Missing(t *testing.T) {
	got := checkCommandBinary("picker.dialog", "definitely-not-installed-lfsdesk-bin", true)
	if got.Status != doctorStatusFail {
		t.Errorf("status = %q", got.Status)
	}
	if checkCommandBinary("x", "", false).Status != doctorStatusFail {
		t.Error("empty command should fail")
	}
}

func TestCheckHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)

	if got := checkHealthEndpoint(host, port, 1); got.Status != doctorStatusOK {
		t.Errorf("status = %q (%s)", got.Status, got.Message)
	}

	srv.Close()
	if got := checkHealthEndpoint(host, port, 1); got.Status != doctorStatusWarn {
		t.Errorf("closed server status = %q", got.Status)
	}
}

func TestPrintDoctorText(t *testing.T) {
	checks := []doctorCheck{
		{ID: "runtime.git", Status: doctorStatusOK, Message: "Command is available"},
		{ID: "runtime.git_lfs", Status: doctorStatusFail, Message: "git lfs is not usable", Remediation: "Install Git LFS"},
	}
	summary := summarizeDoctorChecks(checks)
	var buf bytes.Buffer
	printDoctorText(&buf, doctorReport{Version: "1.0", Overall: overallStatus(summary), Summary: summary, Checks: checks})

	out := buf.String()
	for _, want := range []string{"overall: FAIL", "[OK] runtime.git", "[FAIL] runtime.git_lfs", "fix: Install Git LFS"} {
		testutil.AssertContains(t, out, want, "doctor text")
	}
}
