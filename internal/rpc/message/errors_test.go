package message

import (
	"encoding/json"
	"testing"
)

func TestErrorCodeName(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{ParseError, "ParseError"},
		{MethodNotFound, "MethodNotFound"},
		{InvalidParams, "InvalidParams"},
		{InternalError, "InternalError"},
		{LFSOperationFailed, "LFSOperationFailed"},
		{StaleRegistry, "StaleRegistry"},
		{NoRepository, "NoRepository"},
		{HistoryDisabled, "HistoryDisabled"},
		{12345, "UnknownError"},
	}

	for _, tt := range tests {
		if got := ErrorCodeName(tt.code); got != tt.want {
			t.Errorf("ErrorCodeName(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestErrStaleRegistry_Data(t *testing.T) {
	err := ErrStaleRegistry("art/tex.png", "alice", 9)

	if err.Code != StaleRegistry {
		t.Errorf("Code = %d, want %d", err.Code, StaleRegistry)
	}

	var data struct {
		Path  string `json:"path"`
		Owner string `json:"owner"`
		ID    uint64 `json:"id"`
	}
	if err := json.Unmarshal(err.Data, &data); err != nil {
		t.Fatalf("data decode error = %v", err)
	}
	if data.Path != "art/tex.png" || data.Owner != "alice" || data.ID != 9 {
		t.Errorf("data = %+v", data)
	}
}

func TestErrLFSOperationFailed(t *testing.T) {
	err := ErrLFSOperationFailed("lock", "exit status 2")

	if err.Code != LFSOperationFailed {
		t.Errorf("Code = %d, want %d", err.Code, LFSOperationFailed)
	}
	if err.Error() != "LFS operation failed: exit status 2" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestStandardConstructors_DefaultMessages(t *testing.T) {
	if ErrParseError("").Message != "Parse error" {
		t.Error("ErrParseError default message")
	}
	if ErrInvalidParams("").Message != "Invalid params" {
		t.Error("ErrInvalidParams default message")
	}
	if ErrInternalError("").Message != "Internal error" {
		t.Error("ErrInternalError default message")
	}
	if ErrMethodNotFound("x/y").Message != "Method not found: x/y" {
		t.Error("ErrMethodNotFound message")
	}
}
