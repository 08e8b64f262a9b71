package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBaseEvent_Type(t *testing.T) {
	tests := []struct {
		name      string
		eventType EventType
	}{
		{"repository_selected", EventTypeRepositorySelected},
		{"repository_changed", EventTypeRepositoryChanged},
		{"locks_refreshed", EventTypeLocksRefreshed},
		{"lock_acquired", EventTypeLockAcquired},
		{"lock_released", EventTypeLockReleased},
		{"echo", EventTypeEcho},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NewEvent(tt.eventType, nil)

			if event.Type() != tt.eventType {
				t.Errorf("Type() = %v, want %v", event.Type(), tt.eventType)
			}
			if string(tt.eventType) != tt.name {
				t.Errorf("wire name = %q, want %q", tt.eventType, tt.name)
			}
		})
	}
}

func TestBaseEvent_Timestamp(t *testing.T) {
	before := time.Now().UTC()
	event := NewEvent(EventTypeEcho, nil)
	after := time.Now().UTC()

	ts := event.Timestamp()

	if ts.Before(before) {
		t.Errorf("Timestamp() = %v, should be >= %v", ts, before)
	}
	if ts.After(after) {
		t.Errorf("Timestamp() = %v, should be <= %v", ts, after)
	}
}

func TestBaseEvent_ToJSON(t *testing.T) {
	event := NewLockAcquiredEvent("/repo", "art/tex.png", 42, "alice")

	jsonBytes, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var parsed struct {
		Event      string      `json:"event"`
		Timestamp  string      `json:"timestamp"`
		Repository string      `json:"repository"`
		Payload    LockPayload `json:"payload"`
	}
	if err := json.Unmarshal(jsonBytes, &parsed); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if parsed.Event != string(EventTypeLockAcquired) {
		t.Errorf("JSON event = %v, want %v", parsed.Event, EventTypeLockAcquired)
	}
	if parsed.Timestamp == "" {
		t.Error("JSON should contain timestamp field")
	}
	if parsed.Repository != "/repo" {
		t.Errorf("repository = %q, want /repo", parsed.Repository)
	}
	if parsed.Payload.Path != "art/tex.png" || parsed.Payload.ID != 42 || parsed.Payload.Owner != "alice" {
		t.Errorf("payload = %+v", parsed.Payload)
	}
}

func TestNewEvent_NoRepository(t *testing.T) {
	event := NewEchoEvent("hi")

	if event.GetRepository() != "" {
		t.Errorf("GetRepository() = %q, want empty", event.GetRepository())
	}

	data, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if _, ok := parsed["repository"]; ok {
		t.Error("repository should be omitted when empty")
	}
}

func TestLocksRefreshedPayload_OmitsZeroSkipped(t *testing.T) {
	data, err := NewLocksRefreshedEvent("/repo", 3, 0).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var parsed struct {
		Payload map[string]interface{} `json:"payload"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if parsed.Payload["count"] != float64(3) {
		t.Errorf("count = %v, want 3", parsed.Payload["count"])
	}
	if _, ok := parsed.Payload["skipped"]; ok {
		t.Error("skipped should be omitted when zero")
	}
}
