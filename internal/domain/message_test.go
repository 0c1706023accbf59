package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestNewMessage(t *testing.T) {
	t.Parallel()
	msg, err := NewMessage("alice", 1, "text", "hi")
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	want := Message{From: "alice", Timestamp: 1, Type: "text", Message: "hi"}
	if msg != want {
		t.Errorf("got %+v, want %+v", msg, want)
	}
}

func TestNewMessageValidation(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		from      string
		timestamp float64
		msgType   string
		body      string
	}{
		{"empty sender", "", 1, "text", "hi"},
		{"missing timestamp", "alice", math.NaN(), "text", "hi"},
		{"infinite timestamp", "alice", math.Inf(1), "text", "hi"},
		{"missing type", "alice", 1, "", "hi"},
		{"missing body", "alice", 1, "text", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewMessage(tc.from, tc.timestamp, tc.msgType, tc.body)
			if !errors.Is(err, ErrBadMessage) {
				t.Errorf("expected ErrBadMessage, got %v", err)
			}
		})
	}
}

func TestMessageJSONRoundTrip(t *testing.T) {
	t.Parallel()
	original, err := NewMessage("alice", 1429084010000, "text", "hi")
	if err != nil {
		t.Fatalf("new message: %v", err)
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("got %+v, want %+v", decoded, original)
	}
}

func TestMessageJSONFields(t *testing.T) {
	t.Parallel()
	msg, _ := NewMessage("alice", 1, "text", "hi")
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, field := range []string{"from", "timestamp", "type", "message"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("expected field %q in serialized message", field)
		}
	}
	if len(raw) != 4 {
		t.Errorf("expected exactly 4 fields, got %d", len(raw))
	}
}
