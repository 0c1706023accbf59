package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/devaloi/chatrooms/internal/domain"
	"github.com/devaloi/chatrooms/internal/policy"
	"github.com/devaloi/chatrooms/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRoomInfo() domain.RoomInfo {
	return domain.RoomInfo{
		ID:    "game/v1/alice/bob",
		Type:  "game/v1",
		Users: []string{"alice", "bob"},
	}
}

func testMsg(t *testing.T) domain.Message {
	t.Helper()
	msg, err := domain.NewMessage("alice", 1429084010000, "text", "hi")
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	return msg
}

func TestFanoutNotifiesEveryoneButSender(t *testing.T) {
	t.Parallel()
	sender := testutil.NewMockSender()
	f := NewFanout(testutil.NewMockPolicy(), sender, "chat/v1", policy.FailOpen, discardLogger())

	f.Dispatch(context.Background(), testRoomInfo(), testMsg(t), nil)

	sent := sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(sent))
	}
	n := sent[0]
	if n.To != "bob" {
		t.Errorf("to: got %q, want bob", n.To)
	}
	if n.From != "chat/v1" || n.Type != domain.NotifyMessage {
		t.Errorf("unexpected notification header: %+v", n)
	}
	if n.Data["roomId"] != "game/v1/alice/bob" {
		t.Errorf("data.roomId: got %v", n.Data["roomId"])
	}
	if n.Data["message"] != "hi" || n.Data["from"] != "alice" {
		t.Errorf("message fields not merged into data: %v", n.Data)
	}
}

func TestFanoutSkipsDeniedRecipients(t *testing.T) {
	t.Parallel()
	sender := testutil.NewMockSender()
	p := testutil.NewMockPolicy()
	p.Decisions["bob"] = policy.Decision{Notify: false}
	f := NewFanout(p, sender, "chat/v1", policy.FailOpen, discardLogger())

	f.Dispatch(context.Background(), testRoomInfo(), testMsg(t), nil)

	if sent := sender.Sent(); len(sent) != 0 {
		t.Errorf("expected no notifications, got %d", len(sent))
	}
}

func TestFanoutSendsAlternative(t *testing.T) {
	t.Parallel()
	sender := testutil.NewMockSender()
	p := testutil.NewMockPolicy()
	p.Decisions["bob"] = policy.Decision{
		Notify: false,
		Alternative: &domain.Notification{
			From: "chat/v1",
			To:   "alice",
			Type: "chat-disabled",
			Data: map[string]any{"receiver": "bob"},
		},
	}
	f := NewFanout(p, sender, "chat/v1", policy.FailOpen, discardLogger())

	f.Dispatch(context.Background(), testRoomInfo(), testMsg(t), nil)

	sent := sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(sent))
	}
	if sent[0].To != "alice" || sent[0].Type != "chat-disabled" {
		t.Errorf("expected the alternative notification, got %+v", sent[0])
	}
}

func TestFanoutContinuesPastDispatchFailures(t *testing.T) {
	t.Parallel()
	sender := testutil.NewMockSender()
	sender.FailFor["bob"] = errors.New("delivery failed")
	f := NewFanout(testutil.NewMockPolicy(), sender, "chat/v1", policy.FailOpen, discardLogger())

	info := domain.RoomInfo{
		ID:    "t/alice/bob/carol",
		Type:  "t",
		Users: []string{"alice", "bob", "carol"},
	}
	f.Dispatch(context.Background(), info, testMsg(t), nil)

	sent := sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected carol's notification despite bob's failure, got %d", len(sent))
	}
	if sent[0].To != "carol" {
		t.Errorf("to: got %q, want carol", sent[0].To)
	}
}

func TestFanoutPolicyFailureModes(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name     string
		mode     policy.FailMode
		expected int
	}{
		{"fail open delivers", policy.FailOpen, 1},
		{"fail closed suppresses", policy.FailClosed, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			sender := testutil.NewMockSender()
			p := testutil.NewMockPolicy()
			p.Err = errors.New("oracle down")
			f := NewFanout(p, sender, "chat/v1", tc.mode, discardLogger())

			f.Dispatch(context.Background(), testRoomInfo(), testMsg(t), nil)

			if sent := sender.Sent(); len(sent) != tc.expected {
				t.Errorf("expected %d notifications, got %d", tc.expected, len(sent))
			}
		})
	}
}

func TestFanoutSoleOccupant(t *testing.T) {
	t.Parallel()
	sender := testutil.NewMockSender()
	f := NewFanout(testutil.NewMockPolicy(), sender, "chat/v1", policy.FailOpen, discardLogger())

	info := domain.RoomInfo{ID: "t/alice", Type: "t", Users: []string{"alice"}}
	f.Dispatch(context.Background(), info, testMsg(t), nil)

	if sent := sender.Sent(); len(sent) != 0 {
		t.Errorf("expected no notifications for a sender-only room, got %d", len(sent))
	}
}
