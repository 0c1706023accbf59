package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/devaloi/chatrooms/internal/domain"
	"github.com/devaloi/chatrooms/internal/policy"
)

// Fanout tells everyone in a room except the sender about a posted
// message, gated per recipient by the policy oracle. The whole fan-out
// is best-effort: per-recipient failures are logged and swallowed, and
// message posting has already succeeded by the time it runs.
type Fanout struct {
	policy    policy.Client
	sender    Sender
	serviceID string
	failMode  policy.FailMode
	log       *slog.Logger
}

// NewFanout builds a Fanout dispatching through sender on behalf of
// serviceID. failMode decides what an oracle failure means.
func NewFanout(p policy.Client, s Sender, serviceID string, failMode policy.FailMode, log *slog.Logger) *Fanout {
	return &Fanout{policy: p, sender: s, serviceID: serviceID, failMode: failMode, log: log}
}

// Dispatch notifies every participant of info except msg.From. Each
// recipient is handled concurrently with no ordering between them;
// Dispatch returns once all recipients are done. Callers wanting the
// production fire-and-forget behavior run it on their own goroutine.
func (f *Fanout) Dispatch(ctx context.Context, info domain.RoomInfo, msg domain.Message, push json.RawMessage) {
	var g errgroup.Group
	for _, user := range info.Users {
		if user == msg.From {
			continue
		}
		g.Go(func() error {
			f.notifyOne(ctx, info.ID, user, msg, push)
			return nil
		})
	}
	g.Wait()
}

func (f *Fanout) notifyOne(ctx context.Context, roomID, recipient string, msg domain.Message, push json.RawMessage) {
	decision, err := f.policy.ShouldNotify(ctx, msg.From, recipient)
	if err != nil {
		f.log.Warn("policy check failed",
			"sender", msg.From, "receiver", recipient, "error", err)
		if f.failMode == policy.FailClosed {
			return
		}
		decision = policy.Decision{Notify: true}
	}

	n := domain.MessageNotification(f.serviceID, recipient, roomID, msg, push)
	if !decision.Notify {
		if decision.Alternative == nil {
			return
		}
		n = *decision.Alternative
	}

	if err := f.sender.Send(ctx, n); err != nil {
		f.log.Warn("notification dispatch failed",
			"to", n.To, "type", n.Type, "roomId", roomID, "error", err)
	}
}
