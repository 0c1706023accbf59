// Package policy answers per-user moderation questions: bans, blocks,
// chat-disabled flags and email confirmation. The real client reads the
// shared usermeta store; the fake client stands in when that store is
// not configured.
package policy

import (
	"context"

	"github.com/devaloi/chatrooms/internal/domain"
)

// FailMode selects the behavior when the oracle itself fails. The choice
// is an explicit configuration decision, not a per-call-site default.
type FailMode int

const (
	// FailOpen treats an oracle failure as permission: not banned,
	// notification allowed.
	FailOpen FailMode = iota

	// FailClosed treats an oracle failure as denial.
	FailClosed
)

// Decision is the oracle's answer to a should-notify question. When
// delivery is suppressed, Alternative optionally names a notification to
// dispatch in its place (e.g. telling the sender the receiver has chat
// disabled).
type Decision struct {
	Notify      bool
	Alternative *domain.Notification
}

// Client is the policy oracle consulted before moderated operations.
type Client interface {
	// IsBanned reports whether username is banned from posting.
	IsBanned(ctx context.Context, username string) (bool, error)

	// IsEmailConfirmed reports whether username has a confirmed email.
	IsEmailConfirmed(ctx context.Context, username string) (bool, error)

	// ShouldNotify decides whether a notification from sender may be
	// delivered to receiver.
	ShouldNotify(ctx context.Context, sender, receiver string) (Decision, error)
}

// FakeClient is used when no usermeta store is configured: every account
// is in good standing and nothing is ever notified.
type FakeClient struct{}

// IsBanned always reports not banned.
func (FakeClient) IsBanned(ctx context.Context, username string) (bool, error) {
	return false, nil
}

// IsEmailConfirmed always reports confirmed.
func (FakeClient) IsEmailConfirmed(ctx context.Context, username string) (bool, error) {
	return true, nil
}

// ShouldNotify always suppresses delivery.
func (FakeClient) ShouldNotify(ctx context.Context, sender, receiver string) (Decision, error) {
	return Decision{Notify: false}, nil
}
