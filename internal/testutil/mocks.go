// Package testutil holds fakes shared across test packages.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/devaloi/chatrooms/internal/domain"
	"github.com/devaloi/chatrooms/internal/policy"
)

// MockSender records dispatched notifications and can simulate
// per-recipient delivery failures.
type MockSender struct {
	mu      sync.Mutex
	sent    []domain.Notification
	FailFor map[string]error
}

// NewMockSender creates an empty MockSender.
func NewMockSender() *MockSender {
	return &MockSender{FailFor: make(map[string]error)}
}

// Send records n, or fails when a failure is registered for n.To.
func (s *MockSender) Send(ctx context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.FailFor[n.To]; ok {
		return err
	}
	s.sent = append(s.sent, n)
	return nil
}

// Sent returns a copy of everything delivered so far.
func (s *MockSender) Sent() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]domain.Notification, len(s.sent))
	copy(cp, s.sent)
	return cp
}

// MockPolicy is a policy.Client with scriptable answers.
type MockPolicy struct {
	Banned    map[string]bool
	Decisions map[string]policy.Decision // keyed by receiver
	Err       error                      // returned from every call when set
}

// NewMockPolicy returns a permissive MockPolicy: nobody banned, every
// notification allowed.
func NewMockPolicy() *MockPolicy {
	return &MockPolicy{
		Banned:    make(map[string]bool),
		Decisions: make(map[string]policy.Decision),
	}
}

// IsBanned reports the scripted ban state.
func (p *MockPolicy) IsBanned(ctx context.Context, username string) (bool, error) {
	if p.Err != nil {
		return false, p.Err
	}
	return p.Banned[username], nil
}

// IsEmailConfirmed always confirms.
func (p *MockPolicy) IsEmailConfirmed(ctx context.Context, username string) (bool, error) {
	if p.Err != nil {
		return false, p.Err
	}
	return true, nil
}

// ShouldNotify returns the scripted decision for receiver, defaulting
// to allow.
func (p *MockPolicy) ShouldNotify(ctx context.Context, sender, receiver string) (policy.Decision, error) {
	if p.Err != nil {
		return policy.Decision{}, p.Err
	}
	if d, ok := p.Decisions[receiver]; ok {
		return d, nil
	}
	return policy.Decision{Notify: true}, nil
}

// FailingStore implements store.Store returning Err from every
// operation, for exercising store-unavailable paths.
type FailingStore struct {
	Err error
}

// Get fails.
func (s FailingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, s.Err
}

// SetNX fails.
func (s FailingStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return false, s.Err
}

// Expire fails.
func (s FailingStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return false, s.Err
}

// PushCapped fails.
func (s FailingStore) PushCapped(ctx context.Context, key string, value []byte, max int) (int64, error) {
	return 0, s.Err
}

// List fails.
func (s FailingStore) List(ctx context.Context, key string) ([][]byte, error) {
	return nil, s.Err
}

// Close is a no-op.
func (s FailingStore) Close() error { return nil }
