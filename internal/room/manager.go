package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devaloi/chatrooms/internal/domain"
	"github.com/devaloi/chatrooms/internal/store"
)

var (
	// ErrRoomExists reports that a room with the same derived id already
	// exists. Callers are expected to fall back to FindByID.
	ErrRoomExists = errors.New("room exists")

	// ErrInvalidCreationOptions reports a descriptor that fails
	// validation: missing type or empty participant list.
	ErrInvalidCreationOptions = errors.New("invalid room creation options")
)

// CreateOptions is the strict allow-list of fields a caller may supply
// when creating a room.
type CreateOptions struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// Manager orchestrates room lifecycle: create-if-absent with TTL,
// lookup, TTL refresh and message-log wiring. All room and log keys are
// namespaced under one prefix.
type Manager struct {
	store   store.Store
	prefix  string
	ttl     time.Duration
	maxSize int
}

// NewManager returns a Manager persisting rooms under prefix, expiring
// descriptive records after ttl and capping every room's message log at
// maxSize entries.
func NewManager(s store.Store, prefix string, ttl time.Duration, maxSize int) *Manager {
	return &Manager{store: s, prefix: prefix, ttl: ttl, maxSize: maxSize}
}

func (m *Manager) key(parts ...string) string {
	return m.prefix + ":" + strings.Join(parts, ":")
}

// MessagesKey returns the store key of a room's message log.
func (m *Manager) MessagesKey(roomID string) string {
	return m.key(roomID, "messages")
}

func (m *Manager) messageLog(roomID string) *CappedLog {
	return NewCappedLog(m.store, m.MessagesKey(roomID), m.maxSize)
}

// Create validates opts, derives the room id and writes the descriptive
// record with a create-only store primitive. Exactly one of several
// concurrent creators of the same id succeeds; the rest get
// ErrRoomExists and no Room. On success the returned Room has a fresh
// message log attached.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (*Room, error) {
	if opts.Type == "" || len(opts.Users) == 0 {
		return nil, ErrInvalidCreationOptions
	}

	info := domain.RoomInfo{
		ID:    domain.DeriveID(opts.Type, opts.Users),
		Type:  opts.Type,
		Users: opts.Users,
	}
	record, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("room %q: encode record: %w", info.ID, err)
	}

	created, err := m.store.SetNX(ctx, m.key(info.ID), record, m.ttl)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrRoomExists
	}
	return NewRoom(info, m.messageLog(info.ID)), nil
}

// FindByID fetches a room's descriptive record and attaches a log
// handle. A missing room returns (nil, nil), not an error.
func (m *Manager) FindByID(ctx context.Context, roomID string) (*Room, error) {
	record, ok, err := m.store.Get(ctx, m.key(roomID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var info domain.RoomInfo
	if err := json.Unmarshal(record, &info); err != nil {
		return nil, fmt.Errorf("room %q: decode record: %w", roomID, err)
	}
	return NewRoom(info, m.messageLog(roomID)), nil
}

// RefreshTTL resets the descriptive record's TTL to the configured
// duration. false means the room no longer exists, which callers must
// treat as a soft failure to log rather than a hard error.
func (m *Manager) RefreshTTL(ctx context.Context, roomID string) (bool, error) {
	return m.store.Expire(ctx, m.key(roomID), m.ttl)
}
