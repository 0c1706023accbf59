// Package room implements the room/message storage engine: deterministic
// room identity, create-only room records with TTL, and a fixed-capacity
// newest-first message log per room.
package room

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/devaloi/chatrooms/internal/domain"
	"github.com/devaloi/chatrooms/internal/store"
)

// CappedLog is a fixed-capacity, newest-first message log stored under a
// single list key. All state lives in the store; the log itself only
// knows its key and capacity.
type CappedLog struct {
	store store.Store
	id    string
	max   int
}

// NewCappedLog returns a log handle for the list at id, capped at max
// entries. max must be positive.
func NewCappedLog(s store.Store, id string, max int) *CappedLog {
	return &CappedLog{store: s, id: id, max: max}
}

// ID returns the store key of the log.
func (l *CappedLog) ID() string {
	return l.id
}

// Items reads the full log, most recently added first. A log that was
// never written to reads as empty.
func (l *CappedLog) Items(ctx context.Context) ([]domain.Message, error) {
	raw, err := l.store.List(ctx, l.id)
	if err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(raw))
	for _, b := range raw {
		var m domain.Message
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("log %q: decode item: %w", l.id, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Add appends msg at the head of the log, evicting the oldest entries
// beyond capacity, and returns the resulting length. Insert, trim and
// measure execute as one atomic store operation.
func (l *CappedLog) Add(ctx context.Context, msg domain.Message) (int64, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("log %q: encode item: %w", l.id, err)
	}
	return l.store.PushCapped(ctx, l.id, b, l.max)
}
