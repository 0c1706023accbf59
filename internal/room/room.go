package room

import (
	"context"
	"errors"

	"github.com/devaloi/chatrooms/internal/domain"
)

// ErrNoLogAttached indicates a Room was used without going through the
// Manager. That is a programmer error, not a runtime condition.
var ErrNoLogAttached = errors.New("room has no message log attached")

// Room pairs a room's immutable descriptor with a handle to its message
// log. The log reference is deliberately unexported so serializing a
// Room yields exactly the descriptor fields and nothing else.
type Room struct {
	domain.RoomInfo
	log *CappedLog
}

// NewRoom builds a Room from a descriptor, deriving the id when the
// record carries none. log may be nil for a detached room.
func NewRoom(info domain.RoomInfo, log *CappedLog) *Room {
	if info.ID == "" {
		info.ID = domain.DeriveID(info.Type, info.Users)
	}
	return &Room{RoomInfo: info, log: log}
}

// Log returns the attached message log, or nil.
func (r *Room) Log() *CappedLog {
	return r.log
}

// Messages returns the room's log, most recent first.
func (r *Room) Messages(ctx context.Context) ([]domain.Message, error) {
	if r.log == nil {
		return nil, ErrNoLogAttached
	}
	return r.log.Items(ctx)
}

// AddMessage appends msg to the room's log and returns the new length.
func (r *Room) AddMessage(ctx context.Context, msg domain.Message) (int64, error) {
	if r.log == nil {
		return 0, ErrNoLogAttached
	}
	return r.log.Add(ctx, msg)
}
