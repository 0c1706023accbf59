package domain

import (
	"slices"
	"strings"
)

// RoomInfo is the descriptive record of a room as persisted in the store.
// It is immutable after construction; the message log lives under a
// separate store key and is not part of this record.
type RoomInfo struct {
	ID    string   `json:"id"`
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// DeriveID computes a room's deterministic id from its type and
// participants. The participant list is sorted on a copy, so two rooms
// with the same users in different order collide on the same id while
// the stored Users field keeps the caller's order.
func DeriveID(roomType string, users []string) string {
	sorted := slices.Clone(users)
	slices.Sort(sorted)
	return roomType + "/" + strings.Join(sorted, "/")
}

// HasUser reports whether username is a participant of the room.
func (r RoomInfo) HasUser(username string) bool {
	return slices.Contains(r.Users, username)
}
