package domain

import (
	"errors"
	"fmt"
	"math"
)

// SenderSystem is the reserved sender identity for service-originated
// messages, such as system announcements posted with the API secret.
const SenderSystem = "$$"

// ErrBadMessage is returned when a message fails construction validation.
var ErrBadMessage = errors.New("bad message")

// Message is a single chat message as stored in a room's log. Timestamps
// are caller-supplied milliseconds, not server-stamped.
type Message struct {
	From      string `json:"from"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

// NewMessage validates and builds a Message. The timestamp is taken as a
// JSON number so a missing field can be signalled with NaN; anything
// non-finite is rejected. Only the four known fields are ever retained.
func NewMessage(from string, timestamp float64, msgType, body string) (Message, error) {
	if from == "" {
		return Message{}, fmt.Errorf("%w: empty sender", ErrBadMessage)
	}
	if math.IsNaN(timestamp) || math.IsInf(timestamp, 0) {
		return Message{}, fmt.Errorf("%w: bad timestamp", ErrBadMessage)
	}
	if msgType == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrBadMessage)
	}
	if body == "" {
		return Message{}, fmt.Errorf("%w: missing message body", ErrBadMessage)
	}
	return Message{
		From:      from,
		Timestamp: int64(timestamp),
		Type:      msgType,
		Message:   body,
	}, nil
}
