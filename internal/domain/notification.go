package domain

import "encoding/json"

// NotifyMessage is the notification type used for regular chat messages.
const NotifyMessage = "message"

// Notification is the record handed to the external notification service
// after a message is posted. Data carries the room id plus the message
// fields; Push is an opaque caller-supplied payload forwarded verbatim.
type Notification struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Type   string          `json:"type"`
	Data   map[string]any  `json:"data,omitempty"`
	Push   json.RawMessage `json:"push,omitempty"`
	Secret string          `json:"secret,omitempty"`
}

// MessageNotification builds the standard per-recipient notification for
// a posted message.
func MessageNotification(serviceID, recipient, roomID string, msg Message, push json.RawMessage) Notification {
	return Notification{
		From: serviceID,
		To:   recipient,
		Type: NotifyMessage,
		Data: map[string]any{
			"roomId":    roomID,
			"from":      msg.From,
			"timestamp": msg.Timestamp,
			"type":      msg.Type,
			"message":   msg.Message,
		},
		Push: push,
	}
}
