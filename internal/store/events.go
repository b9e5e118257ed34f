package store

import (
	"time"

	"github.com/wazapp/wazappd/internal/bus"
)

// MessageStored is the payload of message.stored events.
type MessageStored struct {
	ConversationID string
	MessageID      string
}

func busEventMessageStored(conversationID, messageID string) bus.Event {
	return bus.Event{
		Kind:      bus.KindMessageStored,
		Timestamp: time.Now(),
		Payload:   MessageStored{ConversationID: conversationID, MessageID: messageID},
	}
}

func busEventMessageStatusChanged(messageID string) bus.Event {
	return bus.Event{
		Kind:      bus.KindMessageStatusChanged,
		Timestamp: time.Now(),
		Payload:   messageID,
	}
}
