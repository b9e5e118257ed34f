package wa

import (
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types/events"
)

// InboundMessage is a protocol message normalized for ingestion. Timestamps
// stay in epoch seconds here; conversion happens at the store boundary.
type InboundMessage struct {
	MessageID string
	Chat      string // raw chat JID, the owning conversation
	Sender    string
	Receiver  string
	PushName  string
	Body      string
	Timestamp int64 // epoch seconds
	FromMe    bool
}

// ReceiptEvent reports that a set of message ids reached the recipient.
// Read receipts collapse into it too: a read message was delivered.
type ReceiptEvent struct {
	MessageIDs []string
}

// PresenceEvent reports an availability change for one contact.
type PresenceEvent struct {
	Chat      string
	Available bool
	LastSeen  int64 // unix millis, 0 when the server sent none
}

// PictureEvent reports an avatar change for one contact.
type PictureEvent struct {
	Chat      string
	PictureID string
	Removed   bool
}

// ParseMessage normalizes a live whatsmeow message event. ownJID is the
// receiver for inbound messages. Own messages reflected back by the server
// carry sender == receiver, which is what lets the store distinguish a
// self-echo from a genuine duplicate.
func ParseMessage(evt *events.Message, ownJID string) *InboundMessage {
	chat := evt.Info.Chat.ToNonAD().String()
	sender := evt.Info.Sender.ToNonAD().String()
	receiver := ownJID
	if evt.Info.IsFromMe {
		sender = ownJID
	}

	return &InboundMessage{
		MessageID: evt.Info.ID,
		Chat:      chat,
		Sender:    sender,
		Receiver:  receiver,
		PushName:  evt.Info.PushName,
		Body:      extractTextBody(evt.Message),
		Timestamp: evt.Info.Timestamp.Unix(),
		FromMe:    evt.Info.IsFromMe,
	}
}

func extractTextBody(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if c := msg.GetConversation(); c != "" {
		return c
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	return ""
}
