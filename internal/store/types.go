package store

// Contact is a persisted conversation partner (individual or group).
// Availability is deliberately NOT part of this type: presence is runtime
// state and never touches the database.
type Contact struct {
	ID             int64
	ConversationID string
	Name           string
	PictureID      string // empty = use default avatar
	LastSeen       int64  // unix millis, 0 = never observed online
}

// ContactPatch enumerates the updatable contact fields. Nil means
// "leave unchanged"; only the fields present are applied by Upsert.
type ContactPatch struct {
	Name      *string
	PictureID *string
	LastSeen  *int64
}

// Message is a persisted chat message. ConversationID is the owning
// conversation, which for group messages differs from Sender.
type Message struct {
	ID             int64
	ConversationID string
	MessageID      string
	Sender         string
	Receiver       string
	Body           string
	Timestamp      int64 // unix millis
	IsRead         bool
	IsSent         bool
	IsDelivered    bool
}

// AddMessageParams carries one inbound or outbound message for ingestion.
type AddMessageParams struct {
	ConversationID string
	MessageID      string
	Sender         string
	Receiver       string
	Body           string
	Timestamp      int64 // unix millis; protocol epoch seconds are converted by the caller
	IsRead         bool
}

// OutboxEntry represents a pending outgoing message.
type OutboxEntry struct {
	ID             int64
	ClientMsgID    string
	ConversationID string
	Body           string
	Status         string // queued, sending, sent, failed
	ErrorMessage   string
	ServerMsgID    string
}
