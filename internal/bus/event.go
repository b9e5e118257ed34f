package bus

import "time"

// Event kinds published by the core. Subscribers filter by namespace
// prefix, e.g. "contacts." catches every contact-related kind.
const (
	KindContactsUpdated      = "contacts.updated"
	KindContactStatusChanged = "contacts.status_changed"
	KindContactEditRequested = "contacts.edit_requested"
	KindContactLookupFailed  = "contacts.lookup_failed"

	KindMessageStored        = "message.stored"
	KindMessageStatusChanged = "message.status_changed"
	KindMessageSendAck       = "message.send_ack"
	KindMessageSendFailed    = "message.send_failed"

	KindWAMessage  = "wa.message"
	KindWAReceipt  = "wa.receipt"
	KindWAPresence = "wa.presence"
	KindWAPicture  = "wa.picture"

	KindSessionConnected     = "session.connected"
	KindSessionDisconnected  = "session.disconnected"
	KindSessionLoggedOut     = "session.logged_out"
	KindSessionQRGenerated   = "session.qr_generated"
	KindSessionAuthenticated = "session.authenticated"
	KindSessionAuthFailed    = "session.auth_failed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
