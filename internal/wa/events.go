package wa

import (
	"time"

	"github.com/wazapp/wazappd/internal/bus"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
)

// EventHandler translates whatsmeow events into domain events on the bus.
// It never touches the store directly — the ingest engine subscribes to the
// bus independently.
type EventHandler struct {
	bus    *bus.Bus
	ownJID func() string
	logger *zap.Logger
}

// NewEventHandler creates a new event handler. ownJID is resolved lazily
// because the identity only exists after pairing.
func NewEventHandler(b *bus.Bus, ownJID func() string, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		bus:    b,
		ownJID: ownJID,
		logger: logger,
	}
}

// Handle is the main whatsmeow event handler function.
func (h *EventHandler) Handle(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		h.publish(bus.KindWAMessage, ParseMessage(evt, h.ownJID()))
	case *events.Receipt:
		h.handleReceipt(evt)
	case *events.Presence:
		h.handlePresence(evt)
	case *events.Picture:
		h.publish(bus.KindWAPicture, &PictureEvent{
			Chat:      evt.JID.ToNonAD().String(),
			PictureID: evt.PictureID,
			Removed:   evt.Remove,
		})
	case *events.Connected:
		h.logger.Info("WhatsApp connected")
		h.publish(bus.KindSessionConnected, nil)
	case *events.Disconnected:
		h.logger.Warn("WhatsApp disconnected")
		h.publish(bus.KindSessionDisconnected, nil)
	case *events.LoggedOut:
		h.logger.Warn("WhatsApp logged out", zap.String("reason", evt.Reason.String()))
		h.publish(bus.KindSessionLoggedOut, evt.Reason.String())
	}
}

func (h *EventHandler) handleReceipt(evt *events.Receipt) {
	if len(evt.MessageIDs) == 0 {
		return
	}
	switch evt.Type {
	case types.ReceiptTypeDelivered, types.ReceiptTypeRead:
		h.publish(bus.KindWAReceipt, &ReceiptEvent{MessageIDs: evt.MessageIDs})
	}
}

func (h *EventHandler) handlePresence(evt *events.Presence) {
	var lastSeen int64
	if !evt.LastSeen.IsZero() {
		lastSeen = evt.LastSeen.UnixMilli()
	}
	h.publish(bus.KindWAPresence, &PresenceEvent{
		Chat:      evt.From.ToNonAD().String(),
		Available: !evt.Unavailable,
		LastSeen:  lastSeen,
	})
}

func (h *EventHandler) publish(kind string, payload any) {
	h.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}
