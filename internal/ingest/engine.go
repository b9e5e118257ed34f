// Package ingest funnels protocol events from the bus into the store and
// directory. It is the only writer driven by inbound traffic, so the store's
// per-conversation serialization plus this single consumer keeps ingestion
// ordered per chat.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/wazapp/wazappd/internal/bus"
	"github.com/wazapp/wazappd/internal/contacts"
	"github.com/wazapp/wazappd/internal/store"
	"github.com/wazapp/wazappd/internal/wa"
	"go.uber.org/zap"
)

// Engine handles idempotent ingestion of protocol events. It subscribes to
// "wa." events on the bus and processes them.
type Engine struct {
	store     *store.Store
	directory *contacts.Directory
	bus       *bus.Bus
	logger    *zap.Logger
	cancel    context.CancelFunc
}

// NewEngine creates a new ingest engine.
func NewEngine(s *store.Store, d *contacts.Directory, b *bus.Bus, logger *zap.Logger) *Engine {
	return &Engine{
		store:     s,
		directory: d,
		bus:       b,
		logger:    logger,
	}
}

// Start subscribes to inbound protocol events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("wa.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(ctx context.Context, evt bus.Event) {
	switch evt.Kind {
	case bus.KindWAMessage:
		msg, ok := evt.Payload.(*wa.InboundMessage)
		if !ok {
			return
		}
		if _, err := e.IngestMessage(ctx, msg); err != nil {
			e.logger.Error("failed to ingest message", zap.Error(err), zap.String("msg_id", msg.MessageID))
		}
	case bus.KindWAReceipt:
		r, ok := evt.Payload.(*wa.ReceiptEvent)
		if !ok {
			return
		}
		e.applyReceipt(ctx, r)
	case bus.KindWAPresence:
		p, ok := evt.Payload.(*wa.PresenceEvent)
		if !ok {
			return
		}
		if err := e.applyPresence(ctx, p); err != nil {
			e.logger.Error("failed to apply presence", zap.Error(err), zap.String("chat", p.Chat))
		}
	case bus.KindWAPicture:
		p, ok := evt.Payload.(*wa.PictureEvent)
		if !ok {
			return
		}
		if err := e.applyPicture(ctx, p); err != nil {
			e.logger.Error("failed to apply picture", zap.Error(err), zap.String("chat", p.Chat))
		}
	}
}

// IngestMessage stores one inbound message. Returns the effective message id
// under which it was stored, or empty string for a rejected duplicate — the
// same value the protocol layer needs to correlate receipts.
func (e *Engine) IngestMessage(ctx context.Context, msg *wa.InboundMessage) (string, error) {
	conversationID := contacts.PhoneToConversationID(msg.Chat)

	effectiveID, err := e.store.AddMessage(ctx, store.AddMessageParams{
		ConversationID: conversationID,
		MessageID:      msg.MessageID,
		Sender:         msg.Sender,
		Receiver:       msg.Receiver,
		Body:           msg.Body,
		Timestamp:      msg.Timestamp * 1000,
	})
	if errors.Is(err, store.ErrDuplicateMessage) {
		e.logger.Info("duplicate message rejected",
			zap.String("conversation_id", conversationID),
			zap.String("msg_id", msg.MessageID))
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("add message: %w", err)
	}

	// Adopt the push name for contacts the user never named.
	if msg.PushName != "" && !msg.FromMe && e.directory.Name(ctx, conversationID) == conversationID {
		if err := e.directory.SetName(ctx, conversationID, msg.PushName); err != nil {
			e.logger.Warn("failed to adopt push name", zap.Error(err), zap.String("conversation_id", conversationID))
		}
	}

	return effectiveID, nil
}

func (e *Engine) applyReceipt(ctx context.Context, r *wa.ReceiptEvent) {
	for _, id := range r.MessageIDs {
		if err := e.store.MarkDelivered(ctx, id); err != nil {
			e.logger.Error("failed to mark delivered", zap.Error(err), zap.String("msg_id", id))
		}
	}
}

func (e *Engine) applyPresence(ctx context.Context, p *wa.PresenceEvent) error {
	conversationID := contacts.PhoneToConversationID(p.Chat)
	available := p.Available
	var lastSeen *int64
	if p.LastSeen > 0 {
		lastSeen = &p.LastSeen
	}
	return e.directory.ContactStatusChanged(ctx, conversationID, &available, lastSeen)
}

func (e *Engine) applyPicture(ctx context.Context, p *wa.PictureEvent) error {
	conversationID := contacts.PhoneToConversationID(p.Chat)
	pictureID := p.PictureID
	if p.Removed {
		pictureID = ""
	}
	return e.directory.SetPictureID(ctx, conversationID, pictureID)
}
