// Package outbox queues outgoing messages and drains them through the
// protocol adapter. The stored copy of an own message uses the own JID as
// both sender and receiver, so the server's later echo lands on the store's
// self-echo path instead of being rejected.
package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wazapp/wazappd/internal/bus"
	"github.com/wazapp/wazappd/internal/store"
	"go.uber.org/zap"
)

const pollInterval = 500 * time.Millisecond

// TextSender is the interface for sending text messages via WhatsApp.
type TextSender interface {
	SendText(ctx context.Context, conversationID string, text string) (serverMsgID string, err error)
}

// Sender drains the outbox and sends messages via the protocol adapter.
type Sender struct {
	store  *store.Store
	sender TextSender
	bus    *bus.Bus
	ownJID func() string
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewSender creates a new outbox sender. ownJID is resolved lazily because
// the identity only exists after pairing.
func NewSender(s *store.Store, sender TextSender, b *bus.Bus, ownJID func() string, logger *zap.Logger) *Sender {
	return &Sender{
		store:  s,
		sender: sender,
		bus:    b,
		ownJID: ownJID,
		logger: logger,
	}
}

// Queue adds an outgoing message and returns its client id.
func (s *Sender) Queue(ctx context.Context, conversationID, body string) (string, error) {
	clientMsgID := uuid.NewString()
	if err := s.store.QueueOutbox(ctx, clientMsgID, conversationID, body); err != nil {
		return "", err
	}
	return clientMsgID, nil
}

// Start begins polling the outbox for pending messages.
func (s *Sender) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
}

// Stop stops the sender loop.
func (s *Sender) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Sender) loop(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.ProcessPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// ProcessPending sends every queued entry once.
func (s *Sender) ProcessPending(ctx context.Context) {
	pending, err := s.store.PendingOutbox(ctx)
	if err != nil {
		s.logger.Error("failed to read outbox", zap.Error(err))
		return
	}

	for _, entry := range pending {
		if err := s.store.MarkOutboxSending(ctx, entry.ClientMsgID); err != nil {
			s.logger.Error("failed to mark sending", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
			continue
		}

		serverMsgID, err := s.sender.SendText(ctx, entry.ConversationID, entry.Body)
		if err != nil {
			s.logger.Error("failed to send message", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
			_ = s.store.MarkOutboxFailed(ctx, entry.ClientMsgID, err.Error())
			s.bus.Publish(bus.Event{
				Kind:      bus.KindMessageSendFailed,
				Timestamp: time.Now(),
				Payload: map[string]string{
					"client_msg_id": entry.ClientMsgID,
					"error":         err.Error(),
				},
			})
			continue
		}

		if err := s.store.MarkOutboxSent(ctx, entry.ClientMsgID, serverMsgID); err != nil {
			s.logger.Error("failed to mark sent", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
		}

		// Store the own copy under the server id, sender == receiver.
		own := s.ownJID()
		effectiveID, err := s.store.AddMessage(ctx, store.AddMessageParams{
			ConversationID: entry.ConversationID,
			MessageID:      serverMsgID,
			Sender:         own,
			Receiver:       own,
			Body:           entry.Body,
			Timestamp:      time.Now().UnixMilli(),
			IsRead:         true,
		})
		if err != nil && !errors.Is(err, store.ErrDuplicateMessage) {
			s.logger.Error("failed to store own message", zap.Error(err), zap.String("server_msg_id", serverMsgID))
		}
		if effectiveID == "" {
			effectiveID = serverMsgID
		}
		if err := s.store.MarkSent(ctx, effectiveID); err != nil {
			s.logger.Error("failed to mark message sent", zap.Error(err), zap.String("msg_id", effectiveID))
		}

		s.logger.Info("message sent",
			zap.String("client_msg_id", entry.ClientMsgID),
			zap.String("server_msg_id", serverMsgID))
		s.bus.Publish(bus.Event{
			Kind:      bus.KindMessageSendAck,
			Timestamp: time.Now(),
			Payload: map[string]string{
				"client_msg_id": entry.ClientMsgID,
				"server_msg_id": serverMsgID,
			},
		})
	}
}
