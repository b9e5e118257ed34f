package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateMessage is returned by AddMessage when a message id is already
// stored and the self-echo exception does not apply. It signals a rejected
// ingestion, not a storage fault.
var ErrDuplicateMessage = errors.New("duplicate message")

// AddMessage ingests one message, lazily creating the owning contact.
//
// Deduplication contract: a message id already in the store is rejected with
// ErrDuplicateMessage, unless sender == receiver — the protocol reflecting an
// own outgoing message back — in which case the echo is kept under the id
// with EchoMarker appended so both copies survive. Returns the effective
// message id actually stored.
//
// Contact creation and message insert commit in one transaction; a message
// never exists without its contact.
func (s *Store) AddMessage(ctx context.Context, p AddMessageParams) (string, error) {
	unlock := s.lockConversation(p.ConversationID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	effectiveID := p.MessageID
	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM messages WHERE message_id = ?)`, effectiveID).Scan(&exists); err != nil {
		return "", fmt.Errorf("check message %q: %w", effectiveID, err)
	}
	if exists {
		if p.Sender != p.Receiver {
			return "", fmt.Errorf("message %q in conversation %q: %w", p.MessageID, p.ConversationID, ErrDuplicateMessage)
		}
		// Self-echo: keep it under a disambiguated id, unless that one
		// is stored too (the echo itself retransmitted).
		effectiveID = p.MessageID + EchoMarker
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM messages WHERE message_id = ?)`, effectiveID).Scan(&exists); err != nil {
			return "", fmt.Errorf("check message %q: %w", effectiveID, err)
		}
		if exists {
			return "", fmt.Errorf("echo %q in conversation %q: %w", effectiveID, p.ConversationID, ErrDuplicateMessage)
		}
	}

	now := time.Now().UnixMilli()
	var contactCreated bool
	if err := tx.QueryRowContext(ctx,
		`SELECT NOT EXISTS(SELECT 1 FROM contacts WHERE conversation_id = ?)`, p.ConversationID).Scan(&contactCreated); err != nil {
		return "", fmt.Errorf("check contact %q: %w", p.ConversationID, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO contacts (conversation_id, name, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(conversation_id) DO NOTHING`,
		p.ConversationID, p.ConversationID, now); err != nil {
		return "", fmt.Errorf("upsert contact %q: %w", p.ConversationID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (message_id, conversation_id, sender, receiver, body, timestamp, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		effectiveID, p.ConversationID, p.Sender, p.Receiver, p.Body, p.Timestamp, p.IsRead, now); err != nil {
		return "", fmt.Errorf("insert message %q: %w", effectiveID, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit message %q: %w", effectiveID, err)
	}

	if contactCreated {
		s.notifyContactsUpdated(p.ConversationID)
	}
	s.publish(busEventMessageStored(p.ConversationID, effectiveID))
	return effectiveID, nil
}

// Messages returns the full history of a conversation in ascending
// timestamp order. Unknown conversations yield an empty slice.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	return s.queryMessages(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC, id ASC`, conversationID)
}

// MessagesSince returns messages with timestamp strictly greater than
// since (unix millis), ascending.
func (s *Store) MessagesSince(ctx context.Context, conversationID string, since int64) ([]Message, error) {
	return s.queryMessages(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ? AND timestamp > ?
		ORDER BY timestamp ASC, id ASC`, conversationID, since)
}

// RecentMessages returns the n most recent messages of a conversation,
// still in ascending order: the tail of the history, not a reversed head.
func (s *Store) RecentMessages(ctx context.Context, conversationID string, n int) ([]Message, error) {
	if n <= 0 {
		return nil, nil
	}
	return s.queryMessages(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+` FROM messages
			WHERE conversation_id = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		) ORDER BY timestamp ASC, id ASC`, conversationID, n)
}

const messageColumns = `id, message_id, conversation_id, sender, receiver, body, timestamp, is_read, is_sent, is_delivered`

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.MessageID, &m.ConversationID, &m.Sender, &m.Receiver,
			&m.Body, &m.Timestamp, &m.IsRead, &m.IsSent, &m.IsDelivered); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkSent flags a message as accepted by the server.
func (s *Store) MarkSent(ctx context.Context, messageID string) error {
	return s.markFlag(ctx, `UPDATE messages SET is_sent = 1 WHERE message_id = ?`, messageID)
}

// MarkDelivered flags a message as delivered to the recipient.
func (s *Store) MarkDelivered(ctx context.Context, messageID string) error {
	return s.markFlag(ctx, `UPDATE messages SET is_delivered = 1 WHERE message_id = ?`, messageID)
}

func (s *Store) markFlag(ctx context.Context, query, messageID string) error {
	res, err := s.db.ExecContext(ctx, query, messageID)
	if err != nil {
		return fmt.Errorf("mark message %q: %w", messageID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.publish(busEventMessageStatusChanged(messageID))
	}
	return nil
}

// MarkConversationRead flags every message of a conversation as read.
func (s *Store) MarkConversationRead(ctx context.Context, conversationID string) error {
	unlock := s.lockConversation(conversationID)
	defer unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE messages SET is_read = 1 WHERE conversation_id = ? AND is_read = 0`, conversationID)
	if err != nil {
		return fmt.Errorf("mark conversation %q read: %w", conversationID, err)
	}
	return nil
}

// HasMessage reports whether a message id is already stored.
func (s *Store) HasMessage(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM messages WHERE message_id = ?)`, messageID).Scan(&exists)
	return exists, err
}
