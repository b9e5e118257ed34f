package store

import (
	"context"
	"time"
)

// QueueOutbox adds a message to the outbox with status queued.
func (s *Store) QueueOutbox(ctx context.Context, clientMsgID, conversationID, body string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbox (client_msg_id, conversation_id, body, status, created_at)
		VALUES (?, ?, ?, 'queued', ?)`,
		clientMsgID, conversationID, body, time.Now().UnixMilli())
	return err
}

// PendingOutbox returns queued entries in insertion order.
func (s *Store) PendingOutbox(ctx context.Context) ([]OutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_msg_id, conversation_id, body, status, error_message, server_msg_id
		FROM outbox WHERE status = 'queued' ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.ClientMsgID, &e.ConversationID, &e.Body, &e.Status, &e.ErrorMessage, &e.ServerMsgID); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkOutboxSending transitions an entry to sending.
func (s *Store) MarkOutboxSending(ctx context.Context, clientMsgID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE outbox SET status = 'sending' WHERE client_msg_id = ?`, clientMsgID)
	return err
}

// MarkOutboxSent transitions an entry to sent, recording the server id.
func (s *Store) MarkOutboxSent(ctx context.Context, clientMsgID, serverMsgID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE outbox SET status = 'sent', server_msg_id = ? WHERE client_msg_id = ?`, serverMsgID, clientMsgID)
	return err
}

// MarkOutboxFailed transitions an entry to failed with the error message.
func (s *Store) MarkOutboxFailed(ctx context.Context, clientMsgID, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE outbox SET status = 'failed', error_message = ? WHERE client_msg_id = ?`, errMsg, clientMsgID)
	return err
}
