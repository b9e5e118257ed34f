package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// All returns every contact. No particular order; callers sort as needed.
func (s *Store) All(ctx context.Context) ([]Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, name, COALESCE(picture_id, ''), COALESCE(last_seen, 0)
		FROM contacts`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.ConversationID, &c.Name, &c.PictureID, &c.LastSeen); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// Get returns a contact by conversation id, or nil when absent.
func (s *Store) Get(ctx context.Context, conversationID string) (*Contact, error) {
	var c Contact
	err := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, name, COALESCE(picture_id, ''), COALESCE(last_seen, 0)
		FROM contacts WHERE conversation_id = ?`, conversationID).
		Scan(&c.ID, &c.ConversationID, &c.Name, &c.PictureID, &c.LastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Upsert creates or updates a contact, applying only the patch fields that
// are present. A created contact defaults its name to the conversation id.
func (s *Store) Upsert(ctx context.Context, conversationID string, patch ContactPatch) (*Contact, error) {
	unlock := s.lockConversation(conversationID)
	defer unlock()

	c, err := s.upsertLocked(ctx, conversationID, patch)
	if err != nil {
		return nil, err
	}
	s.notifyContactsUpdated(conversationID)
	return c, nil
}

// upsertLocked performs the read-modify-write. Callers must hold the
// conversation lock.
func (s *Store) upsertLocked(ctx context.Context, conversationID string, patch ContactPatch) (*Contact, error) {
	existing, err := s.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get contact %q: %w", conversationID, err)
	}

	now := time.Now().UnixMilli()
	if existing == nil {
		c := Contact{ConversationID: conversationID, Name: conversationID}
		applyPatch(&c, patch)
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO contacts (conversation_id, name, picture_id, last_seen, updated_at)
			VALUES (?, ?, NULLIF(?, ''), NULLIF(?, 0), ?)`,
			c.ConversationID, c.Name, c.PictureID, c.LastSeen, now)
		if err != nil {
			return nil, fmt.Errorf("insert contact %q: %w", conversationID, err)
		}
		c.ID, _ = res.LastInsertId()
		return &c, nil
	}

	applyPatch(existing, patch)
	if _, err := s.db.ExecContext(ctx, `
		UPDATE contacts SET name = ?, picture_id = NULLIF(?, ''), last_seen = NULLIF(?, 0), updated_at = ?
		WHERE conversation_id = ?`,
		existing.Name, existing.PictureID, existing.LastSeen, now, conversationID); err != nil {
		return nil, fmt.Errorf("update contact %q: %w", conversationID, err)
	}
	return existing, nil
}

func applyPatch(c *Contact, patch ContactPatch) {
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.PictureID != nil {
		c.PictureID = *patch.PictureID
	}
	if patch.LastSeen != nil {
		c.LastSeen = *patch.LastSeen
	}
}

// Delete removes a contact and cascades to its messages. Deleting an
// unknown conversation id is a no-op, not an error.
func (s *Store) Delete(ctx context.Context, conversationID string) error {
	unlock := s.lockConversation(conversationID)
	defer unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("delete contact %q: %w", conversationID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.notifyContactsUpdated(conversationID)
	}
	return nil
}

// ContactCount returns the total number of contacts.
func (s *Store) ContactCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&count)
	return count, err
}

// MessageCount returns the total number of messages.
func (s *Store) MessageCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}
