package store

import (
	"time"

	"github.com/google/uuid"
)

// CreateMessage appends a new message. The ID and CreatedAt fields are filled
// in if zero; the written values are reflected back on m.
func (db *DB) CreateMessage(m *Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO messages (id, sender_id, recipient_id, content, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.SenderID, m.RecipientID, m.Content, m.Read, m.CreatedAt)
	return err
}

// ListConversation returns messages exchanged between two users using keyset
// pagination by creation time, newest first.
func (db *DB) ListConversation(userA, userB string, beforeTs int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if beforeTs <= 0 {
		beforeTs = time.Now().UnixMilli() + 1
	}
	rows, err := db.Query(`
		SELECT id, sender_id, recipient_id, content, read, created_at
		FROM messages
		WHERE ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))
		  AND created_at < ?
		ORDER BY created_at DESC
		LIMIT ?`, userA, userB, userB, userA, beforeTs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &m.Read, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkConversationRead flips the read flag on every unread message sent by
// sender to recipient. Returns the number of messages marked.
func (db *DB) MarkConversationRead(recipientID, senderID string) (int64, error) {
	res, err := db.Exec(`
		UPDATE messages SET read = 1
		WHERE recipient_id = ? AND sender_id = ? AND read = 0`,
		recipientID, senderID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountUnreadMessages returns the number of unread messages for a recipient.
func (db *DB) CountUnreadMessages(recipientID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE recipient_id = ? AND read = 0`, recipientID).Scan(&n)
	return n, err
}
