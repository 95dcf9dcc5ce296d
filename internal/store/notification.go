package store

import (
	"time"

	"github.com/google/uuid"
)

// CreateNotification appends a new notification. The ID and CreatedAt fields
// are filled in if zero; the written values are reflected back on n.
func (db *DB) CreateNotification(n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO notifications (id, recipient_id, sender_id, type, related_id, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.RecipientID, n.SenderID, n.Type, n.RelatedID, n.Read, n.CreatedAt)
	return err
}

// ListNotifications returns a recipient's notifications, newest first.
func (db *DB) ListNotifications(recipientID string, limit, offset int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, recipient_id, sender_id, type, related_id, read, created_at
		FROM notifications
		WHERE recipient_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var notifs []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.SenderID, &n.Type, &n.RelatedID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

// MarkNotificationRead flips a single notification's read flag.
func (db *DB) MarkNotificationRead(id string) error {
	_, err := db.Exec(`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	return err
}

// MarkAllNotificationsRead flips the read flag on all of a recipient's
// unread notifications. Returns the number marked.
func (db *DB) MarkAllNotificationsRead(recipientID string) (int64, error) {
	res, err := db.Exec(`UPDATE notifications SET read = 1 WHERE recipient_id = ? AND read = 0`, recipientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountUnreadNotifications returns the number of unread notifications for a recipient.
func (db *DB) CountUnreadNotifications(recipientID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND read = 0`, recipientID).Scan(&n)
	return n, err
}
