package store

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// CreateUser inserts a user row. Only the fields the real-time core owns are
// written; the full profile lives with the surrounding CRUD layer.
func (db *DB) CreateUser(u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = StatusOffline
	}
	_, err := db.Exec(`
		INSERT INTO users (id, username, avatar, status, last_seen)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Avatar, u.Status, u.LastSeen)
	return err
}

// GetUser returns the user with the given id, or nil if none exists.
func (db *DB) GetUser(id string) (*User, error) {
	var u User
	err := db.QueryRow(`
		SELECT id, username, avatar, status, last_seen
		FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.Avatar, &u.Status, &u.LastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetUserStatus persists a user's durable presence status and last-seen time.
func (db *DB) SetUserStatus(id, status string, lastSeen int64) error {
	_, err := db.Exec(`UPDATE users SET status = ?, last_seen = ? WHERE id = ?`, status, lastSeen, id)
	return err
}

// ResetOnlineStatuses flips every non-offline user to offline. Run at boot:
// the in-memory registry is empty after a restart, so durable rows must agree.
func (db *DB) ResetOnlineStatuses() (int64, error) {
	res, err := db.Exec(`UPDATE users SET status = ? WHERE status != ?`, StatusOffline, StatusOffline)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
