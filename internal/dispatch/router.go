// Package dispatch turns inbound connection events into persistence writes
// and outbound pushes. It owns the per-connection lifecycle: register on
// connect, route events while live, guarded deregister on disconnect.
package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/guildhub/guildhub/internal/bus"
	"github.com/guildhub/guildhub/internal/event"
	"github.com/guildhub/guildhub/internal/presence"
	"github.com/guildhub/guildhub/internal/store"
	"go.uber.org/zap"
)

// MessageStore persists point-to-point messages.
type MessageStore interface {
	CreateMessage(m *store.Message) error
}

// NotificationStore persists notification records.
type NotificationStore interface {
	CreateNotification(n *store.Notification) error
}

// UserStore reads identities and writes the durable presence status.
type UserStore interface {
	GetUser(id string) (*store.User, error)
	SetUserStatus(id, status string, lastSeen int64) error
}

// Stores is the persistence surface the router relies on. *store.DB satisfies it.
type Stores interface {
	MessageStore
	NotificationStore
	UserStore
}

// Router is the dispatch core.
type Router struct {
	registry *presence.Registry
	db       Stores
	bus      *bus.Bus
	logger   *zap.Logger
	cancel   context.CancelFunc
}

// NewRouter creates a dispatch router.
func NewRouter(registry *presence.Registry, db Stores, b *bus.Bus, logger *zap.Logger) *Router {
	return &Router{
		registry: registry,
		db:       db,
		bus:      b,
		logger:   logger,
	}
}

// Connect admits an authenticated connection: registers the handle, flips the
// durable status to online, and announces the user to everyone else.
func (r *Router) Connect(user *store.User, h presence.Handle) {
	hadPrior := r.registry.Register(user.ID, h)
	if hadPrior {
		r.logger.Info("connection superseded", zap.String("user_id", user.ID))
	}

	now := time.Now().UnixMilli()
	if err := r.db.SetUserStatus(user.ID, store.StatusOnline, now); err != nil {
		r.logger.Warn("failed to persist online status", zap.Error(err), zap.String("user_id", user.ID))
	}

	r.broadcastExcept(user.ID, event.Outbound{
		Event: event.OutUserOnline,
		Data:  event.PresenceChange{UserID: user.ID, Username: user.Username},
	})
	r.bus.Publish(bus.Event{Kind: bus.KindUserOnline, Timestamp: time.Now(), Payload: user.ID})

	r.logger.Info("user connected", zap.String("user_id", user.ID), zap.String("username", user.Username))
}

// Disconnect tears a connection down. The deregister is guarded: if this
// handle was superseded by a newer one for the same user, nothing happens —
// a stale disconnect must never flip a reconnected user to offline.
func (r *Router) Disconnect(user *store.User, h presence.Handle) {
	if !r.registry.Deregister(user.ID, h) {
		r.logger.Info("stale disconnect ignored", zap.String("user_id", user.ID))
		return
	}

	now := time.Now().UnixMilli()
	if err := r.db.SetUserStatus(user.ID, store.StatusOffline, now); err != nil {
		r.logger.Warn("failed to persist offline status", zap.Error(err), zap.String("user_id", user.ID))
	}

	r.broadcastExcept(user.ID, event.Outbound{
		Event: event.OutUserOffline,
		Data:  event.PresenceChange{UserID: user.ID, Username: user.Username},
	})
	r.bus.Publish(bus.Event{Kind: bus.KindUserOffline, Timestamp: time.Now(), Payload: user.ID})

	r.logger.Info("user disconnected", zap.String("user_id", user.ID))
}

// HandleEvent routes one inbound event from a live connection. Events from a
// single connection arrive here one at a time, in the order received.
func (r *Router) HandleEvent(user *store.User, h presence.Handle, ev event.Inbound) {
	switch p := ev.(type) {
	case event.PrivateMessage:
		r.handlePrivateMessage(user, h, p)
	case event.TypingStart:
		r.relayTyping(user, p.RecipientID, true)
	case event.TypingStop:
		r.relayTyping(user, p.RecipientID, false)
	case event.StatusSet:
		r.handleStatusSet(user, h, p)
	}
}

func (r *Router) handlePrivateMessage(user *store.User, origin presence.Handle, p event.PrivateMessage) {
	content := strings.TrimSpace(p.Content)
	if content == "" || p.RecipientID == "" {
		// Empty sends are silently ignored.
		return
	}

	msg := &store.Message{SenderID: user.ID, RecipientID: p.RecipientID, Content: content}
	if err := r.db.CreateMessage(msg); err != nil {
		r.logger.Error("failed to persist message", zap.Error(err), zap.String("sender_id", user.ID))
		_ = origin.Push(event.NewError("failed to send message"))
		return
	}

	notif := &store.Notification{
		RecipientID: p.RecipientID,
		SenderID:    user.ID,
		Type:        store.NotifMessage,
		RelatedID:   msg.ID,
	}
	notifErr := r.db.CreateNotification(notif)
	if notifErr != nil {
		// The message itself is durable and still delivered; the origin is
		// told about the missing companion notification.
		r.logger.Error("failed to persist notification", zap.Error(notifErr), zap.String("message_id", msg.ID))
		_ = origin.Push(event.NewError("failed to create notification"))
	}

	// Reachability may have changed while the writes were in flight, so the
	// lookup happens here and not before the persistence calls.
	if target, ok := r.registry.Lookup(p.RecipientID); ok {
		_ = target.Push(event.Outbound{
			Event: event.OutMessageReceive,
			Data: event.MessageReceive{
				ID:         msg.ID,
				SenderID:   user.ID,
				SenderName: user.Username,
				Content:    content,
				CreatedAt:  time.UnixMilli(msg.CreatedAt),
			},
		})
		if notifErr == nil {
			_ = target.Push(notificationFrame(notif, user))
		}
	}

	// Echo the durable record back; undeliverable echoes are dropped.
	_ = origin.Push(event.Outbound{
		Event: event.OutMessageSent,
		Data: event.MessageSent{
			ID:          msg.ID,
			RecipientID: p.RecipientID,
			Content:     content,
			CreatedAt:   time.UnixMilli(msg.CreatedAt),
		},
	})

	r.bus.Publish(bus.Event{Kind: bus.KindMessageCreated, Timestamp: time.Now(), Payload: msg})
}

// relayTyping forwards a typing state change. Best-effort: nothing is
// persisted and an offline recipient simply never sees it.
func (r *Router) relayTyping(user *store.User, recipientID string, isTyping bool) {
	target, ok := r.registry.Lookup(recipientID)
	if !ok {
		return
	}
	_ = target.Push(event.Outbound{
		Event: event.OutTypingIndicator,
		Data:  event.TypingIndicator{UserID: user.ID, Username: user.Username, IsTyping: isTyping},
	})
}

func (r *Router) handleStatusSet(user *store.User, origin presence.Handle, p event.StatusSet) {
	switch p.Status {
	case store.StatusOnline, store.StatusAway, store.StatusBusy:
	default:
		_ = origin.Push(event.NewError("invalid status"))
		return
	}

	if err := r.db.SetUserStatus(user.ID, p.Status, time.Now().UnixMilli()); err != nil {
		r.logger.Error("failed to persist status", zap.Error(err), zap.String("user_id", user.ID))
		_ = origin.Push(event.NewError("failed to update status"))
		return
	}

	r.broadcastExcept(user.ID, event.Outbound{
		Event: event.OutUserStatus,
		Data:  event.PresenceChange{UserID: user.ID, Username: user.Username, Status: p.Status},
	})
}

// IsOnline reports whether the user currently holds a live connection.
func (r *Router) IsOnline(userID string) bool {
	_, ok := r.registry.Lookup(userID)
	return ok
}

func (r *Router) broadcastExcept(userID string, ev event.Outbound) {
	for _, h := range r.registry.AllHandlesExcept(userID) {
		_ = h.Push(ev)
	}
}

func notificationFrame(n *store.Notification, sender *store.User) event.Outbound {
	ref := event.SenderRef{ID: n.SenderID}
	if sender != nil {
		ref.Username = sender.Username
		ref.Avatar = sender.Avatar
	}
	return event.Outbound{
		Event: event.OutNotificationNew,
		Data: event.NotificationNew{
			ID:        n.ID,
			Type:      n.Type,
			RelatedID: n.RelatedID,
			Read:      n.Read,
			CreatedAt: time.UnixMilli(n.CreatedAt),
			Sender:    ref,
		},
	}
}
