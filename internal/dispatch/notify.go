package dispatch

import (
	"context"
	"fmt"

	"github.com/guildhub/guildhub/internal/bus"
	"github.com/guildhub/guildhub/internal/event"
	"github.com/guildhub/guildhub/internal/store"
	"go.uber.org/zap"
)

// ConnRequest identifies a connection-request flow event handed over by the
// external connection-management layer.
type ConnRequest struct {
	RecipientID string
	SenderID    string
	RequestID   string
}

// Start subscribes the router to the enchantment counter updates the HTTP
// layer publishes on the bus. Only genuinely best-effort pushes ride the
// bus; connection-request notifications must be durable and arrive through
// the synchronous NotifyConnection call instead.
func (r *Router) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	ch, unsub := r.bus.Subscribe("enchantment.", bus.DefaultBuffer)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				r.handleEnchantmentEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the bus consumer.
func (r *Router) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Router) handleEnchantmentEvent(evt bus.Event) {
	ench, ok := evt.Payload.(bus.Enchantment)
	if !ok {
		return
	}
	r.PushEnchantment(ench.UserID, ench.Count)
}

// NotifyConnection persists a connection-request or connection-accepted
// notification and pushes it to the recipient if one is reachable. The
// persist comes first: callers must not acknowledge the request until this
// returns nil. An offline recipient is not an error; the durable record
// waits for their next fetch.
func (r *Router) NotifyConnection(typ string, req ConnRequest) error {
	notif := &store.Notification{
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Type:        typ,
		RelatedID:   req.RequestID,
	}
	if err := r.db.CreateNotification(notif); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}

	target, ok := r.registry.Lookup(req.RecipientID)
	if !ok {
		return nil
	}
	sender, err := r.db.GetUser(req.SenderID)
	if err != nil {
		r.logger.Warn("failed to resolve notification sender", zap.Error(err), zap.String("sender_id", req.SenderID))
	}
	_ = target.Push(notificationFrame(notif, sender))
	return nil
}

// PushEnchantment pushes the auxiliary enchantment counter to a user if they
// are reachable. Best-effort, nothing persisted here.
func (r *Router) PushEnchantment(userID string, count int) {
	target, ok := r.registry.Lookup(userID)
	if !ok {
		return
	}
	_ = target.Push(event.Outbound{
		Event: event.OutEnchantmentUpdate,
		Data:  event.EnchantmentUpdate{UserID: userID, Count: count},
	})
}
