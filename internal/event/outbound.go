package event

import "time"

// Outbound wire event names.
const (
	OutMessageReceive    = "message:receive"
	OutMessageSent       = "message:sent"
	OutTypingIndicator   = "typing:indicator"
	OutNotificationNew   = "notification:new"
	OutUserOnline        = "user:online"
	OutUserOffline       = "user:offline"
	OutUserStatus        = "user:status"
	OutEnchantmentUpdate = "enchantment:update"
	OutError             = "error"
)

// Outbound is a server-originated frame pushed to a client connection.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// MessageReceive delivers an inbound message to its recipient.
type MessageReceive struct {
	ID         string    `json:"_id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MessageSent confirms a send back to its origin so the client can reconcile
// an optimistic local insert with the durable record.
type MessageSent struct {
	ID          string    `json:"_id"`
	RecipientID string    `json:"recipientId"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TypingIndicator relays a typing state change.
type TypingIndicator struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// SenderRef is the populated sender identity attached to pushed notifications.
type SenderRef struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// NotificationNew pushes a freshly persisted notification record.
type NotificationNew struct {
	ID        string    `json:"_id"`
	Type      string    `json:"type"`
	RelatedID string    `json:"relatedId,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
	Sender    SenderRef `json:"sender"`
}

// PresenceChange announces a user coming online or going offline, and carries
// status switches (away, busy).
type PresenceChange struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Status   string `json:"status,omitempty"`
}

// EnchantmentUpdate pushes the auxiliary enchantment counter.
type EnchantmentUpdate struct {
	UserID string `json:"userId"`
	Count  int    `json:"count"`
}

// Error reports an operation failure to the originating connection only.
type Error struct {
	Message string `json:"message"`
}

func NewError(msg string) Outbound {
	return Outbound{Event: OutError, Data: Error{Message: msg}}
}
