package bus

import "time"

// Event kinds published on the bus. All bus traffic is best-effort; durable
// state (messages, notifications, statuses) is written to the store before
// anything is announced here.
const (
	KindEnchantmentUpdated = "enchantment.updated"
	KindUserOnline         = "presence.online"
	KindUserOffline        = "presence.offline"
	KindMessageCreated     = "message.created"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Enchantment is the payload for enchantment.updated events.
type Enchantment struct {
	UserID string
	Count  int
}
