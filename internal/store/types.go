package store

// User status values.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusAway    = "away"
	StatusBusy    = "busy"
)

// Notification types.
const (
	NotifConnectionRequest  = "connection_request"
	NotifConnectionAccepted = "connection_accepted"
	NotifMessage            = "message"
)

// User is the slice of the user record the real-time core reads and writes:
// identity, display fields, and the durable presence status.
type User struct {
	ID       string
	Username string
	Avatar   string
	Status   string
	LastSeen int64 // unix millis
}

// Message is an immutable point-to-point message. Only the read flag is ever
// mutated, via the mark-read flow.
type Message struct {
	ID          string
	SenderID    string
	RecipientID string
	Content     string
	Read        bool
	CreatedAt   int64 // unix millis
}

// Notification is an event targeted at a user, created as a side effect of
// dispatch events and acknowledged by the HTTP layer.
type Notification struct {
	ID          string
	RecipientID string
	SenderID    string
	Type        string
	RelatedID   string
	Read        bool
	CreatedAt   int64 // unix millis
}
